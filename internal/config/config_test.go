package config_test

import (
	"testing"

	"github.com/okian/farbklang/internal/config"
	"github.com/okian/farbklang/internal/domain/rating"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverXLSX)
			convey.So(cfg.SimilarLimit, convey.ShouldEqual, 5)
			convey.So(cfg.MaxSimilarLimit, convey.ShouldEqual, 50)
			convey.So(cfg.SaveWorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.MaxEmotions, convey.ShouldEqual, 2)
			convey.So(cfg.Emotions, convey.ShouldResemble, rating.DefaultEmotions)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("And the emotion list is a copy", func() {
			cfg.Emotions[0] = "changed"
			convey.So(rating.DefaultEmotions[0], convey.ShouldEqual, "Happy")
		})
	})
}
