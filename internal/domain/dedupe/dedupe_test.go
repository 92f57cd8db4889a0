package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/farbklang/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a submission id is new", func() {
			So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 1)

			Convey("Then the second click is reported as seen", func() {
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And Unrecord allows a retry", func() {
				d.Unrecord(ctx, "sub-1")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown id is unrecorded", func() {
			d.Unrecord(ctx, "missing")
			So(d.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When more ids arrive than fit", func() {
			for i := 1; i <= 4; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("sub-%d", i)), ShouldBeFalse)
			}

			Convey("Then the oldest id is forgotten first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "sub-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "sub-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
			})
		})

		Convey("When an id is unrecorded and re-added before its slot is reused", func() {
			d.SeenAndRecord(ctx, "a")
			d.Unrecord(ctx, "a")
			d.SeenAndRecord(ctx, "b")
			d.SeenAndRecord(ctx, "a")
			d.SeenAndRecord(ctx, "c")

			Convey("Then evicting the stale slot keeps the newer entry", func() {
				// ring: [a(stale), b, a] then c evicts the stale a slot
				d.SeenAndRecord(ctx, "d")
				So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("sub-%d", i))
		}
		So(d.Size(), ShouldEqual, 1000)
	})

	Convey("Given concurrent submissions of the same id", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "same") {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		So(fresh, ShouldEqual, 1)
	})
}
