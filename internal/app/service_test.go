package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/farbklang/internal/adapters/repository"
	service "github.com/okian/farbklang/internal/app"
	"github.com/okian/farbklang/internal/domain/model"
	"github.com/okian/farbklang/internal/domain/palette"
	"github.com/okian/farbklang/internal/domain/rating"
	"github.com/okian/farbklang/internal/domain/similarity"
	"github.com/okian/farbklang/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func stored(song, c1, c2, c3 string) model.Record {
	return model.Record{Song: song, Colors: [3]string{c1, c2, c3}, Mood: model.DefaultMood()}
}

func form(song, c1, c2, c3 string) rating.Form {
	return rating.Form{Song: song, Colors: [3]string{c1, c2, c3}}
}

// eventually polls cond until it holds or two seconds pass.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// blockingStore holds every write until release is closed.
type blockingStore struct {
	*repository.MemoryStore
	release chan struct{}
}

func (b *blockingStore) Upsert(ctx context.Context, rec model.Record) (bool, error) {
	<-b.release
	return b.MemoryStore.Upsert(ctx, rec)
}

// closeCountingStore is a blockingStore that records Close calls.
type closeCountingStore struct {
	blockingStore
	closed atomic.Int32
}

func (c *closeCountingStore) Close() error {
	c.closed.Add(1)
	return c.MemoryStore.Close()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()
		ctx := context.Background()

		Convey("Calls before Start fail with ErrNotStarted", func() {
			_, err := svc.Save(ctx, "", form("x", "#000000", "#000000", "#000000"))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Similar(ctx, palette.Defaults, 1)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Songs(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.Healthy(), ShouldBeFalse)
			So(svc.Stats(ctx).Started, ShouldBeFalse)
		})

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil) // idempotent

			Convey("Then it reports itself healthy", func() {
				So(svc.Healthy(), ShouldBeTrue)
				st := svc.Stats(ctx)
				So(st.Started, ShouldBeTrue)
				So(st.Driver, ShouldEqual, "memory")
				So(st.Records, ShouldEqual, 0)
				So(st.Workers, ShouldEqual, 1)
				So(st.QueueCapacity, ShouldEqual, 1_000)
			})

			Convey("Then Stop can be called twice", func() {
				svc.Stop()
				svc.Stop()
				So(svc.Healthy(), ShouldBeFalse)
			})
		})

		Convey("When the driver is unknown", func() {
			bad := service.New(service.WithStoreDriver("gsheets", "", ""))
			err := bad.Start(ctx)
			So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
		})
	})
}

func TestService_Save(t *testing.T) {
	Convey("Given a started service over a seeded store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(
			stored("Red Song", "#FF0000", "#FF0000", "#FF0000"),
			stored("Dark Song", "#000000", "#000000", "#000000"),
			stored("Broken Song", "notacolor", "#000000", "#000000"),
			stored("Near Red", "#FE0000", "#FF0000", "#FF0000"),
		)
		fixed := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
		svc := service.New(
			service.WithStore(store),
			service.WithSimilarLimit(2),
			service.WithSnapshotInterval(0),
			service.WithClock(func() time.Time { return fixed }),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a new rating is saved", func() {
			res, err := svc.Save(ctx, "sub-1", form(" Crimson ", "#ff0000", "#ff0000", "#ff0000"))
			So(err, ShouldBeNil)

			Convey("Then the record is normalized", func() {
				So(res.SubmissionID, ShouldEqual, "sub-1")
				So(res.Duplicate, ShouldBeFalse)
				So(res.Record.Song, ShouldEqual, "Crimson")
				So(res.Record.Colors[0], ShouldEqual, "#FF0000")
				So(res.Record.Timestamp, ShouldEqual, fixed)
			})

			Convey("Then the closest songs come back in ascending order", func() {
				So(res.Similar, ShouldHaveLength, 2)
				So(res.Similar[0].Song, ShouldEqual, "Red Song")
				So(res.Similar[0].Distance, ShouldEqual, 0)
				So(res.Similar[1].Song, ShouldEqual, "Near Red")
				So(res.Similar[1].Rank, ShouldEqual, 2)
			})

			Convey("Then malformed records are reported with their store index", func() {
				So(res.Skipped, ShouldHaveLength, 1)
				So(res.Skipped[0].Song, ShouldEqual, "Broken Song")
				So(res.Skipped[0].Index, ShouldEqual, 2)
			})

			Convey("Then the write reaches the store", func() {
				So(eventually(func() bool { return svc.Stats(ctx).Records == 5 }), ShouldBeTrue)
				songs, err := svc.Songs(ctx)
				So(err, ShouldBeNil)
				So(songs[len(songs)-1].Song, ShouldEqual, "Crimson")
			})

			Convey("Then resubmitting the same id is a duplicate", func() {
				again, err := svc.Save(ctx, "sub-1", form("Crimson", "#FF0000", "#FF0000", "#FF0000"))
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(eventually(func() bool { return svc.Stats(ctx).Records == 5 }), ShouldBeTrue)
			})
		})

		Convey("When a stored song is rated again", func() {
			res, err := svc.Save(ctx, "", form("Red Song", "#FF0000", "#FF0000", "#FF0000"))
			So(err, ShouldBeNil)

			Convey("Then its earlier rating is not listed as similar", func() {
				So(res.SubmissionID, ShouldNotBeEmpty)
				So(res.Similar[0].Song, ShouldEqual, "Near Red")
			})

			Convey("Then it replaces the earlier rating", func() {
				So(eventually(func() bool {
					songs, _ := svc.Songs(ctx)
					return len(songs) == 4 && songs[3].Song == "Red Song"
				}), ShouldBeTrue)
			})
		})

		Convey("When the form is invalid", func() {
			_, err := svc.Save(ctx, "", form("  ", "#FF0000", "#FF0000", "#FF0000"))
			So(errors.Is(err, rating.ErrMissingSong), ShouldBeTrue)

			_, err = svc.Save(ctx, "", form("x", "#GG0000", "#FF0000", "#FF0000"))
			So(errors.Is(err, palette.ErrInvalidColor), ShouldBeTrue)

			f := form("x", "#FF0000", "#FF0000", "#FF0000")
			f.Emotions = []string{"Happy", "Sad", "Dark"}
			_, err = svc.Save(ctx, "", f)
			So(errors.Is(err, rating.ErrTooManyEmotions), ShouldBeTrue)
		})
	})

	Convey("Given a service whose queue is full", t, func() {
		ctx := context.Background()
		store := &blockingStore{MemoryStore: repository.NewMemoryStore(), release: make(chan struct{})}
		svc := service.New(service.WithStore(store), service.WithQueueSize(1), service.WithSnapshotInterval(0))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		defer close(store.release)

		Convey("Then saves beyond capacity hit backpressure", func() {
			var err error
			for i := 0; i < 10 && err == nil; i++ {
				_, err = svc.Save(ctx, "", form("song", "#FF0000", "#FF0000", "#FF0000"))
			}
			So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
		})
	})
}

func TestService_StopWithPendingSaves(t *testing.T) {
	Convey("Given a service that owns a store whose writes hang", t, func() {
		ctx := context.Background()
		store := &closeCountingStore{blockingStore: blockingStore{
			MemoryStore: repository.NewMemoryStore(),
			release:     make(chan struct{}),
		}}
		svc := service.New(
			service.WithOwnedStore(store),
			service.WithSnapshotInterval(0),
			service.WithShutdownTimeout(50*time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)

		_, err := svc.Save(ctx, "", form("stuck", "#FF0000", "#00FF00", "#0000FF"))
		So(err, ShouldBeNil)

		Convey("When Stop gives up waiting for the worker", func() {
			svc.Stop()

			Convey("Then the store is left open for the write in flight", func() {
				So(store.closed.Load(), ShouldEqual, 0)
				close(store.release)
				So(eventually(func() bool {
					n, _ := store.MemoryStore.Count(ctx)
					return n == 1
				}), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service that owns an idle store", t, func() {
		store := &closeCountingStore{blockingStore: blockingStore{
			MemoryStore: repository.NewMemoryStore(),
			release:     make(chan struct{}),
		}}
		svc := service.New(service.WithOwnedStore(store), service.WithSnapshotInterval(0))
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("Then a clean Stop closes it", func() {
			svc.Stop()
			So(store.closed.Load(), ShouldEqual, 1)
		})
	})
}

func TestService_Similar(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(
			stored("White", "#FFFFFF", "#FFFFFF", "#FFFFFF"),
			stored("Black", "#000000", "#000000", "#000000"),
			stored("Broken", "notacolor", "#000000", "#000000"),
		)
		svc := service.New(service.WithStore(store), service.WithMaxSimilarLimit(10), service.WithSnapshotInterval(0))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When querying with white", func() {
			res, err := svc.Similar(ctx, [3]string{"ffffff", "#FFFFFF", "#ffffff"}, 5)
			So(err, ShouldBeNil)

			So(res.Query, ShouldResemble, [3]string{"#FFFFFF", "#FFFFFF", "#FFFFFF"})
			So(res.Matches, ShouldHaveLength, 2)
			So(res.Matches[0].Song, ShouldEqual, "White")
			So(res.Matches[1].Distance, ShouldAlmostEqual, 441.67, 0.01)
			So(res.Skipped, ShouldHaveLength, 1)
		})

		Convey("When k is zero the result is empty", func() {
			res, err := svc.Similar(ctx, palette.Defaults, 0)
			So(err, ShouldBeNil)
			So(res.Matches, ShouldBeEmpty)
		})

		Convey("When the query is malformed", func() {
			_, err := svc.Similar(ctx, [3]string{"#FFF", "#000000", "#000000"}, 1)
			So(errors.Is(err, similarity.ErrInvalidColor), ShouldBeTrue)
		})

		Convey("When k is negative", func() {
			_, err := svc.Similar(ctx, palette.Defaults, -1)
			So(errors.Is(err, similarity.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When k is over the cap", func() {
			_, err := svc.Similar(ctx, palette.Defaults, 11)
			So(errors.Is(err, service.ErrLimitExceeded), ShouldBeTrue)
		})

		Convey("Options describe the form", func() {
			opts := svc.Options(ctx)
			So(opts.Emotions, ShouldResemble, rating.DefaultEmotions)
			So(opts.MaxEmotions, ShouldEqual, 2)
			So(opts.DefaultColors, ShouldResemble, palette.Defaults)
			So(opts.MaxLimit, ShouldEqual, 10)
		})
	})
}

func TestService_FileStore(t *testing.T) {
	Convey("Given a service backed by an xlsx file", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "ratings.xlsx")
		svc := service.New(
			service.WithStoreDriver("xlsx", path, "Ratings"),
			service.WithWatchStore(true),
			service.WithSnapshotInterval(0),
		)
		So(svc.Start(ctx), ShouldBeNil)

		_, err := svc.Save(ctx, "", form("Song A", "#123456", "#654321", "#ABCDEF"))
		So(err, ShouldBeNil)
		svc.Stop()

		Convey("Then a restarted service sees the saved rating", func() {
			again := service.New(service.WithStoreDriver("xlsx", path, "Ratings"), service.WithSnapshotInterval(0))
			So(again.Start(ctx), ShouldBeNil)
			defer again.Stop()

			songs, err := again.Songs(ctx)
			So(err, ShouldBeNil)
			So(songs, ShouldHaveLength, 1)
			So(songs[0].Song, ShouldEqual, "Song A")
			So(songs[0].Colors[0].Hex, ShouldEqual, "#123456")

			n, err := again.Reload(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})
	})
}
