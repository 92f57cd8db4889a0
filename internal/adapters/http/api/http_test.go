package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/farbklang/internal/adapters/http/api"
	service "github.com/okian/farbklang/internal/app"
	"github.com/okian/farbklang/internal/domain/model"
	"github.com/okian/farbklang/internal/domain/palette"
	"github.com/okian/farbklang/internal/domain/rating"
	"github.com/okian/farbklang/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps records calls and returns canned answers.
type mockDeps struct {
	saveErr    error
	duplicate  bool
	lastID     string
	lastForm   rating.Form
	similarErr error
	lastColors [3]string
	lastK      int
	songs      []types.Song
	songsErr   error
	healthy    bool
}

func (m *mockDeps) Save(_ context.Context, id string, f rating.Form) (types.SaveResult, error) {
	m.lastID, m.lastForm = id, f
	if m.saveErr != nil {
		return types.SaveResult{}, m.saveErr
	}
	return types.SaveResult{
		SubmissionID: id,
		Duplicate:    m.duplicate,
		Record:       model.Record{Song: strings.TrimSpace(f.Song), Colors: f.Colors},
		Similar:      []types.Match{{Rank: 1, Song: "neighbour", Distance: 1.5}},
		Skipped:      []types.Skipped{},
	}, nil
}

func (m *mockDeps) Similar(_ context.Context, colors [3]string, k int) (types.Similar, error) {
	m.lastColors, m.lastK = colors, k
	if m.similarErr != nil {
		return types.Similar{}, m.similarErr
	}
	return types.Similar{Query: colors, Matches: []types.Match{}, Skipped: []types.Skipped{}}, nil
}

func (m *mockDeps) SimilarLimit() int    { return 5 }
func (m *mockDeps) MaxSimilarLimit() int { return 50 }

func (m *mockDeps) Songs(context.Context) ([]types.Song, error) { return m.songs, m.songsErr }
func (m *mockDeps) Reload(context.Context) (int, error)         { return len(m.songs), m.songsErr }

func (m *mockDeps) Options(context.Context) types.Options {
	return types.Options{Emotions: rating.DefaultEmotions, MaxEmotions: 2, DefaultColors: palette.Defaults}
}

func (m *mockDeps) Stats(context.Context) types.Stats {
	return types.Stats{Started: m.healthy, Records: len(m.songs), Driver: "memory"}
}

func (m *mockDeps) Healthy() bool { return m.healthy }

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestPostRating(t *testing.T) {
	Convey("Given the ratings endpoint", t, func() {
		deps := &mockDeps{healthy: true}
		mux := newMux(deps)

		Convey("When a full rating is posted", func() {
			w := do(mux, http.MethodPost, "/ratings", `{
				"submission_id": "abc",
				"song": "Song A",
				"colors": ["#112233", "445566", "#778899"],
				"mood": {"cold_warm": 0.9},
				"emotions": ["Happy"]
			}`)

			Convey("Then it is accepted with similar songs", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decode(w)
				So(body["status"], ShouldEqual, "accepted")
				So(body["submission_id"], ShouldEqual, "abc")
				So(body["similar"], ShouldHaveLength, 1)
			})

			Convey("Then unset sliders keep their default", func() {
				So(deps.lastForm.Mood, ShouldNotBeNil)
				So(deps.lastForm.Mood.ColdWarm, ShouldEqual, 0.9)
				So(deps.lastForm.Mood.VisualDensity, ShouldEqual, 0.5)
				So(deps.lastForm.Colors, ShouldResemble, [3]string{"#112233", "445566", "#778899"})
			})
		})

		Convey("When colors are omitted the defaults are used", func() {
			w := do(mux, http.MethodPost, "/ratings", `{"song": "x"}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(deps.lastForm.Colors, ShouldResemble, palette.Defaults)
			So(deps.lastForm.Mood, ShouldBeNil)
		})

		Convey("When the id comes from the Idempotency-Key header", func() {
			req := httptest.NewRequest(http.MethodPost, "/ratings", strings.NewReader(`{"song":"x"}`))
			req.Header.Set("Idempotency-Key", "hdr-1")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(deps.lastID, ShouldEqual, "hdr-1")
		})

		Convey("When the submission is a duplicate", func() {
			deps.duplicate = true
			w := do(mux, http.MethodPost, "/ratings", `{"song":"x","submission_id":"abc"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "duplicate")
			So(decode(w)["duplicate"], ShouldEqual, true)
		})

		Convey("When the body is malformed", func() {
			for _, body := range []string{``, `{`, `{"song": 3}`, `{"unknown": true}`} {
				w := do(mux, http.MethodPost, "/ratings", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When the wrong number of colors is sent", func() {
			w := do(mux, http.MethodPost, "/ratings", `{"song":"x","colors":["#000000"]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "validation_error")
		})

		Convey("When the service rejects the rating", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{rating.ErrMissingSong, http.StatusBadRequest, "validation_error"},
				{fmt.Errorf("color 2: %w", palette.ErrInvalidColor), http.StatusBadRequest, "validation_error"},
				{rating.ErrTooManyEmotions, http.StatusBadRequest, "validation_error"},
				{service.ErrBackpressure, http.StatusTooManyRequests, "backpressure"},
				{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
				{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
			}
			for _, tc := range cases {
				deps.saveErr = tc.err
				w := do(mux, http.MethodPost, "/ratings", `{"song":"x"}`)
				So(w.Code, ShouldEqual, tc.status)
				So(decode(w)["code"], ShouldEqual, tc.code)
			}
		})

		Convey("When the method is wrong", func() {
			w := do(mux, http.MethodGet, "/ratings", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
		})
	})
}

func TestGetSimilar(t *testing.T) {
	Convey("Given the similar endpoint", t, func() {
		deps := &mockDeps{healthy: true}
		mux := newMux(deps)

		Convey("When all colors are given", func() {
			w := do(mux, http.MethodGet, "/similar?c1=%23FF0000&c2=00FF00&c3=0000ff&limit=3", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastColors, ShouldResemble, [3]string{"#FF0000", "00FF00", "0000ff"})
			So(deps.lastK, ShouldEqual, 3)
			So(decode(w)["matches"], ShouldNotBeNil)
		})

		Convey("When limit is omitted the default applies", func() {
			w := do(mux, http.MethodGet, "/similar?c1=FF0000&c2=00FF00&c3=0000FF", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastK, ShouldEqual, 5)
		})

		Convey("When limit is zero the call still succeeds", func() {
			w := do(mux, http.MethodGet, "/similar?c1=FF0000&c2=00FF00&c3=0000FF&limit=0", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastK, ShouldEqual, 0)
		})

		Convey("When a color is missing", func() {
			w := do(mux, http.MethodGet, "/similar?c1=FF0000&c2=00FF00", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["message"], ShouldContainSubstring, "missing c3")
		})

		Convey("When limit is invalid", func() {
			for _, l := range []string{"abc", "-1"} {
				w := do(mux, http.MethodGet, "/similar?c1=FF0000&c2=00FF00&c3=0000FF&limit="+l, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When limit exceeds the cap", func() {
			w := do(mux, http.MethodGet, "/similar?c1=FF0000&c2=00FF00&c3=0000FF&limit=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When the query color is malformed", func() {
			deps.similarErr = fmt.Errorf("query: %w", palette.ErrInvalidColor)
			w := do(mux, http.MethodGet, "/similar?c1=nope&c2=00FF00&c3=0000FF", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "validation_error")
		})
	})
}

func TestSongsOptionsStatsHealth(t *testing.T) {
	Convey("Given the read endpoints", t, func() {
		deps := &mockDeps{healthy: true, songs: []types.Song{{Song: "a"}, {Song: "b"}}}
		mux := newMux(deps)

		Convey("GET /songs lists every song", func() {
			w := do(mux, http.MethodGet, "/songs", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["count"], ShouldEqual, 2)
			So(body["songs"], ShouldHaveLength, 2)
		})

		Convey("GET /songs on an empty store returns an empty list", func() {
			deps.songs = nil
			w := do(mux, http.MethodGet, "/songs", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"songs":[]`)
		})

		Convey("POST /reload rereads the store", func() {
			w := do(mux, http.MethodPost, "/reload", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["records"], ShouldEqual, 2)
		})

		Convey("GET /options describes the form", func() {
			w := do(mux, http.MethodGet, "/options", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["max_emotions"], ShouldEqual, 2)
			So(body["emotions"], ShouldHaveLength, len(rating.DefaultEmotions))
		})

		Convey("GET /stats reports service state", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["store_driver"], ShouldEqual, "memory")
		})

		Convey("GET /healthz follows service state", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")

			deps.healthy = false
			w = do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("GET /metrics serves Prometheus text", func() {
			_ = do(mux, http.MethodGet, "/songs", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "farbklang_")
		})

		Convey("Error answers are counted by their error code", func() {
			_ = do(mux, http.MethodGet, "/similar?c1=zz&c2=00FF00", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Body.String(), ShouldContainSubstring, `error_type="bad_request"`)
		})

		Convey("GET /dashboard serves the page", func() {
			w := do(mux, http.MethodGet, "/dashboard", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
		})
	})
}

func TestOpError(t *testing.T) {
	Convey("Given operation errors", t, func() {
		cause := errors.New("cause")

		Convey("WrapKind keeps both kind and cause", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: cause")
		})

		Convey("NewKind and Wrap carry one side", func() {
			So(api.NewKind("api.op", api.ErrBackpressure).Error(), ShouldEqual, "api.op: backpressure")
			So(errors.Is(api.Wrap("api.op", cause), cause), ShouldBeTrue)
		})

		Convey("Register panics on a nil mux", func() {
			deps := &mockDeps{}
			So(func() { api.NewServer(deps, deps).Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}
