package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a site handler", t, func() {
		ctx := context.Background()
		mux := http.NewServeMux()
		Register(ctx, mux)

		Convey("Then / serves the rating form", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, `id="rating-form"`)
			So(w.Body.String(), ShouldContainSubstring, "/similar")
		})

		Convey("And the stylesheet is served", func() {
			req := httptest.NewRequest(http.MethodGet, "/app.css", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/css")
		})

		Convey("And unknown assets are not found", func() {
			req := httptest.NewRequest(http.MethodGet, "/some-asset", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And other methods are refused", func() {
			req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSiteHandlerWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		So(func() { Register(context.Background(), nil) }, ShouldPanic)
	})
}
