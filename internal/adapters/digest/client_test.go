package digest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/okian/spotcheck/internal/adapters/digest"
	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func job() model.DigestJob {
	return model.DigestJob{
		DatasetType: model.DatasetGoogleMapsReviews,
		MinerUID:    "7",
		Reviews: []model.Review{
			{ReviewID: "r1", Raw: json.RawMessage(`{"reviewId":"r1","extra":true}`)},
		},
	}
}

func TestSend(t *testing.T) {
	Convey("Given a digestion platform that accepts jobs", t, func() {
		var auth string
		var body map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := digest.New(digest.WithURL(srv.URL), digest.WithToken("platform"))

		Convey("When sending a job", func() {
			err := c.Send(context.Background(), job())

			Convey("Then it should post the type, miner and original review objects", func() {
				So(err, ShouldBeNil)
				So(auth, ShouldEqual, "Bearer platform")
				So(body["type"], ShouldEqual, "google-maps-reviews")
				So(body["miner_uid"], ShouldEqual, 7.0)
				data, ok := body["data"].([]any)
				So(ok, ShouldBeTrue)
				So(data, ShouldHaveLength, 1)
				So(data[0], ShouldResemble, map[string]any{"reviewId": "r1", "extra": true})
			})
		})
	})

	Convey("Given a platform that rejects jobs", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := digest.New(digest.WithURL(srv.URL), digest.WithToken("wrong"))

		Convey("When sending a job", func() {
			err := c.Send(context.Background(), job())

			Convey("Then it should report the status", func() {
				So(errors.Is(err, digest.ErrUnexpectedStatus), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "401")
			})
		})
	})

	Convey("Given no platform token", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		c := digest.New(digest.WithURL(srv.URL))

		Convey("When sending a job", func() {
			err := c.Send(context.Background(), job())

			Convey("Then it should skip without calling the platform", func() {
				So(err, ShouldBeNil)
				So(int(calls.Load()), ShouldEqual, 0)
			})
		})
	})
}
