package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/spotcheck/pkg/retry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRetryDo(t *testing.T) {
	Convey("Given a retry config with tiny delays", t, func() {
		cfg := retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
		ctx := context.Background()

		Convey("When the operation succeeds on the second attempt", func() {
			calls := 0
			err := cfg.Do(ctx, "flaky", func(context.Context) error {
				calls++
				if calls < 2 {
					return errors.New("not yet")
				}
				return nil
			})

			Convey("Then it should stop retrying", func() {
				So(err, ShouldBeNil)
				So(calls, ShouldEqual, 2)
			})
		})

		Convey("When the operation always fails", func() {
			boom := errors.New("boom")
			calls := 0
			err := cfg.Do(ctx, "broken", func(context.Context) error {
				calls++
				return boom
			})

			Convey("Then every attempt is used and both errors are wrapped", func() {
				So(calls, ShouldEqual, 3)
				So(errors.Is(err, retry.ErrExhausted), ShouldBeTrue)
				So(errors.Is(err, boom), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "broken failed after 3 attempts")
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			calls := 0
			err := cfg.Do(cctx, "cancelled", func(context.Context) error {
				calls++
				cancel()
				return errors.New("interrupted")
			})

			Convey("Then it should return the context error without retrying", func() {
				So(calls, ShouldEqual, 1)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When MaxAttempts is not set", func() {
			calls := 0
			_ = retry.Config{BaseDelay: time.Millisecond}.Do(ctx, "defaults", func(context.Context) error {
				calls++
				return errors.New("nope")
			})

			Convey("Then the default attempt budget applies", func() {
				So(calls, ShouldEqual, 3)
			})
		})
	})
}
