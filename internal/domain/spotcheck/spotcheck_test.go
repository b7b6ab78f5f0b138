package spotcheck_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/internal/domain/spotcheck"
	"github.com/okian/spotcheck/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const fid = "fid-1"

type fakeVerifier struct {
	calls    atomic.Int32
	reqs     []spotcheck.Request
	verified []model.VerifiedReview
	err      error
	block    bool
}

func (f *fakeVerifier) Verify(ctx context.Context, _ string, reqs []spotcheck.Request) ([]model.VerifiedReview, error) {
	f.calls.Add(1)
	f.reqs = reqs
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.verified, f.err
}

func ptr(s string) *string { return &s }

func sampled(id string) model.Review {
	return model.Review{
		ReviewID:         id,
		ReviewerID:       "user-" + id,
		ReviewURL:        "https://maps.example/" + id,
		PlaceID:          "place-1",
		FID:              fid,
		Text:             ptr("nice " + id),
		PublishedAtDate:  "2024-03-20T10:00:00.000Z",
		LastEditedAtDate: "2024-03-20T10:00:00.123Z",
	}
}

func truth(r model.Review) model.VerifiedReview {
	return model.VerifiedReview{
		ReviewID:        r.ReviewID,
		FID:             fid,
		ReviewerID:      r.ReviewerID,
		PlaceID:         r.PlaceID,
		Text:            r.Text,
		PublishedAtDate: "2024-03-20T10:00:00.987Z",
	}
}

func TestReconcile(t *testing.T) {
	Convey("Given a sampled review and its ground truth", t, func() {
		orig := sampled("a")
		v := truth(orig)

		Convey("When the dates differ only in milliseconds", func() {
			ok := spotcheck.ValidateMinerAgainstBatch([]model.Review{orig}, fid, spotcheck.NewVerifiedSet([]model.VerifiedReview{v}))

			Convey("Then the miner should pass", func() {
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the dates differ by a second", func() {
			v.PublishedAtDate = "2024-03-20T10:00:01.000Z"
			err := spotcheck.Reconcile([]model.Review{orig}, fid, spotcheck.NewVerifiedSet([]model.VerifiedReview{v}))

			Convey("Then a date mismatch should be reported", func() {
				So(errors.Is(err, spotcheck.ErrDateMismatch), ShouldBeTrue)
			})
		})

		Convey("When the submitted edit date is missing", func() {
			orig.LastEditedAtDate = ""
			err := spotcheck.Reconcile([]model.Review{orig}, fid, spotcheck.NewVerifiedSet([]model.VerifiedReview{v}))

			Convey("Then the review should not match", func() {
				So(errors.Is(err, spotcheck.ErrDateMismatch), ShouldBeTrue)
			})
		})

		Convey("When the review is absent from the verified set", func() {
			err := spotcheck.Reconcile([]model.Review{orig}, fid, spotcheck.VerifiedSet{})

			Convey("Then it should be reported as not verified", func() {
				So(errors.Is(err, spotcheck.ErrNotVerified), ShouldBeTrue)
			})
		})

		Convey("When an identity field differs", func() {
			v.PlaceID = "place-2"
			err := spotcheck.Reconcile([]model.Review{orig}, fid, spotcheck.NewVerifiedSet([]model.VerifiedReview{v}))

			Convey("Then a field mismatch should name the field", func() {
				So(errors.Is(err, spotcheck.ErrFieldMismatch), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "placeId")
			})
		})

		Convey("When the verified fid is not the request fid", func() {
			v.FID = "fid-2"
			ok := spotcheck.ValidateMinerAgainstBatch([]model.Review{orig}, fid, spotcheck.NewVerifiedSet([]model.VerifiedReview{v}))

			Convey("Then the miner should fail", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When comparing text", func() {
			Convey("Then null and absent should be equal", func() {
				orig.Text, v.Text = nil, nil
				So(spotcheck.Reconcile([]model.Review{orig}, fid, spotcheck.NewVerifiedSet([]model.VerifiedReview{v})), ShouldBeNil)
			})

			Convey("Then null should not equal a string", func() {
				orig.Text = nil
				err := spotcheck.Reconcile([]model.Review{orig}, fid, spotcheck.NewVerifiedSet([]model.VerifiedReview{v}))
				So(errors.Is(err, spotcheck.ErrTextMismatch), ShouldBeTrue)
			})

			Convey("Then an empty string should not equal null", func() {
				orig.Text, v.Text = ptr(""), nil
				err := spotcheck.Reconcile([]model.Review{orig}, fid, spotcheck.NewVerifiedSet([]model.VerifiedReview{v}))
				So(errors.Is(err, spotcheck.ErrTextMismatch), ShouldBeTrue)
			})
		})

		Convey("When one of several reviews mismatches", func() {
			second := sampled("b")
			bad := truth(second)
			bad.ReviewerID = "someone-else"
			ok := spotcheck.ValidateMinerAgainstBatch([]model.Review{orig, second}, fid, spotcheck.NewVerifiedSet([]model.VerifiedReview{v, bad}))

			Convey("Then the whole miner should fail", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestVerifiedSet(t *testing.T) {
	Convey("Given verified records with duplicates and blanks", t, func() {
		set := spotcheck.NewVerifiedSet([]model.VerifiedReview{
			{ReviewID: "a", PlaceID: "first"},
			{ReviewID: "", PlaceID: "blank"},
			{ReviewID: "a", PlaceID: "second"},
		})

		Convey("Then the last record should win and blanks be dropped", func() {
			So(set, ShouldHaveLength, 1)
			So(set["a"].PlaceID, ShouldEqual, "second")
		})
	})

	Convey("Given batches from two miners", t, func() {
		batches := []model.SpotCheck{
			{MinerUID: "1", Reviews: []model.Review{sampled("a"), sampled("b")}},
			{MinerUID: "2", Reviews: []model.Review{sampled("c")}},
		}

		Convey("When building requests", func() {
			reqs := spotcheck.BuildRequests(batches)

			Convey("Then each sampled URL should become a GET", func() {
				So(reqs, ShouldResemble, []spotcheck.Request{
					{URL: "https://maps.example/a", Method: "GET"},
					{URL: "https://maps.example/b", Method: "GET"},
					{URL: "https://maps.example/c", Method: "GET"},
				})
			})
		})
	})
}

func cohort() ([]model.ValidationRecord, []model.SpotCheck) {
	when := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	good := []model.Review{sampled("a"), sampled("b")}
	liar := []model.Review{sampled("c")}
	records := []model.ValidationRecord{
		model.Pending("1", 40, &when, good),
		model.Rejected("2", "Response is empty"),
		model.Pending("3", 25, &when, liar),
		model.Pending("4", 10, nil, nil),
	}
	batches := []model.SpotCheck{
		{MinerUID: "1", Reviews: good},
		{MinerUID: "3", Reviews: liar},
	}
	return records, batches
}

func TestApply(t *testing.T) {
	Convey("Given a cohort with one honest and one dishonest miner", t, func() {
		records, batches := cohort()
		forged := truth(sampled("c"))
		forged.Text = ptr("something else")
		fv := &fakeVerifier{verified: []model.VerifiedReview{truth(sampled("a")), truth(sampled("b")), forged}}
		c := spotcheck.New(fv)

		Convey("When applying the batch", func() {
			out, err := c.Apply(context.Background(), fid, records, batches)

			Convey("Then one call should cover every sampled review", func() {
				So(err, ShouldBeNil)
				So(int(fv.calls.Load()), ShouldEqual, 1)
				So(fv.reqs, ShouldHaveLength, 3)
			})

			Convey("Then verdicts should land on the right miners", func() {
				So(out, ShouldHaveLength, 4)
				So(out[0].Status, ShouldEqual, model.StatusVerified)
				So(out[0].Count, ShouldEqual, 40)

				So(out[1].ValidationError, ShouldEqual, "Response is empty")

				So(out[2].PassedValidation(), ShouldBeFalse)
				So(out[2].ValidationError, ShouldEqual, spotcheck.ReasonMismatch)
				So(out[2].Count, ShouldEqual, 0)
				So(out[2].MostRecentDate, ShouldBeNil)

				So(out[3].Status, ShouldEqual, model.StatusPending)
				So(out[3].PassedValidation(), ShouldBeTrue)
			})

			Convey("Then the input should be left alone", func() {
				So(records[2].Status, ShouldEqual, model.StatusPending)
			})
		})
	})

	Convey("Given a verification source that fails", t, func() {
		records, batches := cohort()
		fv := &fakeVerifier{err: errors.New("actor run failed")}
		c := spotcheck.New(fv)

		Convey("When applying the batch", func() {
			out, err := c.Apply(context.Background(), fid, records, batches)

			Convey("Then every miner with a sample should be rejected", func() {
				So(err, ShouldBeNil)
				So(out[0].PassedValidation(), ShouldBeFalse)
				So(out[0].ValidationError, ShouldEqual, spotcheck.ReasonBatchFailed)
				So(out[2].PassedValidation(), ShouldBeFalse)
				So(out[2].ValidationError, ShouldEqual, spotcheck.ReasonBatchFailed)
			})

			Convey("Then miners without a sample should be untouched", func() {
				So(out[1].ValidationError, ShouldEqual, "Response is empty")
				So(out[3].PassedValidation(), ShouldBeTrue)
			})
		})

		Convey("When running the batch directly", func() {
			_, err := c.RunBatch(context.Background(), fid, batches)

			Convey("Then the failure should be wrapped", func() {
				So(errors.Is(err, spotcheck.ErrBatchFailed), ShouldBeTrue)
			})
		})
	})

	Convey("Given a verification source that hangs", t, func() {
		records, batches := cohort()
		fv := &fakeVerifier{block: true}
		c := spotcheck.New(fv, spotcheck.WithTimeout(20*time.Millisecond))

		Convey("When the call times out", func() {
			out, err := c.Apply(context.Background(), fid, records, batches)

			Convey("Then the batch should fail closed", func() {
				So(err, ShouldBeNil)
				So(out[0].ValidationError, ShouldEqual, spotcheck.ReasonBatchFailed)
			})
		})

		Convey("When the caller cancels", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := c.Apply(ctx, fid, records, batches)

			Convey("Then the cancellation should be returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given nothing to spot check", t, func() {
		fv := &fakeVerifier{}
		c := spotcheck.New(fv)

		Convey("When applying", func() {
			out, err := c.Apply(context.Background(), fid, []model.ValidationRecord{model.Rejected("1", "x")}, nil)

			Convey("Then no call should be made", func() {
				So(err, ShouldBeNil)
				So(out, ShouldHaveLength, 1)
				So(int(fv.calls.Load()), ShouldEqual, 0)
			})
		})
	})
}
