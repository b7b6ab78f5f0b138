package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/spotcheck/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMinerUID(t *testing.T) {
	convey.Convey("Given miner UIDs in JSON", t, func() {
		convey.Convey("When decoding numbers, strings and null", func() {
			var uids []model.MinerUID
			err := json.Unmarshal([]byte(`[7, "hotkey-1", null, -3]`), &uids)

			convey.Convey("Then each form should be kept as text", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(uids, convey.ShouldResemble, []model.MinerUID{"7", "hotkey-1", "", "-3"})
			})
		})

		convey.Convey("When decoding an object", func() {
			var uid model.MinerUID
			err := json.Unmarshal([]byte(`{"a":1}`), &uid)

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When encoding", func() {
			out, err := json.Marshal([]model.MinerUID{"7", "hotkey-1", "1.5"})

			convey.Convey("Then numeric UIDs should be numbers again", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(out), convey.ShouldEqual, `[7,"hotkey-1",1.5]`)
			})
		})

		convey.Convey("When resolving by index", func() {
			uids := []model.MinerUID{"11", ""}

			convey.Convey("Then missing or empty slots should fall back to the index", func() {
				convey.So(model.ResolveUID(uids, 0), convey.ShouldEqual, model.MinerUID("11"))
				convey.So(model.ResolveUID(uids, 1), convey.ShouldEqual, model.MinerUID("1"))
				convey.So(model.ResolveUID(uids, 5), convey.ShouldEqual, model.MinerUID("5"))
				convey.So(model.ResolveUID(nil, 0), convey.ShouldEqual, model.MinerUID("0"))
			})
		})
	})
}

func TestTimestamps(t *testing.T) {
	convey.Convey("Given review timestamps", t, func() {
		convey.Convey("When parsing the accepted layouts", func() {
			full, ok1 := model.ParseTimestamp("2024-03-20T10:00:00.123Z")
			offset, ok2 := model.ParseTimestamp("2024-03-20T12:00:00+02:00")
			naive, ok3 := model.ParseTimestamp("2024-03-20T10:00:00")
			day, ok4 := model.ParseTimestamp("2024-03-20")
			_, bad := model.ParseTimestamp("yesterday")

			convey.Convey("Then they should all be read as UTC", func() {
				convey.So(ok1 && ok2 && ok3 && ok4, convey.ShouldBeTrue)
				convey.So(bad, convey.ShouldBeFalse)
				convey.So(full.Nanosecond(), convey.ShouldEqual, 123*int(time.Millisecond))
				convey.So(offset.Equal(naive), convey.ShouldBeTrue)
				convey.So(day.Location(), convey.ShouldEqual, time.UTC)
			})
		})

		convey.Convey("When formatting", func() {
			ts := time.Date(2024, 3, 20, 10, 0, 0, 5_000_000, time.FixedZone("X", 3600))

			convey.Convey("Then ISO and response timestamps should use UTC milliseconds", func() {
				convey.So(model.FormatISO(ts), convey.ShouldEqual, "2024-03-20T09:00:00.005Z")
				convey.So(model.Timestamp(ts), convey.ShouldEqual, "2024-03-20 09:00:00.005")
			})
		})
	})
}

func TestValidationRecord(t *testing.T) {
	convey.Convey("Given the record factory", t, func() {
		convey.Convey("When creating a default record", func() {
			r := model.NewRecord("3")

			convey.Convey("Then every field should hold its default", func() {
				convey.So(r.MinerUID, convey.ShouldEqual, model.MinerUID("3"))
				convey.So(r.PassedValidation(), convey.ShouldBeFalse)
				convey.So(r.ValidationError, convey.ShouldBeEmpty)
				convey.So(r.Count, convey.ShouldEqual, 0)
				convey.So(r.MostRecentDate, convey.ShouldBeNil)
				convey.So(r.Data, convey.ShouldNotBeNil)
				convey.So(r.Data, convey.ShouldBeEmpty)
				convey.So(r.ResponseTime, convey.ShouldBeNil)
				convey.So(r.Components, convey.ShouldResemble, model.Components{})
			})
		})

		convey.Convey("When a pending record moves through verification", func() {
			when := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
			sample := []model.Review{{ReviewID: "a"}}
			pending := model.Pending("1", 10, &when, sample)

			convey.Convey("Then it should pass until a verdict rejects it", func() {
				convey.So(pending.PassedValidation(), convey.ShouldBeTrue)
				convey.So(pending.NeedsSpotCheck(), convey.ShouldBeTrue)

				verified := pending.Verify()
				convey.So(verified.Status, convey.ShouldEqual, model.StatusVerified)
				convey.So(verified.NeedsSpotCheck(), convey.ShouldBeFalse)
				convey.So(verified.Count, convey.ShouldEqual, 10)

				failed := pending.FailVerification("Failed spot check verification")
				convey.So(failed.PassedValidation(), convey.ShouldBeFalse)
				convey.So(failed.Count, convey.ShouldEqual, 0)
				convey.So(failed.MostRecentDate, convey.ShouldBeNil)

				aborted := pending.AbortBatch("Batch spot check failed")
				convey.So(aborted.PassedValidation(), convey.ShouldBeFalse)
				convey.So(aborted.Count, convey.ShouldEqual, 10)
				convey.So(aborted.ValidationError, convey.ShouldEqual, "Batch spot check failed")

				convey.So(pending.Status, convey.ShouldEqual, model.StatusPending)
			})
		})

		convey.Convey("When a rejected record is verified", func() {
			r := model.Rejected("2", "Response is empty").Verify()

			convey.Convey("Then it should stay rejected", func() {
				convey.So(r.Status, convey.ShouldEqual, model.StatusRejected)
				convey.So(r.Status.String(), convey.ShouldEqual, "rejected")
			})
		})
	})
}

func TestReviewFromFields(t *testing.T) {
	convey.Convey("Given a raw review object", t, func() {
		raw := json.RawMessage(`{"reviewId":"r1","fid":"f","totalScore":4.5,"text":null,"extra":true}`)
		var f model.Fields
		convey.So(json.Unmarshal(raw, &f), convey.ShouldBeNil)

		convey.Convey("When building the typed review", func() {
			r := model.ReviewFromFields(f, raw)

			convey.Convey("Then known fields should be typed and the raw form kept", func() {
				convey.So(r.ReviewID, convey.ShouldEqual, "r1")
				convey.So(r.FID, convey.ShouldEqual, "f")
				convey.So(r.TotalScore, convey.ShouldEqual, 4.5)
				convey.So(r.Text, convey.ShouldBeNil)

				out, err := json.Marshal(r)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(out), convey.ShouldEqual, string(raw))
			})
		})

		convey.Convey("When text is not a string", func() {
			f["text"] = json.RawMessage(`42`)
			r := model.ReviewFromFields(f, nil)

			convey.Convey("Then its literal form should be used", func() {
				convey.So(*r.Text, convey.ShouldEqual, "42")
			})
		})

		convey.Convey("When a review has no raw form", func() {
			text := "great"
			out, err := json.Marshal(model.Review{ReviewID: "r2", Text: &text})

			convey.Convey("Then it should encode its fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(out), convey.ShouldContainSubstring, `"reviewId":"r2"`)
				convey.So(string(out), convey.ShouldContainSubstring, `"text":"great"`)
			})
		})
	})
}
