package dedupe_test

import (
	"testing"

	dedupe "github.com/okian/spotcheck/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

type item struct {
	id    string
	value int
}

func byID(i item) string { return i.id }

func TestUniqueBy(t *testing.T) {
	Convey("Given a list with repeated keys", t, func() {
		items := []item{{"a", 1}, {"b", 2}, {"a", 3}, {"c", 4}, {"b", 5}}

		Convey("When deduplicating", func() {
			out := dedupe.UniqueBy(items, byID)

			Convey("Then the last value should win at the first position", func() {
				So(out, ShouldResemble, []item{{"a", 3}, {"b", 5}, {"c", 4}})
			})

			Convey("Then the input should be untouched", func() {
				So(items[0], ShouldResemble, item{"a", 1})
				So(len(items), ShouldEqual, 5)
			})
		})

		Convey("When deduplicating twice", func() {
			once := dedupe.UniqueBy(items, byID)
			twice := dedupe.UniqueBy(once, byID)

			Convey("Then the second pass should change nothing", func() {
				So(twice, ShouldResemble, once)
			})
		})
	})

	Convey("Given an already unique list", t, func() {
		items := []item{{"x", 1}, {"y", 2}, {"z", 3}}

		Convey("When deduplicating", func() {
			out := dedupe.UniqueBy(items, byID)

			Convey("Then it should be returned as is", func() {
				So(out, ShouldResemble, items)
			})
		})
	})

	Convey("Given items whose key is empty", t, func() {
		items := []item{{"", 1}, {"a", 2}, {"", 3}}

		Convey("When deduplicating", func() {
			out := dedupe.UniqueBy(items, byID)

			Convey("Then they should collapse onto one entry", func() {
				So(out, ShouldResemble, []item{{"", 3}, {"a", 2}})
			})
		})
	})

	Convey("Given an empty list", t, func() {
		Convey("When deduplicating", func() {
			out := dedupe.UniqueBy([]item(nil), byID)

			Convey("Then an empty non-nil list should come back", func() {
				So(out, ShouldNotBeNil)
				So(out, ShouldBeEmpty)
			})
		})
	})
}
