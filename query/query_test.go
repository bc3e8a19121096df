/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Authors:
 *   Sendu Bala <sb10@sanger.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package query

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
	"github.com/wtsi-hgi/wavebank/index"
)

func stationRows(stations ...string) []index.Row {
	rows := make([]index.Row, len(stations))
	for i, s := range stations {
		rows[i] = index.Row{Network: "UU", Station: s, Channel: "HHZ", StartTime: 0, EndTime: 100, Path: s + ".wbf"}
	}

	return rows
}

func TestMask(t *testing.T) {
	m := NewMatcher(0)

	Convey("Wildcards match whole codes", t, func() {
		rows := stationRows("ABC", "A1", "BXY")

		mask, err := m.Mask(rows, Query{Station: Match("A*")})
		So(err, ShouldBeNil)
		So(mask, ShouldResemble, []bool{true, true, false})

		mask, err = m.Mask(rows, Query{Station: Match("A?")})
		So(err, ShouldBeNil)
		So(mask, ShouldResemble, []bool{false, true, false})

		mask, err = m.Mask(rows, Query{Station: Match("[AB][!1]*")})
		So(err, ShouldBeNil)
		So(mask, ShouldResemble, []bool{true, false, true})

		mask, err = m.Mask(rows, Query{Station: Match("B")})
		So(err, ShouldBeNil)
		So(mask, ShouldResemble, []bool{false, false, false})

		Convey("and compiled patterns are cached", func() {
			So(m.CachedPatterns(), ShouldEqual, 3)

			_, err = m.Mask(rows, Query{Station: Match("A*")})
			So(err, ShouldBeNil)
			So(m.CachedPatterns(), ShouldEqual, 3)
		})
	})

	Convey("The pattern cache is bounded", t, func() {
		small := NewMatcher(2)
		rows := stationRows("A")

		for _, p := range []string{"A*", "B*", "C*", "D*"} {
			_, err := small.Mask(rows, Query{Station: Match(p)})
			So(err, ShouldBeNil)
		}

		So(small.CachedPatterns(), ShouldEqual, 2)
	})

	Convey("Unterminated classes are literal", t, func() {
		rows := stationRows("[A", "A")

		mask, err := m.Mask(rows, Query{Station: Match("[A")})
		So(err, ShouldBeNil)
		So(mask, ShouldResemble, []bool{true, false})

		mask, err = m.Mask(rows, Query{Station: Match("[*")})
		So(err, ShouldBeNil)
		So(mask, ShouldResemble, []bool{true, false})
	})

	Convey("Bad patterns are validation errors", t, func() {
		_, err := m.Mask(stationRows("A"), Query{Station: Match("[z-a]")})
		So(errors.Is(err, ErrBadPattern), ShouldBeTrue)
		So(errors.Is(err, index.ErrValidation), ShouldBeTrue)
	})

	Convey("OneOf matches exact codes only", t, func() {
		rows := stationRows("ABC", "A*", "BXY")

		mask, err := m.Mask(rows, Query{Station: OneOf("A*", "BXY")})
		So(err, ShouldBeNil)
		So(mask, ShouldResemble, []bool{false, true, true})
	})

	Convey("All constraints must hold", t, func() {
		rows := []index.Row{
			{Network: "UU", Station: "SRU", Channel: "HHZ", StartTime: 0, EndTime: 100},
			{Network: "UU", Station: "SRU", Channel: "HHN", StartTime: 0, EndTime: 100},
			{Network: "TA", Station: "SRU", Channel: "HHZ", StartTime: 0, EndTime: 100},
			{Network: "UU", Station: "SRU", Channel: "HHZ", StartTime: 200, EndTime: 300},
		}

		mask, err := m.Mask(rows, Query{
			Network: Match("UU"),
			Channel: Match("HH?"),
			Start:   Epoch(50),
			End:     Epoch(150),
		})
		So(err, ShouldBeNil)
		So(mask, ShouldResemble, []bool{true, true, false, false})

		mask, err = m.Mask(rows, Query{End: Epoch(0)})
		So(err, ShouldBeNil)
		So(mask, ShouldResemble, []bool{true, true, true, false})

		Convey("and start after end is an error", func() {
			_, err = m.Mask(rows, Query{Start: Epoch(10), End: Epoch(5)})
			So(errors.Is(err, index.ErrValidation), ShouldBeTrue)
		})
	})

	Convey("Times convert to epoch seconds", t, func() {
		b := Time(time.Unix(100, 500000000))
		So(b.IsSet(), ShouldBeTrue)
		So(b.Value(0), ShouldEqual, 100.5)
		So(Unbounded().Value(-1), ShouldEqual, -1)
	})

	Convey("Query keys distinguish filters", t, func() {
		So(Query{Station: Match("A")}.Key(), ShouldNotEqual, Query{Station: OneOf("A")}.Key())
		So(Query{Station: OneOf("A", "B")}.Key(), ShouldEqual, Query{Station: OneOf("B", "A")}.Key())
	})
}

func TestBulk(t *testing.T) {
	m := NewMatcher(0)

	rows := []index.Row{
		{Network: "UU", Station: "SRU", Channel: "HHZ", StartTime: 0, EndTime: 100},
		{Network: "UU", Station: "SRU", Channel: "HHN", StartTime: 0, EndTime: 100},
		{Network: "UU", Station: "CTU", Channel: "HHZ", StartTime: 0, EndTime: 100},
		{Network: "TA", Station: "M17A", Location: "00", Channel: "BHZ", StartTime: 50, EndTime: 500},
		{Network: "UU", Station: "SRU", Channel: "HHZ", StartTime: 1000, EndTime: 1100},
	}

	Convey("GroupBulk groups by exact time range in order of appearance", t, func() {
		groups := GroupBulk([]Request{
			{"UU", "SRU", "", "HHZ", 0, 10},
			{"UU", "*", "", "HHZ", 1000, 2000},
			{"TA", "M17A", "00", "BHZ", 0, 10},
			{"UU", "S?U", "", "HH*", 0, 10},
		})

		So(len(groups), ShouldEqual, 2)
		So(groups[0].Start, ShouldEqual, 0)
		So(len(groups[0].Exact), ShouldEqual, 2)
		So(len(groups[0].Wildcard), ShouldEqual, 1)
		So(groups[1].Start, ShouldEqual, 1000)
		So(len(groups[1].Exact), ShouldEqual, 0)
		So(len(groups[1].Wildcard), ShouldEqual, 1)

		So(GroupBulk(nil), ShouldBeEmpty)
	})

	Convey("GroupMask ORs exact and wildcard matches within the time range", t, func() {
		groups := GroupBulk([]Request{
			{"TA", "M17A", "00", "BHZ", 0, 60},
			{"UU", "C*", "", "*", 0, 60},
		})

		mask, err := m.GroupMask(rows, groups[0])
		So(err, ShouldBeNil)
		So(mask, ShouldResemble, []bool{false, false, true, true, false})
	})

	Convey("Bulk and single requests agree", t, func() {
		reqs := []Request{
			{"UU", "SRU", "", "HHZ", 0, 2000},
			{"UU", "SRU", "--", "HHN", 0, 50},
			{"TA", "M17A", "00", "BHZ", 600, 700},
			{"UU", "?TU", "", "HH[ZN]", 0, 2000},
			{"UU", "SRU", "", "HHZ", 1050, 1050},
		}

		for _, r := range reqs {
			single, err := m.Mask(rows, r.Query())
			So(err, ShouldBeNil)

			groups := GroupBulk([]Request{r})
			So(len(groups), ShouldEqual, 1)

			bulk, err := m.GroupMask(rows, groups[0])
			So(err, ShouldBeNil)
			So(bulk, ShouldResemble, single)
		}
	})
}

func TestBulkScaling(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping bulk scaling test in short mode")
	}

	const numRows = 200000

	rows := make([]index.Row, numRows)
	for i := range rows {
		rows[i] = index.Row{
			Network:   "XX",
			Station:   fmt.Sprintf("S%04d", i%5000),
			Channel:   "HHZ",
			StartTime: float64(i % 100),
			EndTime:   float64(i%100) + 10,
		}
	}

	requests := func(n int) []Request {
		reqs := make([]Request, n)
		for i := range reqs {
			reqs[i] = Request{Network: "XX", Station: fmt.Sprintf("S%04d", i), Channel: "HHZ", End: math.Inf(1)}
		}

		return reqs
	}

	m := NewMatcher(0)

	timeFor := func(reqs []Request) time.Duration {
		groups := GroupBulk(reqs)
		require.Len(t, groups, 1)

		start := time.Now()
		mask, err := m.GroupMask(rows, groups[0])
		elapsed := time.Since(start)

		require.NoError(t, err)
		require.Len(t, mask, numRows)

		return elapsed
	}

	timeFor(requests(1))

	one := timeFor(requests(1))
	thousand := timeFor(requests(1000))

	// matching each request against every row would be ~1000x slower
	require.Less(t, thousand, 20*one+50*time.Millisecond)
}

func TestParse(t *testing.T) {
	Convey("ParseTime understands epoch seconds and ISO 8601", t, func() {
		for v, want := range map[string]float64{
			"1505779200":                1505779200,
			"1505779200.25":             1505779200.25,
			"2017-09-19":                1505779200,
			"2017-09-19T00:00:01.5":     1505779201.5,
			"2017-09-19T01:00:00+01:00": 1505779200,
		} {
			got, err := ParseTime(v)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		_, err := ParseTime("last tuesday")
		So(errors.Is(err, ErrBadTime), ShouldBeTrue)
		So(errors.Is(err, index.ErrValidation), ShouldBeTrue)
	})

	Convey("ParseBound treats blank as unbounded", t, func() {
		b, err := ParseBound(" ")
		So(err, ShouldBeNil)
		So(b.IsSet(), ShouldBeFalse)

		b, err = ParseBound("10")
		So(err, ShouldBeNil)
		So(b.Value(0), ShouldEqual, 10)
	})

	Convey("ParseCodes gives patterns or exact lists", t, func() {
		_, literal := ParseCodes("H*").Literal()
		So(literal, ShouldBeFalse)
		So(ParseCodes("--").String(), ShouldEqual, Match("").String())
		So(ParseCodes("HHZ, --,HHN").String(), ShouldEqual, OneOf("HHZ", "", "HHN").String())
	})
}
