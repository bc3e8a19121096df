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

package index

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRow(t *testing.T) {
	Convey("Rows validate their times and paths", t, func() {
		r := Row{Network: "UU", Station: "SRU", Channel: "HHZ", StartTime: 0, EndTime: 10, Path: "a.wbf"}
		So(r.Validate(DefaultWidths()), ShouldBeNil)
		So(r.SeedID(), ShouldEqual, "UU.SRU..HHZ")

		bad := r
		bad.StartTime = 11
		So(errors.Is(bad.Validate(nil), ErrValidation), ShouldBeTrue)

		bad = r
		bad.EndTime = math.NaN()
		So(errors.Is(bad.Validate(nil), ErrValidation), ShouldBeTrue)

		bad = r
		bad.Path = ""
		So(errors.Is(bad.Validate(nil), ErrValidation), ShouldBeTrue)

		bad = r
		bad.Station = "TOOLONG"
		err := bad.Validate(DefaultWidths())
		So(errors.Is(err, ErrFieldTooLong), ShouldBeTrue)
		So(errors.Is(err, ErrValidation), ShouldBeTrue)
	})

	Convey("Overlaps includes touching ranges", t, func() {
		r := Row{StartTime: 100, EndTime: 200}
		So(r.Overlaps(200, 300), ShouldBeTrue)
		So(r.Overlaps(0, 100), ShouldBeTrue)
		So(r.Overlaps(201, 300), ShouldBeFalse)
		So(r.Overlaps(0, 99.9), ShouldBeFalse)
		So(r.Overlaps(math.Inf(-1), math.Inf(1)), ShouldBeTrue)
	})

	Convey("NormaliseCode strips byte string artifacts", t, func() {
		So(NormaliseCode("b'HHZ'"), ShouldEqual, "HHZ")
		So(NormaliseCode(`"SRU"`), ShouldEqual, "SRU")
		So(NormaliseCode(" UU "), ShouldEqual, "UU")
		So(NormaliseCode("BHZ"), ShouldEqual, "BHZ")
	})

	Convey("RelativePath gives slash separated paths under the base", t, func() {
		So(RelativePath("/base", "/base/2017/a.wbf"), ShouldEqual, "2017/a.wbf")
		So(RelativePath("/base", "/elsewhere/a.wbf"), ShouldEqual, "/elsewhere/a.wbf")
	})
}

func TestStore(t *testing.T) {
	rows := []Row{
		{Network: "UU", Station: "SRU", Channel: "HHZ", StartTime: 0, EndTime: 100, Path: "a.wbf"},
		{Network: "UU", Station: "SRU", Channel: "HHZ", StartTime: 100, EndTime: 200, Path: "b.wbf"},
		{Network: "UU", Station: "SRU", Channel: "HHZ", StartTime: 300, EndTime: 400, Path: "c.wbf"},
		{Network: "TA", Station: "M17A", Location: "00", Channel: "BHN", StartTime: -50, EndTime: 1000, Path: "d.wbf"},
	}
	meta := Metadata{PathStructure: "{year}", NameStructure: "{time}", CreatedAt: 5}

	Convey("Given a store that doesn't exist yet", t, func() {
		s := NewStore(filepath.Join(t.TempDir(), Basename), nil)

		Convey("reads give no rows and no error", func() {
			So(s.Exists(), ShouldBeFalse)

			got, err := s.ReadRange(math.Inf(-1), math.Inf(1), ReadOptions{})
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)

			_, ok, err := s.LastUpdated()
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			_, ok, err = s.Metadata()
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			n, err := s.Len()
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("an invalid row fails before the store is created", func() {
			bad := rows[0]
			bad.StartTime = 500

			err := s.Append([]Row{rows[1], bad}, meta, 10)
			So(errors.Is(err, ErrValidation), ShouldBeTrue)

			_, err = os.Stat(s.Path())
			So(err, ShouldNotBeNil)
		})

		Convey("you can append rows", func() {
			So(s.Append(rows, meta, 10), ShouldBeNil)
			So(s.Exists(), ShouldBeTrue)
			So(testutil.ToFloat64(s.Metrics().Appends), ShouldEqual, 1)
			So(testutil.ToFloat64(s.Metrics().Rows), ShouldEqual, 4)

			Convey("and read them all back in order", func() {
				got, err := s.ReadRange(math.Inf(-1), math.Inf(1), ReadOptions{})
				So(err, ShouldBeNil)
				So(got, ShouldResemble, rows)
				So(testutil.ToFloat64(s.Metrics().Reads), ShouldEqual, 1)
			})

			Convey("and read only the rows overlapping a range", func() {
				got, err := s.ReadRange(150, 300, ReadOptions{})
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []Row{rows[1], rows[2], rows[3]})

				got, err = s.ReadRange(201, 299, ReadOptions{})
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []Row{rows[3]})

				got, err = s.ReadRange(2000, math.Inf(1), ReadOptions{})
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})

			Convey("and read them without paths", func() {
				got, err := s.ReadRange(0, 50, ReadOptions{WithoutPaths: true})
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].Path, ShouldEqual, "")
				So(got[0].Channel, ShouldEqual, "HHZ")
			})

			Convey("but not with start after end", func() {
				_, err := s.ReadRange(10, 5, ReadOptions{})
				So(errors.Is(err, ErrValidation), ShouldBeTrue)
			})

			Convey("and get the metadata and update time", func() {
				updated, ok, err := s.LastUpdated()
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(updated, ShouldEqual, 10)

				m, ok, err := s.Metadata()
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(m.PathStructure, ShouldEqual, "{year}")
				So(m.CreatedAt, ShouldEqual, 5)
				So(m.Widths[ColStation], ShouldEqual, 5)
				So(m.Widths[ColPath], ShouldEqual, 79)
			})

			Convey("then append more, keeping the original metadata", func() {
				more := Row{Network: "UU", Station: "SRU", Channel: "HHE", StartTime: 150, EndTime: 160, Path: "e.wbf"}
				So(s.Append([]Row{more}, Metadata{PathStructure: "other"}, 20), ShouldBeNil)

				n, err := s.Len()
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 5)

				got, err := s.ReadRange(155, 155, ReadOptions{})
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []Row{rows[1], rows[3], more})

				m, _, err := s.Metadata()
				So(err, ShouldBeNil)
				So(m.PathStructure, ShouldEqual, "{year}")

				updated, _, err := s.LastUpdated()
				So(err, ShouldBeNil)
				So(updated, ShouldEqual, 20)
			})

			Convey("later rows wider than the stored widths fail and append nothing", func() {
				wide := rows[0]
				wide.Path = strings.Repeat("x", 80)

				err := s.Append([]Row{rows[0], wide}, meta, 20)
				So(errors.Is(err, ErrFieldTooLong), ShouldBeTrue)

				n, err := s.Len()
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)

				updated, _, err := s.LastUpdated()
				So(err, ShouldBeNil)
				So(updated, ShouldEqual, 10)
			})
		})

		Convey("the first rows decide the string widths", func() {
			long := rows[0]
			long.Path = strings.Repeat("p", 100)

			So(s.Append([]Row{long}, meta, 1), ShouldBeNil)

			m, _, err := s.Metadata()
			So(err, ShouldBeNil)
			So(m.Widths[ColPath], ShouldEqual, 100)
		})
	})

	Convey("sortableFloat preserves numeric order", t, func() {
		vals := []float64{math.Inf(-1), -1e9, -1.5, -0.0, 0, 1e-9, 2.5, 1e12, math.Inf(1)}

		for i := 1; i < len(vals); i++ {
			So(string(sortableFloat(vals[i-1])) <= string(sortableFloat(vals[i])), ShouldBeTrue)
		}
	})
}
