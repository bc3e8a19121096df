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

package waveform

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func newTrace(sta string, start, rate float64, data ...float64) *Trace {
	return &Trace{
		Network:    "UU",
		Station:    sta,
		Channel:    "HHZ",
		StartTime:  start,
		SampleRate: rate,
		Data:       data,
	}
}

func TestTrace(t *testing.T) {
	Convey("Seed ids join codes and blank out --", t, func() {
		So(SeedID("UU", "SRU", "", "HHZ"), ShouldEqual, "UU.SRU..HHZ")
		So(SeedID("UU", "SRU", "--", "HHZ"), ShouldEqual, "UU.SRU..HHZ")
		So(SeedID("UU", "SRU", "01", "HHZ"), ShouldEqual, "UU.SRU.01.HHZ")
	})

	Convey("Given a 1Hz trace of 10 samples", t, func() {
		tr := newTrace("A", 100, 1, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)

		So(tr.EndTime(), ShouldEqual, 109)
		So(tr.Delta(), ShouldEqual, 1)

		Convey("Trim keeps samples within the bounds", func() {
			tr.Trim(102.5, 105)
			So(tr.StartTime, ShouldEqual, 103)
			So(tr.Data, ShouldResemble, []float64{3, 4, 5})
		})

		Convey("Trim to bounds wider than the trace is a no-op", func() {
			tr.Trim(0, 1000)
			So(tr.StartTime, ShouldEqual, 100)
			So(len(tr.Data), ShouldEqual, 10)
		})

		Convey("Trim outside the trace empties it", func() {
			tr.Trim(200, 300)
			So(tr.Data, ShouldBeEmpty)
		})

		Convey("Copy doesn't share data", func() {
			c := tr.Copy()
			c.Data[0] = 99
			So(tr.Data[0], ShouldEqual, 0)
		})
	})
}

func TestStream(t *testing.T) {
	Convey("Given a stream with several ids", t, func() {
		st := Stream{
			newTrace("B", 10, 1, 1, 2),
			newTrace("A", 20, 1, 1, 2),
			newTrace("A", 0, 1, 1, 2),
		}

		Convey("Sort orders by id then time", func() {
			st.Sort()
			So(st[0].Station, ShouldEqual, "A")
			So(st[0].StartTime, ShouldEqual, 0)
			So(st[1].StartTime, ShouldEqual, 20)
			So(st[2].Station, ShouldEqual, "B")
		})

		Convey("IDs and Bounds summarise it", func() {
			So(st.IDs(), ShouldResemble, []string{"UU.A..HHZ", "UU.B..HHZ"})

			start, end, ok := st.Bounds()
			So(ok, ShouldBeTrue)
			So(start, ShouldEqual, 0)
			So(end, ShouldEqual, 21)
		})

		Convey("Select filters by id", func() {
			So(len(st.Select(map[string]bool{"UU.A..HHZ": true})), ShouldEqual, 2)
		})

		Convey("Trim drops traces left without data", func() {
			So(len(st.Trim(9, 12)), ShouldEqual, 1)
		})
	})

	Convey("Merge", t, func() {
		Convey("joins adjacent traces", func() {
			st, err := Stream{newTrace("A", 0, 1, 0, 1, 2), newTrace("A", 3, 1, 3, 4)}.Merge()
			So(err, ShouldBeNil)
			So(len(st), ShouldEqual, 1)
			So(st[0].Data, ShouldResemble, []float64{0, 1, 2, 3, 4})
		})

		Convey("reconciles overlapping samples without duplicating them", func() {
			st, err := Stream{newTrace("A", 2, 1, 2, 3, 4, 5), newTrace("A", 0, 1, 0, 1, 2, 3)}.Merge()
			So(err, ShouldBeNil)
			So(len(st), ShouldEqual, 1)
			So(st[0].StartTime, ShouldEqual, 0)
			So(st[0].Data, ShouldResemble, []float64{0, 1, 2, 3, 4, 5})
		})

		Convey("keeps traces separated by a gap apart", func() {
			st, err := Stream{newTrace("A", 0, 1, 0, 1), newTrace("A", 10, 1, 10, 11)}.Merge()
			So(err, ShouldBeNil)
			So(len(st), ShouldEqual, 2)
		})

		Convey("leaves ids with mixed sample rates unmerged", func() {
			st, err := Stream{
				newTrace("A", 0, 1, 0, 1),
				newTrace("A", 2, 2, 2, 2.5),
				newTrace("B", 0, 1, 0),
				newTrace("B", 1, 1, 1),
			}.Merge()
			So(err, ShouldNotBeNil)

			var merr *MergeError
			So(errors.As(err, &merr), ShouldBeTrue)
			So(merr.ID, ShouldEqual, "UU.A..HHZ")
			So(errors.Is(err, ErrIncompatibleRates), ShouldBeTrue)
			So(len(st), ShouldEqual, 3)
		})

		Convey("reports misaligned overlaps", func() {
			_, err := Stream{newTrace("A", 0, 1, 0, 1, 2), newTrace("A", 1.5, 1, 1, 2)}.Merge()
			So(errors.Is(err, ErrMisaligned), ShouldBeTrue)
		})

		Convey("after Overlay, keeps the overlaid samples", func() {
			old := Stream{
				newTrace("A", 0, 1, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9),
				newTrace("B", 0, 1, 0, 1, 2),
			}
			newer := Stream{newTrace("A", 3, 1, 30, 40, 50), newTrace("B", 0, 2, 7, 7)}

			overlaid := old.Overlay(newer)
			So(len(overlaid), ShouldEqual, 5)

			st, err := Stream{overlaid[0], overlaid[1], overlaid[3]}.Merge()
			So(err, ShouldBeNil)
			So(len(st), ShouldEqual, 1)
			So(st[0].StartTime, ShouldEqual, 0)
			So(st[0].Data, ShouldResemble, []float64{0, 1, 2, 30, 40, 50, 6, 7, 8, 9})

			So(overlaid[2].Data, ShouldResemble, []float64{0, 1, 2})
			So(old[0].Data, ShouldHaveLength, 10)
		})

		Convey("Overlay drops traces newer ones cover entirely", func() {
			overlaid := Stream{newTrace("A", 2, 1, 2, 3)}.Overlay(Stream{newTrace("A", 0, 1, 9, 9, 9, 9, 9)})
			So(len(overlaid), ShouldEqual, 1)
			So(overlaid[0].Data, ShouldResemble, []float64{9, 9, 9, 9, 9})
		})
	})
}
