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

package naming

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/wavebank/waveform"
)

func TestNaming(t *testing.T) {
	tr := &waveform.Trace{
		Network:   "UU",
		Station:   "SRU",
		Channel:   "HHZ",
		StartTime: float64(time.Date(2017, 9, 18, 1, 2, 3, 0, time.UTC).Unix()),
	}

	Convey("Templates render every variable", t, func() {
		tmpl, err := Parse("{year}-{month}-{day}/{julday}/{hour}{minute}{second}/{seedid}_{time}")
		So(err, ShouldBeNil)
		So(tmpl.Render(ValuesFor(tr)), ShouldEqual, "2017-09-18/261/010203/UU.SRU..HHZ_2017-09-18T01-02-03")
		So(tmpl.String(), ShouldStartWith, "{year}")
	})

	Convey("Bad templates are rejected", t, func() {
		_, err := Parse("{year}/{nope}")
		So(errors.Is(err, ErrUnknownVariable), ShouldBeTrue)

		_, err = Parse("{year")
		So(errors.Is(err, ErrUnbalanced), ShouldBeTrue)

		_, err = Parse("year}")
		So(errors.Is(err, ErrUnbalanced), ShouldBeTrue)
	})

	Convey("A Namer builds relative paths", t, func() {
		n, err := NewNamer("", "", "wbf")
		So(err, ShouldBeNil)
		So(n.PathFor(tr, ""), ShouldEqual, "2017/261/UU/SRU/2017-09-18T01-02-03.wbf")

		Convey("using an explicit name if given", func() {
			So(n.PathFor(tr, "event_1"), ShouldEqual, "2017/261/UU/SRU/event_1.wbf")
			So(n.PathFor(tr, "event.dat"), ShouldEqual, "2017/261/UU/SRU/event.dat.wbf")
			So(n.PathFor(tr, "event.wbf"), ShouldEqual, "2017/261/UU/SRU/event.wbf")
			So(n.PathFor(tr, "event.wbf.gz"), ShouldEqual, "2017/261/UU/SRU/event.wbf.gz")
		})

		Convey("adding the extension to names rendered with dots in them", func() {
			n, err = NewNamer("{network}", "{seedid}.{time}", "wbf")
			So(err, ShouldBeNil)
			So(n.PathFor(tr, ""), ShouldEqual, "UU/UU.SRU..HHZ.2017-09-18T01-02-03.wbf")
		})

		Convey("collapsing empty codes", func() {
			n, err = NewNamer("{network}/{location}/{channel}", "{station}", ".wbf")
			So(err, ShouldBeNil)
			So(n.PathFor(tr, ""), ShouldEqual, "UU/HHZ/SRU.wbf")
		})
	})

	Convey("EpochToTime keeps sub-second precision", t, func() {
		So(EpochToTime(1.5).Nanosecond(), ShouldEqual, 500000000)
	})
}
