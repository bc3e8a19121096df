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

package wavefile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/wavebank/waveform"
)

func TestWaveFile(t *testing.T) {
	st := waveform.Stream{
		{Network: "UU", Station: "SRU", Channel: "HHZ", StartTime: 1000.5, SampleRate: 4, Data: []float64{1, -2, 3.25}},
		{Network: "UU", Station: "SRU", Location: "01", Channel: "HHN", StartTime: 2000, SampleRate: 1, Data: []float64{7}},
	}

	Convey("Lookup knows the native format", t, func() {
		f, err := Lookup("WBF")
		So(err, ShouldBeNil)
		So(f, ShouldHaveSameTypeAs, Native{})

		_, err = Lookup("mseed")
		So(errors.Is(err, ErrUnknownFormat), ShouldBeTrue)
	})

	for _, name := range []string{"a.wbf", "a.wbf.gz"} {
		Convey("Given traces written to "+name, t, func() {
			path := filepath.Join(t.TempDir(), name)
			So(Native{}.Write(path, st), ShouldBeNil)

			Convey("you can read them back unchanged", func() {
				got, err := Native{}.Read(path)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, st)
			})

			Convey("you can summarise them", func() {
				sums, err := Native{}.Summarise(path)
				So(err, ShouldBeNil)
				So(sums, ShouldResemble, []Summary{
					{Network: "UU", Station: "SRU", Channel: "HHZ", StartTime: 1000.5, EndTime: 1001, Path: path},
					{Network: "UU", Station: "SRU", Location: "01", Channel: "HHN", StartTime: 2000, EndTime: 2000, Path: path},
				})
			})

			Convey("writing again replaces the file", func() {
				So(Native{}.Write(path, st[1:]), ShouldBeNil)

				got, err := Native{}.Read(path)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
			})
		})
	}

	Convey("Streams can be encoded to and decoded from a buffer", t, func() {
		var buf bytes.Buffer

		So(Encode(&buf, st), ShouldBeNil)

		got, err := Decode(&buf)
		So(err, ShouldBeNil)
		So(got, ShouldResemble, st)

		_, err = Decode(bytes.NewReader([]byte{1, 2}))
		So(errors.Is(err, ErrBadMagic), ShouldBeTrue)
	})

	Convey("Bad files give errors", t, func() {
		dir := t.TempDir()

		_, err := Native{}.Read(filepath.Join(dir, "missing.wbf"))
		So(err, ShouldNotBeNil)

		junk := filepath.Join(dir, "junk.wbf")
		So(os.WriteFile(junk, []byte("not waveform data"), 0o600), ShouldBeNil)

		_, err = Native{}.Summarise(junk)
		So(errors.Is(err, ErrBadMagic), ShouldBeTrue)

		good := filepath.Join(dir, "good.wbf")
		So(Native{}.Write(good, st), ShouldBeNil)

		data, err := os.ReadFile(good)
		So(err, ShouldBeNil)

		truncated := filepath.Join(dir, "truncated.wbf")
		So(os.WriteFile(truncated, data[:len(data)-4], 0o600), ShouldBeNil)

		_, err = Native{}.Read(truncated)
		So(err, ShouldNotBeNil)
	})
}
