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

// Package wavetest builds synthetic waveform archives for tests.
package wavetest

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/smartystreets/goconvey/convey" //nolint:revive,stylecheck
	"github.com/wtsi-hgi/wavebank/wavefile"
	"github.com/wtsi-hgi/wavebank/waveform"
)

const dirPerms = 0o750

// NewTrace returns a trace for the given seed id starting at start with n
// samples at rate Hz. Sample i has the value start+i, so merged and trimmed
// data can be checked easily.
func NewTrace(seedID string, start, rate float64, n int) *waveform.Trace {
	parts := strings.SplitN(seedID, ".", 4) //nolint:mnd
	for len(parts) < 4 {                    //nolint:mnd
		parts = append(parts, "")
	}

	data := make([]float64, n)
	for i := range data {
		data[i] = start + float64(i)
	}

	return &waveform.Trace{
		Network:    parts[0],
		Station:    parts[1],
		Location:   parts[2],
		Channel:    parts[3],
		StartTime:  start,
		SampleRate: rate,
		Data:       data,
	}
}

// Span returns a 1Hz trace covering [start, end].
func Span(seedID string, start, end float64) *waveform.Trace {
	return NewTrace(seedID, start, 1, int(end-start)+1)
}

// WriteFile writes the traces to the file rel under dir in the native format,
// creating directories as needed, and returns the file's path.
func WriteFile(dir, rel string, traces ...*waveform.Trace) string {
	path := filepath.Join(dir, filepath.FromSlash(rel))

	So(os.MkdirAll(filepath.Dir(path), dirPerms), ShouldBeNil)
	So(wavefile.Native{}.Write(path, traces), ShouldBeNil)

	return path
}

// Touch gives the file at path a modification time a minute in the future,
// so that it is newer than any index update made before it.
func Touch(path string) {
	future := time.Now().Add(time.Minute)

	So(os.Chtimes(path, future, future), ShouldBeNil)
}

// GapArchive creates an archive in dir holding three files for X.Y..Z
// covering [0, 100], [100, 200] and [300, 400], so there is one gap from 200
// to 300.
func GapArchive(dir string) {
	WriteFile(dir, "a.wbf", Span("X.Y..Z", 0, 100))
	WriteFile(dir, "b.wbf", Span("X.Y..Z", 100, 200))
	WriteFile(dir, "sub/c.wbf", Span("X.Y..Z", 300, 400))
}

// MultiArchive creates an archive in dir with several stations and channels,
// including a file holding two channels, and returns the traces written.
func MultiArchive(dir string) waveform.Stream {
	st := waveform.Stream{
		NewTrace("UU.SRU..HHZ", 1000, 10, 1000),
		NewTrace("UU.SRU..HHN", 1000, 10, 1000),
		NewTrace("UU.CTU..HHZ", 1000, 10, 1000),
		NewTrace("TA.M17A.00.BHZ", 900, 1, 500),
		NewTrace("UU.SRU..HHZ", 1100, 10, 1000),
	}

	WriteFile(dir, "UU/SRU/both.wbf", st[0], st[1])
	WriteFile(dir, "UU/CTU/z.wbf.gz", st[2])
	WriteFile(dir, "TA/M17A/z.wbf", st[3])
	WriteFile(dir, "UU/SRU/later.wbf", st[4])

	return st
}

// Corrupt writes a file under dir that isn't a valid waveform file.
func Corrupt(dir, rel string) string {
	path := filepath.Join(dir, filepath.FromSlash(rel))

	So(os.MkdirAll(filepath.Dir(path), dirPerms), ShouldBeNil)
	So(os.WriteFile(path, []byte("this is not waveform data"), 0o600), ShouldBeNil)

	return path
}
