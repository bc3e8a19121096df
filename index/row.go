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

// Package index holds the on-disk index of a bank: one Row for every
// contiguous trace in every file, plus the bank's Metadata and the time the
// index was last updated.
package index

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/wtsi-hgi/wavebank/waveform"
)

// Error is the custom error type for the index package.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrValidation is wrapped by every error about malformed rows or queries.
	ErrValidation = Error("validation failed")

	// ErrStoreAbsent is returned when an index has never been built.
	ErrStoreAbsent = Error("index does not exist")
)

// ErrFieldTooLong is returned when a row has a string column wider than the
// index was created with.
var ErrFieldTooLong = fmt.Errorf("%w: field too long", ErrValidation)

// Column names.
const (
	ColNetwork  = "network"
	ColStation  = "station"
	ColLocation = "location"
	ColChannel  = "channel"
	ColPath     = "path"
)

// DefaultWidths are the minimum storage widths of the string columns.
func DefaultWidths() map[string]int {
	return map[string]int{
		ColPath:     79,
		ColStation:  5,
		ColNetwork:  2,
		ColLocation: 2,
		ColChannel:  3,
	}
}

// Row describes one contiguous trace in one file.
type Row struct {
	Network   string  `json:"network"   codec:"n"`
	Station   string  `json:"station"   codec:"s"`
	Location  string  `json:"location"  codec:"l"`
	Channel   string  `json:"channel"   codec:"c"`
	StartTime float64 `json:"starttime" codec:"t1"`
	EndTime   float64 `json:"endtime"   codec:"t2"`

	// Path is slash separated and relative to the bank's base directory.
	Path string `json:"path,omitempty" codec:"p"`
}

// SeedID returns the seed id of the row's channel.
func (r Row) SeedID() string {
	return waveform.SeedID(r.Network, r.Station, r.Location, r.Channel)
}

// Overlaps tells you if the row's time span intersects [start, end].
func (r Row) Overlaps(start, end float64) bool {
	return !(r.EndTime < start || r.StartTime > end)
}

func (r Row) column(name string) string {
	switch name {
	case ColNetwork:
		return r.Network
	case ColStation:
		return r.Station
	case ColLocation:
		return r.Location
	case ColChannel:
		return r.Channel
	default:
		return r.Path
	}
}

// Validate checks the row has usable times and a path, and that its string
// columns fit within the given widths. A nil widths skips the width check.
func (r Row) Validate(widths map[string]int) error {
	if !finite(r.StartTime) || !finite(r.EndTime) {
		return fmt.Errorf("%w: missing time for %s in %s", ErrValidation, r.SeedID(), r.Path)
	}

	if r.StartTime > r.EndTime {
		return fmt.Errorf("%w: starttime %f after endtime %f for %s in %s",
			ErrValidation, r.StartTime, r.EndTime, r.SeedID(), r.Path)
	}

	if r.Path == "" {
		return fmt.Errorf("%w: missing path for %s", ErrValidation, r.SeedID())
	}

	for col, width := range widths {
		if v := r.column(col); len(v) > width {
			return fmt.Errorf("%w: %s %q is longer than %d", ErrFieldTooLong, col, v, width)
		}
	}

	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// NormaliseCode strips the byte-string markers and quote characters that
// codes read from binary headers can carry, eg. b'HHZ' becomes HHZ.
func NormaliseCode(code string) string {
	code = strings.TrimSpace(code)

	if len(code) >= 3 && (code[0] == 'b' || code[0] == 'B') && isQuote(code[1]) && code[len(code)-1] == code[1] {
		code = code[2 : len(code)-1]
	}

	return strings.Map(func(r rune) rune {
		if r < 128 && isQuote(byte(r)) {
			return -1
		}

		return r
	}, code)
}

func isQuote(b byte) bool {
	return b == '\'' || b == '"'
}

// RelativePath returns path relative to base, slash separated. Paths not
// under base are returned slash separated but otherwise unchanged.
func RelativePath(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}

	return filepath.ToSlash(rel)
}

// Metadata is stored once per index, when it is first created.
type Metadata struct {
	PathStructure string         `json:"path_structure" codec:"ps"`
	NameStructure string         `json:"name_structure" codec:"ns"`
	Widths        map[string]int `json:"widths"         codec:"w"`
	CreatedAt     float64        `json:"created_at"     codec:"ca"`
}

// widthsFor returns the column widths an index created with the given first
// rows should have: the defaults, widened to fit the first rows.
func widthsFor(rows []Row) map[string]int {
	widths := DefaultWidths()

	for _, r := range rows {
		for col, width := range widths {
			if l := len(r.column(col)); l > width {
				widths[col] = l
			}
		}
	}

	return widths
}
