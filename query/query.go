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

// Package query resolves channel and time filters against index rows,
// producing boolean masks that say which rows a query matched.
package query

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/wtsi-hgi/wavebank/index"
)

// ErrBadPattern is returned for wildcard patterns that can't be compiled.
var ErrBadPattern = fmt.Errorf("%w: bad wildcard pattern", index.ErrValidation)

type filterKind int

const (
	kindAny filterKind = iota
	kindMatch
	kindOneOf
)

// Filter constrains one code column. The zero value matches everything.
type Filter struct {
	kind    filterKind
	pattern string
	codes   map[string]bool
}

// Any returns a Filter that matches everything.
func Any() Filter { return Filter{} }

// Match returns a Filter that matches codes against a shell style wildcard
// pattern, where * matches any run of characters, ? matches any one, and
// [...] matches a class. The whole code must match.
func Match(pattern string) Filter {
	return Filter{kind: kindMatch, pattern: pattern}
}

// OneOf returns a Filter that matches codes exactly equal to one of those
// given. No wildcard expansion is done.
func OneOf(codes ...string) Filter {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}

	return Filter{kind: kindOneOf, codes: set}
}

// IsAny tells you if the filter imposes no constraint.
func (f Filter) IsAny() bool { return f.kind == kindAny }

// Literal returns the filter's pattern and true if it is a Match filter
// without wildcard characters.
func (f Filter) Literal() (string, bool) {
	if f.kind != kindMatch || HasWildcard(f.pattern) {
		return "", false
	}

	return f.pattern, true
}

// String returns a stable representation of the filter, usable in cache keys.
func (f Filter) String() string {
	switch f.kind {
	case kindMatch:
		return "~" + f.pattern
	case kindOneOf:
		codes := make([]string, 0, len(f.codes))
		for c := range f.codes {
			codes = append(codes, c)
		}

		slices.Sort(codes)

		return "=" + strings.Join(codes, ",")
	default:
		return "*"
	}
}

// Bound is one end of a time range. The zero value is unbounded.
type Bound struct {
	set bool
	sec float64
}

// Unbounded returns a Bound imposing no limit.
func Unbounded() Bound { return Bound{} }

// Epoch returns a Bound at the given epoch seconds.
func Epoch(sec float64) Bound { return Bound{set: true, sec: sec} }

// Time returns a Bound at the given time.
func Time(t time.Time) Bound {
	return Epoch(float64(t.UnixNano()) / float64(time.Second))
}

// IsSet tells you if the bound imposes a limit.
func (b Bound) IsSet() bool { return b.set }

// Value returns the bound in epoch seconds, or def if it's unbounded.
func (b Bound) Value(def float64) float64 {
	if !b.set {
		return def
	}

	return b.sec
}

// Query selects rows by their codes and time span.
type Query struct {
	Network  Filter
	Station  Filter
	Location Filter
	Channel  Filter
	Start    Bound
	End      Bound
}

// Range returns the query's time range in epoch seconds, with unset bounds
// as infinities. It returns an error wrapping index.ErrValidation if start is
// after end, or either is NaN.
func (q Query) Range() (start, end float64, err error) {
	start, end = q.Start.Value(math.Inf(-1)), q.End.Value(math.Inf(1))

	if math.IsNaN(start) || math.IsNaN(end) {
		return 0, 0, fmt.Errorf("%w: time bound is NaN", index.ErrValidation)
	}

	if start > end {
		return 0, 0, fmt.Errorf("%w: starttime %f after endtime %f", index.ErrValidation, start, end)
	}

	return start, end, nil
}

// Key returns a string that is the same for equivalent queries.
func (q Query) Key() string {
	start, end := q.Start.Value(math.Inf(-1)), q.End.Value(math.Inf(1))

	return fmt.Sprintf("%s|%s|%s|%s|%v|%v", q.Network, q.Station, q.Location, q.Channel, start, end)
}
