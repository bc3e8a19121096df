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
	"math"
	"slices"

	"github.com/hashicorp/go-multierror"
)

// Merge joins overlapping and adjacent traces that share a seed id and
// sample rate. Where traces overlap, the samples of the earlier-starting
// trace win, so data read twice is not duplicated; use Overlay first to have
// particular traces win instead. Traces separated by a gap stay separate.
//
// Seed ids whose traces can't be merged keep their traces as they were; a
// *MergeError for each of them is returned in a multierror alongside the
// merged stream.
func (s Stream) Merge() (Stream, error) {
	var (
		order  []string
		groups = make(map[string]Stream)
		errm   *multierror.Error
	)

	for _, t := range s {
		id := t.ID()
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}

		groups[id] = append(groups[id], t)
	}

	out := make(Stream, 0, len(s))

	for _, id := range order {
		merged, err := mergeGroup(groups[id])
		if err != nil {
			errm = multierror.Append(errm, &MergeError{ID: id, Err: err})
			out = append(out, groups[id]...)

			continue
		}

		out = append(out, merged...)
	}

	return out, errm.ErrorOrNil()
}

func mergeGroup(traces Stream) (Stream, error) {
	if len(traces) == 1 {
		return traces, nil
	}

	rate := traces[0].SampleRate

	for _, t := range traces[1:] {
		if t.SampleRate != rate {
			return nil, ErrIncompatibleRates
		}
	}

	sorted := slices.Clone(traces)
	slices.SortStableFunc(sorted, func(a, b *Trace) int {
		return compareFloat(a.StartTime, b.StartTime)
	})

	out := make(Stream, 0, len(sorted))
	cur := sorted[0].Copy()

	for _, next := range sorted[1:] {
		joined, err := join(cur, next)
		if err != nil {
			return nil, err
		}

		if !joined {
			out = append(out, cur)
			cur = next.Copy()
		}
	}

	return append(out, cur), nil
}

// join appends the samples of next that extend beyond cur, returning false
// if there is a gap between them.
func join(cur, next *Trace) (bool, error) {
	if len(next.Data) == 0 {
		return true, nil
	}

	if cur.SampleRate <= 0 {
		return false, nil
	}

	delta := cur.Delta()
	if next.StartTime > cur.EndTime()+delta*(1+alignTolerance) {
		return false, nil
	}

	offset := math.Round((next.StartTime - cur.StartTime) * cur.SampleRate)
	if math.Abs(cur.StartTime+offset*delta-next.StartTime) > alignTolerance*delta {
		return false, ErrMisaligned
	}

	skip := len(cur.Data) - int(offset)
	if skip < len(next.Data) {
		cur.Data = append(cur.Data, next.Data[skip:]...)
	}

	return true, nil
}

// Overlay returns the traces of s with the samples covered by any trace in
// newer of the same seed id and sample rate cut out, followed by copies of
// newer. Merging the result keeps newer's samples where they overlap s.
func (s Stream) Overlay(newer Stream) Stream {
	out := make(Stream, 0, len(s)+len(newer))

	for _, t := range s {
		pieces := Stream{t.Copy()}

		for _, n := range newer {
			if n.ID() != t.ID() || n.SampleRate != t.SampleRate || len(n.Data) == 0 {
				continue
			}

			pieces = pieces.cut(n.StartTime, n.EndTime())
		}

		out = append(out, pieces...)
	}

	for _, n := range newer {
		out = append(out, n.Copy())
	}

	return out
}

// cut removes the samples within [start, end] from every trace, splitting
// traces that straddle the range in two.
func (s Stream) cut(start, end float64) Stream {
	out := make(Stream, 0, len(s))

	for _, t := range s {
		if t.SampleRate <= 0 || len(t.Data) == 0 || t.EndTime() < start || t.StartTime > end {
			out = append(out, t)

			continue
		}

		margin := 2 * alignTolerance * t.Delta()

		before := t.Copy()
		before.Trim(math.Inf(-1), start-margin)

		after := t.Copy()
		after.Trim(end+margin, math.Inf(1))

		for _, piece := range []*Trace{before, after} {
			if len(piece.Data) > 0 {
				out = append(out, piece)
			}
		}
	}

	return out
}
