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

// Package waveform holds the channel time-series types a bank stores and
// returns, along with the trim, merge and sort operations that polish them
// before they are handed back to callers.
package waveform

import (
	"math"
	"slices"
	"strings"
)

// alignTolerance is the fraction of a sample interval within which two
// sample times are considered the same.
const alignTolerance = 1e-4

// Error is the custom error type for the waveform package.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrIncompatibleRates is returned when traces for one seed id have
	// different sample rates and so can't be merged.
	ErrIncompatibleRates = Error("incompatible sample rates")
	// ErrMisaligned is returned when traces for one seed id overlap but their
	// samples don't fall on the same time grid.
	ErrMisaligned = Error("misaligned samples")
)

// MergeError records that the traces of one seed id could not be merged. The
// traces concerned are left unmerged in the output.
type MergeError struct {
	ID  string
	Err error
}

func (m *MergeError) Error() string {
	return "merge " + m.ID + ": " + m.Err.Error()
}

func (m *MergeError) Unwrap() error { return m.Err }

// SeedID joins the given codes with dots. A location of "--" is treated as
// empty.
func SeedID(network, station, location, channel string) string {
	if location == "--" {
		location = ""
	}

	return network + "." + station + "." + location + "." + channel
}

// Trace is a contiguous, evenly sampled run of data for one channel.
type Trace struct {
	Network  string
	Station  string
	Location string
	Channel  string

	// StartTime is the time of the first sample in epoch seconds.
	StartTime float64

	// SampleRate is in Hz.
	SampleRate float64

	Data []float64

	// Meta holds channel metadata attached from an inventory.
	Meta map[string]string
}

// ID returns the seed id of the trace.
func (t *Trace) ID() string {
	return SeedID(t.Network, t.Station, t.Location, t.Channel)
}

// Delta returns the sample interval in seconds, or 0 for a trace with no
// sample rate.
func (t *Trace) Delta() float64 {
	if t.SampleRate <= 0 {
		return 0
	}

	return 1 / t.SampleRate
}

// EndTime returns the time of the last sample.
func (t *Trace) EndTime() float64 {
	if len(t.Data) == 0 {
		return t.StartTime
	}

	return t.StartTime + float64(len(t.Data)-1)*t.Delta()
}

// Copy returns a deep copy of the trace.
func (t *Trace) Copy() *Trace {
	c := *t
	c.Data = slices.Clone(t.Data)

	if t.Meta != nil {
		c.Meta = make(map[string]string, len(t.Meta))
		for k, v := range t.Meta {
			c.Meta[k] = v
		}
	}

	return &c
}

// Trim cuts the trace down to samples that lie within [start, end]. The
// trace may end up with no data.
func (t *Trace) Trim(start, end float64) {
	n := len(t.Data)
	if n == 0 {
		return
	}

	if t.SampleRate <= 0 {
		if t.StartTime < start || t.StartTime > end {
			t.Data = nil
		}

		return
	}

	first, last := 0, n-1

	if start > t.StartTime {
		first = int(math.Ceil((start-t.StartTime)*t.SampleRate - alignTolerance))
	}

	if end < t.EndTime() {
		last = int(math.Floor((end-t.StartTime)*t.SampleRate + alignTolerance))
	}

	if first > last || first >= n || last < 0 {
		t.Data = nil

		return
	}

	t.Data = slices.Clone(t.Data[first : last+1])
	t.StartTime += float64(first) / t.SampleRate
}

// Stream is a collection of traces.
type Stream []*Trace

// Bounds returns the earliest start and latest end time of the traces in the
// stream. ok is false for an empty stream.
func (s Stream) Bounds() (start, end float64, ok bool) {
	if len(s) == 0 {
		return 0, 0, false
	}

	start, end = math.Inf(1), math.Inf(-1)

	for _, t := range s {
		start = min(start, t.StartTime)
		end = max(end, t.EndTime())
	}

	return start, end, true
}

// IDs returns the sorted unique seed ids in the stream.
func (s Stream) IDs() []string {
	ids := make([]string, 0, len(s))

	for _, t := range s {
		ids = append(ids, t.ID())
	}

	slices.Sort(ids)

	return slices.Compact(ids)
}

// Select returns the traces whose seed id is in ids.
func (s Stream) Select(ids map[string]bool) Stream {
	out := make(Stream, 0, len(s))

	for _, t := range s {
		if ids[t.ID()] {
			out = append(out, t)
		}
	}

	return out
}

// Trim trims every trace to [start, end] and returns the traces that still
// have data.
func (s Stream) Trim(start, end float64) Stream {
	out := s[:0]

	for _, t := range s {
		t.Trim(start, end)

		if len(t.Data) > 0 {
			out = append(out, t)
		}
	}

	return out
}

// Sort orders the stream by seed id, then start time, then sample rate.
func (s Stream) Sort() {
	slices.SortStableFunc(s, compareTraces)
}

func compareTraces(a, b *Trace) int {
	if c := strings.Compare(a.ID(), b.ID()); c != 0 {
		return c
	}

	if c := compareFloat(a.StartTime, b.StartTime); c != 0 {
		return c
	}

	return compareFloat(a.SampleRate, b.SampleRate)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
