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

package bank

import (
	"cmp"
	"slices"

	"github.com/wtsi-hgi/wavebank/index"
	"github.com/wtsi-hgi/wavebank/query"
)

// DefaultMinGap is the smallest gap in seconds reported by
// DefaultGapOptions.
const DefaultMinGap = 1.0

// OverlapPolicy says what Gaps does with segments that overlap.
type OverlapPolicy int

const (
	// ExcludeOverlaps ignores overlapping segments.
	ExcludeOverlaps OverlapPolicy = iota

	// ReportOverlaps reports each overlap as a zero length gap at the start
	// of the overlapping segment.
	ReportOverlaps
)

// GapOptions configure gap detection.
type GapOptions struct {
	// MinGap is the time in seconds by which the end of one segment must
	// precede the start of the next for there to be a gap. It should be at
	// least the sample interval of the data.
	MinGap float64

	Overlaps OverlapPolicy
}

// DefaultGapOptions returns GapOptions with MinGap of DefaultMinGap that
// exclude overlaps.
func DefaultGapOptions() GapOptions {
	return GapOptions{MinGap: DefaultMinGap}
}

// Codes identify a recording channel.
type Codes struct {
	Network  string `json:"network"`
	Station  string `json:"station"`
	Location string `json:"location"`
	Channel  string `json:"channel"`
}

func channelOf(r index.Row) Codes {
	return Codes{Network: r.Network, Station: r.Station, Location: r.Location, Channel: r.Channel}
}

// SeedID returns the channel's seed id.
func (c Codes) SeedID() string {
	return index.Row{Network: c.Network, Station: c.Station, Location: c.Location, Channel: c.Channel}.SeedID()
}

// Availability is the time span a channel has data for.
type Availability struct {
	Codes
	StartTime float64 `json:"starttime"`
	EndTime   float64 `json:"endtime"`
}

// Gap is a span of time a channel has no data for.
type Gap struct {
	Codes
	StartTime float64 `json:"starttime"`
	EndTime   float64 `json:"endtime"`
	Duration  float64 `json:"gap_duration"`
}

// Uptime summarises how much of its span a channel has data for.
type Uptime struct {
	Codes
	StartTime    float64 `json:"starttime"`
	EndTime      float64 `json:"endtime"`
	Duration     float64 `json:"duration"`
	GapDuration  float64 `json:"gap_duration"`
	Uptime       float64 `json:"uptime"`
	Availability float64 `json:"availability"`
}

// ReadIndex returns the index rows that match the query. If the bank has not
// been indexed, it is indexed first; an empty bank gives no rows.
func (b *Bank) ReadIndex(q query.Query) ([]index.Row, error) {
	return b.readIndex(q, index.ReadOptions{})
}

func (b *Bank) readIndex(q query.Query, opts index.ReadOptions) ([]index.Row, error) {
	start, end, err := q.Range()
	if err != nil {
		return nil, err
	}

	if err = b.ensureIndex(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	rows, err := b.cache.get(start, end, b.cfg.Buffer, opts)
	b.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	return b.matcher.Filter(rows, q)
}

// bySeed groups rows by channel, returning the channels in seed id order.
func bySeed(rows []index.Row) ([]Codes, map[Codes][]index.Row) {
	groups := make(map[Codes][]index.Row)

	for _, r := range rows {
		c := channelOf(r)
		groups[c] = append(groups[c], r)
	}

	channels := make([]Codes, 0, len(groups))
	for c := range groups {
		channels = append(channels, c)
	}

	slices.SortFunc(channels, func(a, b Codes) int {
		return cmp.Compare(a.SeedID(), b.SeedID())
	})

	return channels, groups
}

// Availability returns, for each channel matching the query, the earliest
// start and latest end of its data.
func (b *Bank) Availability(q query.Query) ([]Availability, error) {
	rows, err := b.readIndex(q, index.ReadOptions{WithoutPaths: true})
	if err != nil {
		return nil, err
	}

	return availability(rows), nil
}

func availability(rows []index.Row) []Availability {
	channels, groups := bySeed(rows)
	out := make([]Availability, 0, len(channels))

	for _, c := range channels {
		a := Availability{Codes: c, StartTime: groups[c][0].StartTime, EndTime: groups[c][0].EndTime}

		for _, r := range groups[c][1:] {
			a.StartTime = min(a.StartTime, r.StartTime)
			a.EndTime = max(a.EndTime, r.EndTime)
		}

		out = append(out, a)
	}

	return out
}

// Gaps returns every gap in the data of the channels matching the query.
func (b *Bank) Gaps(q query.Query, opts GapOptions) ([]Gap, error) {
	rows, err := b.readIndex(q, index.ReadOptions{WithoutPaths: true})
	if err != nil {
		return nil, err
	}

	return gaps(rows, opts), nil
}

func gaps(rows []index.Row, opts GapOptions) []Gap {
	channels, groups := bySeed(rows)

	var out []Gap

	for _, c := range channels {
		out = append(out, channelGaps(c, groups[c], opts)...)
	}

	return out
}

// channelGaps finds gaps between consecutive segments of one channel. The
// end of the data so far is the latest end seen, so a segment contained in
// an earlier one hides no gap.
func channelGaps(c Codes, rows []index.Row, opts GapOptions) []Gap {
	slices.SortFunc(rows, func(a, b index.Row) int {
		if n := cmp.Compare(a.StartTime, b.StartTime); n != 0 {
			return n
		}

		return cmp.Compare(a.EndTime, b.EndTime)
	})

	var out []Gap

	end := rows[0].EndTime

	for _, r := range rows[1:] {
		switch {
		case end+opts.MinGap < r.StartTime:
			out = append(out, Gap{Codes: c, StartTime: end, EndTime: r.StartTime, Duration: r.StartTime - end})
		case opts.Overlaps == ReportOverlaps && r.StartTime < end:
			out = append(out, Gap{Codes: c, StartTime: r.StartTime, EndTime: r.StartTime})
		}

		end = max(end, r.EndTime)
	}

	return out
}

// Uptime returns, for each channel matching the query, how much of the time
// between its first and last data it has data for.
func (b *Bank) Uptime(q query.Query, opts GapOptions) ([]Uptime, error) {
	rows, err := b.readIndex(q, index.ReadOptions{WithoutPaths: true})
	if err != nil {
		return nil, err
	}

	return uptime(rows, opts), nil
}

func uptime(rows []index.Row, opts GapOptions) []Uptime {
	gapTotals := make(map[Codes]float64)

	for _, g := range gaps(rows, opts) {
		gapTotals[g.Codes] += g.Duration
	}

	avail := availability(rows)
	out := make([]Uptime, 0, len(avail))

	for _, a := range avail {
		u := Uptime{
			Codes:       a.Codes,
			StartTime:   a.StartTime,
			EndTime:     a.EndTime,
			Duration:    a.EndTime - a.StartTime,
			GapDuration: gapTotals[a.Codes],
		}

		u.Uptime = u.Duration - u.GapDuration
		u.Availability = 1

		if u.Duration > 0 {
			u.Availability = u.Uptime / u.Duration
		}

		out = append(out, u)
	}

	return out
}
