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

package query

import (
	"github.com/wtsi-hgi/wavebank/index"
	"github.com/wtsi-hgi/wavebank/waveform"
)

// Request is one entry of a bulk request: literal or wildcard codes and a
// time range in epoch seconds. Use math.Inf for unbounded ends.
type Request struct {
	Network  string
	Station  string
	Location string
	Channel  string
	Start    float64
	End      float64
}

// HasWildcard tells you if any of the request's codes contain a wildcard.
func (r Request) HasWildcard() bool {
	return HasWildcard(r.Network) || HasWildcard(r.Station) ||
		HasWildcard(r.Location) || HasWildcard(r.Channel)
}

// SeedID returns the seed id the request's codes spell out.
func (r Request) SeedID() string {
	return waveform.SeedID(r.Network, r.Station, r.Location, r.Channel)
}

// Query returns the equivalent single Query. A location of "--" means an
// empty location, as in seed ids.
func (r Request) Query() Query {
	loc := r.Location
	if loc == "--" {
		loc = ""
	}

	return Query{
		Network:  Match(r.Network),
		Station:  Match(r.Station),
		Location: Match(loc),
		Channel:  Match(r.Channel),
		Start:    Epoch(r.Start),
		End:      Epoch(r.End),
	}
}

// Group is the requests of a bulk request that share one exact time range,
// split into those with only literal codes and those with wildcards.
type Group struct {
	Start    float64
	End      float64
	Exact    []Request
	Wildcard []Request
}

// Query returns a Query covering just the group's time range.
func (g *Group) Query() Query {
	return Query{Start: Epoch(g.Start), End: Epoch(g.End)}
}

type window struct{ start, end float64 }

// GroupBulk groups requests by their exact time ranges, in the order each
// range first appears.
func GroupBulk(reqs []Request) []*Group {
	groups := make([]*Group, 0)
	byWindow := make(map[window]*Group)

	for _, r := range reqs {
		w := window{r.Start, r.End}

		g, ok := byWindow[w]
		if !ok {
			g = &Group{Start: r.Start, End: r.End}
			byWindow[w] = g
			groups = append(groups, g)
		}

		if r.HasWildcard() {
			g.Wildcard = append(g.Wildcard, r)
		} else {
			g.Exact = append(g.Exact, r)
		}
	}

	return groups
}

// GroupMask returns a mask of the rows that overlap the group's time range
// and match any of its requests. Literal requests are matched together by
// seed id set membership; wildcard requests are matched one by one.
func (m *Matcher) GroupMask(rows []index.Row, g *Group) ([]bool, error) {
	start, end, err := g.Query().Range()
	if err != nil {
		return nil, err
	}

	mask := m.exactMask(rows, g, start, end)

	for _, r := range g.Wildcard {
		wmask, errm := m.Mask(rows, r.Query())
		if errm != nil {
			return nil, errm
		}

		for i, ok := range wmask {
			mask[i] = mask[i] || ok
		}
	}

	return mask, nil
}

func (m *Matcher) exactMask(rows []index.Row, g *Group, start, end float64) []bool {
	mask := make([]bool, len(rows))
	if len(g.Exact) == 0 {
		return mask
	}

	ids := make(map[string]bool, len(g.Exact))
	for _, r := range g.Exact {
		ids[r.SeedID()] = true
	}

	for i, r := range rows {
		mask[i] = r.Overlaps(start, end) && ids[r.SeedID()]
	}

	return mask
}
