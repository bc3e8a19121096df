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
	"errors"
	"iter"
	"math"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/wtsi-hgi/wavebank/index"
	"github.com/wtsi-hgi/wavebank/query"
	"github.com/wtsi-hgi/wavebank/waveform"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkDuration is the default duration in seconds of the streams
// YieldWaveforms yields.
const DefaultChunkDuration = 3600.0

// GetWaveforms returns the data of the channels matching the query, trimmed
// to the query's time range, merged and sorted. If attach is true and the
// bank has an Inventory, channel metadata is attached to the traces.
//
// Files that can't be read are skipped. A query that matches nothing gives an
// empty stream.
func (b *Bank) GetWaveforms(q query.Query, attach bool) (waveform.Stream, error) {
	rows, err := b.ReadIndex(q)
	if err != nil {
		return nil, err
	}

	return b.assemble(rows, q.Start, q.End, attach)
}

// GetWaveformsBySeed returns the data of the channels with the given seed
// ids (which may not contain wildcards) between start and end.
func (b *Bank) GetWaveformsBySeed(ids []string, start, end query.Bound, attach bool) (waveform.Stream, error) {
	q := query.Query{Start: start, End: end}

	rows, err := b.ReadIndex(q)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	selected := rows[:0]

	for _, r := range rows {
		if want[r.SeedID()] {
			selected = append(selected, r)
		}
	}

	return b.assemble(selected, start, end, attach)
}

// GetWaveformsBulk returns the data for many requests at once. Requests with
// the same time range are resolved together. The result is the concatenation
// of the data for each distinct time range, in the order the ranges first
// appear in reqs. No requests gives an empty stream.
func (b *Bank) GetWaveformsBulk(reqs []query.Request) (waveform.Stream, error) {
	if len(reqs) == 0 {
		return waveform.Stream{}, nil
	}

	start, end := math.Inf(1), math.Inf(-1)

	for _, r := range reqs {
		if _, _, err := r.Query().Range(); err != nil {
			return nil, err
		}

		start, end = min(start, r.Start), max(end, r.End)
	}

	rows, err := b.ReadIndex(query.Query{Start: query.Epoch(start), End: query.Epoch(end)})
	if err != nil {
		return nil, err
	}

	out := waveform.Stream{}

	for _, g := range query.GroupBulk(reqs) {
		mask, errm := b.matcher.GroupMask(rows, g)
		if errm != nil {
			return nil, errm
		}

		st, erra := b.assemble(query.Select(rows, mask), query.Epoch(g.Start), query.Epoch(g.End), false)
		if erra != nil {
			return nil, erra
		}

		out = append(out, st...)
	}

	return out, nil
}

// YieldWaveforms returns an iterator over the data matching the query in
// consecutive chunks of duration seconds, each extended by overlap seconds
// past its end. The chunks cover the query's range, narrowed to the span of
// data that exists. Chunks with no data are skipped. A duration <= 0 means
// DefaultChunkDuration.
func (b *Bank) YieldWaveforms(q query.Query, duration, overlap float64, attach bool) iter.Seq2[waveform.Stream, error] {
	return func(yield func(waveform.Stream, error) bool) {
		rows, err := b.ReadIndex(q)
		if err != nil {
			yield(nil, err)

			return
		}

		if len(rows) == 0 {
			return
		}

		for t1, t2 := range timeChunks(dataSpan(rows, q), duration, overlap) {
			chunkRows := rowsNear(rows, t1, t2, b.cfg.Buffer)
			if len(chunkRows) == 0 {
				continue
			}

			st, err := b.assemble(chunkRows, query.Epoch(t1), query.Epoch(t2), attach)
			if !yield(st, err) || err != nil {
				return
			}
		}
	}
}

type span struct{ start, end float64 }

// dataSpan returns the query's range narrowed to the times covered by rows.
func dataSpan(rows []index.Row, q query.Query) span {
	start, end := math.Inf(1), math.Inf(-1)

	for _, r := range rows {
		start, end = min(start, r.StartTime), max(end, r.EndTime)
	}

	return span{start: max(start, q.Start.Value(start)), end: min(end, q.End.Value(end))}
}

// timeChunks yields [t1, min(t1+duration, end)+overlap] for t1 stepping by
// duration from start while t1 < end. A zero length span yields one chunk.
func timeChunks(s span, duration, overlap float64) iter.Seq2[float64, float64] {
	if duration <= 0 {
		duration = DefaultChunkDuration
	}

	overlap = max(overlap, 0)

	return func(yield func(float64, float64) bool) {
		if s.start == s.end {
			yield(s.start, s.end+overlap)

			return
		}

		for t1 := s.start; t1 < s.end; t1 += duration {
			if !yield(t1, min(t1+duration, s.end)+overlap) {
				return
			}
		}
	}
}

func rowsNear(rows []index.Row, start, end, buffer float64) []index.Row {
	var near []index.Row

	for _, r := range rows {
		if r.Overlaps(start-buffer, end+buffer) {
			near = append(near, r)
		}
	}

	return near
}

// assemble reads the files the rows refer to, keeps only the channels in the
// rows, trims to [start, end] (defaulting to the span of the data read),
// attaches metadata if asked, then merges and sorts.
func (b *Bank) assemble(rows []index.Row, start, end query.Bound, attach bool) (waveform.Stream, error) {
	if len(rows) == 0 {
		return waveform.Stream{}, nil
	}

	st, err := b.readFiles(uniquePaths(rows))
	if err != nil {
		return nil, err
	}

	st = st.Select(seedIDs(rows))

	lo, hi, ok := st.Bounds()
	if !ok {
		return waveform.Stream{}, nil
	}

	st = st.Trim(start.Value(lo), end.Value(hi))

	if attach && b.cfg.Inventory != nil {
		b.cfg.Inventory.Attach(st)
	}

	st = b.merge(st)
	st.Sort()

	return st, nil
}

func uniquePaths(rows []index.Row) []string {
	seen := make(map[string]bool, len(rows))
	paths := make([]string, 0, len(rows))

	for _, r := range rows {
		if !seen[r.Path] {
			seen[r.Path] = true
			paths = append(paths, r.Path)
		}
	}

	return paths
}

func seedIDs(rows []index.Row) map[string]bool {
	ids := make(map[string]bool)

	for _, r := range rows {
		ids[r.SeedID()] = true
	}

	return ids
}

// readFiles reads the given bank relative paths in parallel, returning their
// traces in path order. Files that can't be read are logged and skipped.
func (b *Bank) readFiles(paths []string) (waveform.Stream, error) {
	streams := make([]waveform.Stream, len(paths))

	var g errgroup.Group

	g.SetLimit(b.cfg.Parallelism)

	for i, p := range paths {
		g.Go(func() error {
			abs := b.absPath(p)

			st, err := b.format.Read(abs)
			if err != nil {
				b.logger.Warn("skipping unreadable file", "path", abs, "err", err)
				b.metrics.ReadFailures.Inc()

				return nil
			}

			b.metrics.FilesRead.Inc()
			streams[i] = st

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out waveform.Stream

	for _, st := range streams {
		out = append(out, st...)
	}

	return out, nil
}

// absPath converts a path from the index to an absolute one.
func (b *Bank) absPath(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(b.base, p)
}

// merge merges the stream, logging the seed ids that couldn't be merged and
// leaving their traces as they were.
func (b *Bank) merge(st waveform.Stream) waveform.Stream {
	merged, err := st.Merge()
	if err == nil {
		return merged
	}

	errs := []error{err}

	var me *multierror.Error
	if errors.As(err, &me) {
		errs = me.Errors
	}

	for _, e := range errs {
		var merr *waveform.MergeError
		if errors.As(e, &merr) {
			b.logger.Warn("could not merge traces", "id", merr.ID, "err", merr.Err)
			b.metrics.MergeErrors.Inc()
		}
	}

	return merged
}
