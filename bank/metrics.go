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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wtsi-hgi/wavebank/index"
)

const (
	namespace      = "wavebank"
	cacheSubsystem = "cache" // sub-system associated with metrics for the index cache.
	bankSubsystem  = "bank"  // sub-system associated with metrics for file handling.
)

// Metrics are the counters a Bank updates.
type Metrics struct {
	// Store holds the index store's metrics.
	Store *index.Metrics

	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	FilesIndexed prometheus.Counter
	FilesSkipped prometheus.Counter
	FilesRead    prometheus.Counter
	ReadFailures prometheus.Counter
	MergeErrors  prometheus.Counter
	FilesWritten prometheus.Counter
}

// NewMetrics returns unregistered Metrics with the given constant labels.
func NewMetrics(labels prometheus.Labels) *Metrics {
	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	return &Metrics{
		Store:        index.NewMetrics(labels),
		CacheHits:    counter(cacheSubsystem, "hits_total", "Number of index reads served from the cache."),
		CacheMisses:  counter(cacheSubsystem, "misses_total", "Number of index reads that missed the cache."),
		FilesIndexed: counter(bankSubsystem, "files_indexed_total", "Number of files added to the index."),
		FilesSkipped: counter(bankSubsystem, "files_skipped_total", "Number of files that could not be summarised."),
		FilesRead:    counter(bankSubsystem, "files_read_total", "Number of files read to retrieve waveforms."),
		ReadFailures: counter(bankSubsystem, "read_failures_total", "Number of files that could not be read."),
		MergeErrors:  counter(bankSubsystem, "merge_errors_total", "Number of seed ids whose traces could not be merged."),
		FilesWritten: counter(bankSubsystem, "files_written_total", "Number of files written by puts."),
	}
}

// PrometheusCollectors returns all the metrics.
func (m *Metrics) PrometheusCollectors() []prometheus.Collector {
	return append(m.Store.PrometheusCollectors(),
		m.CacheHits, m.CacheMisses,
		m.FilesIndexed, m.FilesSkipped,
		m.FilesRead, m.ReadFailures,
		m.MergeErrors, m.FilesWritten,
	)
}
