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

package index

import "github.com/prometheus/client_golang/prometheus"

// namespace is the leading part of all published wavebank metrics.
const namespace = "wavebank"

const storeSubsystem = "index" // sub-system associated with metrics for the index store.

// Metrics are the counters a Store updates.
type Metrics struct {
	// Reads counts range reads that opened the store file.
	Reads prometheus.Counter

	// Appends counts successful append transactions.
	Appends prometheus.Counter

	// Rows counts rows appended.
	Rows prometheus.Counter
}

// NewMetrics returns Metrics with the given constant labels. They are not
// registered anywhere; pass PrometheusCollectors() to a registry to publish
// them.
func NewMetrics(labels prometheus.Labels) *Metrics {
	return &Metrics{
		Reads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   storeSubsystem,
			Name:        "reads_total",
			Help:        "Number of range reads of the index store.",
			ConstLabels: labels,
		}),
		Appends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   storeSubsystem,
			Name:        "appends_total",
			Help:        "Number of appends to the index store.",
			ConstLabels: labels,
		}),
		Rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   storeSubsystem,
			Name:        "rows_appended_total",
			Help:        "Number of rows appended to the index store.",
			ConstLabels: labels,
		}),
	}
}

// PrometheusCollectors returns all the metrics.
func (m *Metrics) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{m.Reads, m.Appends, m.Rows}
}
