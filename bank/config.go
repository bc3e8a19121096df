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
	"time"

	"github.com/benbjohnson/clock"
	"github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wtsi-hgi/wavebank/waveform"
)

const (
	// DefaultBuffer is the time in seconds index reads are padded by either
	// side of the requested range, so that nearby queries hit the cache.
	DefaultBuffer = 10.111

	// DefaultCacheSize is the default number of index reads kept in memory.
	DefaultCacheSize = 5

	// DefaultProgressThreshold is the number of unindexed files above which
	// UpdateIndex reports progress.
	DefaultProgressThreshold = 5000

	// DefaultParallelism is the default number of files read at once.
	DefaultParallelism = 8
)

// Progress receives progress updates during a long UpdateIndex. It is purely
// cosmetic.
type Progress interface {
	// Update is called with the number of files processed so far.
	Update(count int)

	// Finish is called once all files have been processed.
	Finish()
}

// Enricher attaches extra metadata to traces when callers ask for it.
type Enricher interface {
	Attach(st waveform.Stream)
}

// Config configures a Bank.
type Config struct {
	// BasePath is the root directory of the bank. Required.
	BasePath string

	// PathStructure and NameStructure are the naming templates used to
	// decide where PutWaveforms stores traces. If blank, those stored in an
	// existing index are used, else the naming package defaults.
	PathStructure string
	NameStructure string

	// Format is the wavefile format name of the bank's files. Blank means the
	// native format.
	Format string

	// Ext, if set, restricts indexing to files ending in Ext (or Ext.gz). It
	// is also the extension PutWaveforms gives new files.
	Ext string

	// CacheSize is the number of index reads to keep in memory. Zero means
	// DefaultCacheSize.
	CacheSize int

	// Buffer is the time in seconds to pad index reads by. Zero means
	// DefaultBuffer; use a negative value for no padding.
	Buffer float64

	// Inventory, if set, is used to attach channel metadata to retrieved
	// traces when requested.
	Inventory Enricher

	// Logger receives warnings about skipped files and unmergeable traces.
	// Defaults to discarding everything.
	Logger log15.Logger

	// Clock provides the time recorded as the index's last update. Defaults
	// to the wall clock.
	Clock clock.Clock

	// NewProgress, if set, is called with the number of unindexed files
	// when UpdateIndex has at least ProgressThreshold of them to process.
	NewProgress func(total int) Progress

	// ProgressThreshold defaults to DefaultProgressThreshold.
	ProgressThreshold int

	// Parallelism is the number of files read at once when retrieving
	// waveforms. Defaults to DefaultParallelism.
	Parallelism int

	// Registerer, if set, has the bank's metrics registered with it.
	Registerer prometheus.Registerer

	// PollInterval controls how often the bank rescans BasePath for new
	// files in the background. If zero or negative, it never does.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}

	if c.Buffer == 0 {
		c.Buffer = DefaultBuffer
	} else if c.Buffer < 0 {
		c.Buffer = 0
	}

	if c.Logger == nil {
		c.Logger = log15.New()
		c.Logger.SetHandler(log15.DiscardHandler())
	}

	if c.Clock == nil {
		c.Clock = clock.New()
	}

	if c.ProgressThreshold <= 0 {
		c.ProgressThreshold = DefaultProgressThreshold
	}

	if c.Parallelism <= 0 {
		c.Parallelism = DefaultParallelism
	}

	return c
}
