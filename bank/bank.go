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

// Package bank provides Bank, which keeps an index of the waveform files
// under a directory so that they can be queried, analysed for gaps and
// retrieved without scanning the directory each time.
package bank

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wtsi-hgi/wavebank/index"
	"github.com/wtsi-hgi/wavebank/naming"
	"github.com/wtsi-hgi/wavebank/query"
	"github.com/wtsi-hgi/wavebank/wavefile"
)

// Version is the version of the bank software, set at build time.
var Version = "dev" //nolint:gochecknoglobals

// Error is the custom error type for the bank package.
type Error string

func (e Error) Error() string { return string(e) }

const ErrNoBasePath = Error("bank base path not specified")

// locks holds one lock per absolute index path, so that every Bank in this
// process working on the same directory serialises its updates.
var locks = struct { //nolint:gochecknoglobals
	sync.Mutex
	m map[string]*sync.RWMutex
}{m: make(map[string]*sync.RWMutex)}

func lockFor(path string) *sync.RWMutex {
	locks.Lock()
	defer locks.Unlock()

	l, ok := locks.m[path]
	if !ok {
		l = new(sync.RWMutex)
		locks.m[path] = l
	}

	return l
}

// Bank is an indexed archive of waveform files under one directory.
type Bank struct {
	cfg     Config
	base    string
	logger  log15.Logger
	format  wavefile.Format
	namer   *naming.Namer
	store   *index.Store
	cache   *indexCache
	matcher *query.Matcher
	metrics *Metrics

	// mu is shared with every Bank on the same index. Updates hold it
	// exclusively; reads of the cache and store share it.
	mu *sync.RWMutex

	poller
}

// New returns a Bank for the directory cfg.BasePath, which need not have
// been indexed before. No files are read until the index is first used.
func New(cfg Config) (*Bank, error) {
	if cfg.BasePath == "" {
		return nil, ErrNoBasePath
	}

	cfg = cfg.withDefaults()

	base, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, err
	}

	format, err := wavefile.Lookup(cfg.Format)
	if err != nil {
		return nil, err
	}

	b := &Bank{
		cfg:     cfg,
		base:    base,
		logger:  cfg.Logger.New("bank", base),
		format:  format,
		matcher: query.NewMatcher(0),
		metrics: NewMetrics(prometheus.Labels{"bank": base}),
	}

	b.store = index.NewStore(filepath.Join(base, index.Basename), b.metrics.Store)
	b.mu = lockFor(b.store.Path())

	if b.cache, err = newIndexCache(b.store, cfg.CacheSize, b.metrics); err != nil {
		return nil, err
	}

	if err = b.setupNamer(); err != nil {
		return nil, err
	}

	if err = b.register(); err != nil {
		return nil, err
	}

	b.startPolling()

	return b, nil
}

func (b *Bank) setupNamer() error {
	if b.cfg.PathStructure == "" || b.cfg.NameStructure == "" {
		meta, ok, err := b.store.Metadata()
		if err != nil {
			return err
		}

		if ok {
			b.cfg.PathStructure = orDefault(b.cfg.PathStructure, meta.PathStructure)
			b.cfg.NameStructure = orDefault(b.cfg.NameStructure, meta.NameStructure)
		}
	}

	b.cfg.PathStructure = orDefault(b.cfg.PathStructure, naming.DefaultPathStructure)
	b.cfg.NameStructure = orDefault(b.cfg.NameStructure, naming.DefaultNameStructure)

	ext := b.cfg.Ext
	if ext == "" {
		ext = wavefile.FormatNative
	}

	namer, err := naming.NewNamer(b.cfg.PathStructure, b.cfg.NameStructure, ext)
	if err != nil {
		return fmt.Errorf("bad naming structure: %w", err)
	}

	b.namer = namer

	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}

func (b *Bank) register() error {
	if b.cfg.Registerer == nil {
		return nil
	}

	for _, c := range b.PrometheusCollectors() {
		if err := b.cfg.Registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}

	return nil
}

// BasePath returns the absolute path of the bank's directory.
func (b *Bank) BasePath() string { return b.base }

// IndexPath returns the path of the bank's index file.
func (b *Bank) IndexPath() string { return b.store.Path() }

// PathStructure returns the path template used by PutWaveforms.
func (b *Bank) PathStructure() string { return b.cfg.PathStructure }

// NameStructure returns the file name template used by PutWaveforms.
func (b *Bank) NameStructure() string { return b.cfg.NameStructure }

// LastUpdated returns the time (epoch seconds) of the last index update. ok is
// false if the bank has never been indexed.
func (b *Bank) LastUpdated() (updated float64, ok bool, err error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.store.LastUpdated()
}

// Metadata returns the metadata stored when the index was created. ok is
// false if the bank has never been indexed.
func (b *Bank) Metadata() (meta index.Metadata, ok bool, err error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.store.Metadata()
}

// Len returns the number of rows in the index.
func (b *Bank) Len() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.store.Len()
}

// Version returns the version of the bank software.
func (b *Bank) Version() string { return Version }

// ClearCache empties the in-memory cache of index reads.
func (b *Bank) ClearCache() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cache.clear()
}

// Metrics returns the bank's metrics.
func (b *Bank) Metrics() *Metrics { return b.metrics }

// PrometheusCollectors returns the bank's metrics for publishing.
func (b *Bank) PrometheusCollectors() []prometheus.Collector {
	return b.metrics.PrometheusCollectors()
}

// Close stops any background polling.
func (b *Bank) Close() error {
	b.stopPolling()

	return nil
}
