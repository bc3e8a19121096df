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
	"math"
	"slices"

	lru "github.com/hashicorp/golang-lru"
	"github.com/wtsi-hgi/wavebank/index"
)

type cacheKey struct {
	start, end, buffer float64
	opts               index.ReadOptions
}

// indexCache remembers the rows of recent index reads. Reads are padded by
// the buffer, but cached under the exact range asked for. The caller must
// clear it whenever the store is appended to.
type indexCache struct {
	store   *index.Store
	lru     *lru.Cache
	metrics *Metrics
}

func newIndexCache(store *index.Store, size int, metrics *Metrics) (*indexCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &indexCache{store: store, lru: c, metrics: metrics}, nil
}

// get returns a copy of the rows overlapping [start-buffer, end+buffer].
func (c *indexCache) get(start, end, buffer float64, opts index.ReadOptions) ([]index.Row, error) {
	key := cacheKey{start: start, end: end, buffer: buffer, opts: opts}

	if v, ok := c.lru.Get(key); ok {
		c.metrics.CacheHits.Inc()

		return slices.Clone(v.([]index.Row)), nil //nolint:forcetypeassert
	}

	c.metrics.CacheMisses.Inc()

	rows, err := c.store.ReadRange(pad(start, -buffer), pad(end, buffer), opts)
	if err != nil {
		return nil, err
	}

	c.lru.Add(key, rows)

	return slices.Clone(rows), nil
}

func pad(t, by float64) float64 {
	if math.IsInf(t, 0) {
		return t
	}

	return t + by
}

func (c *indexCache) clear() {
	c.lru.Purge()
}

func (c *indexCache) len() int {
	return c.lru.Len()
}
