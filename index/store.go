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

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"time"

	"github.com/ugorji/go/codec"
	bolt "go.etcd.io/bbolt"
)

const (
	// Basename is the name of the index file within a bank's base directory.
	Basename = ".wavebank.index.db"

	// DefaultLockTimeout is how long opening the store waits for another
	// process to release it.
	DefaultLockTimeout = 10 * time.Second

	rowsBucketName    = "rows"
	byStartBucketName = "bystart"
	metaBucketName    = "_meta"
	timeBucketName    = "_time"

	metaKeyMetadata    = "metadata"
	metaKeyMaxDuration = "maxDuration"
	timeKeyLastUpdated = "lastUpdated"

	storeFilePerms = 0o640
	idBytes        = 8
	floatBytes     = 8
)

// ReadOptions tweak what ReadRange returns.
type ReadOptions struct {
	// WithoutPaths leaves the Path of returned rows blank, for callers that
	// only care about channels and times.
	WithoutPaths bool
}

// Store is an append-only index of Rows held in a bolt database. The
// database is only opened for the duration of each call, so multiple
// processes can share it; bolt's file lock makes appends exclusive.
type Store struct {
	path    string
	ch      codec.Handle
	metrics *Metrics
	timeout time.Duration
}

// NewStore returns a Store for the database at the given path, which need
// not exist yet. metrics may be nil.
func NewStore(path string, metrics *Metrics) *Store {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Store{
		path:    path,
		ch:      new(codec.BincHandle),
		metrics: metrics,
		timeout: DefaultLockTimeout,
	}
}

// Path returns the location of the database file.
func (s *Store) Path() string { return s.path }

// Metrics returns the metrics the store updates.
func (s *Store) Metrics() *Metrics { return s.metrics }

// Exists tells you if an index has been created.
func (s *Store) Exists() bool {
	fi, err := os.Stat(s.path)

	return err == nil && fi.Size() != 0
}

// Append adds rows to the index and records updated (epoch seconds) as the
// time the index was last updated. The rows are all added in one
// transaction: if any row is invalid, none are.
//
// The first Append creates the index, storing meta with string column
// widths fitted to the first rows. Later rows with wider strings are
// rejected with ErrFieldTooLong.
func (s *Store) Append(rows []Row, meta Metadata, updated float64) error {
	for _, r := range rows {
		if err := r.Validate(nil); err != nil {
			return err
		}
	}

	db, err := s.openWritable()
	if err != nil {
		return err
	}

	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		return s.appendTx(tx, rows, meta, updated)
	})
	if err != nil {
		return err
	}

	s.metrics.Appends.Inc()
	s.metrics.Rows.Add(float64(len(rows)))

	slog.Debug("appended to index", "path", s.path, "rows", len(rows))

	return nil
}

func (s *Store) openWritable() (*bolt.DB, error) {
	db, err := bolt.Open(s.path, storeFilePerms, &bolt.Options{
		Timeout:      s.timeout,
		FreelistType: bolt.FreelistMapType,
	})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [...]string{rowsBucketName, byStartBucketName, metaBucketName, timeBucketName} {
			if _, errc := tx.CreateBucketIfNotExists([]byte(name)); errc != nil {
				return errc
			}
		}

		return nil
	})
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return db, nil
}

func (s *Store) appendTx(tx *bolt.Tx, rows []Row, meta Metadata, updated float64) error {
	mb := tx.Bucket([]byte(metaBucketName))

	widths, err := s.ensureMetadata(mb, rows, meta)
	if err != nil {
		return err
	}

	rb := tx.Bucket([]byte(rowsBucketName))
	sb := tx.Bucket([]byte(byStartBucketName))
	maxDuration := getFloat(mb, metaKeyMaxDuration)

	for _, r := range rows {
		if err = r.Validate(widths); err != nil {
			return err
		}

		if err = s.putRow(rb, sb, r); err != nil {
			return err
		}

		maxDuration = max(maxDuration, r.EndTime-r.StartTime)
	}

	if err = putFloat(mb, metaKeyMaxDuration, maxDuration); err != nil {
		return err
	}

	return putFloat(tx.Bucket([]byte(timeBucketName)), timeKeyLastUpdated, updated)
}

func (s *Store) ensureMetadata(mb *bolt.Bucket, rows []Row, meta Metadata) (map[string]int, error) {
	if v := mb.Get([]byte(metaKeyMetadata)); v != nil {
		var existing Metadata
		if err := s.decode(v, &existing); err != nil {
			return nil, err
		}

		return existing.Widths, nil
	}

	meta.Widths = widthsFor(rows)

	return meta.Widths, mb.Put([]byte(metaKeyMetadata), s.encode(meta))
}

func (s *Store) putRow(rb, sb *bolt.Bucket, r Row) error {
	seq, err := rb.NextSequence()
	if err != nil {
		return err
	}

	id := idKey(seq)

	if err = rb.Put(id, s.encode(r)); err != nil {
		return err
	}

	return sb.Put(startKey(r.StartTime, seq), id)
}

func (s *Store) encode(v any) []byte {
	var encoded []byte

	codec.NewEncoderBytes(&encoded, s.ch).MustEncode(v)

	return encoded
}

func (s *Store) decode(data []byte, v any) error {
	return codec.NewDecoderBytes(data, s.ch).Decode(v)
}

// ReadRange returns the rows that overlap [start, end], in the order they
// were appended. Use math.Inf for unbounded ends. If the index doesn't exist,
// returns no rows and no error.
func (s *Store) ReadRange(start, end float64, opts ReadOptions) ([]Row, error) {
	if start > end {
		return nil, fmt.Errorf("%w: starttime %f after endtime %f", ErrValidation, start, end)
	}

	db, err := s.openReadOnly()
	if errors.Is(err, ErrStoreAbsent) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	defer db.Close()

	s.metrics.Reads.Inc()

	var rows []Row

	err = db.View(func(tx *bolt.Tx) error {
		rows, err = s.readRangeTx(tx, start, end, opts)

		return err
	})

	slog.Debug("read index range", "path", s.path, "rows", len(rows))

	return rows, err
}

func (s *Store) openReadOnly() (*bolt.DB, error) {
	if !s.Exists() {
		return nil, ErrStoreAbsent
	}

	return bolt.Open(s.path, storeFilePerms, &bolt.Options{
		ReadOnly: true,
		Timeout:  s.timeout,
	})
}

func (s *Store) readRangeTx(tx *bolt.Tx, start, end float64, opts ReadOptions) ([]Row, error) {
	rb := tx.Bucket([]byte(rowsBucketName))
	if rb == nil {
		return nil, nil
	}

	if math.IsInf(start, -1) {
		return s.scanRows(rb, start, end, opts)
	}

	ids := s.idsStartingFrom(tx, start, end)
	rows := make([]Row, 0, len(ids))

	for _, id := range ids {
		r, err := s.decodeRow(rb.Get(id), opts)
		if err != nil {
			return nil, err
		}

		if r.Overlaps(start, end) {
			rows = append(rows, r)
		}
	}

	return rows, nil
}

func (s *Store) scanRows(rb *bolt.Bucket, start, end float64, opts ReadOptions) ([]Row, error) {
	var rows []Row

	err := rb.ForEach(func(_, v []byte) error {
		r, err := s.decodeRow(v, opts)
		if err != nil {
			return err
		}

		if r.Overlaps(start, end) {
			rows = append(rows, r)
		}

		return nil
	})

	return rows, err
}

// idsStartingFrom uses the start time index to find the ids of rows that
// start late enough to possibly overlap start, and no later than end. No row
// lasts longer than the recorded maximum duration, so earlier rows can't
// overlap.
func (s *Store) idsStartingFrom(tx *bolt.Tx, start, end float64) [][]byte {
	from := start - getFloat(tx.Bucket([]byte(metaBucketName)), metaKeyMaxDuration)
	c := tx.Bucket([]byte(byStartBucketName)).Cursor()
	limit := sortableFloat(end)

	var ids [][]byte

	for k, v := c.Seek(sortableFloat(from)); k != nil; k, v = c.Next() {
		if binary.BigEndian.Uint64(k[:floatBytes]) > binary.BigEndian.Uint64(limit) {
			break
		}

		ids = append(ids, v)
	}

	slices.SortFunc(ids, func(a, b []byte) int {
		return compareUint64(binary.BigEndian.Uint64(a), binary.BigEndian.Uint64(b))
	})

	return ids
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (s *Store) decodeRow(v []byte, opts ReadOptions) (Row, error) {
	var r Row
	if err := s.decode(v, &r); err != nil {
		return r, err
	}

	if opts.WithoutPaths {
		r.Path = ""
	}

	return r, nil
}

// LastUpdated returns the time (epoch seconds) the index was last appended
// to. ok is false if the index has never been built.
func (s *Store) LastUpdated() (updated float64, ok bool, err error) {
	err = s.view(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(timeBucketName))
		if b == nil {
			return nil
		}

		if v := b.Get([]byte(timeKeyLastUpdated)); len(v) == floatBytes {
			updated = math.Float64frombits(binary.LittleEndian.Uint64(v))
			ok = true
		}

		return nil
	})

	return updated, ok, err
}

// Metadata returns the metadata stored when the index was created. ok is
// false if the index has never been built.
func (s *Store) Metadata() (meta Metadata, ok bool, err error) {
	err = s.view(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(metaBucketName))
		if b == nil {
			return nil
		}

		v := b.Get([]byte(metaKeyMetadata))
		if v == nil {
			return nil
		}

		ok = true

		return s.decode(v, &meta)
	})

	return meta, ok, err
}

// Len returns the number of rows in the index.
func (s *Store) Len() (int, error) {
	var n int

	err := s.view(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(rowsBucketName)); b != nil {
			n = int(b.Sequence())
		}

		return nil
	})

	return n, err
}

// view runs fn in a read transaction, doing nothing if the index doesn't
// exist.
func (s *Store) view(fn func(*bolt.Tx) error) error {
	db, err := s.openReadOnly()
	if errors.Is(err, ErrStoreAbsent) {
		return nil
	} else if err != nil {
		return err
	}

	defer db.Close()

	return db.View(fn)
}

func idKey(seq uint64) []byte {
	b := make([]byte, idBytes)
	binary.BigEndian.PutUint64(b, seq)

	return b
}

// startKey orders rows by start time, then id.
func startKey(start float64, seq uint64) []byte {
	return append(sortableFloat(start), idKey(seq)...)
}

// sortableFloat encodes f so that byte order matches numeric order.
func sortableFloat(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}

	b := make([]byte, floatBytes)
	binary.BigEndian.PutUint64(b, bits)

	return b
}

func getFloat(b *bolt.Bucket, key string) float64 {
	v := b.Get([]byte(key))
	if len(v) != floatBytes {
		return 0
	}

	return math.Float64frombits(binary.LittleEndian.Uint64(v))
}

func putFloat(b *bolt.Bucket, key string, f float64) error {
	buf := make([]byte, floatBytes)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(f))

	return b.Put([]byte(key), buf)
}
