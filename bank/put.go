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
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/wtsi-hgi/wavebank/waveform"
)

const dirPerms = 0o750

// PutWaveforms stores the given traces in the bank and updates the index.
// Each trace is stored at the path the bank's naming structures give it; if
// name is not blank it is used as the file name instead of the name
// structure.
//
// Where a file already exists at a path, its traces are merged with the new
// ones rather than replaced, so no stored data is lost and overlapping
// samples are not duplicated. Where they overlap, the new samples win. Files
// are replaced atomically, and given the bank clock's current time as their
// modification time.
//
// Returns the summary of the index update, or nil if there was nothing to
// store.
func (b *Bank) PutWaveforms(st waveform.Stream, name string) (*UpdateSummary, error) {
	groups, order := b.groupByPath(st, name)
	if len(order) == 0 {
		return nil, nil //nolint:nilnil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, path := range order {
		if err := b.putFile(path, groups[path]); err != nil {
			return nil, err
		}
	}

	return b.updateIndex()
}

func (b *Bank) groupByPath(st waveform.Stream, name string) (map[string]waveform.Stream, []string) {
	groups := make(map[string]waveform.Stream)

	var order []string

	for _, tr := range st {
		path := b.absPath(b.namer.PathFor(tr, name))

		if _, ok := groups[path]; !ok {
			order = append(order, path)
		}

		groups[path] = append(groups[path], tr.Copy())
	}

	return groups, order
}

// putFile merges the traces with any already in the file at path, then
// writes them to a temporary file that replaces it.
func (b *Bank) putFile(path string, st waveform.Stream) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return err
	}

	existing, err := b.existingTraces(path)
	if err != nil {
		return err
	}

	st = b.merge(existing.Overlay(st))
	st.Sort()

	tmp := filepath.Join(filepath.Dir(path), tmpPrefix+uuid.NewString()+"-"+filepath.Base(path))

	if err = b.format.Write(tmp, st); err != nil {
		return errors.Join(err, removeIfExists(tmp))
	}

	if err = os.Rename(tmp, path); err != nil {
		return errors.Join(err, removeIfExists(tmp))
	}

	now := b.cfg.Clock.Now()
	if err = os.Chtimes(path, now, now); err != nil {
		return err
	}

	b.metrics.FilesWritten.Inc()
	b.logger.Debug("wrote waveform file", "path", path, "traces", len(st))

	return nil
}

// existingTraces returns the traces in the file at path, or none if there is
// no such file. A file that exists but can't be read is an error, since
// overwriting it would lose its data.
func (b *Bank) existingTraces(path string) (waveform.Stream, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return b.format.Read(path)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}
