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
	"io/fs"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/wtsi-hgi/wavebank/index"
	"github.com/wtsi-hgi/wavebank/wavefile"
)

const tmpPrefix = ".wavebank-tmp-"

// ExtractionError records that one file could not be summarised or read. Such
// files are skipped rather than failing the operation.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return "extract " + e.Path + ": " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// UpdateSummary describes what an UpdateIndex call did.
type UpdateSummary struct {
	// Files is the number of new or modified files found.
	Files int

	// Rows is the number of rows added to the index.
	Rows int

	// Skipped holds an *ExtractionError for each file that could not be
	// summarised, or is nil.
	Skipped *multierror.Error
}

// UpdateIndex finds files under the bank's directory that were modified since
// the index was last updated (or every file, if there is no index yet), and
// adds a row to the index for every trace in them. Files that can't be
// summarised are skipped and reported in the summary.
//
// If no such files are found, the index is left untouched.
func (b *Bank) UpdateIndex() (*UpdateSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.updateIndex()
}

func (b *Bank) updateIndex() (*UpdateSummary, error) {
	last, ok, err := b.store.LastUpdated()
	if err != nil {
		return nil, err
	}

	if !ok {
		last = math.Inf(-1)
	}

	scanned := b.now()

	files, walkErrs := b.unindexedFiles(last)
	summary := &UpdateSummary{Files: len(files), Skipped: walkErrs}

	if len(files) == 0 {
		return summary, nil
	}

	rows := b.summariseFiles(files, summary)

	meta := index.Metadata{
		PathStructure: b.cfg.PathStructure,
		NameStructure: b.cfg.NameStructure,
		CreatedAt:     scanned,
	}

	if err = b.store.Append(rows, meta, scanned); err != nil {
		return nil, err
	}

	b.cache.clear()

	summary.Rows = len(rows)
	b.metrics.FilesIndexed.Add(float64(len(files)))

	b.logger.Debug("index updated", "files", len(files), "rows", len(rows))

	return summary, nil
}

func (b *Bank) now() float64 {
	return float64(b.cfg.Clock.Now().UnixNano()) / float64(time.Second)
}

// unindexedFiles walks the bank's directory for waveform files modified after
// last. Directories that can't be read are reported and skipped.
func (b *Bank) unindexedFiles(last float64) ([]string, *multierror.Error) {
	var (
		files []string
		errs  *multierror.Error
	)

	_ = filepath.WalkDir(b.base, func(path string, d fs.DirEntry, err error) error { //nolint:errcheck
		if err != nil {
			errs = multierror.Append(errs, &ExtractionError{Path: path, Err: err})

			return nil
		}

		if d.IsDir() || !b.wanted(path, d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			errs = multierror.Append(errs, &ExtractionError{Path: path, Err: err})

			return nil
		}

		if mtime := float64(info.ModTime().UnixNano()) / float64(time.Second); mtime > last {
			files = append(files, path)
		}

		return nil
	})

	return files, errs
}

func (b *Bank) wanted(path, name string) bool {
	if path == b.store.Path() || strings.HasPrefix(name, tmpPrefix) {
		return false
	}

	if b.cfg.Ext == "" {
		return true
	}

	ext := b.cfg.Ext
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return strings.HasSuffix(name, ext) || strings.HasSuffix(name, ext+".gz")
}

// summariseFiles returns index rows for every trace in the given files,
// recording files that couldn't be summarised in summary.Skipped.
func (b *Bank) summariseFiles(files []string, summary *UpdateSummary) []index.Row {
	progress := b.progressFor(len(files))

	var rows []index.Row

	for n, path := range files {
		fileRows, err := b.summariseFile(path)
		if err != nil {
			b.logger.Warn("skipping file", "path", path, "err", err)
			b.metrics.FilesSkipped.Inc()
			summary.Skipped = multierror.Append(summary.Skipped, &ExtractionError{Path: path, Err: err})
		}

		rows = append(rows, fileRows...)

		if progress != nil {
			progress.Update(n + 1)
		}
	}

	if progress != nil {
		progress.Finish()
	}

	return rows
}

func (b *Bank) progressFor(total int) Progress {
	if total < b.cfg.ProgressThreshold {
		return nil
	}

	b.logger.Info("updating or creating waveform index", "files", total)

	if b.cfg.NewProgress == nil {
		return nil
	}

	return b.cfg.NewProgress(total)
}

func (b *Bank) summariseFile(path string) ([]index.Row, error) {
	sums, err := b.format.Summarise(path)
	if err != nil {
		return nil, err
	}

	rows := make([]index.Row, 0, len(sums))

	for _, s := range sums {
		r := rowFromSummary(b.base, s)
		if err = r.Validate(nil); err != nil {
			return nil, err
		}

		rows = append(rows, r)
	}

	return rows, nil
}

func rowFromSummary(base string, s wavefile.Summary) index.Row {
	loc := index.NormaliseCode(s.Location)
	if loc == "--" {
		loc = ""
	}

	return index.Row{
		Network:   index.NormaliseCode(s.Network),
		Station:   index.NormaliseCode(s.Station),
		Location:  loc,
		Channel:   index.NormaliseCode(s.Channel),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Path:      index.RelativePath(base, s.Path),
	}
}

// ensureIndex builds the index if it doesn't exist yet.
func (b *Bank) ensureIndex() error {
	if b.store.Exists() {
		return nil
	}

	_, err := b.UpdateIndex()

	return err
}
