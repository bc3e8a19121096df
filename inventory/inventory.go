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

// Package inventory loads channel metadata from CSV files so that it can be
// attached to waveforms retrieved from a bank.
//
// The CSV must have a header line naming at least the columns network,
// station, location and channel. Every other column becomes a metadata key,
// so a line
//
//	network,station,location,channel,latitude,gain
//	UU,SRU,,HHZ,39.1,1.5e9
//
// gives traces of UU.SRU..HHZ the metadata {"latitude": "39.1", "gain":
// "1.5e9"}.
package inventory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/wtsi-hgi/wavebank/waveform"
)

var (
	csvHeaders = [...]string{
		"network",
		"station",
		"location",
		"channel",
	}

	ErrHeaderNotFound = errors.New("header not found")
	ErrTooFewColumns  = errors.New("too few columns")
	ErrDuplicate      = errors.New("duplicate channel")
)

const (
	colNetwork = iota
	colStation
	colLocation
	colChannel
)

type headers [len(csvHeaders)]int

// Inventory holds metadata for channels, keyed by seed id.
type Inventory struct {
	channels map[string]map[string]string
}

// Load parses the CSV file at path.
func Load(path string) (*Inventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	return Parse(f)
}

// Parse parses CSV from r.
func Parse(r io.Reader) (*Inventory, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	headers, names, err := parseHeaders(cr)
	if err != nil {
		return nil, err
	}

	inv := &Inventory{channels: make(map[string]map[string]string)}

	for {
		line, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, err
		}

		if len(line) < len(names) {
			return nil, ErrTooFewColumns
		}

		if err = inv.add(line, headers, names); err != nil {
			return nil, err
		}
	}

	return inv, nil
}

func parseHeaders(cr *csv.Reader) (headers, []string, error) {
	var headers headers

	line, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return headers, nil, err
	}

	for i := range line {
		line[i] = strings.ToLower(strings.TrimSpace(line[i]))
	}

	for n, header := range csvHeaders {
		pos := slices.Index(line, header)
		if pos == -1 {
			return headers, nil, fmt.Errorf("%s: %w", header, ErrHeaderNotFound)
		}

		headers[n] = pos
	}

	return headers, line, nil
}

func (inv *Inventory) add(line []string, headers headers, names []string) error {
	id := waveform.SeedID(
		line[headers[colNetwork]],
		line[headers[colStation]],
		line[headers[colLocation]],
		line[headers[colChannel]],
	)

	if _, ok := inv.channels[id]; ok {
		return fmt.Errorf("%s: %w", id, ErrDuplicate)
	}

	meta := make(map[string]string)

	for i, name := range names {
		if slices.Contains(headers[:], i) || name == "" {
			continue
		}

		meta[name] = line[i]
	}

	inv.channels[id] = meta

	return nil
}

// Len returns the number of channels in the inventory.
func (inv *Inventory) Len() int { return len(inv.channels) }

// Lookup returns a copy of the metadata of the channel with the given seed
// id.
func (inv *Inventory) Lookup(seedID string) (map[string]string, bool) {
	meta, ok := inv.channels[seedID]
	if !ok {
		return nil, false
	}

	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}

	return out, true
}

// Attach sets the metadata of every trace whose channel is in the inventory.
// Traces of other channels are left alone.
func (inv *Inventory) Attach(st waveform.Stream) {
	for _, tr := range st {
		if meta, ok := inv.Lookup(tr.ID()); ok {
			tr.Meta = meta
		}
	}
}
