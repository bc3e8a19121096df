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

// Package wavefile reads and writes waveform files and summarises their
// contents for indexing.
//
// The native format is little-endian: a 4 byte magic number, the number of
// traces, then for each trace its 4 codes, start time, sample rate, sample
// count and samples. Files whose name ends in ".gz" are gzip compressed.
package wavefile

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/wtsi-hgi/wavebank/waveform"
	"vimagination.zapto.org/byteio"
)

const (
	magic        = 0x31464257 // "WBF1"
	maxCodeLen   = 255
	maxSamples   = 1 << 28
	gzipSuffix   = ".gz"
	filePerms    = 0o640
	FormatNative = "wbf"
)

// Error is the custom error type for the wavefile package.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrBadMagic      = Error("not a waveform file")
	ErrCorrupt       = Error("corrupt waveform file")
	ErrUnknownFormat = Error("unknown waveform format")
)

// Summary describes one contiguous trace found in a file.
type Summary struct {
	Network   string
	Station   string
	Location  string
	Channel   string
	StartTime float64
	EndTime   float64
	Path      string
}

// Format reads, writes and summarises waveform files of one kind.
type Format interface {
	// Summarise returns a Summary for every trace in the file at path,
	// without keeping the samples.
	Summarise(path string) ([]Summary, error)

	// Read returns all the traces in the file at path.
	Read(path string) (waveform.Stream, error)

	// Write replaces the file at path with the given traces.
	Write(path string, st waveform.Stream) error
}

// Native is the Format of files written by this package.
type Native struct{}

// Lookup returns the Format with the given name.
func Lookup(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", FormatNative:
		return Native{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// Summarise implements Format.
func (Native) Summarise(path string) ([]Summary, error) {
	var sums []Summary

	err := readFile(path, func(h header, lr *byteio.StickyLittleEndianReader) error {
		for range h.npts {
			lr.ReadUint64()
		}

		sums = append(sums, Summary{
			Network:   h.network,
			Station:   h.station,
			Location:  h.location,
			Channel:   h.channel,
			StartTime: h.start,
			EndTime:   h.end(),
			Path:      path,
		})

		return lr.Err
	})

	return sums, err
}

// Read implements Format.
func (Native) Read(path string) (waveform.Stream, error) {
	var st waveform.Stream

	err := readFile(path, func(h header, lr *byteio.StickyLittleEndianReader) error {
		st = append(st, readTrace(h, lr))

		return lr.Err
	})

	return st, err
}

// Decode reads traces in the native format, uncompressed, from r.
func Decode(r io.Reader) (waveform.Stream, error) {
	var st waveform.Stream

	err := readStream(r, func(h header, lr *byteio.StickyLittleEndianReader) error {
		st = append(st, readTrace(h, lr))

		return lr.Err
	})

	return st, err
}

// Encode writes the traces to w in the native format, uncompressed.
func Encode(w io.Writer, st waveform.Stream) error {
	return writeStream(w, st)
}

func readTrace(h header, lr *byteio.StickyLittleEndianReader) *waveform.Trace {
	data := make([]float64, h.npts)
	for n := range data {
		data[n] = math.Float64frombits(lr.ReadUint64())
	}

	return &waveform.Trace{
		Network:    h.network,
		Station:    h.station,
		Location:   h.location,
		Channel:    h.channel,
		StartTime:  h.start,
		SampleRate: h.rate,
		Data:       data,
	}
}

// Write implements Format.
func (Native) Write(path string, st waveform.Stream) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerms)
	if err != nil {
		return err
	}

	defer func() {
		if errc := f.Close(); err == nil {
			err = errc
		}
	}()

	bw := bufio.NewWriter(f)

	var w io.Writer = bw

	var gz *pgzip.Writer

	if strings.HasSuffix(path, gzipSuffix) {
		gz = pgzip.NewWriter(bw)
		w = gz
	}

	if err = writeStream(w, st); err != nil {
		return err
	}

	if gz != nil {
		if err = gz.Close(); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeStream(w io.Writer, st waveform.Stream) error {
	lw := &byteio.StickyLittleEndianWriter{Writer: w}

	lw.WriteUint32(magic)
	lw.WriteUintX(uint64(len(st)))

	for _, t := range st {
		for _, code := range [...]string{t.Network, t.Station, t.Location, t.Channel} {
			if len(code) > maxCodeLen {
				return fmt.Errorf("%w: code %q too long", ErrCorrupt, code)
			}

			writeString(lw, code)
		}

		lw.WriteUint64(math.Float64bits(t.StartTime))
		lw.WriteUint64(math.Float64bits(t.SampleRate))
		lw.WriteUintX(uint64(len(t.Data)))

		for _, v := range t.Data {
			lw.WriteUint64(math.Float64bits(v))
		}
	}

	return lw.Err
}

func writeString(lw *byteio.StickyLittleEndianWriter, s string) {
	lw.WriteUintX(uint64(len(s)))

	for n := range len(s) {
		lw.WriteUint8(s[n])
	}
}

type header struct {
	network, station, location, channel string
	start, rate                         float64
	npts                                int
}

func (h header) end() float64 {
	if h.npts == 0 || h.rate <= 0 {
		return h.start
	}

	return h.start + float64(h.npts-1)/h.rate
}

func readFile(path string, cb func(header, *byteio.StickyLittleEndianReader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer f.Close()

	var r io.Reader = bufio.NewReader(f)

	if strings.HasSuffix(path, gzipSuffix) {
		gz, errr := pgzip.NewReader(r)
		if errr != nil {
			return errr
		}

		defer gz.Close()

		r = gz
	}

	return readStream(r, cb)
}

func readStream(r io.Reader, cb func(header, *byteio.StickyLittleEndianReader) error) error {
	lr := &byteio.StickyLittleEndianReader{Reader: r}

	if lr.ReadUint32() != magic {
		if lr.Err != nil {
			return fmt.Errorf("%w: %w", ErrBadMagic, lr.Err)
		}

		return ErrBadMagic
	}

	count := lr.ReadUintX()

	for range count {
		h, err := readHeader(lr)
		if err != nil {
			return err
		}

		if err := cb(h, lr); err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}

	return lr.Err
}

func readHeader(lr *byteio.StickyLittleEndianReader) (header, error) {
	var (
		h     header
		codes [4]string
	)

	for n := range codes {
		s, ok := readString(lr)
		if !ok {
			return h, ErrCorrupt
		}

		codes[n] = s
	}

	h.network, h.station, h.location, h.channel = codes[0], codes[1], codes[2], codes[3]
	h.start = math.Float64frombits(lr.ReadUint64())
	h.rate = math.Float64frombits(lr.ReadUint64())
	npts := lr.ReadUintX()

	if lr.Err != nil {
		return h, fmt.Errorf("%w: %w", ErrCorrupt, lr.Err)
	}

	if npts > maxSamples {
		return h, ErrCorrupt
	}

	h.npts = int(npts)

	return h, nil
}

func readString(lr *byteio.StickyLittleEndianReader) (string, bool) {
	l := lr.ReadUintX()
	if lr.Err != nil || l > maxCodeLen {
		return "", false
	}

	b := make([]byte, l)
	for n := range b {
		b[n] = lr.ReadUint8()
	}

	return string(b), lr.Err == nil
}
