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

// Package naming renders the path and file name templates that decide where
// in a bank a trace is stored.
//
// Templates contain literal text and {variable} placeholders. The variables
// available are:
//
//	year, month, day, julday, hour, minute, second, time,
//	network, station, location, channel, seedid
//
// Path templates use / as separator regardless of operating system.
package naming

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/wtsi-hgi/wavebank/waveform"
)

const (
	// DefaultPathStructure is used when a bank has no path structure.
	DefaultPathStructure = "{year}/{julday}/{network}/{station}"

	// DefaultNameStructure is used when a bank has no name structure.
	DefaultNameStructure = "{time}"

	timeLayout = "2006-01-02T15-04-05"
)

// Error is the custom error type for the naming package.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrUnknownVariable = Error("unknown template variable")
	ErrUnbalanced      = Error("unbalanced braces in template")
)

var variables = map[string]func(Values) string{ //nolint:gochecknoglobals
	"year":     func(v Values) string { return fmt.Sprintf("%04d", v.Time.Year()) },
	"month":    func(v Values) string { return fmt.Sprintf("%02d", int(v.Time.Month())) },
	"day":      func(v Values) string { return fmt.Sprintf("%02d", v.Time.Day()) },
	"julday":   func(v Values) string { return fmt.Sprintf("%03d", v.Time.YearDay()) },
	"hour":     func(v Values) string { return fmt.Sprintf("%02d", v.Time.Hour()) },
	"minute":   func(v Values) string { return fmt.Sprintf("%02d", v.Time.Minute()) },
	"second":   func(v Values) string { return fmt.Sprintf("%02d", v.Time.Second()) },
	"time":     func(v Values) string { return v.Time.Format(timeLayout) },
	"network":  func(v Values) string { return v.Network },
	"station":  func(v Values) string { return v.Station },
	"location": func(v Values) string { return v.Location },
	"channel":  func(v Values) string { return v.Channel },
	"seedid": func(v Values) string {
		return waveform.SeedID(v.Network, v.Station, v.Location, v.Channel)
	},
}

// Values are what template variables are replaced with.
type Values struct {
	Network  string
	Station  string
	Location string
	Channel  string
	Time     time.Time
}

// ValuesFor returns the Values describing the given trace.
func ValuesFor(tr *waveform.Trace) Values {
	return Values{
		Network:  tr.Network,
		Station:  tr.Station,
		Location: tr.Location,
		Channel:  tr.Channel,
		Time:     EpochToTime(tr.StartTime),
	}
}

// EpochToTime converts epoch seconds to a UTC time.Time.
func EpochToTime(sec float64) time.Time {
	whole := int64(sec)
	nsec := int64((sec - float64(whole)) * float64(time.Second))

	return time.Unix(whole, nsec).UTC()
}

type part struct {
	literal  string
	variable string
}

// Template is a parsed path or name template.
type Template struct {
	raw   string
	parts []part
}

// Parse parses a template, returning an error if it is malformed or uses an
// unknown variable.
func Parse(raw string) (*Template, error) {
	t := &Template{raw: raw}
	rest := raw

	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if closeIdx := strings.IndexByte(rest, '}'); closeIdx != -1 && (open == -1 || closeIdx < open) {
			return nil, fmt.Errorf("%w: %q", ErrUnbalanced, raw)
		}

		if open == -1 {
			t.parts = append(t.parts, part{literal: rest})

			break
		}

		if open > 0 {
			t.parts = append(t.parts, part{literal: rest[:open]})
		}

		end := strings.IndexByte(rest[open:], '}')
		if end == -1 {
			return nil, fmt.Errorf("%w: %q", ErrUnbalanced, raw)
		}

		name := rest[open+1 : open+end]
		if _, ok := variables[name]; !ok {
			return nil, fmt.Errorf("%w: %q in %q", ErrUnknownVariable, name, raw)
		}

		t.parts = append(t.parts, part{variable: name})
		rest = rest[open+end+1:]
	}

	return t, nil
}

// String returns the template as it was given to Parse.
func (t *Template) String() string { return t.raw }

// Render replaces the template's variables with the given values.
func (t *Template) Render(v Values) string {
	var sb strings.Builder

	for _, p := range t.parts {
		if p.variable == "" {
			sb.WriteString(p.literal)

			continue
		}

		sb.WriteString(variables[p.variable](v))
	}

	return sb.String()
}

// Namer turns traces into paths relative to the root of a bank.
type Namer struct {
	pathTemplate *Template
	nameTemplate *Template
	ext          string
}

// NewNamer returns a Namer using the given path and name structures and
// file extension (eg. ".wbf"). Empty structures get the defaults.
func NewNamer(pathStructure, nameStructure, ext string) (*Namer, error) {
	if pathStructure == "" {
		pathStructure = DefaultPathStructure
	}

	if nameStructure == "" {
		nameStructure = DefaultNameStructure
	}

	pt, err := Parse(pathStructure)
	if err != nil {
		return nil, err
	}

	nt, err := Parse(nameStructure)
	if err != nil {
		return nil, err
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return &Namer{pathTemplate: pt, nameTemplate: nt, ext: ext}, nil
}

// PathFor returns the slash-separated relative path the given trace should
// be stored at. If name is not blank it is used as the file name instead of
// rendering the name structure. The Namer's extension is appended unless the
// name already ends in it, or in it plus ".gz".
func (n *Namer) PathFor(tr *waveform.Trace, name string) string {
	v := ValuesFor(tr)

	if name == "" {
		name = n.nameTemplate.Render(v)
	}

	if !n.hasExt(name) {
		name += n.ext
	}

	return path.Join(n.pathTemplate.Render(v), name)
}

func (n *Namer) hasExt(name string) bool {
	return strings.HasSuffix(name, n.ext) || strings.HasSuffix(name, n.ext+".gz")
}
