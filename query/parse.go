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

package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wtsi-hgi/wavebank/index"
)

// ErrBadTime is returned for times that ParseTime doesn't understand.
var ErrBadTime = fmt.Errorf("%w: bad time", index.ErrValidation)

var timeLayouts = [...]string{ //nolint:gochecknoglobals
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses epoch seconds, or an ISO 8601 date or time (UTC unless it
// has a zone).
func ParseTime(v string) (float64, error) {
	v = strings.TrimSpace(v)

	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f, nil
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return float64(t.UnixNano()) / float64(time.Second), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrBadTime, v)
}

// ParseBound is like ParseTime, but blank gives an Unbounded Bound.
func ParseBound(v string) (Bound, error) {
	if strings.TrimSpace(v) == "" {
		return Unbounded(), nil
	}

	t, err := ParseTime(v)
	if err != nil {
		return Unbounded(), err
	}

	return Epoch(t), nil
}

// ParseCodes turns a command line or URL code parameter into a Filter. A
// value holding commas matches any of the listed codes exactly; otherwise
// it's a wildcard pattern. "--" means a blank code.
func ParseCodes(v string) Filter {
	if !strings.Contains(v, ",") {
		return Match(blankCode(v))
	}

	codes := strings.Split(v, ",")
	for n, code := range codes {
		codes[n] = blankCode(strings.TrimSpace(code))
	}

	return OneOf(codes...)
}

func blankCode(code string) string {
	if code == "--" {
		return ""
	}

	return code
}
