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
	"regexp"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/wtsi-hgi/wavebank/index"
)

// DefaultPatternCacheSize is how many compiled patterns a Matcher keeps.
const DefaultPatternCacheSize = 256

const wildcardChars = "*?["

// HasWildcard tells you if s contains any wildcard special character.
func HasWildcard(s string) bool {
	return strings.ContainsAny(s, wildcardChars+"]")
}

// Matcher resolves queries into row masks, keeping a bounded cache of
// compiled wildcard patterns. It is safe for concurrent use.
type Matcher struct {
	mu       sync.Mutex
	patterns *lru.Cache
}

// NewMatcher returns a Matcher that caches up to size compiled patterns. A
// size <= 0 gets DefaultPatternCacheSize.
func NewMatcher(size int) *Matcher {
	if size <= 0 {
		size = DefaultPatternCacheSize
	}

	return &Matcher{patterns: lru.New(size)}
}

func (m *Matcher) compile(pattern string) (*regexp.Regexp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.patterns.Get(pattern); ok {
		return v.(*regexp.Regexp), nil //nolint:forcetypeassert
	}

	re, err := regexp.Compile(translate(pattern))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBadPattern, pattern, err)
	}

	m.patterns.Add(pattern, re)

	return re, nil
}

// CachedPatterns returns the number of compiled patterns currently cached.
func (m *Matcher) CachedPatterns() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.patterns.Len()
}

// translate turns a shell wildcard pattern into an anchored regular
// expression. [!...] negates a class; an unterminated [ is literal.
func translate(pattern string) string {
	var sb strings.Builder

	sb.WriteString(`^(?s:`)

	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			sb.WriteString(`.*`)
		case '?':
			sb.WriteString(`.`)
		case '[':
			end := classEnd(pattern, i)
			if end == -1 {
				sb.WriteString(`\[`)

				continue
			}

			sb.WriteString(translateClass(pattern[i+1 : end]))

			i = end
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	sb.WriteString(`)$`)

	return sb.String()
}

// classEnd returns the index of the ] closing the class opened at
// pattern[open], or -1. A ] straight after [ or [! is part of the class.
func classEnd(pattern string, open int) int {
	j := open + 1
	if j < len(pattern) && pattern[j] == '!' {
		j++
	}

	if j < len(pattern) && pattern[j] == ']' {
		j++
	}

	idx := strings.IndexByte(pattern[j:], ']')
	if idx == -1 {
		return -1
	}

	return j + idx
}

func translateClass(body string) string {
	negate := strings.HasPrefix(body, "!")
	if negate {
		body = body[1:]
	}

	body = strings.ReplaceAll(body, `\`, `\\`)

	if negate {
		return "[^" + body + "]"
	}

	if strings.HasPrefix(body, "^") {
		body = `\` + body
	}

	return "[" + body + "]"
}

// columnMatcher tests one code column of a row.
type columnMatcher func(index.Row) bool

func (m *Matcher) columnMatcher(f Filter, col func(index.Row) string) (columnMatcher, error) {
	switch f.kind {
	case kindMatch:
		if lit, ok := f.Literal(); ok {
			return func(r index.Row) bool { return col(r) == lit }, nil
		}

		re, err := m.compile(f.pattern)
		if err != nil {
			return nil, err
		}

		return func(r index.Row) bool { return re.MatchString(col(r)) }, nil
	case kindOneOf:
		return func(r index.Row) bool { return f.codes[col(r)] }, nil
	default:
		return nil, nil
	}
}

func (m *Matcher) columnMatchers(q Query) ([]columnMatcher, error) {
	filters := []struct {
		f   Filter
		col func(index.Row) string
	}{
		{q.Network, func(r index.Row) string { return r.Network }},
		{q.Station, func(r index.Row) string { return r.Station }},
		{q.Location, func(r index.Row) string { return r.Location }},
		{q.Channel, func(r index.Row) string { return r.Channel }},
	}

	matchers := make([]columnMatcher, 0, len(filters))

	for _, f := range filters {
		cm, err := m.columnMatcher(f.f, f.col)
		if err != nil {
			return nil, err
		}

		if cm != nil {
			matchers = append(matchers, cm)
		}
	}

	return matchers, nil
}

// Mask returns a slice as long as rows saying which rows the query matches.
// All of the query's constraints must hold for a row to match. It returns an
// error wrapping index.ErrValidation if the query's start is after its end.
func (m *Matcher) Mask(rows []index.Row, q Query) ([]bool, error) {
	start, end, err := q.Range()
	if err != nil {
		return nil, err
	}

	matchers, err := m.columnMatchers(q)
	if err != nil {
		return nil, err
	}

	mask := make([]bool, len(rows))

	for i, r := range rows {
		mask[i] = r.Overlaps(start, end) && all(matchers, r)
	}

	return mask, nil
}

func all(matchers []columnMatcher, r index.Row) bool {
	for _, cm := range matchers {
		if !cm(r) {
			return false
		}
	}

	return true
}

// Select returns the rows whose mask entry is true.
func Select(rows []index.Row, mask []bool) []index.Row {
	out := make([]index.Row, 0, len(rows))

	for i, r := range rows {
		if mask[i] {
			out = append(out, r)
		}
	}

	return out
}

// Filter returns the rows matching the query.
func (m *Matcher) Filter(rows []index.Row, q Query) ([]index.Row, error) {
	mask, err := m.Mask(rows, q)
	if err != nil {
		return nil, err
	}

	return Select(rows, mask), nil
}
