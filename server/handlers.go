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

package server

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/pgzip"
	"github.com/wtsi-hgi/wavebank/bank"
	"github.com/wtsi-hgi/wavebank/index"
	"github.com/wtsi-hgi/wavebank/query"
	"github.com/wtsi-hgi/wavebank/wavefile"
	"github.com/wtsi-hgi/wavebank/waveform"
	"vimagination.zapto.org/httpencoding"
)

const contentTypeWBF = "application/vnd.wavebank.wbf"

var isGzip = httpencoding.HandlerFunc(func(enc httpencoding.Encoding) bool { return enc == "gzip" }) //nolint:gochecknoglobals

// TraceData is the JSON form of a trace returned by the waveforms endpoints.
type TraceData struct {
	Network    string            `json:"network"`
	Station    string            `json:"station"`
	Location   string            `json:"location"`
	Channel    string            `json:"channel"`
	StartTime  float64           `json:"starttime"`
	EndTime    float64           `json:"endtime"`
	SampleRate float64           `json:"sampling_rate"`
	Data       []float64         `json:"data"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// BulkRequest is the JSON form of one entry in a bulk request body. Missing
// times are unbounded.
type BulkRequest struct {
	Network   string `json:"network"`
	Station   string `json:"station"`
	Location  string `json:"location"`
	Channel   string `json:"channel"`
	StartTime string `json:"starttime"`
	EndTime   string `json:"endtime"`
}

// UpdateResult is the JSON response of the update endpoint.
type UpdateResult struct {
	Files   int      `json:"files"`
	Rows    int      `json:"rows"`
	Skipped []string `json:"skipped"`
}

// VersionResult is the JSON response of the version endpoint.
type VersionResult struct {
	Version     string  `json:"version"`
	LastUpdated float64 `json:"last_updated,omitempty"`
}

// getIndex responds with the index rows matching the query parameters
// network, station, location, channel, starttime and endtime.
//
// This is called when there is a GET on /rest/v1/index.
func (s *Server) getIndex(c *gin.Context) {
	s.respond(c, func(q query.Query) (any, error) {
		rows, err := s.bank.ReadIndex(q)

		return orEmpty(rows), err
	})
}

func (s *Server) getAvailability(c *gin.Context) {
	s.respond(c, func(q query.Query) (any, error) {
		avail, err := s.bank.Availability(q)

		return orEmpty(avail), err
	})
}

// getGaps also takes min_gap (seconds) and overlaps ("exclude" or "report")
// parameters.
func (s *Server) getGaps(c *gin.Context) {
	opts, err := gapOptions(c)
	if err != nil {
		c.AbortWithError(http.StatusBadRequest, err) //nolint:errcheck

		return
	}

	s.respond(c, func(q query.Query) (any, error) {
		gaps, err := s.bank.Gaps(q, opts)

		return orEmpty(gaps), err
	})
}

func (s *Server) getUptime(c *gin.Context) {
	opts, err := gapOptions(c)
	if err != nil {
		c.AbortWithError(http.StatusBadRequest, err) //nolint:errcheck

		return
	}

	s.respond(c, func(q query.Query) (any, error) {
		up, err := s.bank.Uptime(q, opts)

		return orEmpty(up), err
	})
}

// respond parses the query parameters, then responds with the output of your
// callback in JSON format.
func (s *Server) respond(c *gin.Context, cb func(query.Query) (any, error)) {
	q, err := parseQuery(c)
	if err != nil {
		c.AbortWithError(http.StatusBadRequest, err) //nolint:errcheck

		return
	}

	result, err := cb(q)
	if err != nil {
		c.AbortWithError(statusFor(err), err) //nolint:errcheck

		return
	}

	c.IndentedJSON(http.StatusOK, result)
}

// getWaveforms responds with the waveforms matching the query parameters. If
// attach is true, inventory metadata is included. With format=wbf the
// response is in the native waveform file format instead of JSON, gzip
// compressed if the client accepts that.
//
// This is called when there is a GET on /rest/v1/waveforms.
func (s *Server) getWaveforms(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		c.AbortWithError(http.StatusBadRequest, err) //nolint:errcheck

		return
	}

	attach, err := boolParam(c, "attach")
	if err != nil {
		c.AbortWithError(http.StatusBadRequest, err) //nolint:errcheck

		return
	}

	st, err := s.bank.GetWaveforms(q, attach)
	if err != nil {
		c.AbortWithError(statusFor(err), err) //nolint:errcheck

		return
	}

	s.writeStream(c, st)
}

// postBulk responds with the waveforms for a JSON array of BulkRequests in
// the body.
func (s *Server) postBulk(c *gin.Context) {
	var body []BulkRequest

	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithError(http.StatusBadRequest, fmt.Errorf("%w: %w", ErrBadQuery, err)) //nolint:errcheck

		return
	}

	reqs := make([]query.Request, len(body))

	for n, br := range body {
		req, err := br.request()
		if err != nil {
			c.AbortWithError(http.StatusBadRequest, err) //nolint:errcheck

			return
		}

		reqs[n] = req
	}

	st, err := s.bank.GetWaveformsBulk(reqs)
	if err != nil {
		c.AbortWithError(statusFor(err), err) //nolint:errcheck

		return
	}

	s.writeStream(c, st)
}

func (br BulkRequest) request() (query.Request, error) {
	start, err := parseTime(br.StartTime, math.Inf(-1))
	if err != nil {
		return query.Request{}, err
	}

	end, err := parseTime(br.EndTime, math.Inf(1))
	if err != nil {
		return query.Request{}, err
	}

	return query.Request{
		Network:  br.Network,
		Station:  br.Station,
		Location: br.Location,
		Channel:  br.Channel,
		Start:    start,
		End:      end,
	}, nil
}

func (s *Server) writeStream(c *gin.Context, st waveform.Stream) {
	if c.Query("format") != wavefile.FormatNative {
		c.IndentedJSON(http.StatusOK, toTraceData(st))

		return
	}

	c.Header("Content-Type", contentTypeWBF)

	var w io.Writer = c.Writer

	if httpencoding.HandleEncoding(c.Request, isGzip) {
		c.Header("Content-Encoding", "gzip")

		gz := pgzip.NewWriter(c.Writer)
		defer gz.Close()

		w = gz
	}

	c.Status(http.StatusOK)

	if err := wavefile.Encode(w, st); err != nil {
		c.Error(err) //nolint:errcheck
	}
}

func toTraceData(st waveform.Stream) []TraceData {
	out := make([]TraceData, len(st))

	for n, t := range st {
		out[n] = TraceData{
			Network:    t.Network,
			Station:    t.Station,
			Location:   t.Location,
			Channel:    t.Channel,
			StartTime:  t.StartTime,
			EndTime:    t.EndTime(),
			SampleRate: t.SampleRate,
			Data:       t.Data,
			Meta:       t.Meta,
		}
	}

	return out
}

// postUpdate updates the bank's index and responds with what was done.
func (s *Server) postUpdate(c *gin.Context) {
	summary, err := s.bank.UpdateIndex()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err) //nolint:errcheck

		return
	}

	result := UpdateResult{Files: summary.Files, Rows: summary.Rows, Skipped: []string{}}

	if summary.Skipped != nil {
		for _, err := range summary.Skipped.Errors {
			result.Skipped = append(result.Skipped, err.Error())
		}
	}

	c.IndentedJSON(http.StatusOK, result)
}

func (s *Server) getVersion(c *gin.Context) {
	updated, _, err := s.bank.LastUpdated()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err) //nolint:errcheck

		return
	}

	c.IndentedJSON(http.StatusOK, VersionResult{Version: s.bank.Version(), LastUpdated: updated})
}

// parseQuery turns the request's parameters into a Query. A code parameter
// holding commas matches any of the listed codes exactly; otherwise it's a
// wildcard pattern. Missing codes match anything.
func parseQuery(c *gin.Context) (query.Query, error) {
	var q query.Query

	for _, f := range []struct {
		name   string
		filter *query.Filter
	}{
		{"network", &q.Network},
		{"station", &q.Station},
		{"location", &q.Location},
		{"channel", &q.Channel},
	} {
		if v := c.Query(f.name); v != "" {
			*f.filter = query.ParseCodes(v)
		}
	}

	var err error

	if q.Start, err = boundParam(c, "starttime"); err != nil {
		return q, err
	}

	q.End, err = boundParam(c, "endtime")

	return q, err
}

func boundParam(c *gin.Context, name string) (query.Bound, error) {
	return query.ParseBound(c.Query(name))
}

// parseTime is query.ParseTime, but blank gives def.
func parseTime(v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}

	return query.ParseTime(v)
}

func boolParam(c *gin.Context, name string) (bool, error) {
	v := c.Query(name)
	if v == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: bad %s %q", ErrBadQuery, name, v)
	}

	return b, nil
}

func gapOptions(c *gin.Context) (bank.GapOptions, error) {
	opts := bank.DefaultGapOptions()

	if v := c.Query("min_gap"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return opts, fmt.Errorf("%w: bad min_gap %q", ErrBadQuery, v)
		}

		opts.MinGap = f
	}

	switch c.Query("overlaps") {
	case "", "exclude":
	case "report":
		opts.Overlaps = bank.ReportOverlaps
	default:
		return opts, fmt.Errorf("%w: overlaps must be exclude or report", ErrBadQuery)
	}

	return opts, nil
}

// statusFor returns 400 for errors caused by a bad query, 500 otherwise.
func statusFor(err error) int {
	if errors.Is(err, index.ErrValidation) {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
