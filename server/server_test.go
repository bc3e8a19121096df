package server

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/klauspost/pgzip"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/wavebank/bank"
	"github.com/wtsi-hgi/wavebank/index"
	"github.com/wtsi-hgi/wavebank/internal/wavetest"
	"github.com/wtsi-hgi/wavebank/wavefile"
)

func TestServer(t *testing.T) {
	Convey("Given a Server over a bank with a gap in its data", t, func() {
		dir := t.TempDir()
		wavetest.GapArchive(dir)

		b, err := bank.New(bank.Config{BasePath: dir})
		So(err, ShouldBeNil)

		logger := log15.New()
		logger.SetHandler(log15.DiscardHandler())

		s := New(b, logger)

		Convey("you can get index rows", func() {
			resp := get(s, EndPointIndex+"?network=X&station=Y&location=--&channel=Z")
			So(resp.Code, ShouldEqual, http.StatusOK)

			var rows []index.Row
			decode(resp, &rows)
			So(len(rows), ShouldEqual, 3)
			So(rows[0].SeedID(), ShouldEqual, "X.Y..Z")

			resp = get(s, EndPointIndex+"?station=Q*")
			So(resp.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(resp.Body.String()), ShouldEqual, "[]")

			resp = get(s, EndPointIndex+"?channel=A,Z&starttime=1970-01-01T00:05:00Z")
			So(resp.Code, ShouldEqual, http.StatusOK)
			decode(resp, &rows)
			So(len(rows), ShouldEqual, 1)
		})

		Convey("bad queries are rejected", func() {
			for _, params := range []string{
				"?starttime=10&endtime=5",
				"?starttime=yesterday",
				"?station=[z-a]",
			} {
				So(get(s, EndPointIndex+params).Code, ShouldEqual, http.StatusBadRequest)
			}

			So(get(s, EndPointGaps+"?overlaps=maybe").Code, ShouldEqual, http.StatusBadRequest)
			So(get(s, EndPointGaps+"?min_gap=-1").Code, ShouldEqual, http.StatusBadRequest)
			So(get(s, EndPointWaveforms+"?attach=perhaps").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("you can get availability, gaps and uptime", func() {
			var avail []bank.Availability
			decode(get(s, EndPointAvailability), &avail)
			So(len(avail), ShouldEqual, 1)
			So(avail[0].EndTime, ShouldEqual, 400)

			var gaps []bank.Gap
			decode(get(s, EndPointGaps), &gaps)
			So(len(gaps), ShouldEqual, 1)
			So(gaps[0].Duration, ShouldEqual, 100)

			decode(get(s, EndPointGaps+"?min_gap=200"), &gaps)
			So(gaps, ShouldBeEmpty)

			var up []bank.Uptime
			decode(get(s, EndPointUptime+"?overlaps=report"), &up)
			So(len(up), ShouldEqual, 1)
			So(up[0].Availability, ShouldEqual, 0.75)
		})

		Convey("you can get waveforms as JSON", func() {
			var traces []TraceData
			decode(get(s, EndPointWaveforms+"?station=Y&starttime=0&endtime=10"), &traces)
			So(len(traces), ShouldEqual, 1)
			So(traces[0].StartTime, ShouldEqual, 0)
			So(traces[0].EndTime, ShouldEqual, 10)
			So(len(traces[0].Data), ShouldEqual, 11)
		})

		Convey("you can get waveforms in the native format, compressed", func() {
			req := httptest.NewRequest(http.MethodGet, EndPointWaveforms+"?format=wbf&starttime=0&endtime=10", nil)
			req.Header.Set("Accept-Encoding", "gzip")

			resp := httptest.NewRecorder()
			s.Router().ServeHTTP(resp, req)
			So(resp.Code, ShouldEqual, http.StatusOK)
			So(resp.Header().Get("Content-Encoding"), ShouldEqual, "gzip")

			gz, err := pgzip.NewReader(resp.Body)
			So(err, ShouldBeNil)

			st, err := wavefile.Decode(gz)
			So(err, ShouldBeNil)
			So(len(st), ShouldEqual, 1)
			So(len(st[0].Data), ShouldEqual, 11)
		})

		Convey("you can make bulk requests", func() {
			body := `[
				{"network": "X", "station": "Y", "location": "--", "channel": "Z", "starttime": "0", "endtime": "10"},
				{"network": "X", "station": "*", "channel": "?", "starttime": "350"}
			]`

			req := httptest.NewRequest(http.MethodPost, EndPointBulk, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp := httptest.NewRecorder()
			s.Router().ServeHTTP(resp, req)
			So(resp.Code, ShouldEqual, http.StatusOK)

			var traces []TraceData
			decode(resp, &traces)
			So(len(traces), ShouldEqual, 2)
			So(traces[0].StartTime, ShouldEqual, 0)
			So(traces[1].StartTime, ShouldEqual, 350)
			So(traces[1].EndTime, ShouldEqual, 400)

			req = httptest.NewRequest(http.MethodPost, EndPointBulk, strings.NewReader("{"))
			resp = httptest.NewRecorder()
			s.Router().ServeHTTP(resp, req)
			So(resp.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("you can update the index", func() {
			wavetest.Corrupt(dir, "junk.wbf")

			req := httptest.NewRequest(http.MethodPost, EndPointUpdate, nil)
			resp := httptest.NewRecorder()
			s.Router().ServeHTTP(resp, req)
			So(resp.Code, ShouldEqual, http.StatusOK)

			var result UpdateResult
			decode(resp, &result)
			So(result.Files, ShouldEqual, 4)
			So(result.Rows, ShouldEqual, 3)
			So(len(result.Skipped), ShouldEqual, 1)
			So(result.Skipped[0], ShouldContainSubstring, "junk.wbf")

			Convey("after which the version says when", func() {
				var v VersionResult
				decode(get(s, EndPointVersion), &v)
				So(v.Version, ShouldEqual, bank.Version)
				So(v.LastUpdated, ShouldBeGreaterThan, 0)
			})
		})

		Convey("metrics are served", func() {
			get(s, EndPointIndex)

			resp := get(s, EndPointMetrics)
			So(resp.Code, ShouldEqual, http.StatusOK)
			So(resp.Body.String(), ShouldContainSubstring, "wavebank_index_reads_total")
		})

		Convey("you can Start and Stop the Server", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			So(err, ShouldBeNil)

			errCh := make(chan error, 1)

			go func() { errCh <- s.Serve(ln) }()

			var resp *http.Response

			for range 50 {
				resp, err = http.Get("http://" + ln.Addr().String() + EndPointVersion) //nolint:noctx
				if err == nil {
					break
				}

				time.Sleep(10 * time.Millisecond)
			}

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			_, err = io.Copy(io.Discard, resp.Body)
			So(err, ShouldBeNil)
			So(resp.Body.Close(), ShouldBeNil)

			So(s.Stop(), ShouldBeNil)
			So(<-errCh, ShouldBeNil)
		})
	})
}

func get(s *Server, url string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp := httptest.NewRecorder()

	s.Router().ServeHTTP(resp, req)

	return resp
}

func decode(resp *httptest.ResponseRecorder, v any) {
	So(resp.Code, ShouldEqual, http.StatusOK)
	So(json.NewDecoder(resp.Body).Decode(v), ShouldBeNil)
}
