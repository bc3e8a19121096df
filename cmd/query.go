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

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/wavebank/bank"
	"github.com/wtsi-hgi/wavebank/index"
	"github.com/wtsi-hgi/wavebank/query"
	"github.com/wtsi-hgi/wavebank/wavefile"
	"github.com/wtsi-hgi/wavebank/waveform"
)

const timeDisplayLayout = "2006-01-02T15:04:05.000Z"

// options for the query commands.
var (
	queryNetwork   string
	queryStation   string
	queryLocation  string
	queryChannel   string
	queryStart     string
	queryEnd       string
	queryJSON      bool
	queryWaveforms bool
	queryAttach    bool
	queryOut       string
	queryChunk     float64
	queryOverlap   float64
	gapsMinGap     float64
	gapsReport     bool
)

const codesHelp = `
Channels are selected with --network, --station, --location and --channel,
each of which can be a wildcard pattern (using *, ? and [] as in file name
globs) or a comma separated list of exact codes. A blank location can be given
as --. Unset codes match anything.

Times for --start and --end can be epoch seconds or ISO 8601 dates or times,
in UTC unless a zone is given.`

// queryCmd represents the query command.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find data in a bank",
	Long: `Find data in a bank.

Reports the index rows of the files holding data for the selected channels
between --start and --end. With --waveforms, the data itself is read, merged
and trimmed to the requested times, and a summary of each resulting trace is
reported; use --out to also write the traces to a waveform file, and --chunk to
read the data in pieces of that many seconds.
` + codesHelp,
	Run: func(_ *cobra.Command, _ []string) {
		b := openBank(0)
		defer b.Close()

		q := queryFromFlags()

		if !queryWaveforms {
			rows, err := b.ReadIndex(q)
			if err != nil {
				die("query failed: %s", err)
			}

			printResult(rows, rowsTable)

			return
		}

		if queryChunk > 0 {
			printChunks(b, q)

			return
		}

		st, err := b.GetWaveforms(q, queryAttach)
		if err != nil {
			die("query failed: %s", err)
		}

		writeOut(st)
		printResult(st, tracesTable)
	},
}

// availabilityCmd represents the availability command.
var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Report the time span of data for channels in a bank",
	Long: `Report the time span of data for channels in a bank.

For each selected channel, reports the earliest and latest time there is data
for between --start and --end.
` + codesHelp,
	Run: func(_ *cobra.Command, _ []string) {
		b := openBank(0)
		defer b.Close()

		avail, err := b.Availability(queryFromFlags())
		if err != nil {
			die("availability failed: %s", err)
		}

		printResult(avail, availabilityTable)
	},
}

// gapsCmd represents the gaps command.
var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Report gaps in the data for channels in a bank",
	Long: `Report gaps in the data for channels in a bank.

For each selected channel, reports the times between --start and --end that
there is no data for, ignoring gaps shorter than --min_gap seconds. With
--overlaps, times where files overlap are also reported, as gaps of zero
duration.
` + codesHelp,
	Run: func(_ *cobra.Command, _ []string) {
		b := openBank(0)
		defer b.Close()

		gaps, err := b.Gaps(queryFromFlags(), gapOptionsFromFlags())
		if err != nil {
			die("gaps failed: %s", err)
		}

		printResult(gaps, gapsTable)
	},
}

// uptimeCmd represents the uptime command.
var uptimeCmd = &cobra.Command{
	Use:   "uptime",
	Short: "Report the proportion of time channels in a bank have data",
	Long: `Report the proportion of time channels in a bank have data.

For each selected channel, reports the span of its data between --start and
--end, the total duration of gaps of at least --min_gap seconds in that span,
and the fraction of the span that has data.
` + codesHelp,
	Run: func(_ *cobra.Command, _ []string) {
		b := openBank(0)
		defer b.Close()

		up, err := b.Uptime(queryFromFlags(), gapOptionsFromFlags())
		if err != nil {
			die("uptime failed: %s", err)
		}

		printResult(up, uptimeTable)
	},
}

func init() {
	for _, c := range []*cobra.Command{queryCmd, availabilityCmd, gapsCmd, uptimeCmd} {
		RootCmd.AddCommand(c)
		addQueryFlags(c)
	}

	queryCmd.Flags().BoolVarP(&queryWaveforms, "waveforms", "w", false, "read the waveform data")
	queryCmd.Flags().BoolVar(&queryAttach, "attach", false, "attach --inventory metadata to waveforms")
	queryCmd.Flags().StringVarP(&queryOut, "out", "o", "", "write waveforms to this file")
	queryCmd.Flags().Float64Var(&queryChunk, "chunk", 0, "read waveforms in chunks of this many seconds")
	queryCmd.Flags().Float64Var(&queryOverlap, "overlap", 0, "extend each --chunk by this many seconds")

	for _, c := range []*cobra.Command{gapsCmd, uptimeCmd} {
		c.Flags().Float64Var(&gapsMinGap, "min_gap", bank.DefaultMinGap, "ignore gaps shorter than this many seconds")
		c.Flags().BoolVar(&gapsReport, "overlaps", false, "report overlapping data as zero length gaps")
	}
}

func addQueryFlags(c *cobra.Command) {
	c.Flags().StringVarP(&queryNetwork, "network", "n", "", "network code(s)")
	c.Flags().StringVarP(&queryStation, "station", "s", "", "station code(s)")
	c.Flags().StringVarP(&queryLocation, "location", "l", "", "location code(s)")
	c.Flags().StringVarP(&queryChannel, "channel", "c", "", "channel code(s)")
	c.Flags().StringVar(&queryStart, "start", "", "only data at or after this time")
	c.Flags().StringVar(&queryEnd, "end", "", "only data at or before this time")
	c.Flags().BoolVar(&queryJSON, "json", false, "output JSON instead of a table")
}

func queryFromFlags() query.Query {
	var q query.Query

	for _, f := range []struct {
		value  string
		filter *query.Filter
	}{
		{queryNetwork, &q.Network},
		{queryStation, &q.Station},
		{queryLocation, &q.Location},
		{queryChannel, &q.Channel},
	} {
		if f.value != "" {
			*f.filter = query.ParseCodes(f.value)
		}
	}

	var err error

	if q.Start, err = query.ParseBound(queryStart); err != nil {
		die("bad --start: %s", err)
	}

	if q.End, err = query.ParseBound(queryEnd); err != nil {
		die("bad --end: %s", err)
	}

	return q
}

func gapOptionsFromFlags() bank.GapOptions {
	opts := bank.GapOptions{MinGap: gapsMinGap}

	if gapsReport {
		opts.Overlaps = bank.ReportOverlaps
	}

	return opts
}

// printResult prints the results as JSON if --json was given, otherwise as a
// table made by the given function.
func printResult[T any](results []T, toTable func([]T) ([]string, [][]string)) {
	if queryJSON {
		if results == nil {
			results = []T{}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(results); err != nil {
			die("failed to encode results: %s", err)
		}

		return
	}

	if len(results) == 0 {
		warn("no results")

		return
	}

	header, rows := toTable(results)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
}

func codesColumns(network, station, location, channel string) []string {
	return []string{network, station, location, channel}
}

var codesHeader = []string{"Network", "Station", "Location", "Channel"} //nolint:gochecknoglobals

func rowsTable(rows []index.Row) ([]string, [][]string) {
	out := make([][]string, len(rows))

	for n, r := range rows {
		out[n] = append(codesColumns(r.Network, r.Station, r.Location, r.Channel),
			displayTime(r.StartTime), displayTime(r.EndTime), r.Path)
	}

	return append(codesHeader[:4:4], "Start", "End", "Path"), out
}

func tracesTable(st []*waveform.Trace) ([]string, [][]string) {
	out := make([][]string, len(st))

	for n, t := range st {
		out[n] = append(codesColumns(t.Network, t.Station, t.Location, t.Channel),
			displayTime(t.StartTime), displayTime(t.EndTime()),
			strconv.FormatFloat(t.SampleRate, 'g', -1, 64), humanize.Comma(int64(len(t.Data))))
	}

	return append(codesHeader[:4:4], "Start", "End", "Rate", "Samples"), out
}

func availabilityTable(avail []bank.Availability) ([]string, [][]string) {
	out := make([][]string, len(avail))

	for n, a := range avail {
		out[n] = append(codesColumns(a.Network, a.Station, a.Location, a.Channel),
			displayTime(a.StartTime), displayTime(a.EndTime))
	}

	return append(codesHeader[:4:4], "Start", "End"), out
}

func gapsTable(gaps []bank.Gap) ([]string, [][]string) {
	out := make([][]string, len(gaps))

	for n, g := range gaps {
		out[n] = append(codesColumns(g.Network, g.Station, g.Location, g.Channel),
			displayTime(g.StartTime), displayTime(g.EndTime), displaySeconds(g.Duration))
	}

	return append(codesHeader[:4:4], "Start", "End", "Duration"), out
}

func uptimeTable(up []bank.Uptime) ([]string, [][]string) {
	out := make([][]string, len(up))

	for n, u := range up {
		out[n] = append(codesColumns(u.Network, u.Station, u.Location, u.Channel),
			displayTime(u.StartTime), displayTime(u.EndTime), displaySeconds(u.Duration),
			displaySeconds(u.GapDuration), fmt.Sprintf("%.2f%%", u.Availability*100)) //nolint:mnd
	}

	return append(codesHeader[:4:4], "Start", "End", "Duration", "Gaps", "Availability"), out
}

func displayTime(sec float64) string {
	return epochTime(sec).UTC().Format(timeDisplayLayout)
}

func displaySeconds(sec float64) string {
	return humanize.FormatFloat("#,###.###", sec) + "s"
}

func printChunks(b *bank.Bank, q query.Query) {
	var all waveform.Stream

	for st, err := range b.YieldWaveforms(q, queryChunk, queryOverlap, queryAttach) {
		if err != nil {
			die("query failed: %s", err)
		}

		if start, end, ok := st.Bounds(); ok {
			info("chunk %s - %s: %d traces", displayTime(start), displayTime(end), len(st))
		}

		all = append(all, st...)
	}

	writeOut(all)
	printResult(all, tracesTable)
}

func writeOut(st waveform.Stream) {
	if queryOut == "" {
		return
	}

	if err := (wavefile.Native{}).Write(queryOut, st); err != nil {
		die("failed to write %s: %s", queryOut, err)
	}

	info("wrote %d traces to %s", len(st), queryOut)
}
