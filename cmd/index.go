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
	"os"
	"strconv"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/wavebank/bank"
)

const progressSteps = 20

// options for this cmd.
var indexInfo bool

// indexCmd represents the index command.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Create or update a bank's index",
	Long: `Create or update a bank's index.

Scans the bank for waveform files that are new or modified since the index was
last updated, and adds the channels and time spans of the traces in them to
the index. Files that can't be read as waveform files are skipped and
reported.

With --info, nothing is scanned; instead, details of the existing index are
reported.`,
	Run: func(_ *cobra.Command, _ []string) {
		if logPath == "" {
			setCLIFormat()
		}

		b := openBank(0)
		defer b.Close()

		if indexInfo {
			printIndexInfo(b)

			return
		}

		start := time.Now()

		summary, err := b.UpdateIndex()
		if err != nil {
			die("failed to update index: %s", err)
		}

		if summary.Skipped != nil {
			for _, err := range summary.Skipped.Errors {
				warn("skipped: %s", err)
			}
		}

		info("indexed %s files (%s rows) in %s",
			humanize.Comma(int64(summary.Files)), humanize.Comma(int64(summary.Rows)),
			time.Since(start).Round(time.Millisecond))
	},
}

func init() {
	RootCmd.AddCommand(indexCmd)

	indexCmd.Flags().BoolVar(&indexInfo, "info", false, "report on the existing index instead of updating it")
}

func printIndexInfo(b *bank.Bank) {
	updated, ok, err := b.LastUpdated()
	if err != nil {
		die("failed to read index: %s", err)
	}

	if !ok {
		warn("%s has not been indexed", b.BasePath())

		return
	}

	meta, _, err := b.Metadata()
	if err != nil {
		die("failed to read index: %s", err)
	}

	rows, err := b.Len()
	if err != nil {
		die("failed to read index: %s", err)
	}

	var size uint64

	if fi, errs := os.Stat(b.IndexPath()); errs == nil {
		size = uint64(fi.Size()) //nolint:gosec
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Property", "Value"})
	table.AppendBulk([][]string{
		{"Bank", b.BasePath()},
		{"Index", b.IndexPath()},
		{"Index size", bytefmt.ByteSize(size)},
		{"Rows", humanize.Comma(int64(rows))},
		{"Created", humanize.Time(epochTime(meta.CreatedAt))},
		{"Last updated", humanize.Time(epochTime(updated))},
		{"Path structure", meta.PathStructure},
		{"Name structure", meta.NameStructure},
		{"Version", b.Version()},
	})
	table.Render()
}

func epochTime(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second)))
}

// cliProgress logs the progress of an index update at intervals.
type cliProgress struct {
	total, step, next int
}

func newCLIProgress(total int) bank.Progress { //nolint:ireturn
	step := max(total/progressSteps, 1)

	return &cliProgress{total: total, step: step, next: step}
}

func (p *cliProgress) Update(count int) {
	if count < p.next && count != p.total {
		return
	}

	p.next = count + p.step

	info("scanned %s of %s files (%s%%)", humanize.Comma(int64(count)), humanize.Comma(int64(p.total)),
		strconv.Itoa(count*100/p.total)) //nolint:mnd
}

func (p *cliProgress) Finish() {
	info("scan complete")
}
