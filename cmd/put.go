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
	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/wavebank/wavefile"
	"github.com/wtsi-hgi/wavebank/waveform"
)

// options for this cmd.
var (
	putName   string
	putFormat string
)

// putCmd represents the put command.
var putCmd = &cobra.Command{
	Use:   "put file [file...]",
	Short: "Add waveform files to a bank",
	Long: `Add waveform files to a bank.

Reads the traces in the given waveform files and stores them in the bank, at
paths given by the bank's path and name structures (see --path_structure and
--name_structure), or in a file called --name in those directories. Where a
file already exists, the new traces are merged with those already in it.

The bank's index is then updated.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		if logPath == "" {
			setCLIFormat()
		}

		format, err := wavefile.Lookup(putFormat)
		if err != nil {
			die("%s", err)
		}

		var st waveform.Stream

		for _, path := range args {
			fst, err := format.Read(path)
			if err != nil {
				die("failed to read %s: %s", path, err)
			}

			st = append(st, fst...)
		}

		b := openBank(0)
		defer b.Close()

		summary, err := b.PutWaveforms(st, putName)
		if err != nil {
			die("failed to put waveforms: %s", err)
		}

		if summary == nil {
			warn("no traces to put")

			return
		}

		info("stored %s traces; index updated with %s rows from %s files",
			humanize.Comma(int64(len(st))), humanize.Comma(int64(summary.Rows)),
			humanize.Comma(int64(summary.Files)))
	},
}

func init() {
	RootCmd.AddCommand(putCmd)

	putCmd.Flags().StringVar(&putName, "name", "", "store everything in files with this name")
	putCmd.Flags().StringVar(&putFormat, "format", wavefile.FormatNative, "format of the input files")
}
