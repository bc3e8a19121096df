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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/wavebank/bank"
)

var watchInterval string

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep a bank's index up to date",
	Long: `Keep a bank's index up to date.

Updates the bank's index now, then every --interval (default
$` + envPollInterval + ` or 1m), so that files added to the bank by other means
than 'wavebank put' become visible to queries. Each update only scans files
modified since the previous one.

Runs until it receives SIGINT or SIGTERM.`,
	Run: func(_ *cobra.Command, _ []string) {
		interval, err := parseDurationFlagOrEnv(watchInterval, envPollInterval, defaultPollInterval)
		if err != nil {
			die("%s", err)
		}

		if interval <= 0 {
			die("--interval must be positive")
		}

		b := openBank(interval)
		defer b.Close()

		b.OnUpdate(func(s *bank.UpdateSummary) {
			info("indexed %d files (%d rows)", s.Files, s.Rows)
		})

		b.OnError(func(err error) {
			warn("index update failed: %s", err)
		})

		summary, err := b.UpdateIndex()
		if err != nil {
			die("failed to update index: %s", err)
		}

		info("indexed %d files (%d rows)", summary.Files, summary.Rows)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

		<-sigs
		info("stopping")
	},
}

func init() {
	RootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchInterval, "interval", "", "how often to update the index")
}
