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
	"time"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/wavebank/bank"
	"github.com/wtsi-hgi/wavebank/server"
)

const defaultPollInterval = time.Minute

// options for this cmd.
var (
	serverBind         string
	serverPollInterval string
)

// serverCmd represents the server command.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve a bank over a REST API",
	Long: `Serve a bank over a REST API.

Starts a web server listening on --bind, with these endpoints:

GET  /rest/v1/index         index rows
GET  /rest/v1/availability  time spans per channel
GET  /rest/v1/gaps          gaps per channel (min_gap, overlaps=report)
GET  /rest/v1/uptime        uptime per channel (min_gap, overlaps=report)
GET  /rest/v1/waveforms     waveform data (attach=true, format=wbf)
POST /rest/v1/bulk          waveform data for a JSON array of requests
POST /rest/v1/update        update the index now
GET  /rest/v1/version       software version and index update time
GET  /metrics               prometheus metrics

The GET endpoints take network, station, location and channel parameters,
which are wildcard patterns or comma separated lists of codes, and starttime
and endtime parameters in epoch seconds or ISO 8601.

The index is updated on start up, then every --poll_interval (default
$` + envPollInterval + ` or 1m); use 0 to disable.

The server runs until it receives SIGINT or SIGTERM.`,
	Run: func(_ *cobra.Command, _ []string) {
		interval, err := parseDurationFlagOrEnv(serverPollInterval, envPollInterval, defaultPollInterval)
		if err != nil {
			die("%s", err)
		}

		b := openBank(interval)
		defer b.Close()

		b.OnUpdate(func(s *bank.UpdateSummary) {
			info("index updated with %d files", s.Files)
		})

		if _, err = b.UpdateIndex(); err != nil {
			die("failed to update index: %s", err)
		}

		s := server.New(b, appLogger)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

		go func() {
			<-sigs
			info("shutting down")

			if errs := s.Stop(); errs != nil {
				warn("failed to stop server: %s", errs)
			}
		}()

		if err = s.Start(serverBind); err != nil {
			die("server failed: %s", err)
		}
	},
}

func init() {
	RootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverBind, "bind", ":8080", "address to listen on")
	serverCmd.Flags().StringVar(&serverPollInterval, "poll_interval", "", "how often to update the index")
}
