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

package bank

import (
	"sync"

	"github.com/benbjohnson/clock"
)

// poller runs UpdateIndex in the background every Config.PollInterval.
type poller struct {
	pollMu sync.Mutex
	cb     func(*UpdateSummary)
	errCb  func(error)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// OnUpdate sets a callback that is called after each background update that
// found new files.
func (b *Bank) OnUpdate(cb func(*UpdateSummary)) {
	b.pollMu.Lock()
	b.cb = cb
	b.pollMu.Unlock()
}

// OnError sets a callback that is called when a background update fails.
func (b *Bank) OnError(cb func(error)) {
	b.pollMu.Lock()
	b.errCb = cb
	b.pollMu.Unlock()
}

func (b *Bank) startPolling() {
	if b.cfg.PollInterval <= 0 {
		return
	}

	b.stopCh = make(chan struct{})
	ticker := b.cfg.Clock.Ticker(b.cfg.PollInterval)

	b.wg.Add(1)

	go b.pollLoop(ticker, b.stopCh)
}

func (b *Bank) stopPolling() {
	b.pollMu.Lock()

	if b.stopCh != nil {
		close(b.stopCh)
		b.stopCh = nil
	}

	b.pollMu.Unlock()

	b.wg.Wait()
}

func (b *Bank) pollLoop(ticker *clock.Ticker, stopCh <-chan struct{}) {
	defer b.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			b.pollOnce()
		}
	}
}

func (b *Bank) pollOnce() {
	summary, err := b.UpdateIndex()

	b.pollMu.Lock()
	cb, errCb := b.cb, b.errCb
	b.pollMu.Unlock()

	if err != nil {
		b.logger.Warn("background index update failed", "err", err)

		if errCb != nil {
			errCb(err)
		}

		return
	}

	if summary.Files > 0 && cb != nil {
		cb(summary)
	}
}
