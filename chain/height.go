// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chain

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ManualHeight is a height source that only moves when told to. It backs
// development networks without a block interval and tests.
type ManualHeight struct {
	mu     sync.RWMutex
	height uint64
}

func NewManualHeight(start uint64) *ManualHeight {
	return &ManualHeight{height: start}
}

func (m *ManualHeight) Height() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.height
}

// Set moves the height to h. Heights never decrease, so a lower value is
// ignored.
func (m *ManualHeight) Set(h uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h > m.height {
		m.height = h
	}
}

// Advance moves the height forward by n and returns the new height
func (m *ManualHeight) Advance(n uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.height += n
	return m.height
}

// HeightTick is delivered to clock subscribers when the height changes
type HeightTick struct {
	Height uint64
	Time   time.Time
}

// HeightClockConfig holds configuration for the HeightClock
type HeightClockConfig struct {
	Logger *slog.Logger
	// Start is the wall-clock time of StartHeight
	Start       time.Time
	StartHeight uint64
	// Interval is the duration of one height unit
	Interval time.Duration
}

// HeightClock derives the height from wall-clock time: one unit per
// Interval since Start. Between calls it is read-only, so the governance
// engine sees a height that only moves forward.
type HeightClock struct {
	config      HeightClockConfig
	subscribers []chan HeightTick
	mu          sync.Mutex
	cancel      context.CancelFunc
	running     bool
	wg          sync.WaitGroup

	// For testing: allow injection of custom time source
	nowFunc func() time.Time
}

func NewHeightClock(config HeightClockConfig) *HeightClock {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if config.Start.IsZero() {
		config.Start = time.Now()
	}
	return &HeightClock{
		config:  config,
		nowFunc: time.Now,
	}
}

// Height returns the height for the current wall-clock time
func (c *HeightClock) Height() uint64 {
	return c.heightAt(c.nowFunc())
}

func (c *HeightClock) heightAt(t time.Time) uint64 {
	elapsed := t.Sub(c.config.Start)
	if elapsed < 0 {
		return c.config.StartHeight
	}
	return c.config.StartHeight + uint64(elapsed/c.config.Interval)
}

// timeOf returns the wall-clock time at which height h begins
func (c *HeightClock) timeOf(h uint64) time.Time {
	if h <= c.config.StartHeight {
		return c.config.Start
	}
	units := h - c.config.StartHeight
	return c.config.Start.Add(time.Duration(units) * c.config.Interval) //nolint:gosec // heights stay far below overflow
}

// Start begins delivering HeightTick notifications at each height boundary
func (c *HeightClock) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop halts the tick loop and closes all subscriber channels
func (c *HeightClock) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
	c.mu.Lock()
	for _, ch := range c.subscribers {
		close(ch)
	}
	c.subscribers = nil
	c.mu.Unlock()
}

// Subscribe returns a channel that receives a HeightTick at each height
// boundary. Ticks are dropped for subscribers that fall behind.
func (c *HeightClock) Subscribe() <-chan HeightTick {
	ch := make(chan HeightTick, 1)
	c.mu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.mu.Unlock()
	return ch
}

func (c *HeightClock) run(ctx context.Context) {
	defer c.wg.Done()
	logger := c.config.Logger.With("component", "height_clock")
	for {
		now := c.nowFunc()
		next := c.heightAt(now) + 1
		timer := time.NewTimer(c.timeOf(next).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case firedAt := <-timer.C:
			tick := HeightTick{Height: c.heightAt(firedAt), Time: firedAt}
			logger.Debug("height advanced", "height", tick.Height)
			c.mu.Lock()
			for _, ch := range c.subscribers {
				select {
				case ch <- tick:
				default:
				}
			}
			c.mu.Unlock()
		}
	}
}
