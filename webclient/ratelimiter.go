// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package webclient

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Weight based rate limiter (client side) which follows the used weight reported
// by the server. The counter is reset locally after each interval, a server
// reported weight overrides the local count if it is higher.
type RateLimiter struct {
	limitCounter uint64 // Use atomic accessor
	interval     int64  // Use atomic accessor
	startTime    int64  // Use atomic accessor
	usedHeader   string
}

const MinWaitTime = time.Millisecond * 250
const MinReconnectWaitTime = time.Second * 10

// Upper bound for waiting on a Retry-After header.
const MaxRetryWaitTime = time.Minute * 2

// Header used by Binance to report the request weight used within the current minute.
const BinanceUsedWeightHeader = "x-mbx-used-weight-1m"

// Create a rate limiter allowing a total weight of limit per interval.
// A limit of 0 disables limiting, but 429/418 responses are still handled.
func NewRateLimiter(interval time.Duration, limit uint32, usedHeader string) *RateLimiter {
	return &RateLimiter{
		limitCounter: uint64(limit) << 32,
		interval:     int64(interval),
		usedHeader:   usedHeader,
	}
}

func (l *RateLimiter) Wait(ctx context.Context) error {
	return l.WaitN(ctx, 1)
}

// WaitN blocks until a request of the given weight may be sent.
func (l *RateLimiter) WaitN(ctx context.Context, weight uint32) error {
	for {
		limitCounter := atomic.LoadUint64(&l.limitCounter)
		limit := limitCounter >> 32
		if limit == 0 {
			return nil // no limitation
		}
		counter := limitCounter & 0xffffffff

		if l.resetIfExpired(counter) {
			continue
		}
		// A single request heavier than the limit is allowed in an empty interval.
		if counter+uint64(weight) <= limit || counter == 0 {
			if atomic.CompareAndSwapUint64(&l.limitCounter, limitCounter, limitCounter+uint64(weight)) {
				l.startTimer()
				return nil
			}
			continue
		}
		// too many requests, need to wait
		// poll every MinWaitTime
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(MinWaitTime):
		}
	}
}

// resetIfExpired resets the counter after the time interval. It returns true if
// the state changed and needs to be reloaded.
func (l *RateLimiter) resetIfExpired(counter uint64) bool {
	interval := atomic.LoadInt64(&l.interval)
	startTime := atomic.LoadInt64(&l.startTime)
	if interval <= 0 || startTime <= 0 {
		return false
	}
	endTime := time.UnixMilli(startTime).Add(time.Duration(interval))
	if time.Since(endTime) <= 0 {
		return false
	}
	if atomic.CompareAndSwapInt64(&l.startTime, startTime, 0) {
		// Subtract instead of setting to zero in order to avoid race conditions.
		atomic.AddUint64(&l.limitCounter, -counter)
	}
	return true
}

func (l *RateLimiter) startTimer() {
	if atomic.LoadInt64(&l.interval) > 0 {
		atomic.CompareAndSwapInt64(&l.startTime, 0, time.Now().UnixMilli())
	}
}

// Return the remaining weight or max int if not limited.
func (l *RateLimiter) Remaining() int {
	limitCounter := atomic.LoadUint64(&l.limitCounter)
	limit := limitCounter >> 32
	if limit == 0 {
		return math.MaxInt
	}
	counter := limitCounter & 0xffffffff
	remaining := int(limit) - int(counter)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// HandleResponseHeadersWithWait updates the used weight from the response headers.
// If the server complains about too many requests, it waits and returns retry = true,
// the caller needs to close the response body and repeat the request.
func (l *RateLimiter) HandleResponseHeadersWithWait(ctx context.Context, resp *http.Response) (retry bool, err error) {
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(retryAfter(resp)): // enforce some delay if the server complains
			return true, nil
		}
	}
	if len(l.usedHeader) > 0 {
		used, err := strconv.ParseUint(resp.Header.Get(l.usedHeader), 10, 32)
		if err == nil {
			l.setUsed(used)
		}
	}
	return false, nil
}

func (l *RateLimiter) setUsed(used uint64) {
	for {
		limitCounter := atomic.LoadUint64(&l.limitCounter)
		limit := limitCounter >> 32
		if limit == 0 || used <= limitCounter&0xffffffff {
			return
		}
		if atomic.CompareAndSwapUint64(&l.limitCounter, limitCounter, limit<<32|used) {
			l.startTimer()
			return
		}
	}
}

func retryAfter(resp *http.Response) time.Duration {
	seconds, err := strconv.ParseInt(resp.Header.Get("Retry-After"), 10, 32)
	if err != nil || seconds <= 0 {
		return MinWaitTime
	}
	return min(time.Second*time.Duration(seconds), MaxRetryWaitTime)
}
