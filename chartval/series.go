// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartval

import (
	"coinchart/candles"
	"sync"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"
)

// Series holds the candles of one symbol and timeframe, keyed by open time.
// Merges may happen on any goroutine, the sorted snapshot returned by Candles
// is rebuilt lazily and must be treated as read-only.
type Series struct {
	// The symbol and timeframe are set during initialization and never changed.
	// Therefore they are safe to be accessed from different goroutines.
	Symbol    string
	Timeframe candles.Timeframe

	data     *skipmap.Int64Map[Candle]
	dirty    atomic.Bool
	snapshot CandleList
	mutex    sync.Mutex
}

func NewSeries(symbol string, timeframe candles.Timeframe) *Series {
	return &Series{
		Symbol:    symbol,
		Timeframe: timeframe,
		data:      skipmap.NewInt64[Candle](),
	}
}

// Merge inserts the given candles, replacing candles with the same open time.
// Invalid candles are skipped. It returns the number of candles which were not
// present before.
func (s *Series) Merge(data []Candle) int {
	added := 0
	for _, c := range data {
		if !c.IsValid() {
			continue
		}
		if _, loaded := s.data.Load(c.Time); !loaded {
			added++
		}
		s.data.Store(c.Time, c)
	}
	if len(data) > 0 {
		s.dirty.Store(true)
	}
	return added
}

// Candles returns all candles sorted ascending by time.
func (s *Series) Candles() []Candle {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.snapshot == nil || s.dirty.Swap(false) {
		// Never modify a previously returned snapshot, consumers may still hold it.
		l := make(CandleList, 0, s.data.Len())
		s.data.Range(func(_ int64, c Candle) bool {
			l = append(l, c)
			return true
		})
		s.snapshot = l
	}
	return s.snapshot
}

func (s *Series) Len() int {
	return s.data.Len()
}

func (s *Series) First() (Candle, bool) {
	var first Candle
	ok := false
	s.data.Range(func(_ int64, c Candle) bool {
		first = c
		ok = true
		return false
	})
	return first, ok
}

func (s *Series) Last() (Candle, bool) {
	l := s.Candles()
	if len(l) == 0 {
		return Candle{}, false
	}
	return l[len(l)-1], true
}

func (s *Series) Clear() {
	s.data.Range(func(k int64, _ Candle) bool {
		s.data.Delete(k)
		return true
	})
	s.dirty.Store(true)
}
