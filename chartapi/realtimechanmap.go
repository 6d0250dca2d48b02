// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartapi

import (
	"fmt"
	"sync"

	"github.com/zhangyunhao116/skipmap"
)

const realtimeChanSize = 1024

// RealtimeChanMap keeps one buffered channel per subscription key.
// If a consumer is too slow, the oldest entries are dropped.
type RealtimeChanMap[T any] struct {
	sm                    *skipmap.StringMap[chan T]
	pendingCloseList      []chan T
	pendingCloseListMutex *sync.Mutex
}

func NewRealtimeChanMap[T any]() *RealtimeChanMap[T] {
	return &RealtimeChanMap[T]{
		sm:                    skipmap.NewString[chan T](),
		pendingCloseListMutex: new(sync.Mutex),
	}
}

func (m *RealtimeChanMap[T]) AddPendingClose(c chan T) {
	m.pendingCloseListMutex.Lock()
	m.pendingCloseList = append(m.pendingCloseList, c)
	m.pendingCloseListMutex.Unlock()
}

// ClearPendingClose closes the channels of all unsubscribed keys.
// Call from the goroutine which writes to the channels.
func (m *RealtimeChanMap[T]) ClearPendingClose() {
	m.pendingCloseListMutex.Lock()
	for _, c := range m.pendingCloseList {
		close(c)
	}
	m.pendingCloseList = nil
	m.pendingCloseListMutex.Unlock()
}

func (m *RealtimeChanMap[T]) Clear() {
	m.sm.Range(
		func(k string, c chan T) bool {
			close(c)
			return true
		},
	)
	m.sm = skipmap.NewString[chan T]()
}

func (m *RealtimeChanMap[T]) Len() int {
	return m.sm.Len()
}

// Keys returns all subscribed keys, sorted.
func (m *RealtimeChanMap[T]) Keys() []string {
	keys := make([]string, 0, m.sm.Len())
	m.sm.Range(func(k string, _ chan T) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

func (m *RealtimeChanMap[T]) Subscribe(key string) (chan T, error) {
	// this is required to be a buffered channel, so that it is possible to delete old data in case processing is too slow
	// new realtime data is always more important than old data
	c := make(chan T, realtimeChanSize)
	if _, exists := m.sm.LoadOrStore(key, c); exists {
		return nil, fmt.Errorf("already subscribed to %s", key)
	}
	return c, nil
}

func (m *RealtimeChanMap[T]) Unsubscribe(key string) error {
	c, exists := m.sm.LoadAndDelete(key)
	if !exists {
		return fmt.Errorf("cannot unsubscribe %s: not subscribed", key)
	}
	// we should not close the channel here, because this might cause a race condition.
	m.AddPendingClose(c)
	return nil
}

func (m *RealtimeChanMap[T]) AddNewData(key string, data T) error {
	c, exists := m.sm.Load(key)
	if !exists {
		// silently ignore, as this may happen while unsubscribing
		return nil
	}
	select {
	case c <- data:
		return nil
	default:
	}
	// usually if a golang channel is full, we would drop additional data.
	// but new data is much more important in this case, so instead we
	// delete old data.
	select {
	case <-c:
		select {
		case c <- data:
			return fmt.Errorf("%s: buffer overflow, old realtime data is being removed", key)
		default:
			return fmt.Errorf("%s: buffer overflow, new realtime data is being dropped", key)
		}
	default:
		return fmt.Errorf("%s: buffer cannot be read from or written to", key)
	}
}
