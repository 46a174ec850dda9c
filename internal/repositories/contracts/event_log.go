package contracts

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gammazero/deque"
	"go.uber.org/atomic"
)

type WatchedEvent struct {
	Signature   string
	Topic       common.Hash
	Address     common.Address
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Topics      []common.Hash
	Data        hexutil.Bytes
	ObservedAt  time.Time
}

// EventLog keeps the most recent events. When the log reaches its capacity, the oldest item is dropped.
// The implementation uses ring buffer (deque) to avoid unnecessary allocations
type EventLog struct {
	mu    sync.RWMutex
	data  *deque.Deque[WatchedEvent]
	cap   int
	total *atomic.Uint64
}

func NewEventLog(cap int) *EventLog {
	return &EventLog{
		data:  deque.New[WatchedEvent](cap, cap),
		cap:   cap,
		total: atomic.NewUint64(0),
	}
}

func (l *EventLog) Add(event WatchedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.data.Len() >= l.cap {
		l.data.PopFront()
	}
	l.data.PushBack(event)
	l.total.Inc()
}

func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data.Len()
}

// Total returns number of events added since creation, including dropped ones
func (l *EventLog) Total() uint64 {
	return l.total.Load()
}

// Range iterates from the oldest to the newest event, until f returns false
func (l *EventLog) Range(f func(event WatchedEvent) bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := 0; i < l.data.Len(); i++ {
		if !f(l.data.At(i)) {
			return
		}
	}
}

// Last returns up to n newest events, newest first
func (l *EventLog) Last(n int) []WatchedEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > l.data.Len() {
		n = l.data.Len()
	}

	res := make([]WatchedEvent, 0, n)
	for i := l.data.Len() - 1; i >= 0 && len(res) < n; i-- {
		res = append(res, l.data.At(i))
	}
	return res
}
