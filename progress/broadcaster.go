package progress

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

const defaultBufferSize = 16

var droppedMetric = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fragpow",
	Subsystem: "progress",
	Name:      "dropped_total",
	Help:      "Number of progress notifications dropped because a subscriber was not keeping up",
})

// Broadcaster fans notifications out to any number of subscribers.
// Each subscriber has its own buffered channel. A notification that does not fit
// into a subscriber's buffer is dropped for that subscriber.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan uint128.Uint128
	nextID      uint64
	bufferSize  int
	logger      *zap.Logger
}

type broadcasterOptionFunc func(*Broadcaster)

// WithBufferSize sets the per-subscriber buffer size.
func WithBufferSize(size int) broadcasterOptionFunc {
	return func(b *Broadcaster) {
		b.bufferSize = size
	}
}

func WithLogger(logger *zap.Logger) broadcasterOptionFunc {
	return func(b *Broadcaster) {
		b.logger = logger
	}
}

func NewBroadcaster(opts ...broadcasterOptionFunc) *Broadcaster {
	b := &Broadcaster{
		subscribers: make(map[uint64]chan uint128.Uint128),
		bufferSize:  defaultBufferSize,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.bufferSize < 0 {
		b.bufferSize = 0
	}
	return b
}

// Subscribe registers a new listener. The returned function unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan uint128.Uint128, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan uint128.Uint128, b.bufferSize)
	b.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, id)
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Notify implements Notifier.
func (b *Broadcaster) Notify(nonce uint128.Uint128) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.subscribers) == 0 {
		b.logger.Debug("nobody listens to progress - dropping", zap.Stringer("nonce", nonce))
		return
	}
	for id, ch := range b.subscribers {
		select {
		case ch <- nonce:
		default:
			droppedMetric.Inc()
			b.logger.Debug("subscriber is not keeping up - dropping", zap.Uint64("subscriber", id), zap.Stringer("nonce", nonce))
		}
	}
}
