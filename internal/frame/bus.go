package frame

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"eventcam/internal/logger"
)

const (
	// DefaultMaxConsecutiveErrors is how many transient read errors in a row the
	// bus tolerates before treating the source as failed.
	DefaultMaxConsecutiveErrors = 10
	// DefaultRetryDelay is the pause after a transient read error.
	DefaultRetryDelay = 100 * time.Millisecond
)

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("subscriber id already exists")
	// ErrBusClosed is returned once the bus has been stopped with Close.
	ErrBusClosed = errors.New("bus is closed")
	// ErrFeedClosed is returned by Feed.Next after the feed was unsubscribed.
	ErrFeedClosed = errors.New("feed closed")
)

// Bus is the single reader of a Source. It republishes every frame to all
// current subscribers. A subscriber whose buffer is full misses that frame;
// the bus itself never blocks on a slow consumer.
type Bus struct {
	source Source
	logger *logger.Logger

	MaxConsecutiveErrors int
	RetryDelay           time.Duration

	mu     sync.RWMutex
	feeds  map[string]*Feed
	closed bool
	err    error

	seq       uint64
	published uint64

	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error
	cancel    context.CancelFunc
	done      chan struct{}
}

// BusStats is a snapshot of bus counters.
type BusStats struct {
	Published   uint64
	Subscribers map[string]FeedStats
}

// FeedStats tracks delivery for one subscriber.
type FeedStats struct {
	Sent    uint64
	Dropped uint64
}

// NewBus wraps source. Call Start to begin reading.
func NewBus(source Source, logger *logger.Logger) *Bus {
	return &Bus{
		source:               source,
		logger:               logger,
		MaxConsecutiveErrors: DefaultMaxConsecutiveErrors,
		RetryDelay:           DefaultRetryDelay,
		feeds:                make(map[string]*Feed),
		done:                 make(chan struct{}),
	}
}

// Start launches the read loop. Subsequent calls are no-ops.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		ctx, b.cancel = context.WithCancel(ctx)
		go b.run(ctx)
	})
}

func (b *Bus) run(ctx context.Context) {
	defer close(b.done)

	consecutive := 0
	for {
		f, err := b.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				b.stop(ErrBusClosed)
				return
			}
			if IsTransient(err) {
				consecutive++
				if consecutive < b.MaxConsecutiveErrors {
					b.logger.Warning("Frame read failed (%d/%d): %v", consecutive, b.MaxConsecutiveErrors, err)
					select {
					case <-time.After(b.RetryDelay):
					case <-ctx.Done():
					}
					continue
				}
				err = fmt.Errorf("too many consecutive read errors (%d): %w", consecutive, err)
			}
			b.stop(err)
			return
		}
		consecutive = 0
		b.publish(f)
	}
}

func (b *Bus) publish(f *Frame) {
	if f.Seq == 0 {
		f.Seq = atomic.AddUint64(&b.seq, 1)
	}
	if f.CapturedAt.IsZero() {
		f.CapturedAt = time.Now()
	}
	atomic.AddUint64(&b.published, 1)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, feed := range b.feeds {
		select {
		case feed.ch <- f:
			atomic.AddUint64(&feed.sent, 1)
		default:
			atomic.AddUint64(&feed.dropped, 1)
		}
	}
}

// stop records the terminal error and closes every feed.
func (b *Bus) stop(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.err = err
	for id, feed := range b.feeds {
		close(feed.ch)
		delete(b.feeds, id)
	}
	if errors.Is(err, ErrBusClosed) || errors.Is(err, ErrEndOfStream) {
		b.logger.Info("Frame bus stopped: %v", err)
	} else {
		b.logger.Error("Frame bus stopped: %v", err)
	}
}

// Subscribe registers a consumer with its own buffer of the given size.
func (b *Bus) Subscribe(id string, buffer int) (*Feed, error) {
	if buffer < 1 {
		buffer = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		if b.err != nil {
			return nil, b.err
		}
		return nil, ErrBusClosed
	}
	if _, exists := b.feeds[id]; exists {
		return nil, ErrSubscriberExists
	}
	feed := &Feed{id: id, ch: make(chan *Frame, buffer), bus: b}
	b.feeds[id] = feed
	return feed, nil
}

// Unsubscribe removes a consumer. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if feed, ok := b.feeds[id]; ok {
		close(feed.ch)
		delete(b.feeds, id)
	}
}

// Stats returns current counters.
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stats := BusStats{
		Published:   atomic.LoadUint64(&b.published),
		Subscribers: make(map[string]FeedStats, len(b.feeds)),
	}
	for id, feed := range b.feeds {
		stats.Subscribers[id] = feed.Stats()
	}
	return stats
}

// Done is closed when the read loop has exited.
func (b *Bus) Done() <-chan struct{} {
	return b.done
}

// Err returns the error that stopped the bus, or nil while running.
func (b *Bus) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// FPS returns the nominal rate of the underlying source.
func (b *Bus) FPS() float64 { return b.source.FPS() }

// Size returns the frame size of the underlying source.
func (b *Bus) Size() (int, int) { return b.source.Size() }

// Close stops the read loop, closes all feeds and releases the source.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		b.startOnce.Do(func() {
			// never started: no loop to wait for
			b.stop(ErrBusClosed)
			close(b.done)
		})
		if b.cancel != nil {
			b.cancel()
		}
		<-b.done
		b.closeErr = b.source.Close()
	})
	return b.closeErr
}

// Feed is one subscriber's view of the bus. It implements Source.
type Feed struct {
	id      string
	ch      chan *Frame
	bus     *Bus
	sent    uint64
	dropped uint64
}

// ID returns the subscriber id.
func (f *Feed) ID() string { return f.id }

// Next returns the next frame delivered to this feed.
func (f *Feed) Next(ctx context.Context) (*Frame, error) {
	select {
	case fr, ok := <-f.ch:
		if !ok {
			if err := f.bus.Err(); err != nil {
				return nil, err
			}
			return nil, ErrFeedClosed
		}
		return fr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// C exposes the delivery channel for select loops. It is closed when the
// feed ends; Err then reports why.
func (f *Feed) C() <-chan *Frame { return f.ch }

// Err reports why a closed feed ended.
func (f *Feed) Err() error {
	if err := f.bus.Err(); err != nil {
		return err
	}
	return ErrFeedClosed
}

func (f *Feed) FPS() float64 { return f.bus.FPS() }

func (f *Feed) Size() (int, int) { return f.bus.Size() }

// Close unsubscribes the feed.
func (f *Feed) Close() error {
	f.bus.Unsubscribe(f.id)
	return nil
}

// Stats returns this feed's counters.
func (f *Feed) Stats() FeedStats {
	return FeedStats{
		Sent:    atomic.LoadUint64(&f.sent),
		Dropped: atomic.LoadUint64(&f.dropped),
	}
}
