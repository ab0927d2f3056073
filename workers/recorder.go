package workers

import (
	"context"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"linkbio/cache"
	"linkbio/store"
)

// Click is one delivered redirect waiting to be recorded. OriginHash is the
// salted digest of the caller's best-effort address, never the raw value;
// UserAgent and Referrer arrive already truncated.
type Click struct {
	LinkID     int64
	TreeID     int64
	Time       time.Time
	OriginHash string
	UserAgent  string
	Referrer   string
}

// Store is the slice of the durable layer the recorder touches.
type Store interface {
	GetLink(ctx context.Context, id int64) (store.Link, error)
	SetClickStats(ctx context.Context, id, count int64, ts time.Time) error
	AppendClick(ctx context.Context, c store.ClickRow) error
}

// Observer is notified after a click has been recorded. Replaces the
// ambient post-click hook of old: subscribers register explicitly and a
// failing subscriber never affects recording.
type Observer func(Click)

// Recorder drains clicks off the redirect path and records each one:
// counter write-through, event append, observer notify. The redirect
// handler enqueues; when the buffer is full it calls Record directly.
type Recorder struct {
	store  Store
	cache  *cache.LinkCache
	log    *zap.Logger
	in     chan Click
	closed chan struct{}

	obsMu     sync.RWMutex
	observers []Observer
}

func NewRecorder(s Store, c *cache.LinkCache, log *zap.Logger, buffer int) *Recorder {
	return &Recorder{
		store:  s,
		cache:  c,
		log:    log,
		in:     make(chan Click, buffer),
		closed: make(chan struct{}),
	}
}

func (r *Recorder) Start() { go r.loop() }

// Stop drains anything still queued, then returns.
func (r *Recorder) Stop() {
	close(r.in)
	<-r.closed
}

// Enqueue hands a click to the worker without blocking. False means the
// buffer is full and the caller should fall back to Record.
func (r *Recorder) Enqueue(ev Click) bool {
	select {
	case r.in <- ev:
		return true
	default:
		return false
	}
}

// Subscribe registers an observer for recorded clicks.
func (r *Recorder) Subscribe(fn Observer) {
	r.obsMu.Lock()
	r.observers = append(r.observers, fn)
	r.obsMu.Unlock()
}

func (r *Recorder) loop() {
	defer close(r.closed)
	for ev := range r.in {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		r.Record(ctx, ev)
		cancel()
	}
}

// Record performs the durable side of one click. The redirect has already
// been sent when this runs, so every failure here is best-effort: logged,
// never surfaced.
func (r *Recorder) Record(ctx context.Context, ev Click) {
	count, err := r.cache.IncrementClicks(ev.LinkID, func() (int64, error) {
		l, err := r.store.GetLink(ctx, ev.LinkID)
		if err != nil {
			return 0, err
		}
		return l.Clicks, nil
	})
	if err != nil {
		r.log.Warn("click counter seed failed", zap.Int64("link_id", ev.LinkID), zap.Error(err))
	} else if err := r.store.SetClickStats(ctx, ev.LinkID, count, ev.Time); err != nil {
		r.log.Warn("click stats write failed",
			zap.Int64("link_id", ev.LinkID), zap.Int64("count", count), zap.Error(err))
	}

	row := store.ClickRow{
		LinkID:     ev.LinkID,
		TreeID:     ev.TreeID,
		Time:       ev.Time,
		OriginHash: ev.OriginHash,
		UserAgent:  ev.UserAgent,
		Referrer:   ev.Referrer,
	}
	err = retry.Do(
		func() error { return r.store.AppendClick(ctx, row) },
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		r.log.Error("click event append failed", zap.Int64("link_id", ev.LinkID), zap.Error(err))
	}

	r.notify(ev)
}

func (r *Recorder) notify(ev Click) {
	r.obsMu.RLock()
	observers := r.observers
	r.obsMu.RUnlock()

	for _, fn := range observers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.log.Error("click observer panicked", zap.Any("panic", p))
				}
			}()
			fn(ev)
		}()
	}
}
