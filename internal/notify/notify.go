// Package notify delivers change events to subscribers. Delivery is
// fire-and-forget: publishers never block and do not learn whether a
// handler ran.
package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/notepad/pkg/types"
)

// Event is one change to a locator.
type Event struct {
	ID      string
	Locator string
	Op      string
	At      time.Time
}

// Change converts the event to its public form.
func (e Event) Change() types.Change {
	return types.Change{ID: e.ID, Locator: e.Locator, Op: e.Op, At: e.At.UnixMilli()}
}

// Handler receives events matching a subscription.
type Handler func(Event)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("notifier is closed")

const defaultBuffer = 64

// Notifier fans events out to subscribers. Each subscriber owns a buffered
// queue drained by its own goroutine, so a slow handler delays only itself.
type Notifier struct {
	mu      sync.RWMutex
	subs    map[string]*subscription
	closed  bool
	buffer  int
	logger  *slog.Logger
	dropped func()
	wg      sync.WaitGroup
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) Option {
	return func(nt *Notifier) {
		if n > 0 {
			nt.buffer = n
		}
	}
}

// WithLogger sets the logger used for dropped events and handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(nt *Notifier) {
		if logger != nil {
			nt.logger = logger
		}
	}
}

// WithDropHook registers f to run whenever an event is dropped because a
// subscriber queue is full.
func WithDropHook(f func()) Option {
	return func(nt *Notifier) {
		nt.dropped = f
	}
}

// New returns a running Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		subs:   make(map[string]*subscription),
		buffer: defaultBuffer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscription is an active registration.
type Subscription struct {
	id string
	n  *Notifier
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Unsubscribe stops delivery to the subscription's handler. Events already
// queued are still delivered.
func (s *Subscription) Unsubscribe() {
	s.n.remove(s.id)
}

type subscription struct {
	pattern string
	glob    bool
	handler Handler
	queue   chan Event
}

// Subscribe registers h for events whose locator matches pattern.
//
// A plain pattern matches by locator prefix on segment boundaries: "notes"
// matches "notes" and "notes/7" but not "notesx". A pattern containing glob
// metacharacters is matched with doublestar, so "notes/*" matches every
// item and the live view but not the collection itself.
func (n *Notifier) Subscribe(pattern string, h Handler) (*Subscription, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil handler", types.ErrInvalidArgument)
	}
	glob := strings.ContainsAny(pattern, "*?[{")
	if glob && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: bad pattern %q", types.ErrInvalidArgument, pattern)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, ErrClosed
	}

	sub := &subscription{
		pattern: pattern,
		glob:    glob,
		handler: h,
		queue:   make(chan Event, n.buffer),
	}
	id := uuid.NewString()
	n.subs[id] = sub

	n.wg.Add(1)
	go n.deliver(id, sub)

	return &Subscription{id: id, n: n}, nil
}

// Publish queues ev for every matching subscriber. It never blocks: an event
// that does not fit a subscriber's queue is dropped for that subscriber.
// Publishing on a closed Notifier is a no-op.
func (n *Notifier) Publish(ev Event) {
	if ev.ID == "" {
		ev.ID = newEventID()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	for id, sub := range n.subs {
		if !sub.matches(ev.Locator) {
			continue
		}
		select {
		case sub.queue <- ev:
		default:
			n.logger.Warn("change event dropped", "subscription", id, "locator", ev.Locator, "op", ev.Op)
			if n.dropped != nil {
				n.dropped()
			}
		}
	}
}

// Close stops accepting events, drains queued events to their handlers and
// waits for delivery goroutines to exit. Idempotent.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	for id, sub := range n.subs {
		close(sub.queue)
		delete(n.subs, id)
	}
	n.mu.Unlock()

	n.wg.Wait()
}

func (n *Notifier) remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	sub, ok := n.subs[id]
	if !ok {
		return
	}
	close(sub.queue)
	delete(n.subs, id)
}

func (n *Notifier) deliver(id string, sub *subscription) {
	defer n.wg.Done()
	for ev := range sub.queue {
		n.invoke(id, sub.handler, ev)
	}
}

func (n *Notifier) invoke(id string, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("change handler panicked", "subscription", id, "locator", ev.Locator, "panic", r)
		}
	}()
	h(ev)
}

func (s *subscription) matches(locator string) bool {
	if s.glob {
		ok, err := doublestar.Match(s.pattern, locator)
		return err == nil && ok
	}
	if s.pattern == "" {
		return true
	}
	if !strings.HasPrefix(locator, s.pattern) {
		return false
	}
	rest := locator[len(s.pattern):]
	return rest == "" || strings.HasPrefix(rest, types.LocatorSeparator) || strings.HasSuffix(s.pattern, types.LocatorSeparator)
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
