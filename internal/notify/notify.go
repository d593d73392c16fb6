// Package notify holds the transient, auto-expiring messages shown to the user.
//
// A Queue is created once at startup and shared by every page. Each entry
// owns a cancelable timer keyed by its id; dismissing or clearing stops the
// timer, and removal by id is idempotent so a timer that still fires finds
// nothing to do.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLifetime applies when Enqueue is given a non-positive lifetime.
const DefaultLifetime = 6000 * time.Millisecond

// Stacking layout in pixels.
const (
	stackTop  = 80
	stackStep = 70
)

// Severity of a notification.
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	switch s {
	case Success, Error, Warning, Info:
		return true
	}
	return false
}

// Notification is a single queued message.
type Notification struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Severity  Severity      `json:"severity"`
	Lifetime  time.Duration `json:"-"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ExpiresAt is when the entry is removed unless dismissed first.
func (n Notification) ExpiresAt() time.Time {
	return n.CreatedAt.Add(n.Lifetime)
}

// Remaining is the lifetime left at now, never negative.
func (n Notification) Remaining(now time.Time) time.Duration {
	if d := n.ExpiresAt().Sub(now); d > 0 {
		return d
	}
	return 0
}

// Offset is the vertical position in pixels for the entry at rank in the
// current display order.
func Offset(rank int) int {
	return stackTop + rank*stackStep
}

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules expirations. The zero Queue uses the wall clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Option configures a Queue.
type Option func(*Queue)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(q *Queue) { q.clock = c }
}

// WithDefaultLifetime changes the lifetime used when none is given.
func WithDefaultLifetime(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.lifetime = d
		}
	}
}

// Queue is an insertion-ordered collection of active notifications.
type Queue struct {
	mu       sync.Mutex
	clock    Clock
	lifetime time.Duration
	items    []Notification
	timers   map[string]Timer
	subs     map[int]func([]Notification)
	nextSub  int
}

// New creates an empty queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		clock:    wallClock{},
		lifetime: DefaultLifetime,
		timers:   make(map[string]Timer),
		subs:     make(map[int]func([]Notification)),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a notification and schedules its removal after lifetime.
// It returns the new entry's id.
func (q *Queue) Enqueue(text string, sev Severity, lifetime time.Duration) string {
	if !sev.Valid() {
		sev = Info
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if lifetime <= 0 {
		lifetime = q.lifetime
	}
	n := Notification{
		ID:        uuid.NewString(),
		Text:      text,
		Severity:  sev,
		Lifetime:  lifetime,
		CreatedAt: q.clock.Now(),
	}
	q.items = append(q.items, n)
	id := n.ID
	q.timers[id] = q.clock.AfterFunc(lifetime, func() { q.remove(id, false) })
	q.publishLocked()
	return id
}

// Success enqueues a success message. An optional lifetime replaces the
// default one.
func (q *Queue) Success(text string, lifetime ...time.Duration) string {
	return q.Enqueue(text, Success, optional(lifetime))
}

// Error enqueues an error message.
func (q *Queue) Error(text string, lifetime ...time.Duration) string {
	return q.Enqueue(text, Error, optional(lifetime))
}

// Warning enqueues a warning message.
func (q *Queue) Warning(text string, lifetime ...time.Duration) string {
	return q.Enqueue(text, Warning, optional(lifetime))
}

// Info enqueues an informational message.
func (q *Queue) Info(text string, lifetime ...time.Duration) string {
	return q.Enqueue(text, Info, optional(lifetime))
}

func optional(lifetime []time.Duration) time.Duration {
	if len(lifetime) == 0 {
		return 0
	}
	return lifetime[0]
}

// Dismiss removes the entry with id. Unknown ids are ignored.
func (q *Queue) Dismiss(id string) {
	q.remove(id, true)
}

func (q *Queue) remove(id string, stopTimer bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t, ok := q.timers[id]; ok {
		if stopTimer {
			t.Stop()
		}
		delete(q.timers, id)
	}
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			q.publishLocked()
			return
		}
	}
}

// Clear removes every entry and stops all pending timers.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	if len(q.items) == 0 {
		return
	}
	q.items = nil
	q.publishLocked()
}

// List returns the active notifications in arrival order.
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Len returns the number of active notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Subscribe registers fn to receive a snapshot after every change, starting
// with the current contents. fn runs with the queue locked and must not call
// back into it. The returned func unregisters fn.
func (q *Queue) Subscribe(fn func([]Notification)) (unsubscribe func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := q.nextSub
	q.nextSub++
	q.subs[key] = fn
	fn(q.snapshotLocked())

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.subs, key)
	}
}

func (q *Queue) publishLocked() {
	if len(q.subs) == 0 {
		return
	}
	snap := q.snapshotLocked()
	for _, fn := range q.subs {
		fn(snap)
	}
}

func (q *Queue) snapshotLocked() []Notification {
	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}
