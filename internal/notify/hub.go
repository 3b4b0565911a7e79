// Package notify holds the UI-facing notification state: transient toasts and
// an aggregated busy indicator.
//
// The busy indicator turns on as soon as any request starts and turns off
// only after the last outstanding request has been finished for the grace
// window, so back-to-back requests do not make it flicker.
package notify

import (
	"sync"
	"time"
)

// Kind classifies a toast.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Toast is a transient user-facing message.
type Toast struct {
	ID          uint64
	Kind        Kind
	Title       string
	Description string
	TTL         time.Duration
	CreatedAt   time.Time
}

// Timer is the subset of *time.Timer the hub needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it via a wrapper.
type AfterFunc func(d time.Duration, f func()) Timer

const (
	DefaultTTL   = 4 * time.Second
	DefaultGrace = 150 * time.Millisecond
)

// Options configure a Hub. Zero values use the defaults.
type Options struct {
	TTL       time.Duration
	Grace     time.Duration
	AfterFunc AfterFunc
	Now       func() time.Time
}

// Hub owns the toast list, the toast id sequence and the busy signal. It is
// safe for concurrent use.
type Hub struct {
	ttl       time.Duration
	grace     time.Duration
	afterFunc AfterFunc
	now       func() time.Time

	mu          sync.Mutex
	nextID      uint64
	toasts      []Toast
	toastTimers map[uint64]Timer
	inFlight    int
	busy        bool
	hideTimer   Timer
	hideGen     uint64
	closed      bool

	changes chan struct{}
}

// NewHub builds a Hub.
func NewHub(opts Options) *Hub {
	h := &Hub{
		ttl:         opts.TTL,
		grace:       opts.Grace,
		afterFunc:   opts.AfterFunc,
		now:         opts.Now,
		toastTimers: make(map[uint64]Timer),
		changes:     make(chan struct{}, 1),
	}
	if h.ttl <= 0 {
		h.ttl = DefaultTTL
	}
	if h.grace <= 0 {
		h.grace = DefaultGrace
	}
	if h.afterFunc == nil {
		h.afterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Changes signals whenever toasts or the busy state change. Signals coalesce:
// a reader that falls behind sees one pending signal, not a backlog.
func (h *Hub) Changes() <-chan struct{} {
	return h.changes
}

// Begin marks a request as started. The busy signal turns on immediately.
func (h *Hub) Begin() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.inFlight++
	if h.hideTimer != nil {
		h.hideTimer.Stop()
		h.hideTimer = nil
	}
	h.hideGen++
	if !h.busy {
		h.busy = true
		h.signal()
	}
}

// End marks a request as settled. When nothing is left in flight the busy
// signal turns off after the grace window, unless another Begin comes first.
func (h *Hub) End() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.inFlight == 0 {
		return
	}
	h.inFlight--
	if h.inFlight > 0 || h.closed {
		return
	}
	h.hideGen++
	gen := h.hideGen
	h.hideTimer = h.afterFunc(h.grace, func() { h.hide(gen) })
}

func (h *Hub) hide(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if gen != h.hideGen || h.inFlight > 0 {
		return
	}
	h.hideTimer = nil
	if h.busy {
		h.busy = false
		h.signal()
	}
}

// Busy reports the debounced busy signal.
func (h *Hub) Busy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.busy
}

// InFlight reports how many requests are outstanding.
func (h *Hub) InFlight() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inFlight
}

// Push adds a toast with the default TTL.
func (h *Hub) Push(kind Kind, title, description string) Toast {
	return h.PushTTL(kind, title, description, h.ttl)
}

// PushTTL adds a toast that removes itself after ttl.
func (h *Hub) PushTTL(kind Kind, title, description string, ttl time.Duration) Toast {
	if ttl <= 0 {
		ttl = h.ttl
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	toast := Toast{
		ID:          h.nextID,
		Kind:        kind,
		Title:       title,
		Description: description,
		TTL:         ttl,
		CreatedAt:   h.now(),
	}
	h.toasts = append(h.toasts, toast)
	if !h.closed {
		id := toast.ID
		h.toastTimers[id] = h.afterFunc(ttl, func() { h.Dismiss(id) })
	}
	h.signal()
	return toast
}

// Info pushes an info toast.
func (h *Hub) Info(title, description string) Toast {
	return h.Push(KindInfo, title, description)
}

// Success pushes a success toast.
func (h *Hub) Success(title, description string) Toast {
	return h.Push(KindSuccess, title, description)
}

// Error pushes an error toast.
func (h *Hub) Error(title, description string) Toast {
	return h.Push(KindError, title, description)
}

// Dismiss removes a toast. It reports whether the toast was still present.
func (h *Hub) Dismiss(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if timer, ok := h.toastTimers[id]; ok {
		timer.Stop()
		delete(h.toastTimers, id)
	}
	for i, toast := range h.toasts {
		if toast.ID == id {
			h.toasts = append(h.toasts[:i], h.toasts[i+1:]...)
			h.signal()
			return true
		}
	}
	return false
}

// Toasts returns the live toasts in creation order.
func (h *Hub) Toasts() []Toast {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.toasts) == 0 {
		return nil
	}
	dup := make([]Toast, len(h.toasts))
	copy(dup, h.toasts)
	return dup
}

// Close stops every pending timer. Toasts pushed afterwards never expire.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, timer := range h.toastTimers {
		timer.Stop()
		delete(h.toastTimers, id)
	}
	if h.hideTimer != nil {
		h.hideTimer.Stop()
		h.hideTimer = nil
	}
}

// signal must be called with mu held.
func (h *Hub) signal() {
	select {
	case h.changes <- struct{}{}:
	default:
	}
}
