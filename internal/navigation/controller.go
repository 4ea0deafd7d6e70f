package navigation

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Phase is the transition state of the controller.
type Phase int

// Transition phases. A navigation moves Idle -> FadingOut -> Committing ->
// FadingIn -> Idle.
const (
	PhaseIdle Phase = iota
	PhaseFadingOut
	PhaseCommitting
	PhaseFadingIn
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFadingOut:
		return "fading-out"
	case PhaseCommitting:
		return "committing"
	case PhaseFadingIn:
		return "fading-in"
	default:
		return "unknown"
	}
}

// Timing holds the two transition delays.
type Timing struct {
	FadeOut time.Duration
	FadeIn  time.Duration
}

// DefaultTiming is the site's cross-fade: 500ms out, 50ms settle.
var DefaultTiming = Timing{FadeOut: 500 * time.Millisecond, FadeIn: 50 * time.Millisecond}

// Host is the browser surface the controller drives.
type Host interface {
	// PushState adds a history entry carrying the view as its payload.
	PushState(state View, path string)
	// ScrollToTop moves the viewport back to the origin.
	ScrollToTop()
}

// State is a snapshot of the controller.
type State struct {
	View          View  `json:"view"`
	Target        View  `json:"target"`
	Phase         Phase `json:"phase"`
	Transitioning bool  `json:"transitioning"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) Option {
	return func(c *Controller) { c.timing = t }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.log = logger }
}

// Controller owns the current view and sequences transitions between views.
// Every accepted navigation bumps a generation counter; a scheduled step only
// acts while its generation is current, so the last request always wins.
type Controller struct {
	mu            sync.Mutex
	host          Host
	sched         Scheduler
	timing        Timing
	log           *zap.Logger
	current       View
	target        View
	phase         Phase
	transitioning bool
	generation    uint64
	listeners     map[int]func(State)
	nextListener  int
}

// NewController creates a controller showing the home view.
func NewController(host Host, sched Scheduler, opts ...Option) *Controller {
	c := &Controller{
		host:      host,
		sched:     sched,
		timing:    DefaultTiming,
		log:       zap.NewNop(),
		current:   Home(),
		target:    Home(),
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount derives the initial view from the location the page was loaded at.
// No history entry is pushed and no transition runs.
func (c *Controller) Mount(location string) View {
	v := ParsePath(location)
	c.mu.Lock()
	c.generation++
	c.current, c.target = v, v
	c.phase, c.transitioning = PhaseIdle, false
	snap := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, snap)
	return v
}

// Navigate requests a move to {kind, id}. title, when non-empty, is used to
// derive the insight slug. It returns false when the request equals the
// latest requested view, in which case nothing happens.
func (c *Controller) Navigate(kind Kind, id, title string) bool {
	v := NewView(kind, id)

	c.mu.Lock()
	if v.Equal(c.target) {
		c.mu.Unlock()
		return false
	}
	c.generation++
	gen := c.generation
	c.target = v
	c.phase = PhaseFadingOut
	c.transitioning = true
	path := PathFor(v, title)
	snap := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()

	c.log.Debug("navigate", zap.String("view", v.String()), zap.String("path", path), zap.Uint64("generation", gen))
	c.host.PushState(v, path)
	notify(listeners, snap)
	c.sched.AfterFunc(c.timing.FadeOut, func() { c.commit(gen) })
	return true
}

// Pop handles history back/forward. The payload stored with the entry wins
// over the location when present. The view is committed immediately and any
// in-flight transition is superseded.
func (c *Controller) Pop(location string, state *View) View {
	v := ParsePath(location)
	if state != nil {
		v = NewView(state.Kind, state.ID)
	}

	c.mu.Lock()
	c.generation++
	c.current, c.target = v, v
	c.phase, c.transitioning = PhaseIdle, false
	snap := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, snap)
	return v
}

// Current returns the committed view.
func (c *Controller) Current() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn for every state change and returns a function
// removing it.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) commit(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Debug("stale transition dropped", zap.Uint64("generation", gen))
		return
	}
	c.phase = PhaseCommitting
	c.current = c.target
	c.mu.Unlock()

	c.host.ScrollToTop()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseFadingIn
	snap := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, snap)
	c.sched.AfterFunc(c.timing.FadeIn, func() { c.settle(gen) })
}

func (c *Controller) settle(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseIdle
	c.transitioning = false
	snap := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, snap)
}

func (c *Controller) snapshotLocked() State {
	return State{
		View:          c.current,
		Target:        c.target,
		Phase:         c.phase,
		Transitioning: c.transitioning,
	}
}

func (c *Controller) listenersLocked() []func(State) {
	out := make([]func(State), 0, len(c.listeners))
	for i := 0; i < c.nextListener; i++ {
		if fn, ok := c.listeners[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(listeners []func(State), s State) {
	for _, fn := range listeners {
		fn(s)
	}
}
