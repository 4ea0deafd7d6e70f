package navigation

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay. The controller drives every
// transition step through one Scheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

// RealScheduler schedules on the runtime timer wheel.
func RealScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler is a Scheduler whose clock only moves when Advance is
// called. Callbacks run synchronously inside Advance, in due order.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	sched   *ManualScheduler
	due     time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewManualScheduler returns a scheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc registers f to run once the clock has advanced by d.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{sched: s, due: s.now + d, seq: s.seq, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that becomes due,
// including timers scheduled by callbacks fired during this call.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.due
		next.fired = true
		s.mu.Unlock()
		next.fn()
	}
}

// Pending returns the number of timers that have neither fired nor stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// Elapsed returns the current manual clock reading.
func (s *ManualScheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) nextDue(limit time.Duration) *manualTimer {
	var live []*manualTimer
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.Slice(live, func(i, j int) bool {
		if live[i].due != live[j].due {
			return live[i].due < live[j].due
		}
		return live[i].seq < live[j].seq
	})
	if len(live) == 0 || live[0].due > limit {
		return nil
	}
	return live[0]
}

func (t *manualTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
