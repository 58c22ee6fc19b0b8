// Package schedule provides cancellable delayed and periodic tasks.
//
// Every task returns a Timer handle. A Group collects the handles of one
// owner so that the owner can stop all of them at teardown.
package schedule

import (
	"sync"
	"time"
)

// Timer is a handle to a scheduled task.
type Timer interface {
	// Stop prevents the task from firing again. It reports whether the
	// call stopped the task; false means it already fired or was stopped.
	Stop() bool
}

// Scheduler runs functions after a delay or on a fixed period.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
}

// Real is a Scheduler backed by the time package.
type Real struct{}

// AfterFunc runs fn once after d.
func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Every runs fn every d until stopped.
func (Real) Every(d time.Duration, fn func()) Timer {
	t := &ticker{done: make(chan struct{})}
	tk := time.NewTicker(d)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-tk.C:
				fn()
			case <-t.done:
				return
			}
		}
	}()
	return t
}

type ticker struct {
	once sync.Once
	done chan struct{}
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		close(t.done)
		stopped = true
	})
	return stopped
}

// Group tracks the timers of one owner.
type Group struct {
	sched   Scheduler
	mu      sync.Mutex
	next    int
	timers  map[int]Timer
	stopped bool
}

// NewGroup creates a Group scheduling on s.
func NewGroup(s Scheduler) *Group {
	return &Group{
		sched:  s,
		timers: make(map[int]Timer),
	}
}

// AfterFunc schedules fn once. After StopAll it returns a no-op timer.
func (g *Group) AfterFunc(d time.Duration, fn func()) Timer {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return nopTimer{}
	}

	id := g.next
	g.next++
	t := g.sched.AfterFunc(d, func() {
		g.mu.Lock()
		_, live := g.timers[id]
		delete(g.timers, id)
		g.mu.Unlock()
		if live {
			fn()
		}
	})
	g.timers[id] = t
	return &groupTimer{g: g, id: id, t: t}
}

// Every schedules fn periodically. After StopAll it returns a no-op timer.
func (g *Group) Every(d time.Duration, fn func()) Timer {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return nopTimer{}
	}

	id := g.next
	g.next++
	t := g.sched.Every(d, func() {
		g.mu.Lock()
		_, live := g.timers[id]
		g.mu.Unlock()
		if live {
			fn()
		}
	})
	g.timers[id] = t
	return &groupTimer{g: g, id: id, t: t}
}

// StopAll stops every pending timer and rejects new ones.
func (g *Group) StopAll() {
	g.mu.Lock()
	timers := g.timers
	g.timers = make(map[int]Timer)
	g.stopped = true
	g.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
}

// Pending returns the number of live timers.
func (g *Group) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.timers)
}

type groupTimer struct {
	g  *Group
	id int
	t  Timer
}

func (gt *groupTimer) Stop() bool {
	gt.g.mu.Lock()
	_, live := gt.g.timers[gt.id]
	delete(gt.g.timers, gt.id)
	gt.g.mu.Unlock()
	gt.t.Stop()
	return live
}

type nopTimer struct{}

func (nopTimer) Stop() bool { return false }
