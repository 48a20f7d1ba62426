// Package frame runs per-frame systems in phase order.
package frame

import (
	"context"
	"sort"
	"time"
)

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseSync     Phase = iota // apply pending remote snapshots
	PhaseSimulate              // physics and player actions
	PhaseOutput                // outbound writes
)

func (p Phase) String() string {
	switch p {
	case PhaseSync:
		return "sync"
	case PhaseSimulate:
		return "simulate"
	case PhaseOutput:
		return "output"
	}
	return "unknown"
}

// System is one unit of per-frame work. dt is in seconds.
type System interface {
	Phase() Phase
	Update(dt float64) error
}

// Func adapts a function to System.
type Func struct {
	P  Phase
	Fn func(dt float64) error
}

func (f Func) Phase() Phase            { return f.P }
func (f Func) Update(dt float64) error { return f.Fn(dt) }

// Runner executes systems in phase order each frame. Systems in the same
// phase run in registration order.
type Runner struct {
	systems []System
	sorted  bool
	skip    func(Phase) bool
}

func NewRunner() *Runner {
	return &Runner{systems: make([]System, 0, 8)}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// SkipWhen installs a predicate consulted once per phase per frame.
func (r *Runner) SkipWhen(fn func(Phase) bool) { r.skip = fn }

// Tick runs every system. The first error stops the frame.
func (r *Runner) Tick(dt float64) error {
	r.ensureSorted()
	var (
		cur     Phase = -1
		skipped bool
	)
	for _, s := range r.systems {
		if s.Phase() != cur {
			cur = s.Phase()
			skipped = r.skip != nil && r.skip(cur)
		}
		if skipped {
			continue
		}
		if err := s.Update(dt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}

// Loop re-arms a frame callback at a fixed rate and passes it the measured
// wall-clock delta since the previous frame.
type Loop struct {
	interval time.Duration
	now      func() time.Time
}

func NewLoop(hz int) *Loop {
	if hz <= 0 {
		hz = 60
	}
	return &Loop{interval: time.Second / time.Duration(hz), now: time.Now}
}

func (l *Loop) Interval() time.Duration { return l.interval }

// Run calls fn until ctx ends or fn returns an error.
func (l *Loop) Run(ctx context.Context, fn func(dt float64) error) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := l.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := l.now()
			dt := now.Sub(last).Seconds()
			last = now
			if err := fn(dt); err != nil {
				return err
			}
		}
	}
}
