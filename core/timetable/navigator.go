package timetable

import (
	"sync"
	"time"
)

const DefaultDebounce = 200 * time.Millisecond

// WeekNavigator collapses bursts of week changes into a single load of the last requested week,
// once no other change was requested for the debounce delay.
type WeekNavigator struct {
	delay time.Duration
	load  func(weekID int)

	mu      sync.Mutex
	current int
	target  int
	gen     uint64
	timer   *time.Timer
	stopped bool
}

// NewWeekNavigator starts at week `current`; `load` runs on its own goroutine.
func NewWeekNavigator(current int, delay time.Duration, load func(weekID int)) *WeekNavigator {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	current = clampWeek(current)
	return &WeekNavigator{delay: delay, load: load, current: current, target: current}
}

func clampWeek(weekID int) int {
	if weekID < MinWeekID {
		return MinWeekID
	}
	if weekID > MaxWeekID {
		return MaxWeekID
	}
	return weekID
}

// Request asks for week `weekID` (clamped to 0-52), cancelling any load still waiting.
func (n *WeekNavigator) Request(weekID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return
	}

	n.target = clampWeek(weekID)
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if n.target == n.current {
		return
	}

	gen := n.gen
	n.timer = time.AfterFunc(n.delay, func() { n.fire(gen) })
}

// Step requests the week `delta` weeks away from the last requested one.
func (n *WeekNavigator) Step(delta int) {
	n.mu.Lock()
	target := n.target
	n.mu.Unlock()
	n.Request(target + delta)
}

func (n *WeekNavigator) fire(gen uint64) {
	n.mu.Lock()
	if gen != n.gen || n.stopped || n.target == n.current {
		n.mu.Unlock()
		return
	}
	n.current = n.target
	n.timer = nil
	weekID := n.current
	n.mu.Unlock()

	n.load(weekID)
}

// Current returns the last week that was loaded.
func (n *WeekNavigator) Current() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Target returns the last requested week.
func (n *WeekNavigator) Target() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}

// Stop cancels any waiting load. Further requests are ignored.
func (n *WeekNavigator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
