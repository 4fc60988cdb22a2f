package utilities

import (
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal/data"
)

// Timers records elapsed time per group (one group per endpoint)
type Timers interface {
	Start(group string) int
	Stop(group string, index int) time.Duration
	ReadAll() *data.Timers
	Clear()
}

type timer struct {
	start time.Time
	stop  time.Time
}

type timers struct {
	sync.Mutex
	timers map[string][]*timer
}

func NewTimers() Timers {
	return &timers{
		timers: make(map[string][]*timer),
	}
}

func (t *timers) Clear() {
	t.Lock()
	defer t.Unlock()

	t.timers = make(map[string][]*timer)
}

func (t *timers) Start(group string) int {
	t.Lock()
	defer t.Unlock()

	t.timers[group] = append(t.timers[group], &timer{start: time.Now()})
	return len(t.timers[group]) - 1
}

// Stop returns the elapsed time or -1 if the timer doesn't exist (e.g. the
// timers were cleared while it was running)
func (t *timers) Stop(group string, index int) time.Duration {
	t.Lock()
	defer t.Unlock()

	groupTimers := t.timers[group]
	if index < 0 || index >= len(groupTimers) {
		return -1
	}
	groupTimers[index].stop = time.Now()
	return groupTimers[index].stop.Sub(groupTimers[index].start)
}

func (t *timers) ReadAll() *data.Timers {
	t.Lock()
	defer t.Unlock()

	totals, averages := make(map[string]int64), make(map[string]int64)
	for group, groupTimers := range t.timers {
		var total time.Duration
		var stopped int64

		for _, timer := range groupTimers {
			if timer.stop.IsZero() {
				continue
			}
			total += timer.stop.Sub(timer.start)
			stopped++
		}
		totals[group] = int64(total)
		if stopped > 0 {
			averages[group] = int64(total) / stopped
		}
	}
	return &data.Timers{
		Totals:   totals,
		Averages: averages,
	}
}
