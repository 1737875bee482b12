package scanner

import (
	"sync"
	"time"
)

// Status describes the scanner for the status endpoint.
type Status struct {
	StartTime  time.Time `json:"start_time"`
	Uptime     string    `json:"uptime"`
	Running    bool      `json:"running"`
	Progress   Progress  `json:"progress"`
	Cycles     int       `json:"cycles"`
	LastReport *Report   `json:"last_report,omitempty"`
}

// Monitor follows refresh updates and exposes the current state.
type Monitor struct {
	mu        sync.RWMutex
	startTime time.Time
	running   bool
	progress  Progress
	cycles    int
	last      *Report
	now       func() time.Time
}

// NewMonitor creates a Monitor whose uptime starts now.
func NewMonitor() *Monitor {
	return &Monitor{startTime: time.Now(), now: time.Now}
}

// Observe records one update.
func (m *Monitor) Observe(u Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = u.Progress
	if u.Report == nil {
		m.running = true
		return
	}
	report := *u.Report
	report.Trades = nil
	m.last = &report
	m.running = false
	m.cycles++
}

// Follow consumes updates until the channel is closed and returns the final report.
func (m *Monitor) Follow(updates <-chan Update) *Report {
	var final *Report
	for u := range updates {
		m.Observe(u)
		if u.Report != nil {
			final = u.Report
		}
	}
	return final
}

// Status returns the current state.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last *Report
	if m.last != nil {
		r := *m.last
		last = &r
	}
	return Status{
		StartTime:  m.startTime,
		Uptime:     m.now().Sub(m.startTime).Round(time.Second).String(),
		Running:    m.running,
		Progress:   m.progress,
		Cycles:     m.cycles,
		LastReport: last,
	}
}
