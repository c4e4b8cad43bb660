/*
scheduler.go - Month-end forecast snapshots

PURPOSE:
  Periodically saves the forecast of the month that just closed, so the
  plan as it stood at month end can be compared with later forecasts.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each check snapshots the previous month under a fixed name
  - Names are unique, so a month that was already captured is skipped
  - Runs once immediately on start

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSnapshotScheduler(forecasts)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: SaveSnapshot endpoint (manual snapshot)
  - forecast/service.go: SaveSnapshot
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/warp/staffing-engine/forecast"
	"github.com/warp/staffing-engine/generic"
)

// SnapshotScheduler saves month-end forecast snapshots.
type SnapshotScheduler struct {
	Forecasts     *forecast.Service
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSnapshotScheduler creates a new scheduler.
func NewSnapshotScheduler(forecasts *forecast.Service) *SnapshotScheduler {
	return &SnapshotScheduler{
		Forecasts:     forecasts,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// MonthEndSnapshotName is the name the scheduler saves month under.
func MonthEndSnapshotName(month generic.YearMonth) string {
	return fmt.Sprintf("month-end %s", month)
}

// Start begins the scheduler.
func (ss *SnapshotScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		log.Info("snapshot scheduler disabled, not starting")
		return
	}
	if ss.ticker != nil {
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.stop = make(chan struct{})
	ss.wg.Add(1)

	go ss.run()

	log.Infof("snapshot scheduler started with check interval %v", ss.CheckInterval)
}

// Stop stops the scheduler and waits for a running check to finish.
func (ss *SnapshotScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		ss.ticker = nil
		log.Info("snapshot scheduler stopped")
	}
}

func (ss *SnapshotScheduler) run() {
	defer ss.wg.Done()

	ss.check()

	for {
		select {
		case <-ss.ticker.C:
			ss.check()
		case <-ss.stop:
			return
		}
	}
}

func (ss *SnapshotScheduler) check() {
	if _, err := ss.RunNow(context.Background()); err != nil {
		log.WithError(err).Error("month-end snapshot failed")
	}
}

// RunNow snapshots the previous month unless it was already captured. The
// flag reports whether a snapshot was saved.
func (ss *SnapshotScheduler) RunNow(ctx context.Context) (bool, error) {
	month := generic.Today(ss.Forecasts.Clock).YearMonth().Prev()
	name := MonthEndSnapshotName(month)

	_, found, err := ss.Forecasts.Snapshots.FindSnapshotByName(ctx, name)
	if err != nil {
		return false, fmt.Errorf("look up %q: %w", name, err)
	}
	if found {
		log.Debugf("snapshot %q already saved", name)
		return false, nil
	}

	if _, err := ss.Forecasts.SaveSnapshot(ctx, month, name); err != nil {
		// another instance got there first
		if errors.Is(err, generic.ErrDuplicateSnapshot) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
