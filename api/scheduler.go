/*
scheduler.go - Automated monthly allocation scheduler

PURPOSE:
  Periodically checks for users whose last allocation predates the
  current billing month and grants their monthly coins automatically.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - A user is due when LastAllocation is before the start of the
    current month (a zero LastAllocation means never allocated: due)
  - Granting is idempotent across passes because a successful grant
    stamps LastAllocation

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAllocationScheduler(store, economyManager)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: MonthlyAllocation endpoint (manual grant)
  - economy/manager.go: The grant itself
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/alpharise/coin-engine/economy"
)

// AllocationScheduler grants monthly allocations in the background.
type AllocationScheduler struct {
	Store         economy.Store
	Economy       *economy.Manager
	CheckInterval time.Duration
	Enabled       bool

	// Clock returns the current time. Override in tests.
	Clock func() time.Time

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAllocationScheduler creates a new scheduler.
func NewAllocationScheduler(store economy.Store, eco *economy.Manager) *AllocationScheduler {
	return &AllocationScheduler{
		Store:         store,
		Economy:       eco,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Clock:         time.Now,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (as *AllocationScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)

	go as.run()

	log.Printf("[Scheduler] Started with check interval: %v", as.CheckInterval)
}

// Stop stops the scheduler.
func (as *AllocationScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (as *AllocationScheduler) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.RunNow()

	for {
		select {
		case <-as.ticker.C:
			as.RunNow()
		case <-as.stop:
			return
		}
	}
}

// RunNow performs one allocation pass and returns how many users were
// granted. Also called by the ticker loop.
func (as *AllocationScheduler) RunNow() int {
	ctx := context.Background()
	now := as.Clock().UTC()
	monthStart := economy.StartOfMonth(now)

	profiles, err := as.Store.ListProfiles(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing profiles: %v", err)
		return 0
	}

	granted := 0
	for _, p := range profiles {
		if !p.LastAllocation.Before(monthStart) {
			continue // already allocated this month
		}

		tx, err := as.Economy.MonthlyAllocation(ctx, p.UserID)
		if err != nil {
			log.Printf("[Scheduler] Error allocating for %s: %v", p.UserID, err)
			continue
		}

		observeTransactions(toTransactionDTO(*tx))
		allocationsGranted.Inc()
		granted++
	}

	allocationRuns.Inc()
	if granted > 0 {
		log.Printf("[Scheduler] Granted %d monthly allocations", granted)
	}
	return granted
}
