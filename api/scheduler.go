/*
scheduler.go - Background cache reconciliation sweep

PURPOSE:
  Periodically recomputes every cached balance (item stock, customer
  due) from its ledger and corrects drift. Drift should be rare - the
  storage layer commits fact + increment as one unit - but the sweep is
  the safety net that makes a corrupted cache self-healing instead of
  permanent.

DESIGN:
  - Background goroutine with a configurable check interval
  - Sweeps all items, then all customers; logs every correction
  - Errors on one entity never stop the sweep

USAGE:
  scheduler := NewReconciliationScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/pos-engine/store/sqlite"
)

// ReconciliationScheduler drives the periodic drift sweep.
type ReconciliationScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReconciliationScheduler creates a new scheduler.
func NewReconciliationScheduler(store *sqlite.Store, handler *Handler) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReconciliationScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.sweep()

	for {
		select {
		case <-rs.ticker.C:
			rs.sweep()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReconciliationScheduler) sweep() {
	ctx := context.Background()
	corrected := 0

	itemIDs, err := rs.Store.ItemIDs(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing items: %v", err)
	}
	for _, id := range itemIDs {
		report, err := rs.Handler.Inventory.Reconcile(ctx, id)
		if err != nil {
			log.Printf("[Scheduler] Error reconciling item %s: %v", id, err)
			continue
		}
		if report.Corrected {
			corrected++
			log.Printf("[Scheduler] Corrected stock drift on item %s: cached %s, computed %s",
				id, report.Cached, report.Computed)
		}
	}

	customerIDs, err := rs.Store.CustomerIDs(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing customers: %v", err)
	}
	for _, id := range customerIDs {
		report, err := rs.Handler.Khata.Reconcile(ctx, id)
		if err != nil {
			log.Printf("[Scheduler] Error reconciling customer %s: %v", id, err)
			continue
		}
		if report.Corrected {
			corrected++
			log.Printf("[Scheduler] Corrected due drift on customer %s: cached %s, computed %s",
				id, report.Cached, report.Computed)
		}
	}

	if corrected > 0 {
		log.Printf("[Scheduler] Sweep complete, %d caches corrected", corrected)
	}
}
