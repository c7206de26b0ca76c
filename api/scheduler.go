/*
scheduler.go - Automated monthly charge generation

PURPOSE:
  Periodically makes sure the current month's standard charges exist
  for every apartment. Generation is idempotent, so checking more
  often than monthly is harmless.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Generates for the current calendar month on every tick
  - Already-generated months produce zero new charges
  - Applies any standing credit to freshly created charges

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewGenerationScheduler(engine)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GenerateCharges endpoint (manual generation)
  - ledger/generate.go: The generator itself
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/atrium/condo-engine/ledger"
)

// GenerationScheduler keeps the current month's charges generated.
type GenerationScheduler struct {
	Engine        *ledger.Engine
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewGenerationScheduler creates a new scheduler.
func NewGenerationScheduler(engine *ledger.Engine) *GenerationScheduler {
	return &GenerationScheduler{
		Engine:        engine,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (gs *GenerationScheduler) Start() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	gs.ticker = time.NewTicker(gs.CheckInterval)
	gs.wg.Add(1)

	go gs.run()

	log.Printf("[Scheduler] Started with check interval: %v", gs.CheckInterval)
}

// Stop stops the scheduler.
func (gs *GenerationScheduler) Stop() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.ticker != nil {
		gs.ticker.Stop()
		close(gs.stop)
		gs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (gs *GenerationScheduler) run() {
	defer gs.wg.Done()

	// Run immediately on start
	gs.checkAndGenerate()

	for {
		select {
		case <-gs.ticker.C:
			gs.checkAndGenerate()
		case <-gs.stop:
			return
		}
	}
}

func (gs *GenerationScheduler) checkAndGenerate() {
	ctx := context.Background()
	now := time.Now()

	res, err := gs.Engine.GenerateMonthly(ctx, now.Year(), now.Month())
	if err != nil {
		if err == ledger.ErrNoApartments {
			log.Println("[Scheduler] No apartments configured, nothing to generate")
			return
		}
		log.Printf("[Scheduler] Generation failed for %d-%02d: %v", now.Year(), now.Month(), err)
		return
	}
	if res.Created > 0 {
		log.Printf("[Scheduler] Generated %d charges for %d-%02d (credit applied: %s)",
			res.Created, now.Year(), now.Month(), res.CreditApplied.String())
	}
}
