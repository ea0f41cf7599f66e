/*
scheduler.go - Background drift audit

PURPOSE:
  Periodically replays every live wallet's mutation trail and compares it
  with the stored balance. Drift is never repaired automatically; it is
  logged and exported as a metric so someone can look.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Walks owners, then their wallets, through the finance service
  - One failing wallet does not stop the pass
  - ledger_audit_wallets_drifted reports the last pass's drift count

CONFIGURATION:
  [audit] enabled / interval in the server config (default: off, 1h)

USAGE:
  scheduler := NewAuditScheduler(svc, store)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: VerifyWallet endpoint (manual check of one wallet)
  - ledger/verify.go: Replay and VerifyWallet
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/warp/wallet-ledger/finance"
	"github.com/warp/wallet-ledger/ledger"
	"github.com/warp/wallet-ledger/metrics"
)

// OwnerLister enumerates owners to audit. *sqlstore.Store implements it.
type OwnerLister interface {
	Owners(ctx context.Context) ([]ledger.OwnerID, error)
}

// AuditResult summarizes one pass.
type AuditResult struct {
	Checked int
	Drifted []ledger.WalletID
	Failed  int
}

// AuditScheduler runs the drift audit on a ticker.
type AuditScheduler struct {
	Service       *finance.Service
	Owners        OwnerLister
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAuditScheduler creates a new scheduler.
func NewAuditScheduler(svc *finance.Service, owners OwnerLister) *AuditScheduler {
	return &AuditScheduler{
		Service:       svc,
		Owners:        owners,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (as *AuditScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		log.Println("[Audit] Disabled, not starting")
		return
	}
	if as.ticker != nil {
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.stop = make(chan struct{})
	as.wg.Add(1)

	go as.run()

	log.Printf("[Audit] Started with check interval: %v", as.CheckInterval)
}

// Stop stops the scheduler and waits for a pass in progress.
func (as *AuditScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		as.ticker = nil
		log.Println("[Audit] Stopped")
	}
}

func (as *AuditScheduler) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.RunOnce(context.Background())

	for {
		select {
		case <-as.ticker.C:
			as.RunOnce(context.Background())
		case <-as.stop:
			return
		}
	}
}

// RunOnce audits every live wallet of every owner.
func (as *AuditScheduler) RunOnce(ctx context.Context) AuditResult {
	var res AuditResult

	owners, err := as.Owners.Owners(ctx)
	if err != nil {
		log.Printf("[Audit] Error listing owners: %v", err)
		return res
	}

	for _, owner := range owners {
		wallets, err := as.Service.ListWallets(ctx, owner)
		if err != nil {
			log.Printf("[Audit] Error listing wallets for %s: %v", owner, err)
			res.Failed++
			continue
		}

		for _, w := range wallets {
			_, err := as.Service.VerifyWallet(ctx, owner, w.ID)
			var drift *ledger.DriftError
			switch {
			case err == nil:
				res.Checked++
				metrics.WalletsAudited.WithLabelValues("balanced").Inc()
			case errors.As(err, &drift):
				res.Checked++
				res.Drifted = append(res.Drifted, w.ID)
				metrics.WalletsAudited.WithLabelValues("drift").Inc()
				log.Printf("[Audit] Drift on wallet %s (owner %s): %v", w.ID, owner, drift)
			default:
				res.Failed++
				metrics.WalletsAudited.WithLabelValues("error").Inc()
				log.Printf("[Audit] Error verifying wallet %s: %v", w.ID, err)
			}
		}
	}

	metrics.WalletsDrifted.Set(float64(len(res.Drifted)))
	if len(res.Drifted) > 0 || res.Failed > 0 {
		log.Printf("[Audit] Completed: %d checked, %d drifted, %d failed",
			res.Checked, len(res.Drifted), res.Failed)
	}
	return res
}
