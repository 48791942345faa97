package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/config"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/model"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/pkg/metrics"
)

// Resolver drives the server-side contract lifecycle on a fixed tick:
// activation of signed contracts, failure of contracts that never got a
// signature, auto-approval of stale proofs, and final resolution.
type Resolver struct {
	store            Store
	interval         time.Duration
	autoApproveAfter time.Duration
}

func NewResolver(store Store, cfg *config.ResolverConfig) *Resolver {
	return &Resolver{
		store:            store,
		interval:         time.Duration(cfg.IntervalSeconds) * time.Second,
		autoApproveAfter: time.Duration(cfg.AutoApproveAfterHour) * time.Hour,
	}
}

// Run ticks until the context is cancelled.
func (r *Resolver) Run(ctx context.Context) {
	slog.Info("resolver started",
		"interval", r.interval,
		"auto_approve_after", r.autoApproveAfter,
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("resolver stopped")
			return
		case <-ticker.C:
			if err := r.Tick(ctx, time.Now()); err != nil {
				slog.Error("resolver tick failed", "error", err)
			}
		}
	}
}

// Tick runs one resolution pass at the given time.
func (r *Resolver) Tick(ctx context.Context, now time.Time) error {
	if err := r.activatePending(ctx, now); err != nil {
		return fmt.Errorf("activate pending: %w", err)
	}
	if err := r.autoApproveProofs(ctx, now); err != nil {
		return fmt.Errorf("auto-approve proofs: %w", err)
	}
	if err := r.resolveInProgress(ctx, now); err != nil {
		return fmt.Errorf("resolve in-progress: %w", err)
	}
	if err := r.settleWaitResult(ctx); err != nil {
		return fmt.Errorf("settle wait-result: %w", err)
	}
	return nil
}

// activatePending promotes signed contracts whose start date has arrived and
// fails contracts that reached their start date without a single signature.
func (r *Resolver) activatePending(ctx context.Context, now time.Time) error {
	pending, err := r.store.ListContractsByStatus(ctx, model.StatusPending)
	if err != nil {
		return err
	}

	for _, c := range pending {
		if now.Before(c.StartDate) {
			continue
		}

		if c.SignedCount() >= 1 {
			c.Status = model.StatusInProgress
			metrics.ContractsTotal.WithLabelValues(string(model.StatusInProgress)).Inc()
			slog.Info("contract activated", "contract_id", c.ID)
		} else {
			c.Status = model.StatusFailed
			metrics.ContractsTotal.WithLabelValues(string(model.StatusFailed)).Inc()
			slog.Info("contract failed without signature", "contract_id", c.ID)
		}
		if err := r.store.SaveContract(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// autoApproveProofs approves proofs that sat unreviewed past the window.
func (r *Resolver) autoApproveProofs(ctx context.Context, now time.Time) error {
	stale, err := r.store.ListPendingProofs(ctx, now.Add(-r.autoApproveAfter))
	if err != nil {
		return err
	}

	for _, p := range stale {
		p.Status = model.ProofApproved
		if err := r.store.SaveProof(ctx, p); err != nil {
			return err
		}
		metrics.ProofAutoApprovedTotal.Inc()
		metrics.ProofsTotal.WithLabelValues("auto_approved").Inc()
		slog.Info("proof auto-approved", "proof_id", p.ID, "contract_id", p.ContractID)
	}
	return nil
}

// resolveInProgress moves contracts past their end date into WAIT_RESULT.
func (r *Resolver) resolveInProgress(ctx context.Context, now time.Time) error {
	active, err := r.store.ListContractsByStatus(ctx, model.StatusInProgress)
	if err != nil {
		return err
	}

	for _, c := range active {
		if !now.After(c.EndDate) {
			continue
		}
		c.Status = model.StatusWaitResult
		metrics.ContractsTotal.WithLabelValues(string(model.StatusWaitResult)).Inc()
		slog.Info("contract awaiting result", "contract_id", c.ID)
		if err := r.store.SaveContract(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// settleWaitResult completes or fails contracts once every proof is settled.
func (r *Resolver) settleWaitResult(ctx context.Context) error {
	waiting, err := r.store.ListContractsByStatus(ctx, model.StatusWaitResult)
	if err != nil {
		return err
	}

	for _, c := range waiting {
		_, approved, pending, err := r.store.CountProofs(ctx, c.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			continue // votes or auto-approval still outstanding
		}

		if approved >= c.TargetProofs {
			c.Status = model.StatusCompleted
		} else {
			c.Status = model.StatusFailed
		}
		metrics.ContractsTotal.WithLabelValues(string(c.Status)).Inc()
		slog.Info("contract settled",
			"contract_id", c.ID,
			"status", c.Status,
			"approved", approved,
			"target", c.TargetProofs,
		)
		if err := r.store.SaveContract(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
