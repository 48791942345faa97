package service

import (
	"errors"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/model"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/pkg/metrics"
)

var (
	ErrNotSupervisor  = errors.New("user is not a signed supervisor of this contract")
	ErrAlreadyVoted   = errors.New("supervisor already voted on this proof")
	ErrProofSettled   = errors.New("proof is already settled")
	ErrContractClosed = errors.New("contract is not accepting this operation")
	ErrAlreadySigned  = errors.New("supervisor already signed")
	ErrDuplicateProof = errors.New("a proof was already submitted for this day")
	ErrNotParticipant = errors.New("user is not a participant of this contract")
)

// ApplyVote records a supervisor's vote on a proof and settles the proof when
// a strict majority of signed supervisors agree. The proof is mutated in
// place; the caller persists it.
func ApplyVote(contract *model.Contract, proof *model.Proof, supervisorID string, approve bool, comment string, now time.Time) error {
	if proof.Status != model.ProofPending {
		return ErrProofSettled
	}

	sup := contract.FindSupervisor(supervisorID)
	if sup == nil || sup.SignedAt == nil {
		return ErrNotSupervisor
	}
	if proof.VoteOf(supervisorID) != nil {
		return ErrAlreadyVoted
	}

	status := model.ProofRejected
	if approve {
		status = model.ProofApproved
	}
	proof.Feedbacks = append(proof.Feedbacks, model.Feedback{
		SupervisorID: supervisorID,
		Status:       status,
		Comment:      comment,
		CreatedAt:    now,
	})

	signed := contract.SignedCount()
	approved, rejected := proof.CountVotes()
	switch {
	case approved*2 > signed:
		proof.Status = model.ProofApproved
		metrics.ProofsTotal.WithLabelValues("approved").Inc()
	case rejected*2 > signed:
		proof.Status = model.ProofRejected
		metrics.ProofsTotal.WithLabelValues("rejected").Inc()
	}

	return nil
}

// ValidateNewProof enforces the one-proof-per-contract-per-day rule against
// the contract's existing proofs.
func ValidateNewProof(existing []*model.Proof, now time.Time) error {
	for _, p := range existing {
		if sameDay(p.ProofDate, now) {
			return ErrDuplicateProof
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SignContract records a supervisor signature. The contract is mutated in
// place; the caller persists it.
func SignContract(contract *model.Contract, supervisorID string, now time.Time) error {
	if contract.Status != model.StatusPending && contract.Status != model.StatusInProgress {
		return ErrContractClosed
	}

	sup := contract.FindSupervisor(supervisorID)
	if sup == nil {
		return ErrNotParticipant
	}
	if sup.SignedAt != nil {
		return ErrAlreadySigned
	}

	sup.SignedAt = &now
	return nil
}
