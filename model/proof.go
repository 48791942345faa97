package model

import (
	"time"
)

// ProofStatus is the review state of a submitted proof.
type ProofStatus string

const (
	ProofPending  ProofStatus = "APPROVE_PENDING"
	ProofApproved ProofStatus = "APPROVED"
	ProofRejected ProofStatus = "REJECTED"
)

// Feedback is a single supervisor's vote on a proof.
type Feedback struct {
	SupervisorID string      `json:"supervisor_id"`
	Status       ProofStatus `json:"status"` // APPROVED or REJECTED
	Comment      string      `json:"comment,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Proof is a photographic submission evidencing progress on a contract.
type Proof struct {
	ID         string      `json:"id"`
	ContractID string      `json:"contract_id"`
	UserID     string      `json:"user_id"`
	ObjectName string      `json:"-"` // storage key, never exposed directly
	ImageURL   string      `json:"image_url"`
	Comment    string      `json:"comment,omitempty"`
	ProofDate  time.Time   `json:"proof_date"` // calendar day the proof covers
	Status     ProofStatus `json:"status"`
	Feedbacks  []Feedback  `json:"feedbacks,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// VoteOf returns the feedback left by a supervisor, or nil.
func (p *Proof) VoteOf(supervisorID string) *Feedback {
	for i := range p.Feedbacks {
		if p.Feedbacks[i].SupervisorID == supervisorID {
			return &p.Feedbacks[i]
		}
	}
	return nil
}

// Clone returns a deep copy that shares no mutable state with the original.
func (p *Proof) Clone() *Proof {
	clone := *p
	clone.Feedbacks = make([]Feedback, len(p.Feedbacks))
	copy(clone.Feedbacks, p.Feedbacks)
	return &clone
}

// CountVotes returns the number of approve and reject votes.
func (p *Proof) CountVotes() (approved, rejected int) {
	for _, f := range p.Feedbacks {
		switch f.Status {
		case ProofApproved:
			approved++
		case ProofRejected:
			rejected++
		}
	}
	return approved, rejected
}
