package model

import (
	"time"
)

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

const (
	StatusPending    ContractStatus = "PENDING"     // created, waiting for a supervisor signature
	StatusInProgress ContractStatus = "IN_PROGRESS" // activated, accepting proofs
	StatusWaitResult ContractStatus = "WAIT_RESULT" // past end date, pending proofs still settling
	StatusCompleted  ContractStatus = "COMPLETED"
	StatusFailed     ContractStatus = "FAILED"
	StatusAbandoned  ContractStatus = "ABANDONED"
)

// Terminal reports whether the status is an end state.
func (s ContractStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAbandoned:
		return true
	}
	return false
}

// Supervisor is a participant invited to oversee a contract.
// SignedAt is nil until the supervisor signs.
type Supervisor struct {
	UserID   string     `json:"user_id"`
	Nickname string     `json:"nickname"`
	SignedAt *time.Time `json:"signed_at,omitempty"`
}

// Contract represents a goal-commitment contract: a time-boxed goal with a
// reward, a penalty, and supervisors who approve periodic proofs.
type Contract struct {
	ID              string         `json:"id"`
	CreatorID       string         `json:"creator_id"`
	CreatorNickname string         `json:"creator_nickname"`
	Title           string         `json:"title"`
	Goal            string         `json:"goal"`
	Reward          string         `json:"reward"`
	Penalty         string         `json:"penalty"`
	OneOff          bool           `json:"one_off"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
	TargetProofs    int            `json:"target_proofs"`
	Status          ContractStatus `json:"status"`
	Supervisors     []Supervisor   `json:"supervisors"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// SignedCount returns the number of supervisors that have signed.
func (c *Contract) SignedCount() int {
	count := 0
	for _, s := range c.Supervisors {
		if s.SignedAt != nil {
			count++
		}
	}
	return count
}

// FindSupervisor returns the supervisor entry for a user, or nil.
func (c *Contract) FindSupervisor(userID string) *Supervisor {
	for i := range c.Supervisors {
		if c.Supervisors[i].UserID == userID {
			return &c.Supervisors[i]
		}
	}
	return nil
}

// Clone returns a deep copy that shares no mutable state with the original.
func (c *Contract) Clone() *Contract {
	clone := *c
	clone.Supervisors = make([]Supervisor, len(c.Supervisors))
	copy(clone.Supervisors, c.Supervisors)
	for i, s := range c.Supervisors {
		if s.SignedAt != nil {
			signedAt := *s.SignedAt
			clone.Supervisors[i].SignedAt = &signedAt
		}
	}
	return &clone
}
