package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Claim is a user's assertion that an item belongs to them.
type Claim struct {
	ID           int64     `json:"id"`
	ItemID       int64     `json:"itemId"`
	ClaimantID   int64     `json:"claimantId"`
	ProofMessage string    `json:"proofMessage"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Joined fields (not always populated).
	Item     *Item        `json:"item,omitempty"`
	Claimant *UserSummary `json:"claimant,omitempty"`
}

// Claim statuses. Approved and rejected are terminal.
const (
	ClaimStatusPending  = "pending"
	ClaimStatusApproved = "approved"
	ClaimStatusRejected = "rejected"
)

// Field limits.
const (
	MinProofLength  = 10
	MaxProofLength  = 500
	MaxReasonLength = 200
)

// Terminal reports whether the claim can no longer change status.
func (c *Claim) Terminal() bool {
	return c.Status == ClaimStatusApproved || c.Status == ClaimStatusRejected
}

// ValidateProof checks the proof-of-ownership message length.
func ValidateProof(proof string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(proof))
	switch {
	case n == 0:
		return errors.New("please provide proof of ownership")
	case n < MinProofLength:
		return errors.New("proof message must be at least 10 characters")
	case n > MaxProofLength:
		return errors.New("proof message cannot be more than 500 characters")
	}
	return nil
}
