// Package issuance orchestrates the two-phase write that mints a
// credential: anchor the hash on chain, then store the off-chain record.
// Every attempt is tracked as an intent so a crash between the two writes
// leaves a trail the reconciler can repair from.
package issuance

import (
	"time"

	"dhruva/internal/credential"
)

// State is the lifecycle of one issuance intent.
//
//	pending  -> the on-chain write has not been confirmed
//	anchored -> on chain, off-chain record not yet stored
//	complete -> both writes landed
//	failed   -> gave up after too many attempts
type State string

const (
	StatePending  State = "pending"
	StateAnchored State = "anchored"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

// Intent is the outbox row for one issuance. Record holds the full
// off-chain document so the reconciler can repair a missing store write
// without re-deriving anything.
type Intent struct {
	ID        string            `json:"id"`
	Hash      string            `json:"hash"`
	FileHash  string            `json:"fileHash"`
	Record    credential.Record `json:"record"`
	State     State             `json:"state"`
	Attempts  int               `json:"attempts"`
	LastError string            `json:"lastError,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Terminal reports whether the intent needs no further work.
func (i *Intent) Terminal() bool {
	return i.State == StateComplete || i.State == StateFailed
}
