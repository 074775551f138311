package audit

import "time"

// Action names one auditable thing that happened.
type Action string

const (
	ActionCredentialStored  Action = "credential_stored"
	ActionCredentialIssued  Action = "credential_issued"
	ActionCredentialRevoked Action = "credential_revoked"
	ActionIntentReconciled  Action = "intent_reconciled"
	ActionIntentFailed      Action = "intent_failed"
	ActionUserCreated       Action = "user_created"
	ActionWalletLinked      Action = "wallet_linked"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"` // wallet address or username
	Action    Action    `json:"action"`
	Hash      string    `json:"hash,omitempty"` // credential hash when applicable
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
}
