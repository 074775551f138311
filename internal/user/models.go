// Package user owns accounts: password-based signup and login plus the
// wallet-first auth path where an address alone is enough to get an account.
package user

import "time"

// Role determines which frontend surfaces an account sees. It carries no
// on-chain authority; issuer permissions live in the registry contract.
type Role string

const (
	RoleUser     Role = "user"
	RoleOrg      Role = "org"
	RoleVerifier Role = "verifier"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleOrg, RoleVerifier:
		return true
	}
	return false
}

// Account is one user. WalletAddress is optional and unique when set;
// wallet-first accounts have no password until one is set via signup flows.
type Account struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	WalletAddress string    `json:"walletAddress,omitempty"` // lowercase
	Role          Role      `json:"role"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	Organisation  string    `json:"organisation,omitempty"`
	DID           string    `json:"did,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProfileUpdate carries the mutable profile fields. Nil pointers mean
// "leave unchanged" so a PUT can be partial.
type ProfileUpdate struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Organisation *string `json:"organisation"`
	DID          *string `json:"did"`
	Role         *Role   `json:"role"`
}
