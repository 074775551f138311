// Package registry is the gateway to the on-chain credential registry
// contract. The contract is the sole authority for credential validity and
// issuer authorization; this package only moves facts across the ABI
// boundary and never caches or reinterprets them.
package registry

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"dhruva/pkg/platform/sentinel"
)

// errUnreachable marks errors from a registry that could not be reached at
// all, as opposed to a registry that answered "does not exist".
var errUnreachable = fmt.Errorf("registry unreachable: %w", sentinel.ErrUnavailable)

// Fact mirrors the verifyCredential(bytes32) return tuple. Exists, Revoked
// and Expired are authoritative; everything else is identity/display data
// anchored at issuance time.
type Fact struct {
	Exists     bool   `json:"exists"`
	Revoked    bool   `json:"revoked"`
	Expired    bool   `json:"expired"`
	Issuer     string `json:"issuer"`
	Holder     string `json:"holder"`
	IssuedAt   int64  `json:"issuedAt"`   // epoch seconds
	ExpiryDate int64  `json:"expiryDate"` // epoch seconds
	Name       string `json:"name"`
	Experience string `json:"experience"`
}

// IssueParams carries one issueCredential call.
type IssueParams struct {
	Holder     string
	Hash       string
	ExpiryDate int64 // epoch seconds, must be in the future
	Name       string
	Experience string
}

// DocumentParams carries one registerDocument call.
type DocumentParams struct {
	Hash             string
	ValidFrom        int64
	ValidTo          int64
	OrganizationName string
}

// Registry is the full contract surface the application consumes.
// Read calls return wrapped sentinel.ErrUnavailable when the RPC layer is
// unreachable so callers can tell "does not exist" from "could not
// determine".
type Registry interface {
	Verify(ctx context.Context, hash string) (Fact, error)
	Issue(ctx context.Context, p IssueParams) error
	Revoke(ctx context.Context, hash string) error

	RegisterDID(ctx context.Context, did string) error
	DIDOf(ctx context.Context, address string) (string, error)

	RegisterDocument(ctx context.Context, p DocumentParams) error
	IsDocumentRegistered(ctx context.Context, hash string) (bool, error)

	AuthorizeIssuer(ctx context.Context, address string) error
	RevokeIssuer(ctx context.Context, address string) error
	IsAuthorizedIssuer(ctx context.Context, address string) (bool, error)
	Owner(ctx context.Context) (string, error)

	HolderCredentials(ctx context.Context, address string) ([]string, error)
	IssuerCredentials(ctx context.Context, address string) ([]string, error)

	// ContractAddress returns the registry address (lowercase hex). Issuance
	// refuses to mint credentials whose holder is the contract itself.
	ContractAddress() string
}

// ParseHash decodes a 0x-prefixed 32-byte hex hash.
func ParseHash(hash string) ([32]byte, error) {
	var out [32]byte
	h := strings.TrimPrefix(strings.TrimSpace(hash), "0x")
	if len(h) != 64 {
		return out, fmt.Errorf("credential hash must be 32 bytes, got %d hex chars", len(h))
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return out, fmt.Errorf("credential hash is not valid hex: %w", err)
	}
	copy(out[:], raw)
	return out, nil
}

// HashString encodes a 32-byte hash as 0x-prefixed lowercase hex.
func HashString(hash [32]byte) string {
	return "0x" + hex.EncodeToString(hash[:])
}
