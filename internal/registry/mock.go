package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"dhruva/pkg/platform/sentinel"
	"dhruva/pkg/requestcontext"
)

// Mock is a deterministic in-memory Registry for development and tests. It
// enforces the same rules the contract does: unique hashes, one-way
// revocation, owner-gated issuer management. A configurable latency mimics
// real consensus delay.
type Mock struct {
	mu sync.RWMutex

	Latency  time.Duration
	contract string
	owner    string

	facts       map[string]Fact
	authorized  map[string]bool
	dids        map[string]string
	documents   map[string]DocumentParams
	byHolder    map[string][]string
	byIssuer    map[string][]string
	issuerAddr  string // identity used for writes
	Unavailable bool   // when set, every call fails as unreachable
}

// NewMock creates a mock registry owned by the given address.
func NewMock(owner, contractAddress string) *Mock {
	return &Mock{
		contract:   strings.ToLower(contractAddress),
		owner:      strings.ToLower(owner),
		issuerAddr: strings.ToLower(owner),
		facts:      make(map[string]Fact),
		authorized: make(map[string]bool),
		dids:       make(map[string]string),
		documents:  make(map[string]DocumentParams),
		byHolder:   make(map[string][]string),
		byIssuer:   make(map[string][]string),
	}
}

// ActAs switches the identity used for subsequent writes.
func (m *Mock) ActAs(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issuerAddr = strings.ToLower(address)
}

func (m *Mock) ContractAddress() string { return m.contract }

func (m *Mock) wait(ctx context.Context) error {
	if m.Unavailable {
		return fmt.Errorf("mock registry: %w", errUnreachable)
	}
	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.Latency):
		}
	}
	return nil
}

func (m *Mock) Verify(ctx context.Context, hash string) (Fact, error) {
	if err := m.wait(ctx); err != nil {
		return Fact{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	fact, ok := m.facts[normalizeHash(hash)]
	if !ok {
		return Fact{}, nil // Exists=false, mirroring the contract's zero tuple
	}
	fact.Expired = fact.ExpiryDate <= requestcontext.Now(ctx).Unix()
	return fact, nil
}

func (m *Mock) Issue(ctx context.Context, p IssueParams) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if _, err := ParseHash(p.Hash); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalizeHash(p.Hash)
	if _, exists := m.facts[key]; exists {
		return fmt.Errorf("mock registry: credential already issued: %w", sentinel.ErrConflict)
	}
	holder := strings.ToLower(p.Holder)
	m.facts[key] = Fact{
		Exists:     true,
		Issuer:     m.issuerAddr,
		Holder:     holder,
		IssuedAt:   requestcontext.Now(ctx).Unix(),
		ExpiryDate: p.ExpiryDate,
		Name:       p.Name,
		Experience: p.Experience,
	}
	m.byHolder[holder] = append(m.byHolder[holder], key)
	m.byIssuer[m.issuerAddr] = append(m.byIssuer[m.issuerAddr], key)
	return nil
}

func (m *Mock) Revoke(ctx context.Context, hash string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalizeHash(hash)
	fact, ok := m.facts[key]
	if !ok {
		return fmt.Errorf("mock registry: credential does not exist: %w", sentinel.ErrNotFound)
	}
	// One-way transition, never reversed.
	fact.Revoked = true
	m.facts[key] = fact
	return nil
}

func (m *Mock) RegisterDID(ctx context.Context, did string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dids[m.issuerAddr] = did
	return nil
}

func (m *Mock) DIDOf(ctx context.Context, address string) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dids[strings.ToLower(address)], nil
}

func (m *Mock) RegisterDocument(ctx context.Context, p DocumentParams) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[normalizeHash(p.Hash)] = p
	return nil
}

func (m *Mock) IsDocumentRegistered(ctx context.Context, hash string) (bool, error) {
	if err := m.wait(ctx); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.documents[normalizeHash(hash)]
	return ok, nil
}

func (m *Mock) AuthorizeIssuer(ctx context.Context, address string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.issuerAddr != m.owner {
		return fmt.Errorf("mock registry: only owner can authorize issuers")
	}
	m.authorized[strings.ToLower(address)] = true
	return nil
}

func (m *Mock) RevokeIssuer(ctx context.Context, address string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.issuerAddr != m.owner {
		return fmt.Errorf("mock registry: only owner can revoke issuers")
	}
	delete(m.authorized, strings.ToLower(address))
	return nil
}

func (m *Mock) IsAuthorizedIssuer(ctx context.Context, address string) (bool, error) {
	if err := m.wait(ctx); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authorized[strings.ToLower(address)], nil
}

func (m *Mock) Owner(ctx context.Context) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	return m.owner, nil
}

func (m *Mock) HolderCredentials(ctx context.Context, address string) ([]string, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.byHolder[strings.ToLower(address)]...), nil
}

func (m *Mock) IssuerCredentials(ctx context.Context, address string) ([]string, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.byIssuer[strings.ToLower(address)]...), nil
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}
