package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dhruva/pkg/platform/sentinel"
)

var callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dhruva_registry_call_duration_seconds",
	Help:    "Latency of on-chain registry calls by method",
	Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
}, []string{"method"})

// EthereumConfig wires an ABI-bound client against a deployed registry.
// PrivateKey is only required for write calls; a read-only gateway (verify,
// lookups) works without it.
type EthereumConfig struct {
	RPCURL          string
	ContractAddress string
	ABI             string // optional override of the compiled-in ABI
	PrivateKey      string // hex, no 0x prefix
	ChainID         int64
}

// Ethereum is the production Registry backed by go-ethereum.
type Ethereum struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	address  common.Address
	signer   *bind.TransactOpts
}

// NewEthereum dials the RPC endpoint and binds the registry contract.
func NewEthereum(ctx context.Context, cfg EthereumConfig) (*Ethereum, error) {
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("registry contract address is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid registry contract address %q", cfg.ContractAddress)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	abiJSON := cfg.ABI
	if abiJSON == "" {
		abiJSON = contractABI
	}
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse registry ABI: %w", err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	eth := &Ethereum{
		client:   client,
		contract: bind.NewBoundContract(address, parsed, client, client, client),
		address:  address,
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("parse chain private key: %w", err)
		}
		signer, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("build transactor: %w", err)
		}
		eth.signer = signer
	}
	return eth, nil
}

// Close releases the underlying RPC connection.
func (e *Ethereum) Close() {
	e.client.Close()
}

func (e *Ethereum) ContractAddress() string {
	return strings.ToLower(e.address.Hex())
}

func (e *Ethereum) Verify(ctx context.Context, hash string) (Fact, error) {
	hash32, err := ParseHash(hash)
	if err != nil {
		return Fact{}, err
	}

	var out []interface{}
	if err := e.call(ctx, &out, "verifyCredential", hash32); err != nil {
		return Fact{}, err
	}
	if len(out) != 9 {
		return Fact{}, fmt.Errorf("verifyCredential returned %d values, want 9", len(out))
	}
	return Fact{
		Exists:     out[0].(bool),
		Revoked:    out[1].(bool),
		Expired:    out[2].(bool),
		Issuer:     strings.ToLower(out[3].(common.Address).Hex()),
		Holder:     strings.ToLower(out[4].(common.Address).Hex()),
		IssuedAt:   out[5].(*big.Int).Int64(),
		ExpiryDate: out[6].(*big.Int).Int64(),
		Name:       out[7].(string),
		Experience: out[8].(string),
	}, nil
}

func (e *Ethereum) Issue(ctx context.Context, p IssueParams) error {
	hash32, err := ParseHash(p.Hash)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(p.Holder) {
		return fmt.Errorf("invalid holder address %q", p.Holder)
	}
	return e.transact(ctx, "issueCredential",
		common.HexToAddress(p.Holder), hash32, big.NewInt(p.ExpiryDate), p.Name, p.Experience)
}

func (e *Ethereum) Revoke(ctx context.Context, hash string) error {
	hash32, err := ParseHash(hash)
	if err != nil {
		return err
	}
	return e.transact(ctx, "revokeCredential", hash32)
}

func (e *Ethereum) RegisterDID(ctx context.Context, did string) error {
	return e.transact(ctx, "registerDID", did)
}

func (e *Ethereum) DIDOf(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address %q", address)
	}
	var out []interface{}
	if err := e.call(ctx, &out, "didRegistry", common.HexToAddress(address)); err != nil {
		return "", err
	}
	return out[0].(string), nil
}

func (e *Ethereum) RegisterDocument(ctx context.Context, p DocumentParams) error {
	hash32, err := ParseHash(p.Hash)
	if err != nil {
		return err
	}
	return e.transact(ctx, "registerDocument",
		hash32, big.NewInt(p.ValidFrom), big.NewInt(p.ValidTo), p.OrganizationName)
}

func (e *Ethereum) IsDocumentRegistered(ctx context.Context, hash string) (bool, error) {
	hash32, err := ParseHash(hash)
	if err != nil {
		return false, err
	}
	var out []interface{}
	if err := e.call(ctx, &out, "isDocumentRegistered", hash32); err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (e *Ethereum) AuthorizeIssuer(ctx context.Context, address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid issuer address %q", address)
	}
	return e.transact(ctx, "authorizeIssuer", common.HexToAddress(address))
}

func (e *Ethereum) RevokeIssuer(ctx context.Context, address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid issuer address %q", address)
	}
	return e.transact(ctx, "revokeIssuer", common.HexToAddress(address))
}

func (e *Ethereum) IsAuthorizedIssuer(ctx context.Context, address string) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, fmt.Errorf("invalid address %q", address)
	}
	var out []interface{}
	if err := e.call(ctx, &out, "authorizedIssuers", common.HexToAddress(address)); err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (e *Ethereum) Owner(ctx context.Context) (string, error) {
	var out []interface{}
	if err := e.call(ctx, &out, "owner"); err != nil {
		return "", err
	}
	return strings.ToLower(out[0].(common.Address).Hex()), nil
}

func (e *Ethereum) HolderCredentials(ctx context.Context, address string) ([]string, error) {
	return e.credentialHashes(ctx, "getHolderCredentials", address)
}

func (e *Ethereum) IssuerCredentials(ctx context.Context, address string) ([]string, error) {
	return e.credentialHashes(ctx, "getIssuerCredentials", address)
}

func (e *Ethereum) credentialHashes(ctx context.Context, method, address string) ([]string, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	var out []interface{}
	if err := e.call(ctx, &out, method, common.HexToAddress(address)); err != nil {
		return nil, err
	}
	raw := out[0].([][32]byte)
	hashes := make([]string, len(raw))
	for i, h := range raw {
		hashes[i] = HashString(h)
	}
	return hashes, nil
}

func (e *Ethereum) call(ctx context.Context, out *[]interface{}, method string, args ...interface{}) error {
	start := time.Now()
	defer func() { callDuration.WithLabelValues(method).Observe(time.Since(start).Seconds()) }()

	err := e.contract.Call(&bind.CallOpts{Context: ctx}, out, method, args...)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", method, sentinel.ErrUnavailable, err)
	}
	return nil
}

// transact submits a state-changing call and waits for it to be mined, the
// same contract-call-then-wait flow the registry expects from any client.
func (e *Ethereum) transact(ctx context.Context, method string, args ...interface{}) error {
	if e.signer == nil {
		return fmt.Errorf("%s: registry gateway is read-only (no signing key configured)", method)
	}
	start := time.Now()
	defer func() { callDuration.WithLabelValues(method).Observe(time.Since(start).Seconds()) }()

	opts := *e.signer
	opts.Context = ctx
	tx, err := e.contract.Transact(&opts, method, args...)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", method, sentinel.ErrUnavailable, err)
	}
	receipt, err := bind.WaitMined(ctx, e.client, tx)
	if err != nil {
		return fmt.Errorf("%s: wait mined: %w: %w", method, sentinel.ErrUnavailable, err)
	}
	if receipt.Status == 0 {
		return fmt.Errorf("%s: transaction %s reverted", method, tx.Hash().Hex())
	}
	return nil
}
