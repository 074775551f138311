package issuance

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Payload is the canonical credential document that gets hashed into the
// credential's identity. Field order is load-bearing: the digest is keccak256
// over the serialized JSON, and issued wallets expect this exact layout.
type Payload struct {
	DocumentType       string `json:"documentType"`
	CredentialName     string `json:"credentialName"`
	Description        string `json:"description"`
	DestinationAddress string `json:"destinationAddress"`
	RecipientName      string `json:"recipientName"`
	Issuer             string `json:"issuer"`
	FromOrganisation   string `json:"fromOrganisation"`
	FileHash           string `json:"fileHash"`
	IssuedAt           int64  `json:"issuedAt"` // epoch milliseconds
}

// HashFile computes the keccak256 digest of raw file bytes, 0x-prefixed.
// Any single-bit change in the file flips the digest, which in turn flips
// the credential hash.
func HashFile(data []byte) string {
	return "0x" + hex.EncodeToString(crypto.Keccak256(data))
}

// Hash serializes the payload canonically and returns the keccak256 digest
// of the UTF-8 JSON bytes. Deterministic: same payload, same hash.
func Hash(p Payload) (string, error) {
	data, err := canonicalJSON(p)
	if err != nil {
		return "", fmt.Errorf("encode credential payload: %w", err)
	}
	return "0x" + hex.EncodeToString(crypto.Keccak256(data)), nil
}

// canonicalJSON matches the wire encoding credential clients produce: compact,
// fixed field order, no HTML escaping.
func canonicalJSON(p Payload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ChecksumAddress normalizes a hex address to its EIP-55 checksummed form,
// the representation folded into the hashed payload.
func ChecksumAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address %q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}
