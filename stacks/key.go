package stacks

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	key        *ecdsa.PrivateKey
	compressed bool
}

// ParsePrivateKey reads a hex private key. A 33 byte key ending in 0x01 marks a compressed public key.
func ParsePrivateKey(raw string) (*PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")

	compressed := false
	switch len(trimmed) {
	case 64:
	case 66:
		if !strings.HasSuffix(trimmed, "01") {
			return nil, fmt.Errorf("33 byte private key must end in 01")
		}
		compressed = true
		trimmed = trimmed[:64]
	default:
		return nil, fmt.Errorf("private key must be 32 or 33 bytes of hex, got %d characters", len(trimmed))
	}

	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &PrivateKey{key: key, compressed: compressed}, nil
}

func (k *PrivateKey) Compressed() bool {
	return k.compressed
}

// PublicKey returns the serialized public key in the key's encoding.
func (k *PrivateKey) PublicKey() []byte {
	if k.compressed {
		return crypto.CompressPubkey(&k.key.PublicKey)
	}
	return crypto.FromECDSAPub(&k.key.PublicKey)
}

// Hash160 is ripemd160(sha256(public key)).
func (k *PrivateKey) Hash160() [20]byte {
	shaDigest := sha256.Sum256(k.PublicKey())

	hasher := ripemd160.New()
	hasher.Write(shaDigest[:])

	var out [20]byte
	copy(out[:], hasher.Sum(nil))
	return out
}

// Address derives the single-sig address on the given network.
func (k *PrivateKey) Address(network Network) Address {
	return Address{Version: network.AddressVersion, Hash160: k.Hash160()}
}

// SignRecoverable signs a 32 byte digest, returning recovery id || r || s.
func (k *PrivateKey) SignRecoverable(digest []byte) ([signatureLength]byte, error) {
	var out [signatureLength]byte

	// crypto.Sign returns r || s || v
	signature, err := crypto.Sign(digest, k.key)
	if err != nil {
		return out, err
	}

	out[0] = signature[64]
	copy(out[1:], signature[:64])
	return out, nil
}

// Hex renders the key back to its configured form.
func (k *PrivateKey) Hex() string {
	encoded := hex.EncodeToString(crypto.FromECDSA(k.key))
	if k.compressed {
		return encoded + "01"
	}
	return encoded
}
