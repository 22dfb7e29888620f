package stacks

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

// Crockford-style base32 alphabet used by Stacks addresses.
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Address version bytes for single-sig pay-to-public-key-hash addresses.
const (
	AddressVersionMainnetSingleSig byte = 22
	AddressVersionTestnetSingleSig byte = 26
)

// Address is a decoded standard principal.
type Address struct {
	Version byte
	Hash160 [20]byte
}

func (a Address) String() string {
	return "S" + c32CheckEncode(a.Version, a.Hash160[:])
}

// ParseAddress decodes a c32check encoded standard principal, e.g. SP000000000000000000002Q6VF78.
func ParseAddress(address string) (Address, error) {
	normalized := normalizeC32(address)
	if len(normalized) < 6 || normalized[0] != 'S' {
		return Address{}, fmt.Errorf("invalid address %q: missing 'S' prefix", address)
	}

	version, data, err := c32CheckDecode(normalized[1:])
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", address, err)
	}
	if len(data) > 20 {
		return Address{}, fmt.Errorf("invalid address %q: hash is %d bytes", address, len(data))
	}

	parsed := Address{Version: version}
	copy(parsed.Hash160[20-len(data):], data)
	return parsed, nil
}

func c32CheckEncode(version byte, data []byte) string {
	checksum := c32Checksum(version, data)

	payload := make([]byte, 0, len(data)+len(checksum))
	payload = append(payload, data...)
	payload = append(payload, checksum...)

	return string(c32Alphabet[version]) + c32Encode(payload)
}

func c32CheckDecode(encoded string) (byte, []byte, error) {
	if len(encoded) < 2 {
		return 0, nil, fmt.Errorf("c32check string too short")
	}

	version := strings.IndexByte(c32Alphabet, encoded[0])
	if version < 0 {
		return 0, nil, fmt.Errorf("invalid version character %q", encoded[0])
	}

	payload, err := c32Decode(encoded[1:])
	if err != nil {
		return 0, nil, err
	}
	if len(payload) < 4 {
		return 0, nil, fmt.Errorf("missing checksum")
	}

	data := payload[:len(payload)-4]
	checksum := payload[len(payload)-4:]
	if !bytes.Equal(checksum, c32Checksum(byte(version), data)) {
		return 0, nil, fmt.Errorf("checksum mismatch")
	}

	return byte(version), data, nil
}

func c32Checksum(version byte, data []byte) []byte {
	preimage := append([]byte{version}, data...)
	first := sha256.Sum256(preimage)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// c32Encode encodes bytes as a big-endian base32 number. Each leading zero byte becomes a leading '0'.
func c32Encode(data []byte) string {
	leadingZeros := 0
	for leadingZeros < len(data) && data[leadingZeros] == 0 {
		leadingZeros++
	}

	value := new(big.Int).SetBytes(data)
	base := big.NewInt(32)
	remainder := new(big.Int)

	digits := []byte{}
	for value.Sign() > 0 {
		value.DivMod(value, base, remainder)
		digits = append(digits, c32Alphabet[remainder.Int64()])
	}

	encoded := make([]byte, 0, leadingZeros+len(digits))
	for i := 0; i < leadingZeros; i++ {
		encoded = append(encoded, '0')
	}
	for i := len(digits) - 1; i >= 0; i-- {
		encoded = append(encoded, digits[i])
	}
	return string(encoded)
}

func c32Decode(encoded string) ([]byte, error) {
	normalized := normalizeC32(encoded)

	leadingZeros := 0
	for leadingZeros < len(normalized) && normalized[leadingZeros] == '0' {
		leadingZeros++
	}

	value := new(big.Int)
	base := big.NewInt(32)
	for i := leadingZeros; i < len(normalized); i++ {
		digit := strings.IndexByte(c32Alphabet, normalized[i])
		if digit < 0 {
			return nil, fmt.Errorf("invalid c32 character %q", normalized[i])
		}
		value.Mul(value, base)
		value.Add(value, big.NewInt(int64(digit)))
	}

	decoded := make([]byte, leadingZeros)
	return append(decoded, value.Bytes()...), nil
}

func normalizeC32(encoded string) string {
	normalized := strings.ToUpper(encoded)
	normalized = strings.ReplaceAll(normalized, "O", "0")
	normalized = strings.ReplaceAll(normalized, "L", "1")
	normalized = strings.ReplaceAll(normalized, "I", "1")
	return normalized
}
