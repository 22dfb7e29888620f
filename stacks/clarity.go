package stacks

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Clarity value type prefixes in the consensus serialization.
const (
	clarityTypeInt               byte = 0x00
	clarityTypeUInt              byte = 0x01
	clarityTypeBuffer            byte = 0x02
	clarityTypeTrue              byte = 0x03
	clarityTypeFalse             byte = 0x04
	clarityTypeStandardPrincipal byte = 0x05
	clarityTypeContractPrincipal byte = 0x06
	clarityTypeNone              byte = 0x09
	clarityTypeStringASCII       byte = 0x0d
	clarityTypeStringUTF8        byte = 0x0e
)

// ClarityValue is a function argument for a contract call.
type ClarityValue interface {
	serialize(buf *bytes.Buffer)

	// String renders the value for logs.
	String() string
}

type clarityInt struct {
	value  *big.Int
	signed bool
}

// Int returns a signed 128 bit Clarity integer.
func Int(value int64) ClarityValue {
	return clarityInt{value: big.NewInt(value), signed: true}
}

// UInt returns an unsigned 128 bit Clarity integer.
func UInt(value uint64) ClarityValue {
	return clarityInt{value: new(big.Int).SetUint64(value)}
}

func (c clarityInt) serialize(buf *bytes.Buffer) {
	if c.signed {
		buf.WriteByte(clarityTypeInt)
	} else {
		buf.WriteByte(clarityTypeUInt)
	}

	// Two's complement into 16 bytes.
	encoded := new(big.Int).Set(c.value)
	if encoded.Sign() < 0 {
		encoded.Add(encoded, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	var out [16]byte
	encoded.FillBytes(out[:])
	buf.Write(out[:])
}

func (c clarityInt) String() string {
	if c.signed {
		return c.value.String()
	}
	return "u" + c.value.String()
}

type clarityBool bool

// Bool returns a Clarity boolean.
func Bool(value bool) ClarityValue {
	return clarityBool(value)
}

func (c clarityBool) serialize(buf *bytes.Buffer) {
	if c {
		buf.WriteByte(clarityTypeTrue)
	} else {
		buf.WriteByte(clarityTypeFalse)
	}
}

func (c clarityBool) String() string {
	return strconv.FormatBool(bool(c))
}

type clarityBuffer []byte

// Buffer returns a Clarity buffer.
func Buffer(value []byte) ClarityValue {
	return clarityBuffer(value)
}

func (c clarityBuffer) serialize(buf *bytes.Buffer) {
	buf.WriteByte(clarityTypeBuffer)
	writeUint32(buf, uint32(len(c)))
	buf.Write(c)
}

func (c clarityBuffer) String() string {
	return "0x" + hex.EncodeToString(c)
}

type clarityString struct {
	value string
	utf8  bool
}

// StringASCII returns a Clarity string-ascii.
func StringASCII(value string) ClarityValue {
	return clarityString{value: value}
}

// StringUTF8 returns a Clarity string-utf8.
func StringUTF8(value string) ClarityValue {
	return clarityString{value: value, utf8: true}
}

func (c clarityString) serialize(buf *bytes.Buffer) {
	if c.utf8 {
		buf.WriteByte(clarityTypeStringUTF8)
	} else {
		buf.WriteByte(clarityTypeStringASCII)
	}
	writeUint32(buf, uint32(len(c.value)))
	buf.WriteString(c.value)
}

func (c clarityString) String() string {
	if c.utf8 {
		return fmt.Sprintf("u%q", c.value)
	}
	return fmt.Sprintf("%q", c.value)
}

type clarityPrincipal struct {
	address      Address
	contractName string
}

// Principal returns a standard principal, or a contract principal when the input is of the form ADDRESS.NAME.
func Principal(principal string) (ClarityValue, error) {
	address, contractName, _ := strings.Cut(principal, ".")

	parsed, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	return clarityPrincipal{address: parsed, contractName: contractName}, nil
}

func (c clarityPrincipal) serialize(buf *bytes.Buffer) {
	if c.contractName == "" {
		buf.WriteByte(clarityTypeStandardPrincipal)
	} else {
		buf.WriteByte(clarityTypeContractPrincipal)
	}
	writeAddress(buf, c.address)
	if c.contractName != "" {
		writeLengthPrefixedName(buf, c.contractName)
	}
}

func (c clarityPrincipal) String() string {
	if c.contractName == "" {
		return "'" + c.address.String()
	}
	return "'" + c.address.String() + "." + c.contractName
}

type clarityNone struct{}

// None returns the Clarity optional none.
func None() ClarityValue {
	return clarityNone{}
}

func (clarityNone) serialize(buf *bytes.Buffer) {
	buf.WriteByte(clarityTypeNone)
}

func (clarityNone) String() string {
	return "none"
}

// ParseClarityValue builds a Clarity value from a type name and its textual value, as written in configuration.
func ParseClarityValue(clarityType, value string) (ClarityValue, error) {
	switch strings.ToLower(clarityType) {
	case "int":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int %q: %w", value, err)
		}
		return Int(parsed), nil
	case "uint":
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid uint %q: %w", value, err)
		}
		return UInt(parsed), nil
	case "bool":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q: %w", value, err)
		}
		return Bool(parsed), nil
	case "buffer":
		parsed, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid buffer %q: %w", value, err)
		}
		return Buffer(parsed), nil
	case "string-ascii", "ascii":
		return StringASCII(value), nil
	case "string-utf8", "utf8":
		return StringUTF8(value), nil
	case "principal":
		return Principal(value)
	case "none":
		return None(), nil
	default:
		return nil, fmt.Errorf("unsupported clarity type %q", clarityType)
	}
}

func writeUint32(buf *bytes.Buffer, value uint32) {
	var out [4]byte
	binary.BigEndian.PutUint32(out[:], value)
	buf.Write(out[:])
}

func writeUint64(buf *bytes.Buffer, value uint64) {
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], value)
	buf.Write(out[:])
}

func writeAddress(buf *bytes.Buffer, address Address) {
	buf.WriteByte(address.Version)
	buf.Write(address.Hash160[:])
}

func writeLengthPrefixedName(buf *bytes.Buffer, name string) {
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
}
