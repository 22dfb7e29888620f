package stacks

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
)

// Network carries the constants that differ between mainnet and testnet.
type Network struct {
	Name           string
	TxVersion      byte
	ChainID        uint32
	AddressVersion byte
}

var (
	Mainnet = Network{Name: "mainnet", TxVersion: 0x00, ChainID: 0x00000001, AddressVersion: AddressVersionMainnetSingleSig}
	Testnet = Network{Name: "testnet", TxVersion: 0x80, ChainID: 0x80000000, AddressVersion: AddressVersionTestnetSingleSig}
)

// NetworkByName resolves "mainnet" or "testnet".
func NetworkByName(name string) (Network, error) {
	switch strings.ToLower(name) {
	case Mainnet.Name:
		return Mainnet, nil
	case Testnet.Name:
		return Testnet, nil
	default:
		return Network{}, fmt.Errorf("unknown network %q", name)
	}
}

const (
	authTypeStandard byte = 0x04

	hashModeP2PKH byte = 0x00

	keyEncodingCompressed   byte = 0x00
	keyEncodingUncompressed byte = 0x01

	// AnchorModeAny lets the transaction land in an anchored block or a microblock.
	AnchorModeAny byte = 0x03

	payloadTypeTokenTransfer byte = 0x00
	payloadTypeContractCall  byte = 0x02

	memoLength      = 34
	signatureLength = 65
)

// PostConditionMode controls whether asset movements not covered by post conditions abort the transaction.
type PostConditionMode byte

const (
	PostConditionModeAllow PostConditionMode = 0x01
	PostConditionModeDeny  PostConditionMode = 0x02
)

// ParsePostConditionMode resolves "allow" or "deny". Empty defaults to deny.
func ParsePostConditionMode(mode string) (PostConditionMode, error) {
	switch strings.ToLower(mode) {
	case "", "deny":
		return PostConditionModeDeny, nil
	case "allow":
		return PostConditionModeAllow, nil
	default:
		return 0, fmt.Errorf("unknown post condition mode %q", mode)
	}
}

// Payload is what a transaction does.
type Payload interface {
	serialize(buf *bytes.Buffer)

	// Describe renders the payload for logs.
	Describe() string
}

// TokenTransferPayload moves native tokens to a recipient.
type TokenTransferPayload struct {
	Recipient Address
	Amount    uint64
	Memo      string
}

func (p *TokenTransferPayload) serialize(buf *bytes.Buffer) {
	buf.WriteByte(payloadTypeTokenTransfer)
	buf.WriteByte(clarityTypeStandardPrincipal)
	writeAddress(buf, p.Recipient)
	writeUint64(buf, p.Amount)

	var memo [memoLength]byte
	copy(memo[:], p.Memo)
	buf.Write(memo[:])
}

func (p *TokenTransferPayload) Describe() string {
	return fmt.Sprintf("transfer %d to %s", p.Amount, p.Recipient.String())
}

// ContractCallPayload invokes a public function.
type ContractCallPayload struct {
	ContractAddress Address
	ContractName    string
	FunctionName    string
	Arguments       []ClarityValue
}

func (p *ContractCallPayload) serialize(buf *bytes.Buffer) {
	buf.WriteByte(payloadTypeContractCall)
	writeAddress(buf, p.ContractAddress)
	writeLengthPrefixedName(buf, p.ContractName)
	writeLengthPrefixedName(buf, p.FunctionName)
	writeUint32(buf, uint32(len(p.Arguments)))
	for _, argument := range p.Arguments {
		argument.serialize(buf)
	}
}

func (p *ContractCallPayload) Describe() string {
	rendered := make([]string, 0, len(p.Arguments))
	for _, argument := range p.Arguments {
		rendered = append(rendered, argument.String())
	}
	return fmt.Sprintf("(contract-call? '%s.%s %s %s)", p.ContractAddress.String(), p.ContractName, p.FunctionName, strings.Join(rendered, " "))
}

// Transaction is a single-sig standard transaction with no post conditions.
type Transaction struct {
	Network           Network
	SignerHash160     [20]byte
	Nonce             uint64
	Fee               uint64
	Compressed        bool
	Signature         [signatureLength]byte
	PostConditionMode PostConditionMode
	Payload           Payload
}

// Serialize encodes the transaction in its wire format.
func (t *Transaction) Serialize() []byte {
	buf := &bytes.Buffer{}

	buf.WriteByte(t.Network.TxVersion)
	writeUint32(buf, t.Network.ChainID)

	// Authorization
	buf.WriteByte(authTypeStandard)
	buf.WriteByte(hashModeP2PKH)
	buf.Write(t.SignerHash160[:])
	writeUint64(buf, t.Nonce)
	writeUint64(buf, t.Fee)
	if t.Compressed {
		buf.WriteByte(keyEncodingCompressed)
	} else {
		buf.WriteByte(keyEncodingUncompressed)
	}
	buf.Write(t.Signature[:])

	buf.WriteByte(AnchorModeAny)
	buf.WriteByte(byte(t.PostConditionMode))

	// No post conditions
	writeUint32(buf, 0)

	t.Payload.serialize(buf)

	return buf.Bytes()
}

// TxID is the hex encoded sha512/256 of the serialized transaction.
func (t *Transaction) TxID() string {
	digest := sha512.Sum512_256(t.Serialize())
	return "0x" + hex.EncodeToString(digest[:])
}

// presignSighash is the digest a single-sig origin signs.
func (t *Transaction) presignSighash() [32]byte {
	// The initial sighash covers the transaction with a cleared spending condition.
	cleared := *t
	cleared.Nonce = 0
	cleared.Fee = 0
	cleared.Signature = [signatureLength]byte{}
	initial := sha512.Sum512_256(cleared.Serialize())

	buf := &bytes.Buffer{}
	buf.Write(initial[:])
	buf.WriteByte(authTypeStandard)
	writeUint64(buf, t.Fee)
	writeUint64(buf, t.Nonce)

	return sha512.Sum512_256(buf.Bytes())
}

// Sign fills in the origin signature.
func (t *Transaction) Sign(key *PrivateKey) error {
	if key.Compressed() != t.Compressed {
		return fmt.Errorf("key encoding does not match transaction")
	}

	sighash := t.presignSighash()
	signature, err := key.SignRecoverable(sighash[:])
	if err != nil {
		return err
	}

	t.Signature = signature
	return nil
}
