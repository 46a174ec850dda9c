// Package sighash derives function selectors and event topics from textual signatures
// like "transfer(address,uint256)".
package sighash

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const SelectorLength = 4

var (
	ErrInvalidSelector = errors.New("invalid selector")
	ErrShortCalldata   = errors.New("calldata is shorter than selector")
)

// Selector is the first 4 bytes of keccak256 of the function signature
type Selector [SelectorLength]byte

// DeriveSelector returns the 4-byte selector of the function signature.
//
// The sig is not validated, any string is hashed as is:
//
//	DeriveSelector("transfer(address,uint256)") // 0xa9059cbb
func DeriveSelector(sig string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(sig))[:SelectorLength])
	return s
}

// DeriveTopic returns the 32-byte topic of the event signature, which is the full keccak256 hash
func DeriveTopic(sig string) common.Hash {
	return crypto.Keccak256Hash([]byte(sig))
}

// GetFunctionSignature returns 0x-prefixed hex encoded selector of the function signature
func GetFunctionSignature(sig string) string {
	return DeriveSelector(sig).Hex()
}

// GetEventTopic returns 0x-prefixed hex encoded topic of the event signature
func GetEventTopic(sig string) string {
	return DeriveTopic(sig).Hex()
}

// ParseSelector parses hex encoded selector, a single 0x prefix is optional
func ParseSelector(s string) (Selector, error) {
	var sel Selector
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != SelectorLength {
		return sel, ErrInvalidSelector
	}
	copy(sel[:], b)
	return sel, nil
}

// SelectorOf returns the selector the calldata starts with
func SelectorOf(calldata []byte) (Selector, error) {
	var sel Selector
	if len(calldata) < SelectorLength {
		return sel, ErrShortCalldata
	}
	copy(sel[:], calldata[:SelectorLength])
	return sel, nil
}

func (s Selector) Hex() string {
	return hexutil.Encode(s[:])
}

func (s Selector) String() string {
	return s.Hex()
}

func (s Selector) Bytes() []byte {
	return s[:]
}

func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.Hex()), nil
}

func (s *Selector) UnmarshalText(input []byte) error {
	sel, err := ParseSelector(string(input))
	if err != nil {
		return err
	}
	*s = sel
	return nil
}
