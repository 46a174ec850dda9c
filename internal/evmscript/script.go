// Package evmscript encodes and decodes Aragon calls scripts, the execution payload of DAO proposals.
//
// Layout: specID (4 bytes) followed by actions, each being
// target address (20 bytes) || calldata length (uint32, big endian) || calldata
package evmscript

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/Lumerin-protocol/proposal-verifier/internal/lib"
	"github.com/Lumerin-protocol/proposal-verifier/internal/sighash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	SpecIDLength       = 4
	calldataLengthSize = 4
	actionHeaderSize   = common.AddressLength + calldataLengthSize
)

// CallsScriptSpecID is the only executor id supported by Aragon kernels
var CallsScriptSpecID = [SpecIDLength]byte{0x00, 0x00, 0x00, 0x01}

var (
	ErrScriptTooShort    = errors.New("script is shorter than spec id")
	ErrUnsupportedSpecID = errors.New("unsupported script spec id")
	ErrTruncatedAction   = errors.New("truncated action")
	ErrInvalidHex        = errors.New("invalid hex")
)

type Action struct {
	To   common.Address
	Data []byte
}

// Selector returns the selector of the called function
func (a Action) Selector() (sighash.Selector, error) {
	return sighash.SelectorOf(a.Data)
}

// Decode splits calls script into actions. Script consisting of spec id only has no actions
func Decode(script []byte) ([]Action, error) {
	if len(script) < SpecIDLength {
		return nil, ErrScriptTooShort
	}

	var specID [SpecIDLength]byte
	copy(specID[:], script[:SpecIDLength])
	if specID != CallsScriptSpecID {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnsupportedSpecID, specID)
	}

	actions := []Action{}
	offset := SpecIDLength

	for offset < len(script) {
		if len(script)-offset < actionHeaderSize {
			return nil, fmt.Errorf("%w: action %d header at offset %d", ErrTruncatedAction, len(actions), offset)
		}

		to := common.BytesToAddress(script[offset : offset+common.AddressLength])
		offset += common.AddressLength

		dataLen := int(binary.BigEndian.Uint32(script[offset : offset+calldataLengthSize]))
		offset += calldataLengthSize

		if dataLen > len(script)-offset {
			return nil, fmt.Errorf("%w: action %d declares %d bytes of calldata, %d left", ErrTruncatedAction, len(actions), dataLen, len(script)-offset)
		}

		data := make([]byte, dataLen)
		copy(data, script[offset:offset+dataLen])
		offset += dataLen

		actions = append(actions, Action{To: to, Data: data})
	}

	return actions, nil
}

// Encode builds calls script from the actions
func Encode(actions []Action) []byte {
	size := SpecIDLength
	for _, a := range actions {
		size += actionHeaderSize + len(a.Data)
	}

	script := make([]byte, 0, size)
	script = append(script, CallsScriptSpecID[:]...)

	for _, a := range actions {
		script = append(script, a.To.Bytes()...)
		script = binary.BigEndian.AppendUint32(script, uint32(len(a.Data)))
		script = append(script, a.Data...)
	}

	return script
}

// DecodeHex decodes 0x-prefixed hex encoded script
func DecodeHex(s string) ([]Action, error) {
	script, err := DecodeHexBytes(s)
	if err != nil {
		return nil, err
	}
	return Decode(script)
}

func EncodeHex(actions []Action) string {
	return hexutil.Encode(Encode(actions))
}

// DecodeHexBytes decodes hex string, 0x prefix is optional
func DecodeHexBytes(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil && !errors.Is(err, hexutil.ErrEmptyString) {
		return nil, lib.WrapError(ErrInvalidHex, err)
	}
	return b, nil
}
