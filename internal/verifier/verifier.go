package verifier

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Lumerin-protocol/proposal-verifier/internal/evmscript"
	"github.com/Lumerin-protocol/proposal-verifier/internal/interfaces"
	"github.com/Lumerin-protocol/proposal-verifier/internal/sighash"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	ReasonTargetMismatch     = "target mismatch"
	ReasonSelectorMismatch   = "selector mismatch"
	ReasonShortCalldata      = "calldata too short"
	ReasonArgsDecode         = "arguments do not decode"
	ReasonMalformedSignature = "malformed expected signature"
	ReasonUnknownSelector    = "unknown selector"
	ReasonAmbiguousSelector  = "ambiguous selector"
)

var ErrNonStandardArgs = errors.New("arguments are not in standard abi encoding")

// ExpectedCall is a contract method the proposal is supposed to call
type ExpectedCall struct {
	To        common.Address
	Signature string
}

// CallReport is the outcome for one action. Signature is resolved from the expected call
// or, for unexpected actions, from the registry
type CallReport struct {
	Index             int
	To                common.Address
	Selector          string
	Signature         string
	ExpectedTo        *common.Address `json:",omitempty"`
	ExpectedSignature string          `json:",omitempty"`
	ExpectedSelector  string          `json:",omitempty"`
	Args              []interface{}
	Match             bool
	Reason            string `json:",omitempty"`
}

type Report struct {
	Valid  bool
	Reason string `json:",omitempty"`
	Calls  []CallReport
}

// Verifier checks proposal calldata against the expected contract methods.
// It holds no state apart from the registry and is safe for concurrent use
type Verifier struct {
	registry *sighash.Registry
	log      interfaces.ILogger
}

func NewVerifier(registry *sighash.Registry, log interfaces.ILogger) *Verifier {
	return &Verifier{
		registry: registry,
		log:      log,
	}
}

// VerifyScript decodes calls script and verifies that action i calls expected[i].
// Script decoding errors are returned, mismatches are reported
func (v *Verifier) VerifyScript(script []byte, expected []ExpectedCall) (*Report, error) {
	actions, err := evmscript.Decode(script)
	if err != nil {
		return nil, err
	}

	report := &Report{Valid: true, Calls: make([]CallReport, 0, len(actions))}

	for i, action := range actions {
		var call CallReport
		if i < len(expected) {
			call = v.VerifyCalldata(action.To, action.Data, expected[i])
		} else {
			call = v.Describe(action.To, action.Data)
			call.Match = false
			if call.Reason == "" {
				call.Reason = "unexpected call"
			}
		}
		call.Index = i
		report.Calls = append(report.Calls, call)

		if !call.Match {
			report.Valid = false
		}
	}

	if len(actions) != len(expected) {
		report.Valid = false
		report.Reason = fmt.Sprintf("expected %d calls, got %d", len(expected), len(actions))
	} else if !report.Valid {
		report.Reason = "calls do not match"
	}

	v.log.Debugf("verified script with %d actions, valid %t", len(actions), report.Valid)
	return report, nil
}

// VerifyCalldata checks target address, selector and that arguments decode under the expected signature
func (v *Verifier) VerifyCalldata(to common.Address, data []byte, expected ExpectedCall) CallReport {
	expectedTo := expected.To
	call := CallReport{
		To:                to,
		ExpectedTo:        &expectedTo,
		ExpectedSignature: expected.Signature,
	}

	sig, err := sighash.ParseSignature(expected.Signature)
	if err != nil {
		call.Reason = ReasonMalformedSignature
		return call
	}
	args, err := sig.Arguments()
	if err != nil {
		call.Reason = ReasonMalformedSignature
		return call
	}
	call.Signature = sig.Canonical()
	call.ExpectedSelector = sig.Selector().Hex()

	sel, err := sighash.SelectorOf(data)
	if err != nil {
		call.Reason = ReasonShortCalldata
		return call
	}
	call.Selector = sel.Hex()

	if to != expected.To {
		call.Reason = ReasonTargetMismatch
		return call
	}

	if sel != sig.Selector() {
		call.Reason = ReasonSelectorMismatch
		return call
	}

	values, err := decodeArgs(args, data)
	if err != nil {
		v.log.Debugf("calldata %s does not decode as %s: %s", sel, sig, err)
		call.Reason = ReasonArgsDecode
		return call
	}

	call.Args = values
	call.Match = true
	return call
}

// Describe resolves the called function through the registry and decodes its arguments
// when the selector maps to exactly one known signature
func (v *Verifier) Describe(to common.Address, data []byte) CallReport {
	call := CallReport{To: to}

	sel, err := sighash.SelectorOf(data)
	if err != nil {
		call.Reason = ReasonShortCalldata
		return call
	}
	call.Selector = sel.Hex()

	candidates := v.registry.LookupSelector(sel)
	switch len(candidates) {
	case 0:
		call.Reason = ReasonUnknownSelector
		return call
	case 1:
	default:
		call.Reason = ReasonAmbiguousSelector
		return call
	}

	sig, ok := v.registry.Function(candidates[0])
	if !ok {
		call.Reason = ReasonUnknownSelector
		return call
	}
	call.Signature = sig.Canonical()

	args, err := sig.Arguments()
	if err != nil {
		call.Reason = ReasonArgsDecode
		return call
	}
	values, err := decodeArgs(args, data)
	if err != nil {
		call.Reason = ReasonArgsDecode
		return call
	}

	call.Args = values
	call.Match = true
	return call
}

// DescribeScript decodes calls script and describes every action
func (v *Verifier) DescribeScript(script []byte) ([]CallReport, error) {
	actions, err := evmscript.Decode(script)
	if err != nil {
		return nil, err
	}

	calls := make([]CallReport, len(actions))
	for i, action := range actions {
		calls[i] = v.Describe(action.To, action.Data)
		calls[i].Index = i
	}
	return calls, nil
}

// decodeArgs unpacks calldata arguments and requires the payload to be exactly their standard
// encoding, so trailing or padding bytes are rejected for every method
func decodeArgs(args abi.Arguments, data []byte) ([]interface{}, error) {
	payload := data[sighash.SelectorLength:]

	values, err := args.UnpackValues(payload)
	if err != nil {
		return nil, err
	}

	repacked, err := args.Pack(values...)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(repacked, payload) {
		return nil, fmt.Errorf("%w: %d bytes of arguments, %d expected", ErrNonStandardArgs, len(payload), len(repacked))
	}
	return values, nil
}
