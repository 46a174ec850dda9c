package sighash

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ErrMalformedSignature = errors.New("malformed signature")

// Signature is a parsed function or event signature
type Signature struct {
	Name   string
	Params []string // canonical parameter types
}

// ParseSignature parses "name(type1,type2)" into name and canonical parameter types.
// Parameter names and the "indexed" keyword are dropped, so "Transfer(address indexed from, uint value)"
// becomes "Transfer(address,uint256)"
func ParseSignature(sig string) (*Signature, error) {
	sig = strings.TrimSpace(sig)

	open := strings.IndexByte(sig, '(')
	if open < 0 || !strings.HasSuffix(sig, ")") {
		return nil, malformed(sig, "expected name(params)")
	}

	name := strings.TrimSpace(sig[:open])
	if !isIdentifier(name) {
		return nil, malformed(sig, "invalid name")
	}

	inner := sig[open+1 : len(sig)-1]
	if closing, err := matchingParen(sig, open); err != nil || closing != len(sig)-1 {
		return nil, malformed(sig, "unbalanced parentheses")
	}

	params, err := splitParams(inner)
	if err != nil {
		return nil, malformed(sig, err.Error())
	}

	for i, p := range params {
		params[i], err = canonicalType(p)
		if err != nil {
			return nil, malformed(sig, err.Error())
		}
	}

	return &Signature{Name: name, Params: params}, nil
}

// Canonical returns the whitespace-free form used for hashing
func (s *Signature) Canonical() string {
	return s.Name + "(" + strings.Join(s.Params, ",") + ")"
}

func (s *Signature) String() string {
	return s.Canonical()
}

func (s *Signature) Selector() Selector {
	return DeriveSelector(s.Canonical())
}

func (s *Signature) Topic() common.Hash {
	return DeriveTopic(s.Canonical())
}

// Arguments builds abi arguments for the parameter types, used to pack and unpack calldata
func (s *Signature) Arguments() (abi.Arguments, error) {
	args := make(abi.Arguments, len(s.Params))
	for i, p := range s.Params {
		m, err := argumentMarshaling(p, fmt.Sprintf("arg%d", i))
		if err != nil {
			return nil, err
		}
		typ, err := abi.NewType(m.Type, "", m.Components)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %d: %s", ErrMalformedSignature, i, err)
		}
		args[i] = abi.Argument{Name: m.Name, Type: typ}
	}
	return args, nil
}

func argumentMarshaling(typ string, name string) (abi.ArgumentMarshaling, error) {
	if !strings.HasPrefix(typ, "(") {
		return abi.ArgumentMarshaling{Name: name, Type: typ}, nil
	}

	closing, err := matchingParen(typ, 0)
	if err != nil {
		return abi.ArgumentMarshaling{}, err
	}
	fields, err := splitParams(typ[1:closing])
	if err != nil {
		return abi.ArgumentMarshaling{}, err
	}

	components := make([]abi.ArgumentMarshaling, len(fields))
	for i, f := range fields {
		components[i], err = argumentMarshaling(f, fmt.Sprintf("f%d", i))
		if err != nil {
			return abi.ArgumentMarshaling{}, err
		}
	}

	return abi.ArgumentMarshaling{
		Name:       name,
		Type:       "tuple" + typ[closing+1:],
		Components: components,
	}, nil
}

// splitParams splits comma-separated list ignoring commas inside tuples
func splitParams(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return []string{}, nil
	}

	var (
		params []string
		depth  int
		start  int
	)

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, errors.New("unbalanced parentheses")
			}
		case ',':
			if depth == 0 {
				params = append(params, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, errors.New("unbalanced parentheses")
	}
	params = append(params, s[start:])

	for i, p := range params {
		p = stripParamName(strings.TrimSpace(p))
		if p == "" {
			return nil, errors.New("empty parameter")
		}
		params[i] = p
	}
	return params, nil
}

// stripParamName drops everything after the type, e.g. "address indexed from" -> "address"
func stripParamName(p string) string {
	depth := 0
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ' ', '\t', '\n':
			if depth == 0 {
				return p[:i]
			}
		}
	}
	return p
}

// canonicalType expands type aliases, e.g. uint -> uint256, recursing into tuples
func canonicalType(t string) (string, error) {
	if strings.HasPrefix(t, "(") {
		closing, err := matchingParen(t, 0)
		if err != nil {
			return "", err
		}
		fields, err := splitParams(t[1:closing])
		if err != nil {
			return "", err
		}
		for i, f := range fields {
			fields[i], err = canonicalType(f)
			if err != nil {
				return "", err
			}
		}
		return "(" + strings.Join(fields, ",") + ")" + t[closing+1:], nil
	}

	base, suffix := t, ""
	if i := strings.IndexByte(t, '['); i >= 0 {
		base, suffix = t[:i], t[i:]
	}
	switch base {
	case "uint":
		base = "uint256"
	case "int":
		base = "int256"
	case "byte":
		base = "bytes1"
	case "fixed":
		base = "fixed128x18"
	case "ufixed":
		base = "ufixed128x18"
	}
	if !isIdentifier(base) {
		return "", fmt.Errorf("invalid type %q", t)
	}
	return base + suffix, nil
}

func matchingParen(s string, open int) (int, error) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, errors.New("unbalanced parentheses")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isLetter && !(isDigit && i > 0) {
			return false
		}
	}
	return true
}

func malformed(sig string, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrMalformedSignature, sig, reason)
}
