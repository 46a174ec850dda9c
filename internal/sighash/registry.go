package sighash

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/exp/slices"
)

// Kind tells whether a signature declares a function or an event
type Kind uint8

const (
	KindFunction Kind = iota
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindEvent:
		return "event"
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(input []byte) error {
	switch string(input) {
	case "function":
		*k = KindFunction
	case "event":
		*k = KindEvent
	default:
		return fmt.Errorf("unknown signature kind %q", input)
	}
	return nil
}

// DefaultFunctions are the contract methods usually called by DAO proposals
var DefaultFunctions = []string{
	// ERC-20
	"transfer(address,uint256)",
	"transferFrom(address,address,uint256)",
	"approve(address,uint256)",
	"balanceOf(address)",
	"totalSupply()",
	"mint(address,uint256)",
	"burn(address,uint256)",

	// Aragon voting, agent, finance, acl
	"newVote(bytes,string)",
	"vote(uint256,bool,bool)",
	"forward(bytes)",
	"execute(address,uint256,bytes)",
	"newImmediatePayment(address,address,uint256,string)",
	"setPermission(address,address,bytes32,bool)",

	// staking
	"stake(uint256,bytes)",
	"unstake(uint256,bytes)",
}

// DefaultEvents are the events emitted by the contracts of DefaultFunctions
var DefaultEvents = []string{
	"Transfer(address,address,uint256)",
	"Approval(address,address,uint256)",
	"StartVote(uint256,address,string)",
	"CastVote(uint256,address,bool,uint256)",
	"ExecuteVote(uint256)",
}

// Entry is a registered signature together with its kind
type Entry struct {
	Kind      Kind
	Signature *Signature
}

// Registry is a reverse index from selectors to function signatures and from topics to event
// signatures. Selectors may collide, so every registered signature is kept
type Registry struct {
	mu         sync.RWMutex
	functions  map[string]*Signature
	events     map[string]*Signature
	bySelector map[Selector][]string
	byTopic    map[common.Hash][]string
}

func NewRegistry() *Registry {
	return &Registry{
		functions:  make(map[string]*Signature),
		events:     make(map[string]*Signature),
		bySelector: make(map[Selector][]string),
		byTopic:    make(map[common.Hash][]string),
	}
}

// NewDefaultRegistry returns registry preloaded with DefaultFunctions and DefaultEvents
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := r.RegisterFunctions(DefaultFunctions...); err != nil {
		panic(err)
	}
	if err := r.RegisterEvents(DefaultEvents...); err != nil {
		panic(err)
	}
	return r
}

// RegisterFunctions parses and adds function signatures, indexed by selector.
// Nothing is added if any of them is malformed or uses an unknown type
func (r *Registry) RegisterFunctions(sigs ...string) error {
	return r.register(KindFunction, sigs)
}

// RegisterEvents parses and adds event signatures, indexed by topic.
// Nothing is added if any of them is malformed or uses an unknown type
func (r *Registry) RegisterEvents(sigs ...string) error {
	return r.register(KindEvent, sigs)
}

func (r *Registry) register(kind Kind, sigs []string) error {
	parsed := make([]*Signature, 0, len(sigs))
	for _, s := range sigs {
		sig, err := ParseSignature(s)
		if err != nil {
			return err
		}
		if _, err := sig.Arguments(); err != nil {
			return err
		}
		parsed = append(parsed, sig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sig := range parsed {
		canonical := sig.Canonical()
		if kind == KindEvent {
			if _, ok := r.events[canonical]; ok {
				continue
			}
			r.events[canonical] = sig
			topic := sig.Topic()
			r.byTopic[topic] = append(r.byTopic[topic], canonical)
			continue
		}

		if _, ok := r.functions[canonical]; ok {
			continue
		}
		r.functions[canonical] = sig
		sel := sig.Selector()
		r.bySelector[sel] = append(r.bySelector[sel], canonical)
	}
	return nil
}

// LookupSelector returns all registered function signatures with the given selector
func (r *Registry) LookupSelector(sel Selector) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.bySelector[sel])
}

// LookupTopic returns all registered event signatures with the given topic
func (r *Registry) LookupTopic(topic common.Hash) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byTopic[topic])
}

// Function returns parsed function signature by its canonical form
func (r *Registry) Function(canonical string) (*Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sig, ok := r.functions[canonical]
	return sig, ok
}

// Event returns parsed event signature by its canonical form
func (r *Registry) Event(canonical string) (*Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sig, ok := r.events[canonical]
	return sig, ok
}

// Entries returns all registered signatures sorted by canonical form, functions first on ties
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	res := make([]Entry, 0, len(r.functions)+len(r.events))
	for _, sig := range r.functions {
		res = append(res, Entry{Kind: KindFunction, Signature: sig})
	}
	for _, sig := range r.events {
		res = append(res, Entry{Kind: KindEvent, Signature: sig})
	}
	r.mu.RUnlock()

	slices.SortFunc(res, func(a, b Entry) bool {
		ca, cb := a.Signature.Canonical(), b.Signature.Canonical()
		if ca != cb {
			return ca < cb
		}
		return a.Kind < b.Kind
	})
	return res
}

// Len returns the number of registered functions and events
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.functions) + len(r.events)
}
