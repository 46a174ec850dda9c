package httphandlers

import (
	"github.com/Lumerin-protocol/proposal-verifier/internal/repositories/contracts"
	"github.com/Lumerin-protocol/proposal-verifier/internal/sighash"
	"github.com/Lumerin-protocol/proposal-verifier/internal/verifier"
)

type Resource struct {
	Self string
}

type ConfigResponse struct {
	Version string
	Config  interface{}
}

type SelectorResponse struct {
	Signature string
	Selector  string
}

type TopicResponse struct {
	Signature string
	Topic     string
}

type LookupResponse struct {
	Selector   string
	Signatures []string
}

// SignatureItem carries Selector for functions and Topic for events
type SignatureItem struct {
	Resource

	Kind      sighash.Kind
	Signature string
	Selector  string `json:",omitempty"`
	Topic     string `json:",omitempty"`
}

type SignaturesResponse struct {
	Total      int
	Signatures []SignatureItem
}

type RegisterSignaturesRequest struct {
	Functions []string `json:"functions" binding:"required_without=Events"`
	Events    []string `json:"events"`
}

type ExpectedCallRequest struct {
	To        string `json:"to" binding:"required,eth_addr"`
	Signature string `json:"signature"`
}

type VerifyRequest struct {
	Script   string                `json:"script" binding:"required"`
	Expected []ExpectedCallRequest `json:"expected" binding:"dive"`
}

// DescribeRequest describes either a single calldata or a calls script
type DescribeRequest struct {
	To     string `json:"to" binding:"omitempty,eth_addr"`
	Data   string `json:"data" binding:"required_without=Script"`
	Script string `json:"script"`
}

type DescribeScriptResponse struct {
	Calls []verifier.CallReport
}

type EventsResponse struct {
	Total  uint64
	Events []contracts.WatchedEvent
}
