package httphandlers

import (
	"net/http"
	"net/url"

	"github.com/Lumerin-protocol/proposal-verifier/internal/sighash"
	"github.com/gin-gonic/gin"
)

// GetSelector derives the selector of any string, including the empty one
func (h *HTTPHandler) GetSelector(ctx *gin.Context) {
	sig, ok := ctx.GetQuery("signature")
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "signature is required"})
		return
	}

	ctx.JSON(http.StatusOK, SelectorResponse{
		Signature: sig,
		Selector:  sighash.GetFunctionSignature(sig),
	})
}

func (h *HTTPHandler) GetTopic(ctx *gin.Context) {
	sig, ok := ctx.GetQuery("signature")
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "signature is required"})
		return
	}

	ctx.JSON(http.StatusOK, TopicResponse{
		Signature: sig,
		Topic:     sighash.GetEventTopic(sig),
	})
}

func (h *HTTPHandler) LookupSelector(ctx *gin.Context) {
	sel, err := sighash.ParseSelector(ctx.Param("selector"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	signatures := h.registry.LookupSelector(sel)
	if len(signatures) == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "selector not found"})
		return
	}

	ctx.JSON(http.StatusOK, LookupResponse{
		Selector:   sel.Hex(),
		Signatures: signatures,
	})
}

func (h *HTTPHandler) GetSignatures(ctx *gin.Context) {
	entries := h.registry.Entries()

	res := SignaturesResponse{
		Total:      len(entries),
		Signatures: make([]SignatureItem, 0, len(entries)),
	}
	for _, e := range entries {
		res.Signatures = append(res.Signatures, h.mapSignature(e.Kind, e.Signature))
	}

	ctx.JSON(http.StatusOK, res)
}

func (h *HTTPHandler) RegisterSignatures(ctx *gin.Context) {
	var req RegisterSignaturesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	functions, err := parseSignatures(req.Functions)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	events, err := parseSignatures(req.Events)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.registry.RegisterFunctions(req.Functions...); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.registry.RegisterEvents(req.Events...); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.log.Infof("registered %d functions and %d events, total %d", len(functions), len(events), h.registry.Len())

	items := make([]SignatureItem, 0, len(functions)+len(events))
	for _, sig := range functions {
		items = append(items, h.mapSignature(sighash.KindFunction, sig))
	}
	for _, sig := range events {
		items = append(items, h.mapSignature(sighash.KindEvent, sig))
	}

	ctx.JSON(http.StatusOK, SignaturesResponse{
		Total:      h.registry.Len(),
		Signatures: items,
	})
}

// parseSignatures validates signatures before anything is registered
func parseSignatures(sigs []string) ([]*sighash.Signature, error) {
	res := make([]*sighash.Signature, 0, len(sigs))
	for _, s := range sigs {
		sig, err := sighash.ParseSignature(s)
		if err != nil {
			return nil, err
		}
		if _, err := sig.Arguments(); err != nil {
			return nil, err
		}
		res = append(res, sig)
	}
	return res, nil
}

func (h *HTTPHandler) mapSignature(kind sighash.Kind, sig *sighash.Signature) SignatureItem {
	item := SignatureItem{
		Kind:      kind,
		Signature: sig.Canonical(),
	}

	switch kind {
	case sighash.KindEvent:
		item.Topic = sig.Topic().Hex()
		self := h.publicUrl.JoinPath("topics")
		self.RawQuery = url.Values{"signature": {item.Signature}}.Encode()
		item.Self = self.String()
	default:
		item.Selector = sig.Selector().Hex()
		item.Self = h.publicUrl.JoinPath("selectors", item.Selector).String()
	}
	return item
}
