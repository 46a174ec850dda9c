package httphandlers

import (
	"net/http"

	"github.com/Lumerin-protocol/proposal-verifier/internal/evmscript"
	"github.com/Lumerin-protocol/proposal-verifier/internal/verifier"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

func (h *HTTPHandler) Verify(ctx *gin.Context) {
	var req VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	script, err := evmscript.DecodeHexBytes(req.Script)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expected := make([]verifier.ExpectedCall, len(req.Expected))
	for i, e := range req.Expected {
		expected[i] = verifier.ExpectedCall{
			To:        common.HexToAddress(e.To),
			Signature: e.Signature,
		}
	}

	report, err := h.verifier.VerifyScript(script, expected)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	formatCalls(report.Calls)

	if !report.Valid {
		h.log.Infof("proposal script mismatch: %s", report.Reason)
	}
	ctx.JSON(http.StatusOK, report)
}

func (h *HTTPHandler) Describe(ctx *gin.Context) {
	var req DescribeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Script != "" {
		script, err := evmscript.DecodeHexBytes(req.Script)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		calls, err := h.verifier.DescribeScript(script)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		formatCalls(calls)
		ctx.JSON(http.StatusOK, DescribeScriptResponse{Calls: calls})
		return
	}

	data, err := evmscript.DecodeHexBytes(req.Data)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	call := h.verifier.Describe(common.HexToAddress(req.To), data)
	call.Args = verifier.FormatArgs(call.Args)
	ctx.JSON(http.StatusOK, call)
}

// formatCalls converts decoded arguments into json friendly values
func formatCalls(calls []verifier.CallReport) {
	for i := range calls {
		calls[i].Args = verifier.FormatArgs(calls[i].Args)
	}
}
