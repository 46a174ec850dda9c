package httphandlers

import (
	"net/http"
	"strconv"

	"github.com/Lumerin-protocol/proposal-verifier/internal/repositories/contracts"
	"github.com/gin-gonic/gin"
)

const defaultEventsLimit = 100

// GetEvents returns the most recent watched events, newest first
func (h *HTTPHandler) GetEvents(ctx *gin.Context) {
	limit := defaultEventsLimit
	if l, ok := ctx.GetQuery("limit"); ok {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 1 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
	}

	res := EventsResponse{Events: []contracts.WatchedEvent{}}
	if h.eventLog != nil {
		res.Total = h.eventLog.Total()
		res.Events = h.eventLog.Last(limit)
	}

	ctx.JSON(http.StatusOK, res)
}
