package httphandlers

import (
	"net/http/pprof"
	"net/url"
	"time"

	"github.com/Lumerin-protocol/proposal-verifier/internal/config"
	"github.com/Lumerin-protocol/proposal-verifier/internal/interfaces"
	"github.com/Lumerin-protocol/proposal-verifier/internal/repositories/contracts"
	"github.com/Lumerin-protocol/proposal-verifier/internal/sighash"
	"github.com/Lumerin-protocol/proposal-verifier/internal/verifier"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type HTTPHandler struct {
	registry  *sighash.Registry
	verifier  *verifier.Verifier
	eventLog  *contracts.EventLog
	config    *config.Config
	publicUrl *url.URL
	log       interfaces.ILogger
}

// NewHTTPHandler creates gin engine with all routes. eventLog may be nil if watching is disabled
func NewHTTPHandler(registry *sighash.Registry, verifier *verifier.Verifier, eventLog *contracts.EventLog, cfg *config.Config, publicUrl *url.URL, log interfaces.ILogger) *gin.Engine {
	handl := &HTTPHandler{
		registry:  registry,
		verifier:  verifier,
		eventLog:  eventLog,
		config:    cfg,
		publicUrl: publicUrl,
		log:       log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), handl.RequestLogger)

	r.GET("/healthcheck", handl.HealthCheck)
	r.GET("/config", handl.GetConfig)

	r.GET("/selectors", handl.GetSelector)
	r.GET("/selectors/:selector", handl.LookupSelector)
	r.GET("/topics", handl.GetTopic)
	r.GET("/signatures", handl.GetSignatures)
	r.POST("/signatures", handl.RegisterSignatures)

	r.POST("/verify", handl.Verify)
	r.POST("/describe", handl.Describe)

	r.GET("/events", handl.GetEvents)

	r.Any("/debug/pprof/*action", gin.WrapF(pprof.Index))

	err := r.SetTrustedProxies(nil)
	if err != nil {
		panic(err)
	}

	return r
}

func (h *HTTPHandler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":  "healthy",
		"version": config.BuildVersion,
	})
}

// RequestLogger tags every request with an id and logs its outcome
func (h *HTTPHandler) RequestLogger(ctx *gin.Context) {
	requestID := ctx.GetHeader(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx.Header(RequestIDHeader, requestID)

	start := time.Now()
	ctx.Next()

	log := h.log.With("requestID", requestID)
	status := ctx.Writer.Status()
	if status >= 500 {
		log.Warnf("%s %s %d %s", ctx.Request.Method, ctx.Request.URL.Path, status, time.Since(start))
		return
	}
	log.Debugf("%s %s %d %s", ctx.Request.Method, ctx.Request.URL.Path, status, time.Since(start))
}
