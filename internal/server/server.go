package server

import (
	"context"
	"log/slog"
	"net/http"
	gosync "sync"

	"github.com/gin-gonic/gin"

	"github.com/homemade/saka/internal/metrics"
	"github.com/homemade/saka/keywords"
)

const (
	TriggerTypeHTTP   = "http"
	TriggerTypePubSub = "pubsub"
)

// KeywordRunner runs one keyword extraction and upload.
type KeywordRunner interface {
	ExtractAndUploadKeywords(ctx context.Context, trigger keywords.Trigger) (string, error)
}

// SerialRunner allows one run at a time; later triggers wait their turn.
type SerialRunner struct {
	Runner KeywordRunner
	mu     gosync.Mutex
}

func (s *SerialRunner) ExtractAndUploadKeywords(ctx context.Context, trigger keywords.Trigger) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Runner.ExtractAndUploadKeywords(ctx, trigger)
}

// PushEnvelope is the body Pub/Sub push subscriptions deliver.
type PushEnvelope struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// NewRouter wires the trigger endpoints, health and metrics.
// Public: /healthz, /metrics
// Triggers: POST /, POST /pubsub
func NewRouter(runner KeywordRunner, collector *metrics.Collector, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if collector != nil {
		r.Use(collector.Middleware())
		r.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/", func(c *gin.Context) {
		trigger := keywords.Trigger{Type: TriggerTypeHTTP, ID: c.GetHeader("X-Cloud-Trace-Context")}
		respond(c, logger, runner, trigger)
	})

	r.POST("/pubsub", func(c *gin.Context) {
		var envelope PushEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pub/sub push envelope"})
			return
		}
		trigger := keywords.Trigger{Type: TriggerTypePubSub, ID: envelope.Message.MessageID}
		respond(c, logger, runner, trigger)
	})

	return r
}

func respond(c *gin.Context, logger *slog.Logger, runner KeywordRunner, trigger keywords.Trigger) {
	message, err := runner.ExtractAndUploadKeywords(c.Request.Context(), trigger)
	if err != nil {
		logger.Error("keyword run failed", "trigger_type", trigger.Type, "trigger_id", trigger.ID, "error", err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.String(http.StatusOK, message)
}
