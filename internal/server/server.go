// Package server exposes the Telegram webhook and the delivery trigger over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/readlater-bot/internal/bot"
	"go.uber.org/zap"
)

const (
	telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
	cronSecretHeader     = "X-Cron-Secret"
)

// UpdateHandler processes one webhook update
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

// DeliveryRunner runs one scheduler pass
type DeliveryRunner interface {
	RunOnce(ctx context.Context) (bot.Report, error)
}

type Config struct {
	Addr          string
	WebhookSecret string
	CronSecret    string
}

type Server struct {
	cfg       Config
	updates   UpdateHandler
	scheduler DeliveryRunner
	logger    *zap.Logger
	engine    *gin.Engine
	http      *http.Server
}

func New(cfg Config, updates UpdateHandler, scheduler DeliveryRunner, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:       cfg,
		updates:   updates,
		scheduler: scheduler,
		logger:    logger,
	}

	r := gin.New()
	r.Use(requestID(), accessLog(logger), gin.Recovery())
	r.GET("/healthz", s.health)
	r.POST("/callback", s.callback)
	r.POST("/cron/deliver", s.deliver)

	s.engine = r
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks until ctx is cancelled, then shuts the server down
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// callback receives Telegram updates. Once the request is authenticated and
// decoded it always answers 200, so Telegram never redelivers an update.
func (s *Server) callback(c *gin.Context) {
	if !secretMatches(s.cfg.WebhookSecret, c.GetHeader(telegramSecretHeader)) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret token"})
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed update"})
		return
	}

	if err := s.updates.HandleUpdate(c.Request.Context(), update); err != nil {
		s.logger.Error("Failed to handle update",
			zap.Error(err),
			zap.Int("update_id", update.UpdateID),
			zap.String("request_id", c.GetString(requestIDKey)))
	}
	c.String(http.StatusOK, "OK")
}

func (s *Server) deliver(c *gin.Context) {
	if !secretMatches(s.cfg.CronSecret, c.GetHeader(cronSecretHeader)) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid cron secret"})
		return
	}

	report, err := s.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// secretMatches rejects every request when no secret is configured
func secretMatches(expected, got string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
