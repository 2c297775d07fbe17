package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/resilience"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/session"
)

// StartOpts holds configuration for the webhook server.
type StartOpts struct {
	Handler  *Handler
	Registry *session.Registry
	Limiter  *resilience.RateLimiter
	Port     int
	Out      io.Writer
}

// Start launches the webhook HTTP server and the maintenance loop. It
// blocks until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Handler == nil {
		return fmt.Errorf("webhook: handler is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts.Handler)

	if opts.Registry != nil {
		go maintenanceLoop(ctx, opts.Registry, opts.Limiter)
	}

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dispatch webhooks listening on :%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// registerRoutes sets up the carrier-facing routes.
func registerRoutes(router *gin.Engine, h *Handler) {
	router.POST("/webhooks/voice", h.HandleVoice)
	router.POST("/webhooks/voice/status", h.HandleStatus)
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
}
