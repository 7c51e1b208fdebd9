// Package server assembles the proxy shell's gin engine. Everything of
// substance happens in pkg/client; this layer binds, validates and streams.
package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/parley-llm/parley/internal/server/middleware"
	v1 "github.com/parley-llm/parley/internal/server/v1"
	"github.com/parley-llm/parley/internal/server/validator"
	"github.com/parley-llm/parley/pkg/client"
)

const serviceName = "parley-proxy"

// NewRouter builds the proxy's engine with logging, recovery, tracing and
// the v1 routes.
func NewRouter(c *client.Client, log *zap.Logger, env string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Init()

	engine := gin.New()
	engine.Use(ginzap.Ginzap(log, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(log, true))
	engine.Use(otelgin.Middleware(serviceName))
	engine.Use(middleware.RequestID())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := engine.Group("/v1")
	v1.NewChatHandler(c).RegisterRoutes(group)

	return engine
}
