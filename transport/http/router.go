package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/starnotary/ports"
	"github.com/layer-3/starnotary/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(registry *service.RegistryService, tokenizer ports.Tokenizer, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	// Create handlers
	handlers := NewRegistryHandlers(registry, logger)

	router.GET("/healthz", handlers.Health)

	// Registration handshake
	router.POST("/requestValidation", handlers.RequestValidation)
	router.POST("/message-signature/validate", handlers.ValidateSignature)

	// Ledger
	router.POST("/block", handlers.RegisterStar)
	router.GET("/block/:height", handlers.GetBlock)

	// Operator routes
	admin := router.Group("/admin")
	admin.Use(AdminMiddleware(tokenizer))
	{
		admin.POST("/validationWindow", handlers.SetValidationWindow)
		admin.GET("/chain/validate", handlers.ValidateChain)
	}

	return router
}
