package router

import (
	"net/http"
	"os"
	"strings"

	"settlement-backend/internal/handlers"
	"settlement-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// corsMiddleware allows browser dashboards to hit the API. Origins come from
// CORS_ALLOWED_ORIGINS (comma separated); unset means allow all.
func corsMiddleware() gin.HandlerFunc {
	allowedOrigins := []string{"*"}
	if env := os.Getenv("CORS_ALLOWED_ORIGINS"); env != "" {
		allowedOrigins = allowedOrigins[:0]
		for _, o := range strings.Split(env, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowed := range allowedOrigins {
				if allowed == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SetupRouter wires all HTTP routes
func SetupRouter(
	db *gorm.DB,
	merchantHandler *handlers.MerchantHandler,
	paymentHandler *handlers.PaymentHandler,
	transferHandler *handlers.TransferHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(corsMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheckHandler(db))

		api.POST("/merchants", merchantHandler.CreateMerchant)
		api.GET("/merchants", merchantHandler.ListMerchants)
		api.GET("/merchants/:id", merchantHandler.GetMerchant)
		api.GET("/merchants/:id/payouts", merchantHandler.ListMerchantPayouts)

		api.POST("/payments/incoming", paymentHandler.RegisterPayment)
		api.GET("/payments", paymentHandler.ListPayments)
		api.GET("/payments/:id", paymentHandler.GetPayment)
		api.POST("/payments/:id/bridge", paymentHandler.StartBridge)

		api.GET("/transfers/:id", transferHandler.GetTransfer)
		api.POST("/transfers/:id/poll", transferHandler.PollTransfer)
	}

	return r
}
