// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/internal/api/handlers"
	"github.com/andresuchdata/replenish/internal/api/middleware"
	"github.com/andresuchdata/replenish/internal/service"
)

type Services struct {
	AnalysisService *service.AnalysisService
}

func NewRouter(services *Services, allowedOrigins []string, maxUploadMB int) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	if maxUploadMB > 0 {
		router.MaxMultipartMemory = int64(maxUploadMB) << 20
	}

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")
	apiGroup.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services != nil && services.AnalysisService != nil {
		h := handlers.NewAnalysisHandler(services.AnalysisService)

		apiGroup.POST("/datasets", h.UploadDataset)
		apiGroup.POST("/purchase_orders", h.UploadPurchaseOrders)

		skuGroup := apiGroup.Group("/skus")
		{
			skuGroup.GET("", h.ListSkus)
			skuGroup.GET("/:sku", h.GetSku)
			skuGroup.GET("/:sku/decision", h.GetDecision)
			skuGroup.PUT("/:sku/vendor", h.SetSkuVendor)
		}

		apiGroup.GET("/decisions", h.ListDecisions)
		apiGroup.GET("/validation", h.GetValidation)

		vendorGroup := apiGroup.Group("/vendors")
		{
			vendorGroup.GET("", h.ListVendors)
			vendorGroup.PUT("/:vendor/lead_time", h.SetVendorLeadTime)
			vendorGroup.DELETE("/:vendor/lead_time", h.ClearVendorLeadTime)
		}

		planningGroup := apiGroup.Group("/planning")
		{
			planningGroup.GET("", h.GetPlanning)
			planningGroup.PUT("/window", h.SetPlanningWindow)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
