package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/api/handlers"
	"github.com/andresuchdata/erpflow/internal/api/middleware"
	"github.com/andresuchdata/erpflow/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Uploads   *service.UploadService
	Analytics *service.AnalyticsService
	// Health reports whether the warehouse is reachable.
	Health func(ctx context.Context) error
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
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
	if services == nil {
		services = &Services{}
	}

	apiGroup.GET("/health", healthHandler(services.Health))

	if services.Uploads != nil {
		uploadHandler := handlers.NewUploadHandler(services.Uploads)
		uploadGroup := apiGroup.Group("/upload")
		{
			uploadGroup.POST("", uploadHandler.Upload)
			uploadGroup.GET("/history", uploadHandler.History)
			uploadGroup.GET("/:id/status", uploadHandler.Status)
			uploadGroup.POST("/:id/cancel", uploadHandler.Cancel)
			uploadGroup.POST("/:id/reprocess", uploadHandler.Reprocess)
		}
	}

	if services.Analytics != nil {
		h := handlers.NewDashboardHandler(services.Analytics)

		ar := apiGroup.Group("/ar-aging")
		{
			ar.GET("/snapshots", h.ARSnapshots)
			ar.GET("/summary", h.ARSummary)
		}

		sales := apiGroup.Group("/sales")
		{
			sales.GET("/summary", h.SalesSummary)
			sales.GET("/by-division", h.SalesByDivision)
		}

		apiGroup.GET("/yield/summary", h.YieldSummary)

		inventory := apiGroup.Group("/inventory")
		{
			inventory.GET("/summary", h.InventorySummary)
			inventory.GET("/stock", h.InventoryStock)
		}

		mto := apiGroup.Group("/mto-orders")
		{
			mto.GET("/summary", h.MTOSummary)
			mto.GET("/orders", h.MTOOrders)
		}

		leadTime := apiGroup.Group("/leadtime")
		{
			leadTime.GET("/summary", h.LeadTimeSummary)
			leadTime.GET("/orders", h.LeadTimeOrders)
		}

		apiGroup.GET("/alerts", h.Alerts)
		apiGroup.GET("/alerts/summary", h.AlertSummary)
	}

	return router
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
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
