package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/api/handlers"
	"github.com/andresuchdata/costbook/backend-go/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Analytics handlers.AnalyticsRunner
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
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

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.Analytics != nil {
		analyticsHandler := handlers.NewAnalyticsHandler(services.Analytics)
		analyticsGroup := apiGroup.Group("/companies/:companyID/analytics")
		{
			analyticsGroup.GET("/forecast", analyticsHandler.GetForecast)
			analyticsGroup.GET("/reorder", analyticsHandler.GetReorderSuggestions)
			analyticsGroup.GET("/trends/:metric", analyticsHandler.GetTrend)
			analyticsGroup.GET("/seasonality", analyticsHandler.GetSeasonality)
			analyticsGroup.GET("/yoy", analyticsHandler.GetYearOverYear)

			profitabilityGroup := analyticsGroup.Group("/profitability")
			{
				profitabilityGroup.GET("/recipes", analyticsHandler.GetRecipeProfitability)
				profitabilityGroup.GET("/categories", analyticsHandler.GetCategoryProfitability)
				profitabilityGroup.GET("/top", analyticsHandler.GetTopRecipes)
				profitabilityGroup.GET("/attention", analyticsHandler.GetRecipesNeedingAttention)
			}
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
