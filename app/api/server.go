package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rent-comb/app/cfg"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	r.GET("/feeds/listings", handler.GetListingFeed)

	// The API is only mounted when a key is configured.
	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/listings", handler.APIListListings)
			api.GET("/listings/:id", handler.APIGetListing)
			api.PATCH("/listings/:id/status", handler.APISetListingStatus)
			api.GET("/neighborhoods", handler.APIListNeighborhoods)
			api.GET("/neighborhoods/discovered", handler.APIListDiscovered)
			api.GET("/searches", handler.APIListSearches)
			api.POST("/searches", handler.APICreateSearch)
			api.DELETE("/searches/:id", handler.APIDeleteSearch)
			api.POST("/portals/:name/crawl", handler.APICrawlPortal)
			api.POST("/reap", handler.APIReap)
			api.GET("/runs", handler.APIListRuns)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health": "/health",
			"stats":  "/stats",
			"feed":   "/feeds/listings?source=<portal>&sector=<sector>",
		}

		if apiAccessKey != "" {
			endpoints["listings"] = "/api/listings (requires X-API-Key header)"
			endpoints["listing"] = "/api/listings/<id> (GET; PATCH /status)"
			endpoints["neighborhoods"] = "/api/neighborhoods, /api/neighborhoods/discovered"
			endpoints["searches"] = "/api/searches (GET, POST; DELETE /<id>)"
			endpoints["crawl"] = "/api/portals/<name>/crawl (POST)"
			endpoints["reap"] = "/api/reap (POST)"
			endpoints["runs"] = "/api/runs"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "Rent Comb",
			"version":     cfg.Get().Version,
			"description": "Rental listing crawler with deduplication, neighborhood resolution, and staleness tracking",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
