package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/repolens/repolens/internal/analytics"
	"github.com/repolens/repolens/internal/cache"
	"github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/gateway"
	"github.com/repolens/repolens/internal/monitoring"
	"github.com/repolens/repolens/internal/ratelimit"
	"github.com/repolens/repolens/internal/resilience"
	"github.com/repolens/repolens/internal/security"
	"github.com/repolens/repolens/internal/types"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment with defaults
	port := getEnvOrDefault("PORT", "8080")
	githubToken := os.Getenv("GITHUB_TOKEN")
	githubAPIURL := os.Getenv("GITHUB_API_URL")
	githubGraphQLURL := os.Getenv("GITHUB_GRAPHQL_URL")
	redisAddr := os.Getenv("REDIS_ADDR")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	cacheTTL := getEnvDuration("CACHE_TTL", 15*time.Minute)
	ipLimitPerMin := getEnvInt("RATE_LIMIT_PER_MIN", 60)
	heavyLimitPerMin := getEnvInt("HEAVY_RATE_LIMIT_PER_MIN", 10)

	if githubToken == "" {
		slog.Warn("GITHUB_TOKEN not set, unauthenticated API limits apply")
	}

	gw, err := gateway.NewClient(gateway.Config{
		Token:      githubToken,
		BaseURL:    githubAPIURL,
		GraphQLURL: githubGraphQLURL,
	})
	if err != nil {
		slog.Error("Failed to initialize GitHub gateway", "error", err)
		os.Exit(1)
	}
	defer gw.Close()

	svc := analytics.NewService(gw, analytics.DefaultConfig())

	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	var redisClient *ratelimit.RedisClient
	redisErr := resilience.Retry(context.Background(), func() error {
		var err error
		redisClient, err = ratelimit.NewRedisClient(redisAddr, redisPassword, 0)
		return err
	})
	if redisErr != nil {
		slog.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", redisErr)
	}
	defer redisClient.Close()

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.IPLimitPerMin = ipLimitPerMin
	limiter := ratelimit.NewRateLimiter(redisClient, limiterConfig, appMetrics)

	appCache := cache.NewCache(cacheTTL)

	r := gin.New()

	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))
	r.Use(security.SecurityHeadersMiddleware())
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(limiter.IPRateLimitMiddleware())
	r.Use(appCache.Middleware(appMetrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"metrics":   appMetrics.GetStats(),
		})
	})

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, appMetrics.GetStats())
	})

	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, appCache.Stats())
	})

	r.GET("/ratelimit/status", limiter.HandleRateLimitStatus())
	r.POST("/ratelimit/invalidate/:ip", limiter.HandleInvalidateIP())

	r.GET("/pools/github", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "github",
			"stats": gw.GetPoolStats(),
		})
	})

	// Swagger documentation routes
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")

	api.GET("/repository/:owner/:name", func(c *gin.Context) {
		owner, name, ok := repoParams(c)
		if !ok {
			return
		}

		stats, err := svc.GetRepositoryStats(c.Request.Context(), owner, name)
		if err != nil {
			respondError(c, err)
			return
		}

		appMetrics.IncrementGitHubCalls()
		c.JSON(http.StatusOK, stats)
	})

	api.GET("/analytics/:owner/:name", func(c *gin.Context) {
		owner, name, ok := repoParams(c)
		if !ok {
			return
		}
		start := time.Now()

		result, err := svc.GetAdvancedAnalytics(c.Request.Context(), owner, name)
		if err != nil {
			respondError(c, err)
			return
		}

		appMetrics.IncrementGitHubCalls()
		appLogger.AnalysisLogger(owner+"/"+name, "advanced_analytics", time.Since(start), false)
		c.JSON(http.StatusOK, result)
	})

	api.GET("/contributors/:owner/:name", func(c *gin.Context) {
		owner, name, ok := repoParams(c)
		if !ok {
			return
		}

		period, err := analytics.ParsePeriod(c.Query("period"))
		if err != nil {
			respondError(c, errors.NewValidationError(err.Error()))
			return
		}

		insights, err := svc.GetContributorInsights(c.Request.Context(), owner, name, period)
		if err != nil {
			respondError(c, err)
			return
		}

		appMetrics.IncrementGitHubCalls()
		c.JSON(http.StatusOK, insights)
	})

	api.GET("/competitive/:owner/:name", limiter.EndpointRateLimitMiddleware("competitive", heavyLimitPerMin), func(c *gin.Context) {
		owner, name, ok := repoParams(c)
		if !ok {
			return
		}

		limit := 10
		if limitStr := c.Query("limit"); limitStr != "" {
			l, err := strconv.Atoi(limitStr)
			if err != nil || l < 1 || l > 25 {
				respondError(c, errors.NewValidationError("limit must be an integer between 1 and 25"))
				return
			}
			limit = l
		}

		analysis, err := svc.GetCompetitiveAnalysis(c.Request.Context(), owner, name, limit)
		if err != nil {
			respondError(c, err)
			return
		}

		appMetrics.IncrementGitHubCalls()
		c.JSON(http.StatusOK, analysis)
	})

	api.GET("/search", func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			respondError(c, errors.NewValidationError("query parameter q is required"))
			return
		}

		limit := 10
		if limitStr := c.Query("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 50 {
				limit = l
			}
		}

		result, err := svc.SearchRepositories(c.Request.Context(), query, limit, c.Query("cursor"))
		if err != nil {
			respondError(c, err)
			return
		}

		appMetrics.IncrementGitHubCalls()
		c.JSON(http.StatusOK, result)
	})

	api.GET("/trending", func(c *gin.Context) {
		period, err := analytics.ParseTrendingPeriod(c.Query("period"))
		if err != nil {
			respondError(c, errors.NewValidationError(err.Error()))
			return
		}

		limit := 10
		if limitStr := c.Query("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 50 {
				limit = l
			}
		}

		repos, err := svc.GetTrendingRepositories(c.Request.Context(), c.Query("language"), period, limit)
		if err != nil {
			respondError(c, err)
			return
		}

		appMetrics.IncrementGitHubCalls()
		c.JSON(http.StatusOK, gin.H{"repositories": repos})
	})

	api.POST("/compare", limiter.EndpointRateLimitMiddleware("compare", heavyLimitPerMin), func(c *gin.Context) {
		var req types.CompareRequest
		if err := c.BindJSON(&req); err != nil {
			respondError(c, errors.NewValidationError("request body must list repositories as {owner, name} pairs"))
			return
		}

		results, err := svc.CompareRepositories(c.Request.Context(), req.Repositories)
		if err != nil {
			respondError(c, err)
			return
		}

		appMetrics.IncrementGitHubCalls()
		c.JSON(http.StatusOK, gin.H{"repositories": results})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// repoParams extracts and validates the owner and repository path parameters.
func repoParams(c *gin.Context) (string, string, bool) {
	owner, name := c.Param("owner"), c.Param("name")
	if err := security.ValidateRepoRef(owner, name); err != nil {
		respondError(c, errors.NewValidationError(err.Error()))
		return "", "", false
	}
	return owner, name, true
}

// respondError maps any failure onto its HTTP status and structured body.
func respondError(c *gin.Context, err error) {
	appErr := errors.ToAppError(err)
	errors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, appErr)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
