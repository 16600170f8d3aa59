package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qanda/qanda/backend/go-services/handlers"
	"github.com/qanda/qanda/backend/go-services/internal/config"
	"github.com/qanda/qanda/backend/go-services/internal/graphqlclient"
	"github.com/qanda/qanda/backend/go-services/internal/idp"
	"github.com/qanda/qanda/backend/go-services/pkg/logger"
	"github.com/qanda/qanda/backend/go-services/pkg/metrics"
	"github.com/qanda/qanda/backend/go-services/pkg/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateGateway(); err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Infof("config loaded: token=%s resolver=%s redis=%v", cfg.TokenEndpoint(), cfg.ResolverEndpoint(), cfg.Redis.Host != "")

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), middleware.Recovery())
	r.Use(cors.New(corsConfig(cfg.Gateway.CORSAllowedOrigins)))
	r.Use(middleware.RequestMetrics(metrics.GatewayRequests))

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		var rdb *redis.Client
		if cfg.RateLimit.UseRedis && cfg.Redis.Host != "" {
			rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			if err := rdb.Ping(context.Background()).Err(); err != nil {
				logger.Warnf("failed to connect to Redis (%s:%s), using in-process rate limiter: %v", cfg.Redis.Host, cfg.Redis.Port, err)
				_ = rdb.Close()
				rdb = nil
			} else {
				defer func() { _ = rdb.Close() }()
			}
		}
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		if rdb != nil {
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
		logger.Infof("rate limiter enabled: rps=%.2f burst=%d redis=%v", cfg.RateLimit.RPS, cfg.RateLimit.Burst, rdb != nil)
	}
	r.Use(middleware.Timeout(cfg.Gateway.RequestTimeout))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	gw := handlers.NewGatewayHandler(
		idp.NewClient(cfg.TokenEndpoint(), cfg.Gateway.RequestTimeout),
		graphqlclient.New(cfg.ResolverEndpoint(), cfg.Gateway.RequestTimeout),
	)
	gw.Register(r)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	serve(srv, "gateway")
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	c.ExposeHeaders = []string{"Content-Length"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// serve runs srv until SIGINT/SIGTERM and then drains in-flight requests.
func serve(srv *http.Server, name string) {
	go func() {
		logger.Infof("starting %s on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	logger.Infof("%s stopped", name)
}
