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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qanda/qanda/backend/go-services/internal/config"
	"github.com/qanda/qanda/backend/go-services/internal/database"
	"github.com/qanda/qanda/backend/go-services/internal/oidc"
	"github.com/qanda/qanda/backend/go-services/internal/qanda/repository"
	"github.com/qanda/qanda/backend/go-services/internal/qanda/service"
	"github.com/qanda/qanda/backend/go-services/internal/resolver"
	"github.com/qanda/qanda/backend/go-services/pkg/logger"
	"github.com/qanda/qanda/backend/go-services/pkg/metrics"
	"github.com/qanda/qanda/backend/go-services/pkg/middleware"
)

const mongoConnectAttempts = 5

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateResolver(); err != nil {
		logger.Fatalf("%v", err)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer closeRepo()

	var verifier middleware.Verifier
	if cfg.IdentityProvider.AllowInsecureToken {
		logger.Warnf("enabling insecure token verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	} else {
		ver, err := oidc.NewVerifier(ctx, cfg.IdentityProvider.Issuer, cfg.IdentityProvider.ClientID)
		if err != nil {
			logger.Fatalf("failed to initialize OIDC verifier: %v", err)
		}
		verifier = ver
	}

	var opts []resolver.Option
	if cfg.Resolver.EnforceGroups {
		opts = append(opts, resolver.WithGroupPolicy(resolver.DefaultGroupPolicy()))
	}
	dispatcher := resolver.NewDispatcher(service.NewStore(repo), opts...)
	schema, err := resolver.NewSchema(dispatcher)
	if err != nil {
		logger.Fatalf("build schema: %v", err)
	}

	r := resolver.NewRouter(resolver.NewHandler(schema), verifier, gin.Logger())
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "storage": cfg.Storage.Backend, "groups": cfg.Resolver.EnforceGroups})
	})
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.ResolverPort),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting resolver on %s (storage=%s)", srv.Addr, cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	logger.Infof("resolver stopped")
}

// openRepository connects the configured backend. The returned func releases it.
func openRepository(ctx context.Context, cfg *config.Config) (repository.Repository, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendDynamoDB:
		client, err := database.NewDynamoClient(ctx, cfg.DynamoDB.Region, cfg.DynamoDB.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewDynamoRepo(client, cfg.DynamoDB.Table), func() {}, nil
	case config.BackendMongo:
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", mongoConnectAttempts, err)
		}
		col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		repo, err := repository.NewMongoRepo(ctx, col)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		logger.Warnf("using in-memory storage; data is lost on restart")
		return repository.NewMemoryRepo(), func() {}, nil
	}
}
