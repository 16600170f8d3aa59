package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendDynamoDB = "dynamodb"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// ErrInvalidConfig is wrapped by the Validate* methods.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration for both binaries.
type Config struct {
	Server           ServerConfig
	Gateway          GatewayConfig
	IdentityProvider IdentityProviderConfig
	Resolver         ResolverConfig
	Storage          StorageConfig
	DynamoDB         DynamoDBConfig
	MongoDB          MongoDBConfig
	Redis            RedisConfig
	RateLimit        RateLimitConfig
}

type ServerConfig struct {
	Port         string
	ResolverPort string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type GatewayConfig struct {
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string
}

type IdentityProviderConfig struct {
	Domain             string
	TokenURL           string
	Issuer             string
	ClientID           string
	AllowInsecureToken bool
}

type ResolverConfig struct {
	Domain        string
	URL           string
	EnforceGroups bool
}

type StorageConfig struct {
	Backend string
}

type DynamoDBConfig struct {
	Table    string
	Region   string
	Endpoint string
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("RESOLVER_PORT", "8081")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("GATEWAY_REQUEST_TIMEOUT", "29s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("STORAGE_BACKEND", BackendDynamoDB)
	v.SetDefault("MONGODB_DATABASE", "qanda")
	v.SetDefault("MONGODB_COLLECTION", "questions")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	timeout, err := time.ParseDuration(v.GetString("GATEWAY_REQUEST_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("%w: GATEWAY_REQUEST_TIMEOUT: %v", ErrInvalidConfig, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			ResolverPort: v.GetString("RESOLVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Gateway: GatewayConfig{
			RequestTimeout:     timeout,
			CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		IdentityProvider: IdentityProviderConfig{
			Domain:             v.GetString("IDP_DOMAIN"),
			TokenURL:           v.GetString("IDP_TOKEN_URL"),
			Issuer:             v.GetString("IDP_ISSUER"),
			ClientID:           v.GetString("IDP_CLIENT_ID"),
			AllowInsecureToken: v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		Resolver: ResolverConfig{
			Domain:        v.GetString("RESOLVER_DOMAIN"),
			URL:           v.GetString("RESOLVER_URL"),
			EnforceGroups: v.GetBool("RESOLVER_ENFORCE_GROUPS"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
		},
		DynamoDB: DynamoDBConfig{
			Table:    v.GetString("DYNAMODB_TABLE"),
			Region:   v.GetString("AWS_REGION"),
			Endpoint: v.GetString("DYNAMODB_ENDPOINT"),
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       0,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}
	return cfg, nil
}

// TokenEndpoint is IDP_TOKEN_URL, or the token endpoint derived from IDP_DOMAIN.
func (c *Config) TokenEndpoint() string {
	if c.IdentityProvider.TokenURL != "" {
		return c.IdentityProvider.TokenURL
	}
	if c.IdentityProvider.Domain == "" {
		return ""
	}
	return withScheme(c.IdentityProvider.Domain) + "/oauth2/token"
}

// ResolverEndpoint is RESOLVER_URL, or the GraphQL endpoint derived from RESOLVER_DOMAIN.
func (c *Config) ResolverEndpoint() string {
	if c.Resolver.URL != "" {
		return c.Resolver.URL
	}
	if c.Resolver.Domain == "" {
		return ""
	}
	return withScheme(c.Resolver.Domain) + "/graphql"
}

// ValidateGateway reports settings the gateway binary cannot start without.
func (c *Config) ValidateGateway() error {
	var missing []string
	if c.TokenEndpoint() == "" {
		missing = append(missing, "IDP_DOMAIN or IDP_TOKEN_URL")
	}
	if c.ResolverEndpoint() == "" {
		missing = append(missing, "RESOLVER_DOMAIN or RESOLVER_URL")
	}
	if c.Gateway.RequestTimeout <= 0 {
		missing = append(missing, "GATEWAY_REQUEST_TIMEOUT > 0")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateResolver reports settings the resolver binary cannot start without.
func (c *Config) ValidateResolver() error {
	var missing []string
	switch c.Storage.Backend {
	case BackendDynamoDB:
		if c.DynamoDB.Table == "" {
			missing = append(missing, "DYNAMODB_TABLE")
		}
	case BackendMongo:
		if c.MongoDB.URI == "" {
			missing = append(missing, "MONGODB_URI")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown STORAGE_BACKEND %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if !c.IdentityProvider.AllowInsecureToken && (c.IdentityProvider.Issuer == "" || c.IdentityProvider.ClientID == "") {
		missing = append(missing, "IDP_ISSUER and IDP_CLIENT_ID (or ALLOW_INSECURE_TOKEN=true)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

func withScheme(domain string) string {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), "/")
	if strings.Contains(domain, "://") {
		return domain
	}
	return "https://" + domain
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
