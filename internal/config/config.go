// Package config carga la configuración del servicio desde variables de entorno.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"medicare-now/internal/gateway"
)

const (
	AuthDev    = "dev"
	AuthLocal  = "local"
	AuthRemote = "remote"

	BackendMemory   = "memory"
	BackendBolt     = "bolt"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"

	minSecretBytes = 16
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	AppName   string `env:"APP_NAME" envDefault:"medicare-now"`

	AuthMode   string        `env:"AUTH_MODE" envDefault:"local"`
	JWTSecret  string        `env:"JWT_SECRET"`
	JWTIssuer  string        `env:"JWT_ISSUER" envDefault:"medicare-now"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"12"`

	IdPBaseURL      string        `env:"IDP_BASE_URL"`
	IdPAPIKey       string        `env:"IDP_API_KEY"`
	IdPAPIKeyHeader string        `env:"IDP_API_KEY_HEADER" envDefault:"X-Api-Key"`
	IdPTimeout      time.Duration `env:"IDP_TIMEOUT" envDefault:"5s"`

	RealtimeBackend string        `env:"REALTIME_BACKEND" envDefault:"memory"`
	BoltPath        string        `env:"BOLT_PATH" envDefault:"medicare-realtime.db"`
	BoltTimeout     time.Duration `env:"BOLT_TIMEOUT" envDefault:"1s"`

	DocumentBackend string `env:"DOCUMENT_BACKEND" envDefault:"memory"`
	MongoURI        string `env:"MONGODB_URI"`
	MongoDatabase   string `env:"MONGODB_DATABASE" envDefault:"medicare"`
	DBDSN           string `env:"DB_DSN"`

	// GATEWAY_ROUTES="health_data:realtime,recomandari:document"
	GatewayRoutes        map[string]string `env:"GATEWAY_ROUTES" envSeparator:"," envKeyValSeparator:":"`
	GatewayRetryAttempts uint              `env:"GATEWAY_RETRY_ATTEMPTS" envDefault:"3"`
	GatewayRetryInterval time.Duration     `env:"GATEWAY_RETRY_INTERVAL" envDefault:"100ms"`

	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parsea el entorno y valida todo (servidor HTTP).
func Load() (Config, error) {
	return load(Config.Validate)
}

// LoadStorage valida solo lo que hace falta para abrir los backends:
// migrate, ingest y account create no emiten ni verifican tokens.
func LoadStorage() (Config, error) {
	return load(Config.ValidateStorage)
}

func load(validate func(Config) error) (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	c.normalize()
	if err := validate(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) normalize() {
	c.AuthMode = strings.ToLower(strings.TrimSpace(c.AuthMode))
	c.RealtimeBackend = strings.ToLower(strings.TrimSpace(c.RealtimeBackend))
	c.DocumentBackend = strings.ToLower(strings.TrimSpace(c.DocumentBackend))
}

// Validate junta todos los problemas en un solo error.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORT is required"))
	}

	switch c.AuthMode {
	case AuthDev:
	case AuthLocal:
		if len(c.JWTSecret) < minSecretBytes {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in local auth mode", minSecretBytes))
		}
		if c.SessionTTL <= 0 {
			errs = append(errs, errors.New("SESSION_TTL must be positive"))
		}
	case AuthRemote:
		if strings.TrimSpace(c.IdPBaseURL) == "" || strings.TrimSpace(c.IdPAPIKey) == "" {
			errs = append(errs, errors.New("IDP_BASE_URL and IDP_API_KEY are required in remote auth mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE %q is not one of dev, local, remote", c.AuthMode))
	}

	errs = append(errs, c.ValidateStorage())
	return errors.Join(errs...)
}

// ValidateStorage: backends, rutas y reintentos del gateway.
func (c Config) ValidateStorage() error {
	var errs []error

	switch c.RealtimeBackend {
	case BackendMemory:
	case BackendBolt:
		if strings.TrimSpace(c.BoltPath) == "" {
			errs = append(errs, errors.New("BOLT_PATH is required for the bolt realtime backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("REALTIME_BACKEND %q is not one of memory, bolt", c.RealtimeBackend))
	}

	switch c.DocumentBackend {
	case BackendMemory:
	case BackendMongo:
		if strings.TrimSpace(c.MongoURI) == "" || strings.TrimSpace(c.MongoDatabase) == "" {
			errs = append(errs, errors.New("MONGODB_URI and MONGODB_DATABASE are required for the mongo document backend"))
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DBDSN) == "" {
			errs = append(errs, errors.New("DB_DSN is required for the postgres document backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("DOCUMENT_BACKEND %q is not one of memory, mongo, postgres", c.DocumentBackend))
	}

	if _, err := c.Routes(); err != nil {
		errs = append(errs, err)
	}
	if c.GatewayRetryAttempts == 0 {
		errs = append(errs, errors.New("GATEWAY_RETRY_ATTEMPTS must be at least 1"))
	}

	return errors.Join(errs...)
}

// Routes convierte GATEWAY_ROUTES en rutas del gateway.
func (c Config) Routes() (map[string]gateway.Kind, error) {
	out := make(map[string]gateway.Kind, len(c.GatewayRoutes))
	for category, kind := range c.GatewayRoutes {
		category = strings.TrimSpace(category)
		k := gateway.Kind(strings.ToLower(strings.TrimSpace(kind)))
		if category == "" || strings.Contains(category, "/") {
			return nil, fmt.Errorf("GATEWAY_ROUTES: invalid category %q", category)
		}
		if !k.Valid() {
			return nil, fmt.Errorf("GATEWAY_ROUTES: unknown backend kind %q for %q", kind, category)
		}
		out[category] = k
	}
	return out, nil
}

func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
}
