package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"almoxarifado/internal/domain"
)

// Config armazena todas as configurações do serviço de almoxarifado.
type Config struct {
	// Geral
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Banco de Dados (PostgreSQL)
	DatabaseURL    string        `envconfig:"DATABASE_URL" required:"true"`
	DBTimeout      time.Duration `envconfig:"DB_TIMEOUT" default:"5s"`
	DBMaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DBMaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBConnLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	DBConnIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"5m"`
	MigrationsDir  string        `envconfig:"MIGRATIONS_DIR" default:"./sql"`

	// Cache (Redis), usado pelo rate limiting
	RedisAddr            string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RateLimitEnabled     bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitMaxRequests int           `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"100"`
	RateLimitPeriod      time.Duration `envconfig:"RATE_LIMIT_PERIOD" default:"1m"`

	// Só com proxy reverso confiável na frente; habilita X-Forwarded-For/X-Real-IP como IP do cliente.
	TrustProxy bool `envconfig:"TRUST_PROXY" default:"false"`

	// Segurança (JWT)
	AuthEnabled  bool          `envconfig:"AUTH_ENABLED" default:"false"`
	JWTSecretKey string        `envconfig:"JWT_SECRET_KEY"`
	TokenExpiry  time.Duration `envconfig:"JWT_EXPIRY" default:"60m"`

	// Domínio
	SupplierDeleteMode string `envconfig:"SUPPLIER_DELETE_MODE" default:"nullify"`
	PhoneDefaultRegion string `envconfig:"PHONE_DEFAULT_REGION" default:"BR"`

	deleteMode domain.SupplierDeleteMode
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
// O .env (se houver) deve ser carregado antes, pelo binário.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("erro de configuração: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("erro de configuração: DATABASE_URL deve ser definida")
	}

	mode, ok := domain.ParseSupplierDeleteMode(cfg.SupplierDeleteMode)
	if !ok {
		return nil, fmt.Errorf("erro de configuração: SUPPLIER_DELETE_MODE inválido %q (use nullify ou cascade)", cfg.SupplierDeleteMode)
	}
	cfg.deleteMode = mode

	if cfg.AuthEnabled && cfg.JWTSecretKey == "" {
		return nil, errors.New("erro de configuração: JWT_SECRET_KEY é obrigatório com AUTH_ENABLED=true")
	}
	if cfg.RateLimitEnabled && (cfg.RateLimitMaxRequests < 1 || cfg.RateLimitPeriod <= 0) {
		return nil, errors.New("erro de configuração: RATE_LIMIT_MAX_REQUESTS e RATE_LIMIT_PERIOD devem ser positivos")
	}
	return &cfg, nil
}

// DeleteMode devolve o modo de exclusão de fornecedor já validado.
func (c *Config) DeleteMode() domain.SupplierDeleteMode {
	return c.deleteMode
}

// IsProduction informa se o serviço roda em produção.
func (c *Config) IsProduction() bool {
	return c != nil && c.Environment == "production"
}
