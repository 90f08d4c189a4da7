package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del evaluador.
type Config struct {
	Evaluator   EvaluatorConfig   `yaml:"evaluator"`
	Connector   ConnectorConfig   `yaml:"connector"`
	RiskTracker RiskTrackerConfig `yaml:"risk_tracker"`
	Storage     StorageConfig     `yaml:"storage"`
	API         APIConfig         `yaml:"api"`
	Log         LogConfig         `yaml:"log"`
	Rules       []RuleConfig      `yaml:"rules"`    // overrides sobre el catálogo por defecto
	Accounts    []AccountConfig   `yaml:"accounts"` // seed: se persisten al arrancar
}

// EvaluatorConfig controla los batches de evaluación.
type EvaluatorConfig struct {
	IntervalSeconds     int `yaml:"interval_seconds"`
	Workers             int `yaml:"workers"` // 0 = NumCPU*2
	WindowDays          int `yaml:"window_days"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
}

// ConnectorConfig configura el Trading Data Connector (MetaApi).
type ConnectorConfig struct {
	BaseURL       string  `yaml:"base_url"`
	Token         string  `yaml:"token"`
	MaxRetries    int     `yaml:"max_retries"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// RiskTrackerConfig configura el stream del risk tracker externo.
type RiskTrackerConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"` // vacío = se usa el token del connector
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// APIConfig controla el servidor HTTP de reporting.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// RuleConfig registra o reemplaza un RuleSet del catálogo.
type RuleConfig struct {
	ChallengeType  string         `yaml:"challenge_type"`
	Phase          int            `yaml:"phase"` // 0 = cualquier fase
	domain.RuleSet `yaml:",inline"`
}

// AccountConfig es una cuenta de challenge del seed.
type AccountConfig struct {
	ID              string  `yaml:"id"`
	BaselineBalance float64 `yaml:"baseline_balance"`
	ChallengeType   string  `yaml:"challenge_type"`
	Phase           int     `yaml:"phase"`
	Status          string  `yaml:"status"` // active | passed | failed
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Interval devuelve el intervalo entre batches como time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Evaluator.IntervalSeconds) * time.Second
}

// FetchTimeout devuelve el límite por cuenta como time.Duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Evaluator.FetchTimeoutSeconds) * time.Second
}

// Catalog devuelve el catálogo por defecto con los overrides de config aplicados.
func (c *Config) Catalog() domain.Catalog {
	catalog := domain.DefaultCatalog()
	for _, r := range c.Rules {
		catalog.Register(domain.RuleKey{
			Type:  domain.ChallengeType(r.ChallengeType),
			Phase: domain.Phase(r.Phase),
		}, r.RuleSet)
	}
	return catalog
}

// SeedAccounts convierte el seed de config en cuentas de dominio.
func (c *Config) SeedAccounts() []domain.Account {
	accounts := make([]domain.Account, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		status := domain.AccountStatus(strings.ToLower(a.Status))
		if status == "" {
			status = domain.AccountActive
		}
		accounts = append(accounts, domain.Account{
			ID:              a.ID,
			BaselineBalance: a.BaselineBalance,
			ChallengeType:   domain.ChallengeType(a.ChallengeType),
			Phase:           domain.Phase(a.Phase),
			Status:          status,
		})
	}
	return accounts
}

// validate rechaza seeds que el motor no puede evaluar.
func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.ID == "" {
			return fmt.Errorf("accounts[%d]: missing id", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("accounts[%d]: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true
		if a.BaselineBalance <= 0 {
			return fmt.Errorf("accounts[%d] %s: baseline_balance must be positive", i, a.ID)
		}
		switch strings.ToLower(a.Status) {
		case "", "active", "passed", "failed":
		default:
			return fmt.Errorf("accounts[%d] %s: unknown status %q", i, a.ID, a.Status)
		}
	}
	if c.RiskTracker.Enabled && c.RiskTracker.URL == "" {
		return fmt.Errorf("risk_tracker: enabled without url")
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("METAAPI_TOKEN"); v != "" {
		cfg.Connector.Token = v
	}
	if v := os.Getenv("METAAPI_BASE_URL"); v != "" {
		cfg.Connector.BaseURL = v
	}
	if v := os.Getenv("RISK_TRACKER_URL"); v != "" {
		cfg.RiskTracker.URL = v
	}
	if v := os.Getenv("RISK_TRACKER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RiskTracker.Enabled = b
		}
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Evaluator.IntervalSeconds <= 0 {
		cfg.Evaluator.IntervalSeconds = 300
	}
	if cfg.Evaluator.WindowDays <= 0 {
		cfg.Evaluator.WindowDays = 30
	}
	if cfg.Evaluator.FetchTimeoutSeconds <= 0 {
		cfg.Evaluator.FetchTimeoutSeconds = 30
	}
	if cfg.Connector.BaseURL == "" {
		cfg.Connector.BaseURL = "https://mt-client-api-v1.london.agiliumtrade.ai"
	}
	if cfg.Connector.MaxRetries <= 0 {
		cfg.Connector.MaxRetries = 3
	}
	if cfg.Connector.RatePerSecond <= 0 {
		cfg.Connector.RatePerSecond = 10
	}
	if cfg.RiskTracker.Token == "" {
		cfg.RiskTracker.Token = cfg.Connector.Token
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "evaluator.db"
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
