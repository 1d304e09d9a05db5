// Package config carga la configuración del servicio desde YAML, .env y
// variables de entorno.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del journal.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Risk    RiskConfig    `yaml:"risk"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig controla el listener HTTP y el rate limiting.
type ServerConfig struct {
	Addr        string  `yaml:"addr"`
	RatePerSec  float64 `yaml:"rate_per_sec"` // requests por segundo por usuario
	RateBurst   int     `yaml:"rate_burst"`
	TimeoutSecs int     `yaml:"timeout_seconds"`
}

// StorageConfig controla dónde se persiste el journal. El DSN se pasa
// explícito al constructor del Ledger; no hay path global implícito.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// RiskConfig son los umbrales por defecto del monitor de riesgo. Cada llamada
// puede sobreescribirlos.
type RiskConfig struct {
	RecentTrades             int     `yaml:"recent_trades"`
	ConsecutiveLossThreshold int     `yaml:"consecutive_loss_threshold"`
	MaxTradesPerHour         int     `yaml:"max_trades_per_hour"`
	MaxRiskPerTradePercent   float64 `yaml:"max_risk_per_trade_percent"`
	DrawdownThresholdPercent float64 `yaml:"drawdown_threshold_percent"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. path vacío significa solo defaults y entorno. Los valores del
// entorno sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("JOURNAL_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RatePerSec = f
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RatePerSec <= 0 {
		cfg.Server.RatePerSec = 5
	}
	if cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = 10
	}
	if cfg.Server.TimeoutSecs <= 0 {
		cfg.Server.TimeoutSecs = 30
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "journalbot.db"
	}
	if cfg.Risk.RecentTrades <= 0 {
		cfg.Risk.RecentTrades = 10
	}
	if cfg.Risk.ConsecutiveLossThreshold <= 0 {
		cfg.Risk.ConsecutiveLossThreshold = 3
	}
	if cfg.Risk.MaxTradesPerHour <= 0 {
		cfg.Risk.MaxTradesPerHour = 5
	}
	if cfg.Risk.MaxRiskPerTradePercent <= 0 {
		cfg.Risk.MaxRiskPerTradePercent = 2.0
	}
	if cfg.Risk.DrawdownThresholdPercent <= 0 {
		cfg.Risk.DrawdownThresholdPercent = 10.0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
