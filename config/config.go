package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del daemon de pagos.
type Config struct {
	Wallet    WalletConfig    `yaml:"wallet"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// WalletConfig identifica las direcciones propias y el asset base a pagar.
type WalletConfig struct {
	Addresses []string `yaml:"addresses"`
	BaseAsset string   `yaml:"base_asset"` // asset que esta wallet paga en los matches (ej. "BTC")
	AutoPay   bool     `yaml:"auto_pay"`   // valor inicial; mutable en runtime vía prefs
}

// SchedulerConfig controla las ventanas de seguridad y el ciclo periódico.
type SchedulerConfig struct {
	TickSeconds          int `yaml:"tick_seconds"`
	EligibilityThreshold int `yaml:"eligibility_threshold"` // confirmaciones antes de poder pagar (reorg safety)
	ExpiryMargin         int `yaml:"expiry_margin"`         // bloques de margen antes del expiry del match
	SecondsPerBlock      int `yaml:"seconds_per_block"`     // para estimar tiempos de expiración
}

// APIConfig contiene el base URL del nodo/API de la capa DEX.
type APIConfig struct {
	Base string `yaml:"base"`
}

// StorageConfig controla dónde se persiste el journal de pagos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
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

	if len(cfg.Wallet.Addresses) == 0 {
		return nil, fmt.Errorf("config.Load: wallet.addresses is empty")
	}

	return &cfg, nil
}

// TickInterval devuelve el intervalo del ciclo como time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Scheduler.TickSeconds) * time.Second
}

// BlockTime devuelve la duración estimada de un bloque.
func (c *Config) BlockTime() time.Duration {
	return time.Duration(c.Scheduler.SecondsPerBlock) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("API_BASE"); v != "" {
		cfg.API.Base = v
	}
	if v := os.Getenv("WALLET_ADDRESSES"); v != "" {
		cfg.Wallet.Addresses = splitAddresses(v)
	}
}

// splitAddresses parsea una lista separada por comas, descartando vacíos.
func splitAddresses(v string) []string {
	var out []string
	for _, a := range strings.Split(v, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Wallet.BaseAsset == "" {
		cfg.Wallet.BaseAsset = "BTC"
	}
	if cfg.Scheduler.TickSeconds <= 0 {
		cfg.Scheduler.TickSeconds = 60
	}
	if cfg.Scheduler.EligibilityThreshold <= 0 {
		cfg.Scheduler.EligibilityThreshold = 6
	}
	if cfg.Scheduler.ExpiryMargin <= 0 {
		cfg.Scheduler.ExpiryMargin = 6
	}
	if cfg.Scheduler.SecondsPerBlock <= 0 {
		cfg.Scheduler.SecondsPerBlock = 600
	}
	if cfg.API.Base == "" {
		cfg.API.Base = "http://localhost:4000/api"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "btcpayd.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
