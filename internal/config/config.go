package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Configuration struct {
	Server      ServerConfig      `json:"server"`
	Logging     LoggingConfig     `json:"logging"`
	Database    DatabaseConfig    `json:"database"`
	Chain       ChainConfig       `json:"chain"`
	Vision      VisionConfig      `json:"vision"`
	Fingerprint FingerprintConfig `json:"fingerprint"`
	Scoring     ScoringConfig     `json:"scoring"`
	Outbox      OutboxConfig      `json:"outbox"`
}

type ServerConfig struct {
	Port          string        `json:"port"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	IdleTimeout   time.Duration `json:"idle_timeout"`
	MaxUploadSize int64         `json:"max_upload_size"`
	AdminAPIKey   string        `json:"admin_api_key"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type DatabaseConfig struct {
	Host            string `json:"host"`
	Port            string `json:"port"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	Name            string `json:"name"`
	SSLMode         string `json:"ssl_mode"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	MaxOpenConns    int    `json:"max_open_conns"`
	ConnMaxLifetime int    `json:"conn_max_lifetime"`
}

// ChainConfig selects the network and the deployed registry contract. It is
// passed explicitly into the chain client; nothing reads it from globals.
type ChainConfig struct {
	ChainID         int64         `json:"chain_id"`
	RPCURLs         []string      `json:"rpc_urls"`
	ContractAddress string        `json:"contract_address"`
	PrivateKey      string        `json:"private_key"`
	ConfirmTimeout  time.Duration `json:"confirm_timeout"`
}

type VisionConfig struct {
	Enabled  bool          `json:"enabled"`
	Endpoint string        `json:"endpoint"`
	APIKey   string        `json:"api_key"`
	Model    string        `json:"model"`
	Timeout  time.Duration `json:"timeout"`
}

// FingerprintConfig carries the extraction thresholds and the normalization
// stop words. These were tuned by trial and error upstream, so they are
// configuration rather than constants.
type FingerprintConfig struct {
	MinTextLength       int      `json:"min_text_length"`
	EscalationThreshold float64  `json:"escalation_threshold"`
	DomainKeywords      []string `json:"domain_keywords"`
	StopWords           []string `json:"stop_words"`
	KeywordWeight       float64  `json:"keyword_weight"`
	LengthWeight        float64  `json:"length_weight"`
	RasterDPI           int      `json:"raster_dpi"`
}

// ScoringConfig holds the additive weights of the verification security
// score. The total is capped at 100 after the fallback penalty.
type ScoringConfig struct {
	DatabaseMatch     int `json:"database_match"`
	ChainMatch        int `json:"chain_match"`
	NoTamper          int `json:"no_tamper"`
	InstitutionSignal int `json:"institution_signal"`
	MetadataPlausible int `json:"metadata_plausible"`
	QRFallbackPenalty int `json:"qr_fallback_penalty"`
}

type OutboxConfig struct {
	PollInterval    time.Duration `json:"poll_interval"`
	MaxAttempts     int           `json:"max_attempts"`
	InitialInterval time.Duration `json:"initial_interval"`
}

var (
	config     *Configuration
	configOnce sync.Once
	configLock sync.RWMutex
)

// LoadConfig reads configuration from an optional JSON file, then applies
// environment overrides (a .env file is honored when present).
func LoadConfig(filePath string) (*Configuration, error) {
	var err error

	configOnce.Do(func() {
		if loadErr := godotenv.Load(); loadErr != nil {
			// .env is optional; system environment still applies.
		}

		config = defaultConfiguration()

		if filePath != "" {
			var file *os.File
			file, err = os.Open(filePath)
			if err != nil {
				err = fmt.Errorf("failed to open config file: %w", err)
				return
			}
			defer file.Close()

			decoder := json.NewDecoder(file)
			if err = decoder.Decode(config); err != nil {
				err = fmt.Errorf("failed to decode config file: %w", err)
				return
			}
		}

		applyEnvOverrides(config)
	})

	return config, err
}

func GetConfig() *Configuration {
	configLock.RLock()
	defer configLock.RUnlock()
	return config
}

// InitializeDefaultConfig is used by tests and by main when no config file is
// given; it resets the package-level configuration to defaults plus env.
func InitializeDefaultConfig() *Configuration {
	configLock.Lock()
	defer configLock.Unlock()

	_ = godotenv.Load()
	config = defaultConfiguration()
	applyEnvOverrides(config)
	return config
}

func defaultConfiguration() *Configuration {
	return &Configuration{
		Server: ServerConfig{
			Port:          "8000",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  30 * time.Second,
			IdleTimeout:   120 * time.Second,
			MaxUploadSize: 20 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			Username:        "postgres",
			Password:        "password",
			Name:            "certledger",
			SSLMode:         "disable",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: 300,
		},
		Chain: ChainConfig{
			ChainID:        11155111,
			RPCURLs:        []string{"http://localhost:8545"},
			ConfirmTimeout: 90 * time.Second,
		},
		Vision: VisionConfig{
			Enabled: false,
			Model:   "gemini-1.5-flash",
			Timeout: 30 * time.Second,
		},
		Fingerprint: FingerprintConfig{
			MinTextLength:       50,
			EscalationThreshold: 0.60,
			DomainKeywords:      []string{"certificate", "certify", "awarded", "completion", "course", "student"},
			StopWords:           []string{"this", "is", "to", "that", "the", "of", "has", "have", "been"},
			KeywordWeight:       0.15,
			LengthWeight:        0.10,
			RasterDPI:           200,
		},
		Scoring: ScoringConfig{
			DatabaseMatch:     30,
			ChainMatch:        30,
			NoTamper:          20,
			InstitutionSignal: 10,
			MetadataPlausible: 10,
			QRFallbackPenalty: 5,
		},
		Outbox: OutboxConfig{
			PollInterval:    15 * time.Second,
			MaxAttempts:     5,
			InitialInterval: 2 * time.Second,
		},
	}
}

func applyEnvOverrides(cfg *Configuration) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.AdminAPIKey = getEnv("ADMIN_API_KEY", cfg.Server.AdminAPIKey)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.Username = getEnv("DB_USER", cfg.Database.Username)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.Chain.ChainID = getEnvInt64("CHAIN_ID", cfg.Chain.ChainID)
	if urls := os.Getenv("CHAIN_RPC_URLS"); urls != "" {
		cfg.Chain.RPCURLs = splitAndTrim(urls)
	}
	cfg.Chain.ContractAddress = getEnv("CHAIN_CONTRACT_ADDRESS", cfg.Chain.ContractAddress)
	cfg.Chain.PrivateKey = getEnv("CHAIN_PRIVATE_KEY", cfg.Chain.PrivateKey)

	cfg.Vision.Endpoint = getEnv("VISION_API_URL", cfg.Vision.Endpoint)
	cfg.Vision.APIKey = getEnv("VISION_API_KEY", cfg.Vision.APIKey)
	if cfg.Vision.Endpoint != "" && cfg.Vision.APIKey != "" {
		cfg.Vision.Enabled = true
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func LogConfig(logger *zap.Logger) {
	configLock.RLock()
	defer configLock.RUnlock()

	logger.Info("Application configuration",
		zap.String("port", config.Server.Port),
		zap.Duration("read_timeout", config.Server.ReadTimeout),
		zap.Duration("write_timeout", config.Server.WriteTimeout),
		zap.String("database_host", config.Database.Host),
		zap.String("database_name", config.Database.Name),
		zap.Int64("chain_id", config.Chain.ChainID),
		zap.Int("rpc_endpoints", len(config.Chain.RPCURLs)),
		zap.String("contract_address", config.Chain.ContractAddress),
		zap.Bool("vision_enabled", config.Vision.Enabled),
		zap.Int("min_text_length", config.Fingerprint.MinTextLength),
	)
}
