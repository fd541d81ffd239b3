// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

// ClientConfig drives the conversation client (cmd/app).
type ClientConfig struct {
	BackendURL         string   `yaml:"backend_url"` // chat backend base, /chat is appended
	TokenURL           string   `yaml:"token_url"`   // token service base
	MaxMessages        int      `yaml:"max_messages"`
	DefaultLanguage    string   `yaml:"default_language"`
	CandidateLanguages []string `yaml:"candidate_languages"`
	Workers            int      `yaml:"workers"`
	UIAddr             string   `yaml:"ui_addr"`      // websocket bridge, empty disables
	UIOrigins          []string `yaml:"ui_origins"`   // allowed browser origins, empty allows all
	UIInputDir         string   `yaml:"ui_input_dir"` // voice_turn files resolve here, empty refuses them
}

type SpeechConfig struct {
	Region        string        `yaml:"region"`
	Key           string        `yaml:"key"` // subscription key, token service only
	STSURL        string        `yaml:"sts_url"`
	STTURL        string        `yaml:"stt_url"`
	TTSURL        string        `yaml:"tts_url"`
	OutputFormat  string        `yaml:"output_format"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	InputFile     string        `yaml:"input_file"`
	OutputDir     string        `yaml:"output_dir"`
	PlayerCommand string        `yaml:"player_command"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	TokenRateLimit int           `yaml:"token_rate_limit"` // token requests per client IP per minute, needs redis; 0 disables
}

// CatalogConfig locates the product catalog and images used by the assistant's tools.
type CatalogConfig struct {
	File         string `yaml:"file"`           // YAML product list, seeds postgres when storage.driver=postgres
	ImageDir     string `yaml:"image_dir"`      // {id}.jpg files, used when redis is not configured
	ImageBaseURL string `yaml:"image_base_url"` // prefix for /images/{id} in action HTML
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type StorageConfig struct {
	Driver        string        `yaml:"driver"` // memory|redis|postgres
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type AIConfig struct {
	Provider        string `yaml:"provider"` // openai|gemini|metis|noop, empty picks by key
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	MetisKey        string `yaml:"metis_key"`
	MetisBaseURL    string `yaml:"metis_base_url"`
	DefaultModel    string `yaml:"default_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls
	MaxPromptTokens int    `yaml:"max_prompt_tokens"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	Persona         string `yaml:"persona"`      // {language} is replaced with the language name
	InitMessage     string `yaml:"init_message"` // first assistant message of a new conversation
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"` // seals stored conversations, empty stores plaintext
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // client-side /metrics listener, empty disables
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Client   ClientConfig   `yaml:"client"`
	Speech   SpeechConfig   `yaml:"speech"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	AI       AIConfig       `yaml:"ai"`
	Security SecurityConfig `yaml:"security"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	Runtime RuntimeConfig `yaml:"-"`
}

const DefaultPersona = `You are Maya, a voice enabled AI sales assistant at a store with a computer screen.
You serve international visitors who may speak different languages.
You identified that the customer you're serving speaks {language}.
Engage in the verbal conversation in {language} with the customer to understand their needs.
When there's an interest from the customer, you can use display_product_info to show details of the products on the screen.
Be very concise, do not use more than 2 sentences to respond.`

// LoadConfig reads .env (if present), the YAML file at path, then applies
// env overrides and defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse builds a Config from YAML bytes. Empty input yields defaults.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Client.MaxMessages < 1 {
		return nil, errors.New("client.max_messages must be positive")
	}
	switch cfg.Storage.Driver {
	case "memory":
	case "redis":
		if cfg.Redis.URL == "" {
			return nil, errors.New("redis.url is required for storage.driver=redis")
		}
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, errors.New("database.url is required for storage.driver=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown storage.driver %q", cfg.Storage.Driver)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Speech.Key, "SPEECH_API_KEY")
	set(&cfg.Speech.Region, "SPEECH_REGION")
	set(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	set(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	set(&cfg.AI.MetisKey, "METIS_API_KEY")
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.Redis.URL, "REDIS_URL")
	set(&cfg.Security.EncryptionKey, "CONVERSATION_ENCRYPTION_KEY")
	set(&cfg.Client.BackendURL, "BACKEND_API_HOST")
	set(&cfg.Client.TokenURL, "TOKEN_API_HOST")
}

func applyDefaults(cfg *Config) {
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Client.BackendURL == "" {
		cfg.Client.BackendURL = "http://localhost:8080"
	}
	if cfg.Client.TokenURL == "" {
		cfg.Client.TokenURL = cfg.Client.BackendURL
	}
	if cfg.Client.MaxMessages == 0 {
		cfg.Client.MaxMessages = 10
	}
	if cfg.Client.DefaultLanguage == "" {
		cfg.Client.DefaultLanguage = "en-US"
	}
	if len(cfg.Client.CandidateLanguages) == 0 {
		cfg.Client.CandidateLanguages = []string{"en-US", "vi-VN", "zh-CN", "ja-JP"}
	}
	if cfg.Client.Workers <= 0 {
		cfg.Client.Workers = 4
	}

	if cfg.Speech.OutputFormat == "" {
		cfg.Speech.OutputFormat = "riff-24khz-16bit-mono-pcm"
	}
	if cfg.Speech.TokenTTL <= 0 {
		cfg.Speech.TokenTTL = 9 * time.Minute
	}
	if cfg.Speech.OutputDir == "" {
		cfg.Speech.OutputDir = "replies"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	cfg.Storage.TTL = normalizeTTL(cfg.Storage.TTL)
	if cfg.Storage.SweepInterval <= 0 {
		cfg.Storage.SweepInterval = 5 * time.Minute
	}

	if cfg.Catalog.File == "" {
		cfg.Catalog.File = "products.yaml"
	}
	if cfg.Catalog.ImageDir == "" {
		cfg.Catalog.ImageDir = "images"
	}

	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.MetisBaseURL == "" {
		cfg.AI.MetisBaseURL = "https://api.metisai.ir/openai/v1"
	}
	if cfg.AI.MaxPromptTokens <= 0 {
		cfg.AI.MaxPromptTokens = 6000
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 300
	}
	if cfg.AI.Persona == "" {
		cfg.AI.Persona = DefaultPersona
	}
	if cfg.AI.InitMessage == "" {
		cfg.AI.InitMessage = "Hi, this is Maya. How can I assist you today?"
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
