package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	Data    DataConfig
	Cache   CacheConfig
	Search  SearchConfig
	Browser BrowserConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type LLMConfig struct {
	// Provider is "gemini" or "ollama".
	Provider      string
	Model         string
	NLUModel      string
	EmbedModel    string
	OllamaBaseURL string
	APIKey        string
	MaxRetries    int
	RetryDelay    string
}

type DataConfig struct {
	Dir             string
	UsersFile       string
	TransactionsDir string
	DocsDir         string
}

type CacheConfig struct {
	// Backend is one of sqlite, redis, file, memory.
	Backend   string
	Capacity  int
	Threshold float64
	File      string
}

type SearchConfig struct {
	// Provider is "serpapi" or "duckduckgo".
	Provider string
	APIKey   string
	Timeout  string
}

type BrowserConfig struct {
	Enabled bool
	Wait    string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		LLM: LLMConfig{
			Provider:      "gemini",
			Model:         "gemini-1.5-pro",
			NLUModel:      "gemini-1.5-flash",
			EmbedModel:    "text-embedding-004",
			OllamaBaseURL: "http://localhost:11434",
			MaxRetries:    3,
			RetryDelay:    "2.5s",
		},
		Data: DataConfig{
			Dir:             defaultDataDir(),
			UsersFile:       "data/users.json",
			TransactionsDir: "data/transactions",
			DocsDir:         "data/usecases",
		},
		Cache: CacheConfig{
			Backend:   "sqlite",
			Capacity:  50,
			Threshold: 0.85,
			File:      "data/query_cache.json",
		},
		Search: SearchConfig{
			Provider: "serpapi",
			Timeout:  "10s",
		},
		Browser: BrowserConfig{
			Enabled: true,
			Wait:    "5s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file, a .env file in the
// working directory, and BANKASSIST_* environment variables, in increasing
// order of precedence.
//
// The config file lives at $XDG_CONFIG_HOME/bankassist/config.json.
// Secrets (API keys, the bearer token) are only read from the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "[WARN] could not read .env file: %v\n", err)
	}
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecretFallbacks(&cfg)

	if cfg.LLM.Provider != "gemini" && cfg.LLM.Provider != "ollama" {
		return Config{}, fmt.Errorf("invalid llm.provider %q: want gemini or ollama", cfg.LLM.Provider)
	}
	if cfg.LLM.Provider == "gemini" && cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: Gemini API key. " +
			"Set it via environment variable BANKASSIST_GEMINI_API_KEY or GOOGLE_API_KEY")
	}

	return cfg, nil
}

// applySecretFallbacks honours the variable names the Gemini and SerpAPI
// SDKs read by default.
func applySecretFallbacks(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.Search.APIKey == "" {
		cfg.Search.APIKey = os.Getenv("SERPAPI_API_KEY")
	}
}

// Duration parses s, returning def when s is empty or malformed.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		fmt.Fprintf(os.Stderr, "[WARN] invalid duration %q: using %s\n", s, def)
		return def
	}
	return d
}
