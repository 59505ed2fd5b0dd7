package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "BANKASSIST_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "BANKASSIST_API_TOKEN",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "llm.provider", typ: kString, env: "BANKASSIST_LLM_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.LLM.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Provider },
	},
	{
		key: "llm.model", typ: kString, env: "BANKASSIST_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.nlu_model", typ: kString, env: "BANKASSIST_LLM_NLU_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.NLUModel = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.NLUModel },
	},
	{
		key: "llm.embed_model", typ: kString, env: "BANKASSIST_LLM_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.EmbedModel },
	},
	{
		key: "llm.ollama_base_url", typ: kString, env: "BANKASSIST_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.OllamaBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.OllamaBaseURL },
	},
	{
		key: "llm.api_key", typ: kString, env: "BANKASSIST_GEMINI_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.APIKey },
	},
	{
		key: "llm.max_retries", typ: kInt, env: "BANKASSIST_LLM_MAX_RETRIES",
		apply:   func(cfg *Config, v any) { cfg.LLM.MaxRetries = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.MaxRetries },
	},
	{
		key: "llm.retry_delay", typ: kString, env: "BANKASSIST_LLM_RETRY_DELAY",
		apply:   func(cfg *Config, v any) { cfg.LLM.RetryDelay = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.RetryDelay },
	},
	{
		key: "data.dir", typ: kString, env: "BANKASSIST_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Data.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.Dir },
	},
	{
		key: "data.users_file", typ: kString, env: "BANKASSIST_USERS_FILE",
		apply:   func(cfg *Config, v any) { cfg.Data.UsersFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.UsersFile },
	},
	{
		key: "data.transactions_dir", typ: kString, env: "BANKASSIST_TRANSACTIONS_DIR",
		apply:   func(cfg *Config, v any) { cfg.Data.TransactionsDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.TransactionsDir },
	},
	{
		key: "data.docs_dir", typ: kString, env: "BANKASSIST_DOCS_DIR",
		apply:   func(cfg *Config, v any) { cfg.Data.DocsDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.DocsDir },
	},
	{
		key: "cache.backend", typ: kString, env: "BANKASSIST_CACHE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Cache.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Cache.Backend },
	},
	{
		key: "cache.capacity", typ: kInt, env: "BANKASSIST_CACHE_CAPACITY",
		apply:   func(cfg *Config, v any) { cfg.Cache.Capacity = v.(int) },
		extract: func(cfg Config) any { return cfg.Cache.Capacity },
	},
	{
		key: "cache.threshold", typ: kFloat, env: "BANKASSIST_CACHE_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Cache.Threshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Cache.Threshold },
	},
	{
		key: "cache.file", typ: kString, env: "BANKASSIST_CACHE_FILE",
		apply:   func(cfg *Config, v any) { cfg.Cache.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Cache.File },
	},
	{
		key: "search.provider", typ: kString, env: "BANKASSIST_SEARCH_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Search.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.Provider },
	},
	{
		key: "search.api_key", typ: kString, env: "BANKASSIST_SERPAPI_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Search.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.APIKey },
	},
	{
		key: "search.timeout", typ: kString, env: "BANKASSIST_SEARCH_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Search.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.Timeout },
	},
	{
		key: "browser.enabled", typ: kBool, env: "BANKASSIST_BROWSER_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Browser.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Browser.Enabled },
	},
	{
		key: "browser.wait", typ: kString, env: "BANKASSIST_BROWSER_WAIT",
		apply:   func(cfg *Config, v any) { cfg.Browser.Wait = v.(string) },
		extract: func(cfg Config) any { return cfg.Browser.Wait },
	},
	{
		key: "log.level", typ: kString, env: "BANKASSIST_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}
		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}

func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}
