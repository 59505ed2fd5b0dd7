package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kalambet/bankassist/internal/agent"
	"github.com/kalambet/bankassist/internal/assistant"
	"github.com/kalambet/bankassist/internal/browser"
	"github.com/kalambet/bankassist/internal/cache"
	"github.com/kalambet/bankassist/internal/config"
	"github.com/kalambet/bankassist/internal/docstore"
	"github.com/kalambet/bankassist/internal/intent"
	"github.com/kalambet/bankassist/internal/linkresolver"
	"github.com/kalambet/bankassist/internal/llm"
	"github.com/kalambet/bankassist/internal/logx"
	"github.com/kalambet/bankassist/internal/ollama"
	"github.com/kalambet/bankassist/internal/planner"
	"github.com/kalambet/bankassist/internal/search"
	"github.com/kalambet/bankassist/internal/session"
	"github.com/kalambet/bankassist/internal/storage"
)

const (
	answerTemperature = 0.4
	nluTemperature    = 0.1
	embedMemoTTL      = time.Hour
)

// app is the fully wired assistant shared by chat, serve and mcp.
type app struct {
	cfg       config.Config
	store     *storage.Store
	loader    session.Loader
	assistant *assistant.Assistant
	cache     *cache.Cache
	links     *linkresolver.Resolver
	planner   *planner.Planner
	debug     *assistant.DebugLog

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// models holds the answer generator, the NLU completer and the embedder for
// the configured provider.
type models struct {
	answer   *llm.Client
	nlu      *llm.Client
	embedder llm.Embedder
}

func buildModels(ctx context.Context, cfg config.Config) (models, error) {
	retry := llm.ClientConfig{
		MaxAttempts: cfg.LLM.MaxRetries,
		RetryDelay:  config.Duration(cfg.LLM.RetryDelay, 2500*time.Millisecond),
	}

	switch cfg.LLM.Provider {
	case "ollama":
		oc := ollama.New(cfg.LLM.OllamaBaseURL)
		if !oc.IsRunning(ctx) {
			return models{}, fmt.Errorf("ollama is not running at %s", cfg.LLM.OllamaBaseURL)
		}
		for _, m := range []string{cfg.LLM.Model, cfg.LLM.NLUModel, cfg.LLM.EmbedModel} {
			if ok, err := oc.HasModel(ctx, m); err == nil && !ok {
				logx.Warn().Str("model", m).Msg("ollama model not pulled")
			}
		}
		retry.Name = "Ollama"
		return models{
			answer:   llm.NewClient(llm.NewOllamaBackend(oc, cfg.LLM.Model, answerTemperature), retry),
			nlu:      llm.NewClient(llm.NewOllamaBackend(oc, cfg.LLM.NLUModel, nluTemperature), retry),
			embedder: llm.NewOllamaEmbedder(oc, cfg.LLM.EmbedModel),
		}, nil

	case "gemini", "":
		client, err := llm.NewGenAIClient(ctx, cfg.LLM.APIKey)
		if err != nil {
			return models{}, err
		}
		nlu, err := llm.NewEinoGeminiBackend(ctx, client, llm.NLUModelConfig{
			Model:       cfg.LLM.NLUModel,
			Temperature: nluTemperature,
		})
		if err != nil {
			return models{}, err
		}
		retry.Name = "Gemini"
		return models{
			answer:   llm.NewClient(llm.NewGeminiBackend(client, cfg.LLM.Model, answerTemperature), retry),
			nlu:      llm.NewClient(nlu, retry),
			embedder: llm.NewGeminiEmbedder(client, cfg.LLM.EmbedModel),
		}, nil

	default:
		return models{}, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func (a *app) buildCacheStore(ctx context.Context, db *storage.Store) (cache.Store, error) {
	switch a.cfg.Cache.Backend {
	case cache.BackendSQLite, "":
		return cache.NewSQLiteStore(db), nil
	case cache.BackendRedis:
		rc, err := cache.LoadRedisConfig()
		if err != nil {
			return nil, err
		}
		client, err := rc.New(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return cache.NewRedisStore(client, rc.Key), nil
	case cache.BackendFile:
		return cache.NewFileStore(a.cfg.Cache.File), nil
	case cache.BackendMemory:
		return cache.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", a.cfg.Cache.Backend)
	}
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg}

	store, err := storage.Open(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			logx.Warn().Err(err).Msg("closing storage")
		}
	})

	m, err := buildModels(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	cacheStore, err := a.buildCacheStore(ctx, store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	a.cache = cache.New(cacheStore, llm.NewMemoEmbedder(m.embedder, embedMemoTTL), cache.Options{
		Capacity:  cfg.Cache.Capacity,
		Threshold: cfg.Cache.Threshold,
	})

	searchTimeout := config.Duration(cfg.Search.Timeout, 10*time.Second)
	provider, err := search.NewProvider(search.Config{
		Provider: cfg.Search.Provider,
		APIKey:   cfg.Search.APIKey,
		Timeout:  searchTimeout,
	})
	if err != nil {
		logx.Warn().Err(err).Str("provider", cfg.Search.Provider).Msg("search provider unavailable, using duckduckgo")
		provider, _ = search.NewProvider(search.Config{Provider: "duckduckgo", Timeout: searchTimeout})
	}

	var renderer browser.Renderer = browser.NewHTTPRenderer(searchTimeout)
	if cfg.Browser.Enabled {
		headless := browser.NewRodRenderer(config.Duration(cfg.Browser.Wait, 5*time.Second))
		a.closers = append(a.closers, headless.Close)
		renderer = browser.Fallback{headless, renderer}
	}

	docs := docstore.New(cfg.Data.DocsDir, nil)
	a.links = linkresolver.New(m.nlu)
	a.planner = planner.New(m.nlu)
	a.debug = assistant.NewDebugLog(assistant.DebugSize)

	orchestrator := agent.New(a.planner, docs,
		agent.SearchTool{Provider: provider},
		agent.NavigateTool{Renderer: renderer},
		agent.ScrapeTool{Fetcher: renderer},
		agent.ValidateTool{},
		agent.LinkResolverTool{Resolver: a.links},
	)

	a.assistant = assistant.New(assistant.Deps{
		Classifier: intent.NewClassifier(m.nlu),
		Documents:  docs,
		Retriever:  orchestrator,
		Generator:  m.answer,
		Cache:      a.cache,
		Turns:      store,
		Debug:      a.debug,
	})

	a.loader = session.Loader{
		UsersFile:       cfg.Data.UsersFile,
		TransactionsDir: cfg.Data.TransactionsDir,
	}

	logx.Info().
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Str("cache", cfg.Cache.Backend).
		Str("data_dir", filepath.Clean(cfg.Data.Dir)).
		Msg("assistant ready")
	return a, nil
}
