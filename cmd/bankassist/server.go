package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/bankassist/internal/api"
	"github.com/kalambet/bankassist/internal/config"
	"github.com/kalambet/bankassist/internal/logx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API (and optionally MCP over stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bankassist status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP over stdio")
}

func serverLogLevel(cfg config.Config) string {
	if logLevel != "" {
		return logLevel
	}
	return cfg.Log.Level
}

func mcpServer(a *app) *server.MCPServer {
	return api.NewMCPServer(api.MCPDeps{
		Assistant: a.assistant,
		Sessions:  api.NewRegistry(a.loader, api.DefaultIdle),
		Links:     a.links,
		Planner:   a.planner,
		Cache:     a.cache,
		Debug:     a.debug,
	})
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "bankassist version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logx.Init(logx.Options{Level: serverLogLevel(cfg)})

	if cfg.Server.Token == "" {
		cfg.Server.Token = uuid.NewString()
		printWarning("BANKASSIST_API_TOKEN is not set; generated token for this run: %s", cfg.Server.Token)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewAppHandler(api.AppDeps{
		Assistant: a.assistant,
		Sessions:  api.NewRegistry(a.loader, api.DefaultIdle),
		Cache:     a.cache,
		Turns:     a.store,
		Debug:     a.debug,
		Token:     cfg.Server.Token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if withMCP {
		stdioSrv := server.NewStdioServer(mcpServer(a))
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				logx.Error().Err(err).Msg("MCP stdio server error")
			}
		}()
		logx.Info().Msg("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "bankassist listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logx.Init(logx.Options{Level: serverLogLevel(cfg)})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	err = server.NewStdioServer(mcpServer(a)).Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("LLM", "%s (%s, nlu %s)", cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.NLUModel)
	if cfg.LLM.Provider == "ollama" {
		ollamaResp, err := client.Get(cfg.LLM.OllamaBaseURL + "/api/version")
		if err != nil {
			printStatus("Ollama", "not running")
		} else {
			ollamaResp.Body.Close()
			printStatus("Ollama", "running at %s", cfg.LLM.OllamaBaseURL)
		}
	}
	printStatus("Cache", "%s (capacity %d, threshold %.2f)", cfg.Cache.Backend, cfg.Cache.Capacity, cfg.Cache.Threshold)
	printStatus("Search", "%s", cfg.Search.Provider)
	printStatus("Browser", "%t", cfg.Browser.Enabled)
	printStatus("Documents", "%s", cfg.Data.DocsDir)
	printStatus("Data dir", "%s", cfg.Data.Dir)
	return nil
}
