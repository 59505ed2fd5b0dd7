package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/bankassist/internal/api"
	"github.com/kalambet/bankassist/internal/assistant"
	"github.com/kalambet/bankassist/internal/config"
	"github.com/kalambet/bankassist/internal/storage"
)

// --- cache ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the shared response cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached responses, least recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listCache(cmd.Context(), client, os.Stdout)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached response",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := clearCache(cmd.Context(), client); err != nil {
			return err
		}
		printSuccess("Cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func listCache(ctx context.Context, client *apiClient, w io.Writer) error {
	resp, err := client.get(ctx, "/cache")
	if err != nil {
		return err
	}
	var entries []api.CacheEntryView
	if err := decodeJSON(resp, &entries); err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "Cache is empty.")
		return nil
	}
	for i, e := range entries {
		mark := ""
		if e.Validated {
			mark = " ✓"
		}
		fmt.Fprintf(w, "%d. %s [%s, %s%s]\n   %s\n",
			i+1,
			stepColor.Sprint(e.Query),
			e.UseCase,
			e.Source,
			mark,
			truncate(e.Response, 120),
		)
	}
	return nil
}

func clearCache(ctx context.Context, client *apiClient) error {
	resp, err := client.delete(ctx, "/cache")
	if err != nil {
		return err
	}
	var result map[string]string
	return decodeJSON(resp, &result)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history [turn-id]",
	Short: "Show the audit log of answered turns",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return showTurn(cmd.Context(), client, os.Stdout, args[0])
		}
		userID, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		return listHistory(cmd.Context(), client, os.Stdout, userID, limit)
	},
}

func init() {
	historyCmd.Flags().String("user", "", "only show turns of this user")
	historyCmd.Flags().Int("limit", 20, "maximum number of turns")
}

func listHistory(ctx context.Context, client *apiClient, w io.Writer, userID string, limit int) error {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	if userID != "" {
		q.Set("user_id", userID)
	}
	resp, err := client.get(ctx, "/turns?"+q.Encode())
	if err != nil {
		return err
	}
	var turns []storage.TurnRow
	if err := decodeJSON(resp, &turns); err != nil {
		return err
	}

	if len(turns) == 0 {
		fmt.Fprintln(w, "No turns found.")
		return nil
	}
	for _, t := range turns {
		id := t.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%s  %s  %-10s [%s] %s\n",
			stepColor.Sprint(id),
			t.CreatedAt.Format("2006-01-02 15:04"),
			t.UserID,
			t.Intent,
			truncate(t.Query, 80),
		)
	}
	return nil
}

func showTurn(ctx context.Context, client *apiClient, w io.Writer, id string) error {
	resp, err := client.get(ctx, "/turns/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	var turn storage.TurnRow
	if err := decodeJSON(resp, &turn); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(turn)
}

// --- debug ---

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Show the pipeline steps of recent turns",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return showDebug(cmd.Context(), client, os.Stdout)
	},
}

func showDebug(ctx context.Context, client *apiClient, w io.Writer) error {
	resp, err := client.get(ctx, "/debug/logs")
	if err != nil {
		return err
	}
	var records []assistant.DebugRecord
	if err := decodeJSON(resp, &records); err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No turns recorded.")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s %s [%s]\n", r.At.Format("15:04:05"), stepColor.Sprint(r.Query), r.UseCase)
		printSteps(w, r.Steps)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", labelColor.Sprint(k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value in the config file. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
