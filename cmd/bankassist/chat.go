package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/bankassist/internal/api"
	"github.com/kalambet/bankassist/internal/config"
	"github.com/kalambet/bankassist/internal/planner"
	"github.com/kalambet/bankassist/internal/session"
)

// sessionLoader opens a session for a user id.
type sessionLoader interface {
	Load(userID string) (*session.Session, string)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive banking session",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		debug, _ := cmd.Flags().GetBool("debug")

		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return runChat(cmd.Context(), os.Stdin, os.Stdout, a.loader, a.assistant, userID, debug)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Answer a single query for a user",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}
		debug, _ := cmd.Flags().GetBool("debug")

		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		sess, msg := a.loader.Load(userID)
		if sess == nil {
			return fmt.Errorf("%s", msg)
		}
		ans := a.assistant.Handle(cmd.Context(), sess, strings.Join(args, " "))
		printAnswer(os.Stdout, ans.Turn.Intent, string(ans.Turn.UseCase), ans.Turn.Response)
		if debug {
			printSteps(os.Stdout, ans.Steps)
		}
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <query>",
	Short: "Show the retrieval tool chain chosen for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		p := a.planner.Plan(cmd.Context(), strings.Join(args, " "))
		fmt.Println(planLabel(p))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{chatCmd, askCmd} {
		c.Flags().String("user", "", "user id to log in as")
		c.Flags().Bool("debug", false, "print the pipeline steps of every turn")
	}
}

func loadApp(ctx context.Context) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, cfg)
}

func planLabel(p planner.Plan) string {
	return "🛠️ Plan: " + p.String()
}

// runChat drives one interactive session over in/out until the user types
// exit or quit, or the input ends.
func runChat(ctx context.Context, in io.Reader, out io.Writer, loader sessionLoader, answerer api.Answerer, userID string, debug bool) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, labelColor.Sprint("🏦 Welcome to the HDFC Banking Assistant"))

	if userID == "" {
		fmt.Fprint(out, "🔐 Enter your user ID: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		userID = strings.TrimSpace(scanner.Text())
	}

	sess, msg := loader.Load(userID)
	fmt.Fprintln(out, msg)
	if sess == nil {
		return nil
	}

	for {
		fmt.Fprint(out, "\n💬 You: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if q := strings.ToLower(query); q == "exit" || q == "quit" {
			break
		}
		if ctx.Err() != nil {
			break
		}

		ans := answerer.Handle(ctx, sess, query)
		printAnswer(out, ans.Turn.Intent, string(ans.Turn.UseCase), ans.Turn.Response)
		if debug {
			printSteps(out, ans.Steps)
		}
	}

	printSummary(out, sess.Memory())
	return scanner.Err()
}

func printAnswer(w io.Writer, intent, useCase, response string) {
	fmt.Fprintf(w, "%s %s\n", stepColor.Sprint("🧠 Intent:"), intent)
	fmt.Fprintf(w, "%s %s\n", stepColor.Sprint("📂 Use Case:"), useCase)
	fmt.Fprintf(w, "%s %s\n", successColor.Sprint("🤖"), response)
}

func printSummary(w io.Writer, turns []session.Turn) {
	fmt.Fprintln(w, "\n"+labelColor.Sprint("📋 Session summary"))
	if len(turns) == 0 {
		fmt.Fprintln(w, "No questions asked.")
	}
	for i, t := range turns {
		fmt.Fprintf(w, "%d. [%s] %s → %s\n", i+1, t.Intent, t.Query, t.Response)
	}
	fmt.Fprintln(w, "👋 Goodbye!")
}
