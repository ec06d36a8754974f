package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/qwenweb/qwenweb/pkg/client"
	"github.com/qwenweb/qwenweb/pkg/config"
	"github.com/qwenweb/qwenweb/pkg/credentials"
	qwerrors "github.com/qwenweb/qwenweb/pkg/errors"
	"github.com/qwenweb/qwenweb/pkg/logging"
	"github.com/qwenweb/qwenweb/pkg/session"
	"github.com/qwenweb/qwenweb/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "qwenweb: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sessionID := session.GenerateSessionID("qwenweb")

	logger, err := logging.NewLogger(cfg.Logging.Dir, sessionID)
	if err != nil {
		return err
	}
	defer logger.Close()
	if cfg.Logging.MinLevel != "" {
		logger.SetMinLevel(logging.Level(cfg.Logging.MinLevel))
	}

	store := credentials.NewStore(cfg.Credentials.Dir)
	sessions := session.NewManager(store, session.Policy{MaxAge: cfg.Credentials.MaxAge}, cfg.BaseURL)

	opts := []client.Option{client.WithLogger(logger)}

	if cfg.Storage.Enabled {
		history, err := storage.New(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer history.Close()
		opts = append(opts, client.WithHistory(history, sessionID))
	}

	c := client.New(cfg, sessions, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick up fresh credentials as soon as the browser login rewrites the
	// files, instead of waiting for the next turn's reload.
	go func() {
		_ = store.Watch(ctx, func() {
			sessions.Reload()
			logger.Info(logging.CategoryCredentials, "credentials_reloaded", "credential files changed on disk", nil)
		})
	}()

	logger.Info(logging.CategorySession, "session_started", "interactive session opened", map[string]any{
		"model":    cfg.Model,
		"base_url": cfg.BaseURL,
	})

	if sessions.NeedsReauth() {
		fmt.Println("No fresh credentials found. Log in at", cfg.BaseURL,
			"in your browser and export cookies.json and token.txt to", cfg.Credentials.Dir)
	}

	fmt.Printf("qwenweb — model %s. Commands: /new, /thinking on|off [budget], /exit\n", cfg.Model)
	return repl(ctx, c, logger)
}

func repl(ctx context.Context, c *client.Client, logger *logging.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := handleCommand(line, c); done {
				logger.Info(logging.CategorySession, "session_ended", "interactive session closed", nil)
				return nil
			}
			continue
		}

		runTurn(ctx, c, line)

		if ctx.Err() != nil {
			return nil
		}
	}
}

func runTurn(ctx context.Context, c *client.Client, prompt string) {
	result, err := c.SendTurn(ctx, prompt, client.TurnOptions{
		OnReasoning: func(reasoning string) {
			fmt.Printf("\n[thinking]\n%s\n", reasoning)
		},
	})

	if err != nil {
		if qwerrors.IsCode(err, qwerrors.ErrCodeCredentialsMissing) {
			fmt.Println("Credentials missing or rejected. Log in through the browser and refresh the credential files.")
			return
		}
		fmt.Fprintf(os.Stderr, "turn failed: %v\n", err)
		if result.Answer != "" {
			fmt.Printf("\n[partial answer]\n%s\n", result.Answer)
		}
		return
	}

	fmt.Printf("\n%s\n", result.Answer)
}

// handleCommand executes a slash command; returns true when the REPL should exit
func handleCommand(line string, c *client.Client) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/exit", "/quit":
		return true
	case "/new":
		c.NewConversation()
		fmt.Println("Started a new conversation.")
	case "/thinking":
		if len(fields) < 2 {
			fmt.Println("Usage: /thinking on|off [budget]")
			return false
		}
		enabled := fields[1] == "on"
		budget := 0
		if len(fields) > 2 {
			if n, err := strconv.Atoi(fields[2]); err == nil {
				budget = n
			}
		}
		c.SetThinking(enabled, budget)
		fmt.Printf("Thinking mode: %v\n", enabled)
	default:
		fmt.Printf("Unknown command %q. Commands: /new, /thinking on|off [budget], /exit\n", fields[0])
	}
	return false
}
