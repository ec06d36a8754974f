package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/qwenweb/qwenweb/pkg/config"
	"github.com/qwenweb/qwenweb/pkg/conversation"
	qwerrors "github.com/qwenweb/qwenweb/pkg/errors"
	"github.com/qwenweb/qwenweb/pkg/logging"
	"github.com/qwenweb/qwenweb/pkg/protocol"
	"github.com/qwenweb/qwenweb/pkg/session"
	"github.com/qwenweb/qwenweb/pkg/storage"
	"github.com/qwenweb/qwenweb/pkg/stream"
	"github.com/qwenweb/qwenweb/pkg/telemetry"
)

// Client drives chat turns against the web chat service. It owns one
// conversation at a time; NewConversation starts a fresh one. A single Client
// must not run concurrent turns, because each turn advances the conversation's
// parent pointer that the next turn reads.
type Client struct {
	cfg      *config.Config
	sessions *session.Manager
	conv     *conversation.State
	http     *http.Client
	limiter  *rate.Limiter
	logger   *logging.Logger
	history  *storage.Store

	// sessionID correlates history rows with the log files of this run.
	sessionID string

	mu              sync.Mutex
	thinkingEnabled bool
	thinkingBudget  int
}

// TurnOptions tunes a single chat turn
type TurnOptions struct {
	SystemInstruction string

	// OnReasoning receives completed reasoning blocks as the model emits
	// them, ahead of the final answer. Optional.
	OnReasoning func(reasoning string)
}

// TurnResult is the outcome of one chat turn
type TurnResult struct {
	Answer    string
	Reasoning string
}

// Option configures optional client collaborators
type Option func(*Client)

// WithLogger attaches a structured logger
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHistory attaches a turn-history store. The session id tags recorded
// conversations so history rows can be correlated with this run's logs.
func WithHistory(store *storage.Store, sessionID string) Option {
	return func(c *Client) {
		c.history = store
		c.sessionID = sessionID
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a client over the given configuration and session manager
func New(cfg *config.Config, sessions *session.Manager, opts ...Option) *Client {
	c := &Client{
		cfg:             cfg,
		sessions:        sessions,
		conv:            conversation.New(),
		limiter:         rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
		thinkingEnabled: cfg.Thinking.Enabled,
		thinkingBudget:  cfg.Thinking.Budget,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		transport := NewLoggingTransport(DefaultTransport(), cfg.Logging.Dir, cfg.Logging.NetworkLogs)
		c.http = &http.Client{
			Transport: transport,
			// No client-level timeout: it would cut streaming responses
			// short. Per-turn deadlines come from the request context.
		}
	}
	return c
}

// SetThinking toggles reasoning mode for subsequent turns. A budget of zero
// keeps the configured default.
func (c *Client) SetThinking(enabled bool, budget int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thinkingEnabled = enabled
	if budget > 0 {
		c.thinkingBudget = budget
	}
}

// ThinkingEnabled reports the current reasoning-mode setting
func (c *Client) ThinkingEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thinkingEnabled
}

// ConversationID returns the active conversation id, empty before first use
func (c *Client) ConversationID() string {
	return c.conv.ID()
}

// NewConversation discards the current conversation state. The next turn
// lazily creates a fresh conversation on the server.
func (c *Client) NewConversation() {
	c.conv.Reset()
	if c.logger != nil {
		c.logger.SetConversationID("")
		c.logger.Info(logging.CategoryConversation, "conversation_reset", "conversation state cleared", nil)
	}
}

// CreateConversation registers a new conversation on the server and returns
// its id. Callers normally never need this directly; SendTurn creates
// conversations lazily.
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", qwerrors.Wrap(err, qwerrors.ErrCodeTransport, "waiting for rate limiter")
	}

	payload := protocol.BuildNewChatRequest(c.cfg.Model, c.cfg.ChatMode, c.cfg.ChatType)
	body, err := json.Marshal(payload)
	if err != nil {
		return "", qwerrors.Wrap(err, qwerrors.ErrCodeInternal, "encoding new-chat request")
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v2/chats/new", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", qwerrors.Wrap(err, qwerrors.ErrCodeConversationCreate, "creating conversation").
			WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp, qwerrors.ErrCodeConversationCreate, "conversation creation rejected")
	}

	var decoded protocol.NewChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", qwerrors.Wrap(err, qwerrors.ErrCodeConversationCreate, "decoding new-chat response")
	}
	if !decoded.Success || decoded.Data.ID == "" {
		return "", qwerrors.New(qwerrors.ErrCodeConversationCreate, "server declined to create conversation")
	}

	telemetry.ConversationsCreatedTotal.Inc()
	if c.logger != nil {
		c.logger.SetConversationID(decoded.Data.ID)
		c.logger.Info(logging.CategoryConversation, "conversation_created", "new conversation registered", map[string]any{
			"conversation_id": decoded.Data.ID,
			"model":           c.cfg.Model,
		})
	}

	// The conversation row must exist before the first SaveTurn; turns carry
	// a foreign key to it.
	if c.history != nil {
		if err := c.history.RecordConversation(decoded.Data.ID, c.sessionID, c.cfg.Model); err != nil && c.logger != nil {
			c.logger.Warn(logging.CategoryStorage, "conversation_save_failed", "could not persist conversation", map[string]any{
				"conversation_id": decoded.Data.ID,
				"error":           err.Error(),
			})
		}
	}
	return decoded.Data.ID, nil
}

// SendTurn runs one full chat turn: it ensures a conversation exists, posts
// the prompt, and decodes the event stream to completion. On a mid-stream
// transport failure the partial result is returned alongside the error.
func (c *Client) SendTurn(ctx context.Context, prompt string, opts TurnOptions) (TurnResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return TurnResult{}, qwerrors.New(qwerrors.ErrCodeInvalidInput, "prompt cannot be empty")
	}

	start := time.Now()
	result, err := c.sendTurn(ctx, prompt, opts)
	telemetry.TurnDurationSeconds.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		telemetry.TurnsTotal.WithLabelValues("ok").Inc()
	case ctx.Err() != nil:
		telemetry.TurnsTotal.WithLabelValues("cancelled").Inc()
	default:
		telemetry.TurnsTotal.WithLabelValues("error").Inc()
	}
	return result, err
}

func (c *Client) sendTurn(ctx context.Context, prompt string, opts TurnOptions) (TurnResult, error) {
	c.sessions.Reload()
	if !c.sessions.HasCookies() {
		return TurnResult{}, qwerrors.New(qwerrors.ErrCodeCredentialsMissing,
			"no stored credentials; log in through the browser first")
	}

	chatID, err := c.conv.EnsureConversation(ctx, c.CreateConversation)
	if err != nil {
		return TurnResult{}, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return TurnResult{}, qwerrors.Wrap(err, qwerrors.ErrCodeTransport, "waiting for rate limiter")
	}

	c.mu.Lock()
	settings := protocol.TurnSettings{
		Model:           c.cfg.Model,
		ChatMode:        c.cfg.ChatMode,
		ChatType:        c.cfg.ChatType,
		ThinkingEnabled: c.thinkingEnabled,
		ThinkingBudget:  c.thinkingBudget,
	}
	c.mu.Unlock()

	parentID := c.conv.ParentID()
	content := protocol.CombinePrompt(prompt, opts.SystemInstruction)
	payload := protocol.BuildCompletionRequest(chatID, parentID, content, settings)

	body, err := json.Marshal(payload)
	if err != nil {
		return TurnResult{}, qwerrors.Wrap(err, qwerrors.ErrCodeInternal, "encoding completion request")
	}

	turnCtx, cancelTurn := context.WithCancel(ctx)
	defer cancelTurn()
	if c.cfg.Timeouts.Request > 0 {
		turnCtx, cancelTurn = context.WithTimeout(turnCtx, c.cfg.Timeouts.Request)
		defer cancelTurn()
	}

	req, err := c.newRequest(turnCtx, http.MethodPost,
		"/api/v2/chat/completions?chat_id="+url.QueryEscape(chatID), bytes.NewReader(body))
	if err != nil {
		return TurnResult{}, err
	}
	req.Header.Set("Accept", "text/event-stream")

	if c.logger != nil {
		c.logger.Info(logging.CategoryStream, "turn_started", "chat turn dispatched", map[string]any{
			"conversation_id": chatID,
			"thinking":        settings.ThinkingEnabled,
			"prompt_len":      len(prompt),
		})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return TurnResult{}, qwerrors.Wrap(err, qwerrors.ErrCodeTransport, "posting chat turn").
			WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TurnResult{}, c.statusError(resp, qwerrors.ErrCodeTransport, "chat turn rejected")
	}

	decoder := &stream.Decoder{
		OnParent:    c.conv.AdvanceParent,
		OnReasoning: opts.OnReasoning,
	}

	// Canceling the turn context aborts the in-flight body read, so a stream
	// that goes silent past the idle deadline fails instead of hanging.
	streamBody := io.Reader(resp.Body)
	if c.cfg.Timeouts.StreamIdle > 0 {
		idle := newIdleWatchdogReader(resp.Body, c.cfg.Timeouts.StreamIdle, cancelTurn)
		defer idle.Stop()
		streamBody = idle
	}

	decoded, err := decoder.Decode(streamBody)
	result := TurnResult{Answer: decoded.Answer, Reasoning: decoded.Reasoning}
	if err != nil {
		if c.logger != nil {
			c.logger.Error(logging.CategoryStream, "turn_failed", "stream ended abnormally", map[string]any{
				"conversation_id": chatID,
				"error":           err.Error(),
			})
		}
		return result, err
	}

	if c.logger != nil {
		c.logger.Info(logging.CategoryStream, "turn_completed", "chat turn finished", map[string]any{
			"conversation_id": chatID,
			"answer_len":      len(result.Answer),
			"reasoning_len":   len(result.Reasoning),
		})
	}

	c.saveTurn(chatID, prompt, opts.SystemInstruction, result)
	return result, nil
}

// saveTurn records the completed turn when history is enabled. Persistence
// failures are logged and otherwise ignored; they must not fail the turn.
func (c *Client) saveTurn(chatID, prompt, systemInstruction string, result TurnResult) {
	if c.history == nil {
		return
	}

	var parent string
	if p := c.conv.ParentID(); p != nil {
		parent = *p
	}

	err := c.history.SaveTurn(&storage.Turn{
		ConversationID:    chatID,
		ParentID:          parent,
		Prompt:            prompt,
		SystemInstruction: systemInstruction,
		Answer:            result.Answer,
		Reasoning:         result.Reasoning,
	})
	if err != nil && c.logger != nil {
		c.logger.Warn(logging.CategoryStorage, "turn_save_failed", "could not persist turn", map[string]any{
			"conversation_id": chatID,
			"error":           err.Error(),
		})
	}
}

func (c *Client) newRequest(ctx context.Context, method, pathAndQuery string, body io.Reader) (*http.Request, error) {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + pathAndQuery
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, qwerrors.Wrap(err, qwerrors.ErrCodeInternal, "building request")
	}

	req.Header = c.sessions.Headers()
	if cookie := c.sessions.CookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	return req, nil
}

// statusError drains a failed response into a coded error with a bounded
// body excerpt for diagnostics.
func (c *Client) statusError(resp *http.Response, code qwerrors.ErrorCode, msg string) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := qwerrors.New(code, fmt.Sprintf("%s: status %d", msg, resp.StatusCode)).
		WithContext("status", resp.StatusCode).
		WithContext("body", string(excerpt))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return qwerrors.New(qwerrors.ErrCodeCredentialsMissing,
			"credentials rejected by server; log in through the browser again").
			WithContext("status", resp.StatusCode).
			WithContext("body", string(excerpt))
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return err.WithRetryable(true)
	}
	return err
}
