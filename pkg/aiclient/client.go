// Package aiclient abstracts LLM provider selection behind a small
// factory, the way station's pkg/faker/ai client does — but scoped to
// the providers the Judge actually needs (Anthropic, OpenAI, Gemini)
// and without station's CloudShip/OAuth plugins, which are out of
// scope for a peer-review judge.
//
// Tier 2 never talks to an SDK directly: it asks this package for a
// Client, which picks a provider per Config.Tier2.Provider ("auto" or
// explicit) and falls back once on authentication failure.
package aiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	oaioption "github.com/openai/openai-go/option"

	"judge/internal/config"
	"judge/internal/logging"
)

// Client generates text completions for Tier 2's assessment prompts.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelUsed() string
}

// ErrAuthFailed marks a provider-side authentication rejection, which
// triggers the one-time fallback-provider switch described in §4.5.
type ErrAuthFailed struct {
	Provider string
	Cause    error
}

func (e *ErrAuthFailed) Error() string {
	return fmt.Sprintf("aiclient: %s authentication failed: %v", e.Provider, e.Cause)
}
func (e *ErrAuthFailed) Unwrap() error { return e.Cause }

// AvailableProviders returns, in preference order, the providers whose
// credentials are present in cfg. Used by "auto" provider selection.
func AvailableProviders(cfg *config.Config) []string {
	var avail []string
	if cfg.AnthropicAPIKey != "" {
		avail = append(avail, "anthropic")
	}
	if cfg.OpenAIAPIKey != "" {
		avail = append(avail, "openai")
	}
	if cfg.GeminiAPIKey != "" {
		avail = append(avail, "gemini")
	}
	return avail
}

// Select resolves cfg.Tier2.Provider ("auto" or explicit) to a concrete
// provider name, or "" if none is available (caller should fall back
// to Tier 2's all-neutral path).
func Select(cfg *config.Config) string {
	if strings.ToLower(cfg.Tier2.Provider) != "auto" {
		return strings.ToLower(cfg.Tier2.Provider)
	}
	avail := AvailableProviders(cfg)
	if len(avail) == 0 {
		return ""
	}
	preferred := []string{"anthropic", cfg.Tier2.FallbackProvider}
	for _, p := range preferred {
		for _, a := range avail {
			if a == p {
				return p
			}
		}
	}
	return avail[0]
}

// New constructs a Client for the named provider. provider must be one
// of "anthropic", "openai", "gemini".
func New(cfg *config.Config, provider string) (Client, error) {
	switch strings.ToLower(provider) {
	case "anthropic":
		return newAnthropicClient(cfg)
	case "openai":
		return newGenkitClient(cfg, initializeOpenAI)
	case "gemini", "googlegenai":
		return newGenkitClient(cfg, initializeGoogleAI)
	default:
		return nil, fmt.Errorf("aiclient: unsupported provider %q (supported: anthropic, openai, gemini)", provider)
	}
}

// NewWithFallback attempts provider, and on an ErrAuthFailed switches
// once to cfg.Tier2.FallbackProvider, matching the explicit-provider
// fallback semantics of §4.5.
func NewWithFallback(cfg *config.Config, provider string) (Client, error) {
	c, err := New(cfg, provider)
	if err == nil {
		return c, nil
	}
	var authErr *ErrAuthFailed
	if !isAuthFailure(err, &authErr) {
		return nil, err
	}
	logging.Warn("aiclient: %s auth failed, switching to fallback provider %s", provider, cfg.Tier2.FallbackProvider)
	return New(cfg, cfg.Tier2.FallbackProvider)
}

func isAuthFailure(err error, target **ErrAuthFailed) bool {
	for err != nil {
		if ae, ok := err.(*ErrAuthFailed); ok {
			*target = ae
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// --- anthropic: direct SDK client, no genkit plugin ---

type anthropicClient struct {
	sdk   anthropic.Client
	model string
}

func newAnthropicClient(cfg *config.Config) (Client, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, &ErrAuthFailed{Provider: "anthropic", Cause: fmt.Errorf("no API key configured")}
	}
	sdk := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	return &anthropicClient{sdk: sdk, model: "claude-3-5-haiku-latest"}, nil
}

func (c *anthropicClient) ModelUsed() string { return "anthropic:" + c.model }

func (c *anthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic generate: %w", err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// --- genkit-backed providers (openai, gemini) ---

type genkitClient struct {
	app         *genkit.Genkit
	label       string // human-readable, reported via ModelUsed
	genkitModel string // provider-prefixed name genkit.Generate expects
}

func (c *genkitClient) ModelUsed() string { return c.label }

func (c *genkitClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, c.app, ai.WithPrompt(prompt), ai.WithModelName(c.genkitModel))
	if err != nil {
		return "", fmt.Errorf("genkit generate (%s): %w", c.genkitModel, err)
	}
	return resp.Text(), nil
}

func newGenkitClient(cfg *config.Config, init func(*config.Config) (*genkit.Genkit, string, string, error)) (Client, error) {
	app, label, genkitModel, err := init(cfg)
	if err != nil {
		return nil, err
	}
	return &genkitClient{app: app, label: label, genkitModel: genkitModel}, nil
}

func initializeOpenAI(cfg *config.Config) (*genkit.Genkit, string, string, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, "", "", &ErrAuthFailed{Provider: "openai", Cause: fmt.Errorf("no API key configured")}
	}
	httpClient := &http.Client{Timeout: 60 * time.Second}
	plugin := &openai.OpenAI{
		APIKey: cfg.OpenAIAPIKey,
		Opts:   []oaioption.RequestOption{oaioption.WithHTTPClient(httpClient)},
	}
	app, err := genkit.Init(context.Background(), genkit.WithPlugins(plugin))
	if err != nil {
		return nil, "", "", fmt.Errorf("genkit init (openai): %w", err)
	}
	return app, "openai:gpt-4o-mini", "openai/gpt-4o-mini", nil
}

func initializeGoogleAI(cfg *config.Config) (*genkit.Genkit, string, string, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, "", "", &ErrAuthFailed{Provider: "gemini", Cause: fmt.Errorf("no API key configured")}
	}
	plugin := &googlegenai.GoogleAI{APIKey: cfg.GeminiAPIKey}
	app, err := genkit.Init(context.Background(), genkit.WithPlugins(plugin))
	if err != nil {
		return nil, "", "", fmt.Errorf("genkit init (gemini): %w", err)
	}
	return app, "gemini:gemini-1.5-flash", "googleai/gemini-1.5-flash", nil
}
