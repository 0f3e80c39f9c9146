/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package gemini asks a hosted Gemini model for round ideas and reveal
// illustrations. Every call degrades to a fixed fallback instead of
// returning an error, so the game never stalls on the network.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image"

	defaultMIMEType = "image/png"
)

// Fallback values, one per failure mode.
var (
	EmptyPair = [2]string{"Cyberpunk Cat", "Roguelike Farming"}
	ShortPair = [2]string{"AI Glitch", "Neural Network"}
	ErrorPair = [2]string{"Space Mining", "Time Loop"}

	EmptySingle = "AI Creativity"
	ErrorSingle = "System Error"
)

var errNoClient = errors.New("no api key configured")

type Operation string

const (
	OpThemePair    Operation = "theme_pair"
	OpSingleTheme  Operation = "single_theme"
	OpIllustration Operation = "illustration"
)

type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeEmpty    Outcome = "empty"
	OutcomeShort    Outcome = "short"
	OutcomeError    Outcome = "error"
	OutcomeNoClient Outcome = "no_client"
)

// Generator is the part of *genai.Models the gateway uses.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Gateway struct {
	models       Generator
	textModel    string
	imageModel   string
	textTimeout  time.Duration
	imageTimeout time.Duration

	logf    func(format string, args ...any)
	observe func(op Operation, outcome Outcome)
}

type Option func(*Gateway)

func WithModels(text, image string) Option {
	return func(g *Gateway) {
		if text != "" {
			g.textModel = text
		}
		if image != "" {
			g.imageModel = image
		}
	}
}

func WithTimeouts(text, image time.Duration) Option {
	return func(g *Gateway) {
		if text > 0 {
			g.textTimeout = text
		}
		if image > 0 {
			g.imageTimeout = image
		}
	}
}

func WithLogger(logf func(format string, args ...any)) Option {
	return func(g *Gateway) {
		g.logf = logf
	}
}

// WithObserver registers a callback invoked once per call with its outcome.
func WithObserver(f func(op Operation, outcome Outcome)) Option {
	return func(g *Gateway) {
		g.observe = f
	}
}

// New wraps an existing generator, typically a fake in tests.
func New(models Generator, opts ...Option) *Gateway {
	g := &Gateway{
		models:       models,
		textModel:    DefaultTextModel,
		imageModel:   DefaultImageModel,
		textTimeout:  30 * time.Second,
		imageTimeout: 60 * time.Second,
		logf:         func(string, ...any) {},
		observe:      func(Operation, Outcome) {},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dial connects to the Gemini API. An empty key yields a gateway that
// answers every call with its failure fallback.
func Dial(ctx context.Context, apiKey string, opts ...Option) (*Gateway, error) {
	if apiKey == "" {
		return New(nil, opts...), nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return New(client.Models, opts...), nil
}

func (g *Gateway) generate(ctx context.Context, timeout time.Duration, model, prompt string, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if g.models == nil {
		return nil, errNoClient
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return g.models.GenerateContent(ctx, model, genai.Text(prompt), config)
}

func (g *Gateway) fail(op Operation, err error) {
	outcome := OutcomeError
	if errors.Is(err, errNoClient) {
		outcome = OutcomeNoClient
	}
	g.logf("AI: %s failed: %v", op, err)
	g.observe(op, outcome)
}

// guard turns a panic inside the SDK into the operation's fallback.
func guard[T any](g *Gateway, op Operation, out *T, fallback T) {
	if r := recover(); r != nil {
		g.fail(op, fmt.Errorf("panic: %v", r))
		*out = fallback
	}
}

// ProposeThemePair asks for two short phrases for the round title. Extra
// items are discarded.
func (g *Gateway) ProposeThemePair(ctx context.Context, title string) (pair [2]string) {
	defer guard(g, OpThemePair, &pair, ErrorPair)

	resp, err := g.generate(ctx, g.textTimeout, g.textModel, pairPrompt(title), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	})
	if err != nil {
		g.fail(OpThemePair, err)
		return ErrorPair
	}

	text := responseText(resp)
	if text == "" {
		g.observe(OpThemePair, OutcomeEmpty)
		return EmptyPair
	}

	var items []string
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		g.fail(OpThemePair, fmt.Errorf("decode %q: %w", text, err))
		return ErrorPair
	}
	if len(items) < 2 || strings.TrimSpace(items[0]) == "" || strings.TrimSpace(items[1]) == "" {
		g.observe(OpThemePair, OutcomeShort)
		return ShortPair
	}

	g.observe(OpThemePair, OutcomeOK)

	return [2]string{items[0], items[1]}
}

// ProposeSingleTheme asks for one short phrase for the round title.
func (g *Gateway) ProposeSingleTheme(ctx context.Context, title string) (theme string) {
	defer guard(g, OpSingleTheme, &theme, ErrorSingle)

	resp, err := g.generate(ctx, g.textTimeout, g.textModel, singlePrompt(title), nil)
	if err != nil {
		g.fail(OpSingleTheme, err)
		return ErrorSingle
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		g.observe(OpSingleTheme, OutcomeEmpty)
		return EmptySingle
	}

	g.observe(OpSingleTheme, OutcomeOK)

	return text
}

// GenerateIllustration returns a data URI for the first image the model
// sends back for theme, or false if it sent none.
func (g *Gateway) GenerateIllustration(ctx context.Context, theme string) (url string, ok bool) {
	defer guard(g, OpIllustration, &url, "")

	resp, err := g.generate(ctx, g.imageTimeout, g.imageModel, imagePrompt(theme), nil)
	if err != nil {
		g.fail(OpIllustration, err)
		return "", false
	}

	if blob := firstInlineData(resp); blob != nil {
		mimeType := blob.MIMEType
		if mimeType == "" {
			mimeType = defaultMIMEType
		}

		g.observe(OpIllustration, OutcomeOK)

		return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(blob.Data), true
	}

	g.observe(OpIllustration, OutcomeEmpty)

	return "", false
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}

	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return nil
	}

	for _, part := range c.Content.Parts {
		if part != nil && part.InlineData != nil {
			return part.InlineData
		}
	}

	return nil
}
