package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/llmsgen/internal/document"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-2.0-flash"

	// DefaultEndpoint is the base URL of the Gemini REST API.
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultMaxRetries is the number of extra attempts after a retryable failure.
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the minimum spacing between attempts.
	DefaultRetryDelay = 2 * time.Second

	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 120 * time.Second

	// APIKeyEnv is the environment variable read for the API key by default.
	APIKeyEnv = "GOOGLE_API_KEY"

	// maxResponseSize caps how much of the API answer is read.
	maxResponseSize = 8 * 1024 * 1024
)

// DefaultPrompt is the prompt template. It receives SiteName and Document.
const DefaultPrompt = `You are generating an llms.txt file following the llmstxt.org format.

Given this raw site map of {{.SiteName}}, produce a compliant llms.txt file.

STRICT FORMAT RULES:
1. Line 1: # {{.SiteName}}
2. A blank line, then a single blockquote (>) with a 1-2 sentence summary of the site
3. Optionally, 1-2 plain paragraphs of additional context (no headings here)
4. Then ## sections grouping related pages. Only use ## headings, never ### or deeper
5. Inside each ## section: a markdown list where each item is:
   - [Page Title](https://full-url): Brief description of what this page contains
6. Include a ## Optional section at the end for lower-priority pages
7. Output only the raw markdown. No code fences and no JSON metadata

CONTENT RULES:
- Preserve all original URLs exactly as given
- Group related pages logically
- Write concise descriptions (under 15 words each) after the colon
- Merge duplicate or near-duplicate entries
- Put the most important pages first within each section

Here's the raw site map to enhance:

{{.Document}}`

// Enhancer rewrites an llms.txt document.
type Enhancer interface {
	// Enhance returns the rewritten document. On error the input stays the
	// usable result.
	Enhance(ctx context.Context, doc string) (string, error)
}

// GeminiEnhancer calls the Gemini generateContent REST endpoint.
type GeminiEnhancer struct {
	apiKey     string
	model      string
	endpoint   string
	siteName   string
	client     *http.Client
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	prompt     *template.Template
	logger     *slog.Logger
}

// GeminiOption configures a GeminiEnhancer.
type GeminiOption func(*GeminiEnhancer)

// WithModel sets the model name.
func WithModel(model string) GeminiOption {
	return func(g *GeminiEnhancer) {
		if model != "" {
			g.model = model
		}
	}
}

// WithEndpoint sets the API base URL.
func WithEndpoint(endpoint string) GeminiOption {
	return func(g *GeminiEnhancer) {
		if endpoint != "" {
			g.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(g *GeminiEnhancer) {
		if client != nil {
			g.client = client
		}
	}
}

// WithSiteName sets the site name passed to the prompt.
func WithSiteName(name string) GeminiOption {
	return func(g *GeminiEnhancer) {
		g.siteName = name
	}
}

// WithTimeout bounds each API call.
func WithTimeout(d time.Duration) GeminiOption {
	return func(g *GeminiEnhancer) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxRetries sets how many times a retryable failure is retried.
func WithMaxRetries(n int) GeminiOption {
	return func(g *GeminiEnhancer) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// WithRetryDelay sets the minimum spacing between attempts.
func WithRetryDelay(d time.Duration) GeminiOption {
	return func(g *GeminiEnhancer) {
		if d >= 0 {
			g.retryDelay = d
		}
	}
}

// WithPrompt replaces the prompt template. Use ParsePrompt to build one.
func WithPrompt(tmpl *template.Template) GeminiOption {
	return func(g *GeminiEnhancer) {
		if tmpl != nil {
			g.prompt = tmpl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GeminiOption {
	return func(g *GeminiEnhancer) {
		if logger != nil {
			g.logger = logger
		}
	}
}

var defaultPrompt = template.Must(template.New("prompt").Parse(DefaultPrompt))

// NewGeminiEnhancer returns an enhancer using apiKey. An empty key yields
// ErrNoAPIKey so the caller can fall back before any crawl output is lost.
func NewGeminiEnhancer(apiKey string, opts ...GeminiOption) (*GeminiEnhancer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	g := &GeminiEnhancer{
		apiKey:     apiKey,
		model:      DefaultModel,
		endpoint:   DefaultEndpoint,
		siteName:   "Website",
		client:     http.DefaultClient,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		prompt:     defaultPrompt,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ParsePrompt parses a custom prompt template. The template receives
// SiteName and Document.
func ParsePrompt(text string) (*template.Template, error) {
	tmpl, err := template.New("prompt").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return tmpl, nil
}

// Model returns the configured model name.
func (g *GeminiEnhancer) Model() string {
	return g.model
}

// Enhance sends doc to Gemini and returns the validated answer.
func (g *GeminiEnhancer) Enhance(ctx context.Context, doc string) (string, error) {
	if strings.TrimSpace(doc) == "" {
		return "", ErrEmptyDocument
	}

	prompt, err := g.renderPrompt(doc)
	if err != nil {
		return "", err
	}

	limiter := rate.NewLimiter(rate.Every(g.retryDelay), 1)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			if lastErr != nil {
				return "", errors.Join(lastErr, err)
			}
			return "", err
		}

		text, err := g.generate(ctx, prompt)
		if err == nil {
			return finish(text)
		}
		lastErr = err

		var enhErr *Error
		if ctx.Err() != nil || !errors.As(err, &enhErr) || !enhErr.Retryable() {
			break
		}
		if attempt < g.maxRetries {
			g.logger.Warn("enhancement attempt failed, retrying",
				"model", g.model,
				"attempt", attempt+1,
				"error", err)
		}
	}
	return "", lastErr
}

// finish strips fences and validates the answer.
func finish(text string) (string, error) {
	cleaned := StripCodeFences(text)
	if cleaned == "" {
		return "", &Error{Reason: ErrMalformedResponse, Err: errors.New("empty text")}
	}
	if err := document.Parse([]byte(cleaned)).ValidateWithLinks(); err != nil {
		return "", &Error{Reason: ErrMalformedResponse, Err: err}
	}
	return cleaned + "\n", nil
}

func (g *GeminiEnhancer) renderPrompt(doc string) (string, error) {
	var sb strings.Builder
	data := struct {
		SiteName string
		Document string
	}{
		SiteName: g.siteName,
		Document: doc,
	}
	if err := g.prompt.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return sb.String(), nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate performs one API call.
func (g *GeminiEnhancer) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.2,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 8192,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.endpoint, url.PathEscape(g.model), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Reason: ErrRequestFailed, Err: errors.New("invalid endpoint")}
	}
	req.Header.Set("Content-Type", "application/json")

	g.logger.Debug("calling enhancement API", "model", g.model, "prompt_bytes", len(prompt))

	resp, err := g.client.Do(req)
	if err != nil {
		// url.Error carries the request URL, which holds the key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return "", &Error{Reason: ErrRequestFailed, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &Error{Reason: ErrRequestFailed, StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &Error{Reason: ErrQuotaExceeded, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return "", &Error{Reason: ErrRequestFailed, StatusCode: resp.StatusCode, Err: apiMessage(raw)}
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &Error{Reason: ErrMalformedResponse, StatusCode: resp.StatusCode, Err: err}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Reason: ErrMalformedResponse, StatusCode: resp.StatusCode, Err: errors.New("no candidates")}
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// apiMessage extracts error.message from a Gemini error body.
func apiMessage(raw []byte) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Message == "" {
		return nil
	}
	return errors.New(body.Error.Message)
}
