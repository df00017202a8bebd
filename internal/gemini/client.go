package gemini

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"cv-rank-agent/internal/logger"
	"cv-rank-agent/internal/util"
)

const (
	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "gemini-embedding-001"
	defaultMaxRetries     = 3
	defaultRequestsPerMin = 60
	defaultMaxLogLength   = 200

	retryBaseDelay = 2 * time.Second
	// Quota errors sometimes carry a suggested delay. Waiting longer than
	// this inside a single run is not worth it; fail instead.
	maxQuotaDelay = 30 * time.Second
)

// patched in tests
var sleep = func(ctx context.Context, d time.Duration) error {
	return util.WaitFor(ctx, d)
}

var quotaDelayPattern = regexp.MustCompile(`retry after (\d+) seconds`)

// ServiceError reports a transport-level failure of the Gemini API after
// all retries were exhausted.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("gemini %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// modelCaller is the subset of the genai model API the client uses. It
// exists so tests can substitute a fake.
type modelCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Config holds the Gemini client settings.
type Config struct {
	APIKey            string
	Model             string
	EmbeddingModel    string
	Temperature       float64
	MaxRetries        int
	RequestsPerMinute int
	MaxLogLength      int
}

// Client talks to the Gemini API for both structured completion and text
// embeddings. All calls go through one client-side rate limiter and a
// bounded retry loop; the wrapped calls are idempotent inference reads, so
// repeating them is safe.
type Client struct {
	models         modelCaller
	model          string
	embeddingModel string
	temperature    float32
	maxRetries     int
	maxLogLen      int
	limiter        *rate.Limiter
	logger         *zap.Logger
}

// New creates a Client configured for the Gemini API backend.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	embeddingModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMin
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Client{
		models:         client.Models,
		model:          model,
		embeddingModel: embeddingModel,
		temperature:    float32(cfg.Temperature),
		maxRetries:     maxRetries,
		maxLogLen:      maxLogLen,
		limiter:        rate.NewLimiter(rate.Limit(float64(rpm)/60), 1),
		logger:         logger.WithCommonFields(log, "gemini", model),
	}, nil
}

// GenerateStructured sends the prompt to Gemini in JSON mode, constrained
// to the provided response schema, and returns the raw JSON text.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	c.logger.Debug("generate content request",
		zap.Int("prompt_length", len(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, c.maxLogLen)),
	)

	var resp *genai.GenerateContentResponse
	err := c.withRetries(ctx, "generate content", func(ctx context.Context) error {
		var err error
		resp, err = c.models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
		return err
	})
	if err != nil {
		return "", err
	}

	output := collectText(resp)
	if output == "" {
		return "", &ServiceError{Op: "generate content", Err: errors.New("empty response")}
	}

	c.logger.Debug("generate content response",
		zap.Int("response_length", len(output)),
		zap.String("response_preview", util.TruncateForLog(output, c.maxLogLen)),
	)

	return output, nil
}

// Embed returns one embedding vector for the provided text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding vector per text, in input order. A
// response with a different vector count than the input is an error, never
// a partial result.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("text %d must not be empty", i)
		}
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	var resp *genai.EmbedContentResponse
	err := c.withRetries(ctx, "embed content", func(ctx context.Context) error {
		var err error
		resp, err = c.models.EmbedContent(ctx, c.embeddingModel, contents, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, &ServiceError{
			Op:  "embed content",
			Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)),
		}
	}

	vectors := make([][]float64, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, &ServiceError{Op: "embed content", Err: fmt.Errorf("embedding %d is empty", i)}
		}
		vector := make([]float64, len(embedding.Values))
		for j, v := range embedding.Values {
			vector[j] = float64(v)
		}
		vectors[i] = vector
	}

	c.logger.Debug("embedded texts", zap.Int("count", len(vectors)), zap.Int("dimensions", len(vectors[0])))

	return vectors, nil
}

func (c *Client) Model() string { return c.model }

func (c *Client) withRetries(ctx context.Context, op string, call func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}

		if !retryable(lastErr) || attempt == c.maxRetries {
			break
		}

		delay := retryBaseDelay * time.Duration(attempt)
		c.logger.Warn("retrying after api error",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &ServiceError{Op: op, Err: lastErr}
}

// retryable reports whether the error is a transient API failure worth
// repeating. Quota errors that ask for a delay longer than maxQuotaDelay
// are treated as terminal.
func retryable(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	if apiErr.Code >= 500 {
		return true
	}

	if apiErr.Code == 429 {
		if m := quotaDelayPattern.FindStringSubmatch(apiErr.Message); m != nil {
			if seconds, err := strconv.Atoi(m[1]); err == nil {
				return time.Duration(seconds)*time.Second <= maxQuotaDelay
			}
		}
		return true
	}

	return false
}

func collectText(resp *genai.GenerateContentResponse) string {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}
