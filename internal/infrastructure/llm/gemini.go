// Package llm calls the Gemini API to turn a serialized alert table into a
// narrative diagnosis. The engine treats the response as opaque text.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Config holds Gemini client settings.
type Config struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
	RPS         float64 `yaml:"rps"`
	ArtifactDir string  `yaml:"artifact_dir"`
}

// DefaultConfig returns client defaults; the API key comes from the
// GEMINI_API_KEY env var unless the config file sets one.
func DefaultConfig() Config {
	return Config{
		Model:       "gemini-2.0-flash",
		Temperature: 0.2,
		TimeoutSec:  60,
		RPS:         0.5,
		ArtifactDir: "out/llm",
	}
}

// ApplyEnvOverrides prefers the environment for the secret.
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.APIKey = key
	}
}

// Client wraps the genai client with request pacing and a circuit breaker
// so a misbehaving API cannot stall or hammer the batch run.
type Client struct {
	cfg     Config
	client  *genai.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewClient initializes the Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or llm.api_key)")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = DefaultConfig().RPS
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gemini",
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
		},
	})

	return &Client{
		cfg:     cfg,
		client:  gc,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: breaker,
	}, nil
}

// Summarize sends the prompt and returns the narrative text.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is empty")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	timeout := time.Duration(c.cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
		cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(c.cfg.Temperature)}
		resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("generation failed: %w", err)
		}
		text := extractText(resp)
		if text == "" {
			return nil, fmt.Errorf("no text in model response")
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// extractText walks the candidates for the first non-empty text parts.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}

// artifact is the persisted record of one summarization call.
type artifact struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id"`
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
	Status    string `json:"status"`
}

// StoreArtifact writes the prompt/response pair to a timestamped JSON file
// for audit. Failures are logged, never fatal.
func (c *Client) StoreArtifact(runID, prompt, response string, callErr error) string {
	dir := c.cfg.ArtifactDir
	if dir == "" {
		dir = DefaultConfig().ArtifactDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Could not create LLM artifact dir")
		return ""
	}

	a := artifact{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RunID:     runID,
		Model:     c.cfg.Model,
		Prompt:    prompt,
		Response:  response,
		Status:    "success",
	}
	if callErr != nil {
		a.Error = callErr.Error()
		a.Status = "failed"
	}

	path := filepath.Join(dir, fmt.Sprintf("gemini_%s.json", time.Now().UTC().Format("20060102_150405")))
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Could not marshal LLM artifact")
		return ""
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Could not write LLM artifact")
		return ""
	}
	return path
}
