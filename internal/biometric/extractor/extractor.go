// Package extractor turns selfie images into face embeddings by calling an
// embedding sidecar over HTTP.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for format sniffing
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tripmate/internal/biometric"
	dErrors "tripmate/pkg/domain-errors"
	"tripmate/pkg/platform/circuit"
	"tripmate/pkg/platform/sentinel"
)

// ErrInvalidImage is returned when the bytes are not a decodable JPEG or PNG.
var ErrInvalidImage = errors.New("image could not be decoded")

const maxResponseBytes = 1 << 20

// Config configures the sidecar client.
type Config struct {
	// BaseURL of the embedding sidecar, e.g. "http://face:9000".
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Breaker    *circuit.Breaker
}

// Client calls the sidecar's POST /embed endpoint. The request body is the raw
// image; the response lists detected faces ordered by detection score.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *circuit.Breaker
}

type embedResponse struct {
	Faces []struct {
		Embedding []float32 `json:"embedding"`
		Score     float64   `json:"score"`
	} `json:"faces"`
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("extractor: BaseURL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = circuit.New("embedding-sidecar")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		breaker:    breaker,
	}, nil
}

// Extract returns the embedding of the most prominent face in img, or an empty
// embedding when no face is present.
func (c *Client) Extract(ctx context.Context, img []byte) (biometric.Embedding, error) {
	format, err := Sniff(img)
	if err != nil {
		return nil, err
	}
	if !c.breaker.Allow() {
		return nil, dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeUnavailable, "embedding service circuit open")
	}

	emb, err := c.call(ctx, format, img)
	if err != nil {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "embedding sidecar circuit opened", "breaker", c.breaker.Name())
		}
		return nil, err
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "embedding sidecar circuit closed", "breaker", c.breaker.Name())
	}
	return emb, nil
}

func (c *Client) call(ctx context.Context, format string, img []byte) (biometric.Embedding, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "image/"+format)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "embedding service timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "embedding service unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read embedding response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("embedding service returned %d", resp.StatusCode))
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode embedding response")
	}
	if len(parsed.Faces) == 0 {
		return nil, nil
	}
	return biometric.Embedding(parsed.Faces[0].Embedding), nil
}

// Health calls GET /health on the sidecar.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding sidecar health: status %d", resp.StatusCode)
	}
	return nil
}

// Sniff returns the image format ("jpeg" or "png") without decoding pixels.
func Sniff(img []byte) (string, error) {
	if len(img) == 0 {
		return "", ErrInvalidImage
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return format, nil
}

// Func adapts a plain function to the extractor contract.
type Func func(ctx context.Context, img []byte) (biometric.Embedding, error)

func (f Func) Extract(ctx context.Context, img []byte) (biometric.Embedding, error) {
	return f(ctx, img)
}

// Unconfigured fails every call. Used when no sidecar URL is configured so
// check-ins fail closed instead of matching nothing.
type Unconfigured struct{}

func (Unconfigured) Extract(context.Context, []byte) (biometric.Embedding, error) {
	return nil, dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeUnavailable, "embedding service not configured")
}
