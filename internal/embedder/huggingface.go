package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	hfBaseURL      = "https://api-inference.huggingface.co"
	hfDefaultModel = "sentence-transformers/all-MiniLM-L6-v2"
	hfDefaultDim   = 384
	hfHTTPTimeout  = 30 * time.Second

	hfMaxAttempts  = 3
	hfRetryBackoff = 500 * time.Millisecond
)

// HuggingFace implements Embedder using the Hugging Face inference API's
// feature-extraction pipeline. Transient failures (transport errors, 5xx)
// are retried with exponential backoff; client errors are terminal.
type HuggingFace struct {
	baseURL   string
	model     string
	token     string
	dimension int
	client    *http.Client
	logger    *slog.Logger
}

// hfEmbedRequest is the JSON body sent to the feature-extraction endpoint.
type hfEmbedRequest struct {
	Inputs  []string      `json:"inputs"`
	Options hfEmbedOption `json:"options"`
}

type hfEmbedOption struct {
	WaitForModel bool `json:"wait_for_model"`
}

// NewHuggingFace creates a Hugging Face embedder.
//
// model defaults to "sentence-transformers/all-MiniLM-L6-v2" when empty and
// dimension to 384 when 0, matching the vectors stored by the indexer.
func NewHuggingFace(token, model string, dimension int, logger *slog.Logger) *HuggingFace {
	return NewHuggingFaceWithURL(hfBaseURL, token, model, dimension, logger)
}

// NewHuggingFaceWithURL creates a Hugging Face embedder against a custom
// base URL, for self-hosted inference endpoints or an httptest server.
func NewHuggingFaceWithURL(baseURL, token, model string, dimension int, logger *slog.Logger) *HuggingFace {
	if model == "" {
		model = hfDefaultModel
	}
	if dimension <= 0 {
		dimension = hfDefaultDim
	}
	return &HuggingFace{
		baseURL:   baseURL,
		model:     model,
		token:     token,
		dimension: dimension,
		client:    &http.Client{Timeout: hfHTTPTimeout},
		logger:    logger,
	}
}

// Embed returns a vector embedding for the given text.
func (h *HuggingFace) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := h.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one embedding per input text, in input order.
func (h *HuggingFace) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 1; attempt <= hfMaxAttempts; attempt++ {
		vecs, err := h.embedOnce(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err

		var backendErr *BackendError
		if !errors.As(err, &backendErr) || !backendErr.Retryable() {
			return nil, err
		}
		if attempt == hfMaxAttempts {
			break
		}

		delay := hfRetryBackoff << (attempt - 1)
		h.logger.Warn("embedding request failed, retrying",
			"attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// Dimension returns the configured embedding dimension.
func (h *HuggingFace) Dimension() int { return h.dimension }

// ModelVersion returns the Hugging Face model id.
func (h *HuggingFace) ModelVersion() string { return h.model }

// embedOnce performs a single feature-extraction call.
func (h *HuggingFace) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := hfEmbedRequest{
		Inputs:  texts,
		Options: hfEmbedOption{WaitForModel: true},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	url := h.baseURL + "/pipeline/feature-extraction/" + h.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &BackendError{Message: "calling feature-extraction API", Err: err, Transient: true}
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BackendError{Message: "reading response body", Err: err, Transient: true}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{StatusCode: resp.StatusCode, Message: string(rawBody)}
	}

	var vecs [][]float32
	if err := json.Unmarshal(rawBody, &vecs); err != nil {
		return nil, &BackendError{Message: "decoding response", Err: err}
	}

	if len(vecs) != len(texts) {
		return nil, &BackendError{
			Message: fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(vecs)),
		}
	}
	for i, vec := range vecs {
		if len(vec) != h.dimension {
			return nil, &BackendError{
				Message: fmt.Sprintf("embedding %d has dimension %d, expected %d", i, len(vec), h.dimension),
			}
		}
	}

	h.logger.Debug("generated embeddings", "model", h.model, "count", len(vecs), "dimension", h.dimension)
	return vecs, nil
}
