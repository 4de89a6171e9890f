package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"DocTrack/internal/conf"

	"go.uber.org/zap"
)

// EmbeddingProvider 文本向量化
// 返回 ErrEmbeddingsUnavailable 时语义检索不可用，调用方决定是否降级
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// NewEmbeddingProvider 根据配置选择实现：
// 没配 Endpoint 就返回 disabled 实现，所有调用吃 ErrEmbeddingsUnavailable
func NewEmbeddingProvider(cfg *conf.KBConfig, logger *zap.Logger) EmbeddingProvider {
	if cfg.EmbeddingEndpoint == "" {
		return &disabledEmbedding{}
	}
	return &httpEmbedding{
		endpoint: cfg.EmbeddingEndpoint,
		apiKey:   cfg.EmbeddingAPIKey,
		model:    cfg.EmbeddingModel,
		dim:      cfg.EmbeddingDimension,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger.With(zap.String("service", "embedding")),
	}
}

type disabledEmbedding struct{}

func (d *disabledEmbedding) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, fmt.Errorf("no embedding endpoint configured: %w", ErrEmbeddingsUnavailable)
}

// httpEmbedding OpenAI 兼容的 /v1/embeddings 客户端
type httpEmbedding struct {
	endpoint string
	apiKey   string
	model    string
	dim      int
	client   *http.Client
	logger   *zap.Logger
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (h *httpEmbedding) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embeddingRequest{Input: text, Model: h.model})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		// 上游故障按 "不可用" 处理，让调用方降级而不是 500
		h.logger.Warn("embedding request failed", zap.Error(err))
		return nil, fmt.Errorf("embedding service unreachable: %w", ErrEmbeddingsUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		h.logger.Warn("embedding request rejected",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return nil, fmt.Errorf("embedding service returned %d: %w", resp.StatusCode, ErrEmbeddingsUnavailable)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding response empty: %w", ErrEmbeddingsUnavailable)
	}

	vec := parsed.Data[0].Embedding
	if h.dim > 0 && len(vec) != h.dim {
		h.logger.Warn("embedding dimension mismatch",
			zap.Int("want", h.dim), zap.Int("got", len(vec)))
	}
	return vec, nil
}
