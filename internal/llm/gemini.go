package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"taskplanner/pkg/config"
	"taskplanner/pkg/metrics"
	"taskplanner/pkg/trace"
)

const (
	DefaultModel = "gemini-1.5-flash"

	// MaxResponseBytes 响应体上限，超出部分被截断，解码会失败
	MaxResponseBytes = 1 << 20
)

var (
	ErrDisabled     = errors.New("llm api key not configured")
	ErrNoCandidates = errors.New("llm returned no candidates")
)

// GeminiClient 通过 genai SDK 调用 generateContent，外面包一层熔断和限流
type GeminiClient struct {
	client  *genai.Client
	model   string
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewGeminiClient(cfg config.LLMConfig, logger *zap.Logger) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	// rate_per_sec <= 0 表示不限流
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSec > 0 {
		burst := max(1, int(cfg.RatePerSec))
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	c := &GeminiClient{
		model:   cfg.Model,
		limiter: limiter,
		logger:  logger,
	}
	if cfg.APIKey != "" {
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
			HTTPClient: &http.Client{
				Timeout:   timeout,
				Transport: &transport{base: http.DefaultTransport},
			},
			HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
		})
		if err != nil {
			logger.Error("Failed to init LLM client, energy schedules use the local algorithm", zap.Error(err))
		} else {
			c.client = client
		}
	}

	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     30 * time.Second, // 打开状态持续30秒
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("LLM circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// 调用方取消不算 LLM 故障
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// Enabled 没有 API key 时排程只走本地算法
func (c *GeminiClient) Enabled() bool {
	return c.client != nil
}

// Generate 返回第一个候选结果的全部文本
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limit: %w", err)
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.call(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordLLMCallLatency("circuit_open", 0)
		}
		return "", err
	}
	return out.(string), nil
}

func (c *GeminiClient) call(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	status := "success"
	defer func() {
		metrics.RecordLLMCallLatency(status, time.Since(start))
	}()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		status = errorStatus(err)
		return "", fmt.Errorf("failed to call llm: %w", err)
	}
	if len(resp.Candidates) == 0 {
		status = "empty"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrNoCandidates, resp.PromptFeedback.BlockReason)
		}
		return "", ErrNoCandidates
	}

	c.logger.Debug("LLM call succeeded",
		zap.String("model", c.model),
		zap.Duration("took", time.Since(start)),
		zap.String("finish_reason", string(resp.Candidates[0].FinishReason)),
	)
	return resp.Text(), nil
}

// errorStatus 指标标签：HTTP 错误按 4xx / 5xx 归类
func errorStatus(err error) string {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return fmt.Sprintf("%dxx", apiErr.Code/100)
	}
	return "error"
}

// transport 传播 trace_id，并限制响应体大小
type transport struct {
	base http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if traceID := trace.FromContext(req.Context()); traceID != "" {
		req = req.Clone(req.Context())
		req.Header.Set(trace.HeaderName, traceID)
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = limitedBody{Reader: io.LimitReader(resp.Body, MaxResponseBytes), Closer: resp.Body}
	return resp, nil
}

type limitedBody struct {
	io.Reader
	io.Closer
}
