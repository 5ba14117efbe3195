package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"revoice/internal/config"
	"revoice/internal/dub"
	langpkg "revoice/internal/language"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/services/transcribe"
)

const (
	defaultModel          = openai.GPT4oMini
	defaultRetryAttempts  = 4
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultConcurrency    = 4
)

const systemPrompt = "You translate subtitles for dubbing. Reply with the translation only, no quotes or notes. " +
	"Keep it about as long as the source so it can be spoken in the same time."

// ChatClient is the subset of the go-openai client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Translator translates text with a chat completion model.
type Translator struct {
	client      ChatClient
	model       string
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger

	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleeper        func(time.Duration)
}

// Option customizes the translator.
type Option func(*Translator)

// WithRetry overrides the attempt count and backoff delays.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(t *Translator) {
		t.retryAttempts = attempts
		t.retryBaseDelay = baseDelay
		t.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(t *Translator) { t.sleeper = sleeper }
}

// WithConcurrency bounds parallel segment requests in TranslateTranscript.
func WithConcurrency(n int) Option {
	return func(t *Translator) {
		if n > 0 {
			t.concurrency = n
		}
	}
}

// New builds a translator from config.
func New(cfg config.Translation, logger *slog.Logger, opts ...Option) *Translator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	opts = append([]Option{func(t *Translator) {
		t.timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}}, opts...)
	return NewWithClient(openai.NewClientWithConfig(clientConfig), cfg.Model, logger, opts...)
}

// NewWithClient builds a translator around an existing client.
func NewWithClient(client ChatClient, model string, logger *slog.Logger, opts ...Option) *Translator {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	t := &Translator{
		client:         client,
		model:          model,
		concurrency:    defaultConcurrency,
		logger:         logging.NewComponentLogger(logger, "translate"),
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate renders text into target. Source may be empty.
func (t *Translator) Translate(ctx context.Context, text, source, target string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", services.Wrap(services.ErrInput, "translation", "translate", "empty text", nil)
	}
	targetName := langpkg.DisplayName(target)
	prompt := fmt.Sprintf("Translate into %s:\n%s", targetName, text)
	if source != "" {
		prompt = fmt.Sprintf("Translate from %s into %s:\n%s", langpkg.DisplayName(source), targetName, text)
	}
	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	content, err := t.completeWithRetry(ctx, req)
	if err != nil {
		return "", services.WrapCapability(services.ErrTranslation, "translation", "chat", err)
	}
	return content, nil
}

// TranslateTranscript translates every segment into target, keeping timings.
func (t *Translator) TranslateTranscript(ctx context.Context, in transcribe.Transcript, target string) (transcribe.Transcript, error) {
	code, err := langpkg.Normalize(target)
	if err != nil {
		return transcribe.Transcript{}, services.Wrap(services.ErrInput, "translation", "target", target, err)
	}

	out := make([]dub.Segment, len(in.Segments))
	var (
		mu   sync.Mutex
		done int
	)
	sampler := logging.NewProgressSampler(25)
	started := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i, seg := range in.Segments {
		g.Go(func() error {
			translated, err := t.Translate(gctx, seg.Text, in.Language, code)
			if err != nil {
				return fmt.Errorf("segment %d: %w", seg.Index, err)
			}
			seg.Text = translated
			out[i] = seg
			mu.Lock()
			done++
			if sampler.ShouldLog(done, len(in.Segments)) {
				t.logger.Debug("translation progress", logging.Int("done", done), logging.Int("total", len(in.Segments)))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return transcribe.Transcript{}, err
	}
	t.logger.Info("translation completed",
		logging.String("source", in.Language),
		logging.String("target", code),
		logging.Int("segments", len(out)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return transcribe.Transcript{Language: code, Segments: out}, nil
}

var errEmptyCompletion = errors.New("empty completion")

func (t *Translator) completeWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	attempts := max(t.retryAttempts, 1)
	var lastErr error
	attempt := 1
	for ; ; attempt++ {
		content, err := t.completeOnce(ctx, req)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if attempt == attempts || !retryable(ctx, err) {
			break
		}
		if err := t.sleep(ctx, t.backoffDelay(attempt)); err != nil {
			return "", err
		}
	}
	if attempt > 1 {
		return "", fmt.Errorf("failed after %d attempts: %w", attempt, lastErr)
	}
	return "", lastErr
}

func (t *Translator) completeOnce(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	for _, choice := range resp.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", errEmptyCompletion
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, errEmptyCompletion) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func (t *Translator) backoffDelay(attempt int) time.Duration {
	if t.retryBaseDelay <= 0 {
		return 0
	}
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := t.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > t.retryMaxDelay/2 {
			return t.retryMaxDelay
		}
		delay *= 2
	}
	return min(delay, t.retryMaxDelay)
}

func (t *Translator) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if t.sleeper != nil {
		t.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
