package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pageforge-dev/pageforge-backend/internal/generation/admission"
	"github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
	"github.com/pageforge-dev/pageforge-backend/internal/generation/llm"
	"github.com/pageforge-dev/pageforge-backend/internal/generation/normalize"
)

// systemInstructions steer the model toward the multi-file reply shape. The
// normalizer still accepts the older shapes the model falls back to.
const systemInstructions = `You are an expert web developer. Generate a complete, self-contained website for the user's request.
Respond with a single JSON object of the form {"files": {"index.html": "...", "style.css": "...", "script.js": "..."}}.
You may add more .html, .css, and .js files for multi-page sites. Do not include explanations outside the JSON.
All markup, styles, and scripts must be plain HTML/CSS/JavaScript with no external dependencies.`

// Upstream is the model collaborator.
type Upstream interface {
	Generate(ctx context.Context, prompt, systemInstructions string) (string, error)
}

// Store is the persistence collaborator for generation records.
type Store interface {
	CreateGeneration(ctx context.Context, gen *domain.Generation) error
	ListGenerations(ctx context.Context) ([]domain.Generation, error)
	GetGeneration(ctx context.Context, id string) (*domain.Generation, error)
	DeleteGeneration(ctx context.Context, id string) error
}

// GenerationService runs the pipeline: admission, upstream call with bounded
// retry, normalization, persistence. Stages execute strictly in that order
// within one request; requests are independent of each other.
type GenerationService struct {
	admission  *admission.Controller
	upstream   Upstream
	store      Store
	maxRetries int
	retryDelay time.Duration
	now        func() time.Time
}

type Config struct {
	MaxRetries int
	RetryDelay time.Duration
	Now        func() time.Time // defaults to time.Now
}

func NewGenerationService(adm *admission.Controller, upstream Upstream, store Store, cfg Config) *GenerationService {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &GenerationService{
		admission:  adm,
		upstream:   upstream,
		store:      store,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		now:        cfg.Now,
	}
}

// Generate runs one prompt through the pipeline and returns the stored record.
func (s *GenerationService) Generate(ctx context.Context, prompt string) (*domain.Generation, error) {
	logger := NewLogger(ctx)

	// Admission is reserved exactly once per logical request, before the
	// upstream call; retries below do not burn additional quota slots.
	decision := s.admission.Reserve(s.now())
	if !decision.Allowed {
		recordAdmissionDenial()
		logger.LogWarnf("generate", "admission denied: %s", decision.Reason)
		return nil, &domain.AdmissionDeniedError{Reason: decision.Reason, WaitSeconds: decision.WaitSeconds}
	}

	start := time.Now()
	raw, err := withRateLimitRetry(ctx, s.maxRetries, s.retryDelay, func(ctx context.Context) (string, error) {
		return s.upstream.Generate(ctx, prompt, systemInstructions)
	})
	recordUpstreamCall(time.Since(start), err)
	if err != nil {
		logger.LogError("generate_upstream", err)
		return nil, err
	}

	project, shape, err := normalize.NormalizeWithShape(raw)
	if err != nil {
		recordNormalizeFailure()
		// The raw reply is diagnostic only; log truncated, never persist.
		logger.LogWarnf("generate_normalize", "reply rejected: %v raw=%q", err, truncate(raw, 500))
		return nil, err
	}
	logger.LogInfof("generate_normalize", "reply accepted shape=%s files=%d", shape, len(project.Files))

	gen := &domain.Generation{
		Prompt:    prompt,
		Files:     project,
		CreatedAt: s.now(),
	}
	fillLegacyFields(gen, project)

	if err := s.store.CreateGeneration(ctx, gen); err != nil {
		logger.LogError("generate_store", err)
		return nil, fmt.Errorf("store generation: %w", err)
	}

	recordGeneration()
	return gen, nil
}

// QuotaStatus reports the admission decision a request arriving now would get,
// without consuming a slot.
func (s *GenerationService) QuotaStatus() admission.Decision {
	return s.admission.Check(s.now())
}

// List returns all stored generations, newest first.
func (s *GenerationService) List(ctx context.Context) ([]domain.Generation, error) {
	return s.store.ListGenerations(ctx)
}

// Get returns one stored generation.
func (s *GenerationService) Get(ctx context.Context, id string) (*domain.Generation, error) {
	return s.store.GetGeneration(ctx, id)
}

// Delete removes a stored generation.
func (s *GenerationService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteGeneration(ctx, id)
}

// ClassifyError maps a pipeline error onto the HTTP failure envelope code.
func ClassifyError(err error) string {
	var denied *domain.AdmissionDeniedError
	if errors.As(err, &denied) {
		return domain.CodeRateLimit
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsRateLimited():
			return domain.CodeRateLimit
		case apiErr.IsAuth():
			return domain.CodeInvalidAPIKey
		}
		return domain.CodeGenerationFailed
	}

	switch {
	case errors.Is(err, domain.ErrEmptyReply):
		return domain.CodeEmptyResponse
	case errors.Is(err, domain.ErrInvalidFormat):
		return domain.CodeInvalidFormat
	}
	return domain.CodeGenerationFailed
}

// fillLegacyFields derives the single-file convenience columns older clients
// read: the entry HTML file plus the concatenated css/js content.
func fillLegacyFields(gen *domain.Generation, project *domain.CanonicalProject) {
	if f := project.IndexHTML(); f != nil {
		gen.GeneratedHTML = f.Content
	}
	gen.GeneratedCSS = project.ConcatKind(domain.KindCSS)
	gen.GeneratedJS = project.ConcatKind(domain.KindJS)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
