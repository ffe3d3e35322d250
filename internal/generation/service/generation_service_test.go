package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge-dev/pageforge-backend/internal/generation/admission"
	"github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
	"github.com/pageforge-dev/pageforge-backend/internal/generation/llm"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu   sync.Mutex
	gens []domain.Generation
}

func (m *memStore) CreateGeneration(_ context.Context, gen *domain.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen.ID == "" {
		gen.ID = "gen-1"
	}
	m.gens = append(m.gens, *gen)
	return nil
}

func (m *memStore) ListGenerations(context.Context) ([]domain.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Generation(nil), m.gens...), nil
}

func (m *memStore) GetGeneration(_ context.Context, id string) (*domain.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.gens {
		if m.gens[i].ID == id {
			return &m.gens[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) DeleteGeneration(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.gens {
		if m.gens[i].ID == id {
			m.gens = append(m.gens[:i], m.gens[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func newService(t *testing.T, upstreamURL string, limits admission.Limits) (*GenerationService, *memStore) {
	t.Helper()
	store := &memStore{}
	client := llm.NewClient(llm.Options{BaseURL: upstreamURL, APIKey: "k", Model: "m"})
	svc := NewGenerationService(admission.NewController(limits), client, store, Config{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	return svc, store
}

func geminiReply(text string) string {
	// httptest handlers write this as the generateContent response body.
	b := strings.ReplaceAll(text, `\`, `\\`)
	b = strings.ReplaceAll(b, `"`, `\"`)
	b = strings.ReplaceAll(b, "\n", `\n`)
	return `{"candidates":[{"content":{"parts":[{"text":"` + b + `"}]}}]}`
}

func TestGenerate_EndToEnd(t *testing.T) {
	reply := "```json\n{\"files\":{\"index.html\":\"<html><body><h1>Portfolio</h1><section id=\\\"contact\\\">mail me</section></body></html>\",\"style.css\":\"h1{color:teal}\",\"script.js\":\"console.log('hi')\"}}\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiReply(reply)))
	}))
	defer server.Close()

	svc, store := newService(t, server.URL, admission.Limits{PerMinute: 10, PerDay: 100})

	gen, err := svc.Generate(context.Background(), "Build a one-page portfolio with a contact section")
	require.NoError(t, err)

	assert.Contains(t, gen.GeneratedHTML, "<body>")
	assert.Equal(t, "h1{color:teal}", gen.GeneratedCSS)
	assert.Equal(t, "console.log('hi')", gen.GeneratedJS)
	require.NotNil(t, gen.Files)
	assert.Len(t, gen.Files.Files, 3)

	stored, err := store.ListGenerations(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, gen.Prompt, stored[0].Prompt)
}

func TestGenerate_AdmissionDenialDoesNotCallUpstream(t *testing.T) {
	upstreamCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		w.Write([]byte(geminiReply("<p>x</p>")))
	}))
	defer server.Close()

	svc, _ := newService(t, server.URL, admission.Limits{PerMinute: 1, PerDay: 100})

	_, err := svc.Generate(context.Background(), "first prompt for a site")
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "second prompt for a site")
	var denied *domain.AdmissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Positive(t, denied.WaitSeconds)
	assert.Equal(t, 1, upstreamCalls)
}

func TestGenerate_RetriesOnceOnUpstreamRateLimit(t *testing.T) {
	upstreamCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		if upstreamCalls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota"}}`))
			return
		}
		w.Write([]byte(geminiReply("<p>recovered</p>")))
	}))
	defer server.Close()

	svc, _ := newService(t, server.URL, admission.Limits{PerMinute: 10, PerDay: 100})

	gen, err := svc.Generate(context.Background(), "prompt long enough")
	require.NoError(t, err)
	assert.Equal(t, 2, upstreamCalls)
	assert.Contains(t, gen.GeneratedHTML, "recovered")
}

func TestGenerate_InvalidReplyNotPersisted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiReply(`{"unexpectedKey": 1}`)))
	}))
	defer server.Close()

	svc, store := newService(t, server.URL, admission.Limits{PerMinute: 10, PerDay: 100})

	_, err := svc.Generate(context.Background(), "prompt long enough")
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	stored, _ := store.ListGenerations(context.Background())
	assert.Empty(t, stored)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, domain.CodeRateLimit, ClassifyError(&domain.AdmissionDeniedError{Reason: "limit"}))
	assert.Equal(t, domain.CodeRateLimit, ClassifyError(&llm.APIError{StatusCode: 429}))
	assert.Equal(t, domain.CodeInvalidAPIKey, ClassifyError(&llm.APIError{StatusCode: 403, Message: "API key not valid"}))
	assert.Equal(t, domain.CodeEmptyResponse, ClassifyError(domain.ErrEmptyReply))
	assert.Equal(t, domain.CodeInvalidFormat, ClassifyError(domain.ErrInvalidFormat))
	assert.Equal(t, domain.CodeGenerationFailed, ClassifyError(assert.AnError))
}
