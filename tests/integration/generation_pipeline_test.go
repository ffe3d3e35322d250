package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge-dev/pageforge-backend/internal/generation/admission"
	gendomain "github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
	"github.com/pageforge-dev/pageforge-backend/internal/generation/llm"
	genservice "github.com/pageforge-dev/pageforge-backend/internal/generation/service"
	wsrepo "github.com/pageforge-dev/pageforge-backend/internal/workspace/repository"
	wsservice "github.com/pageforge-dev/pageforge-backend/internal/workspace/service"
)

type memStore struct {
	generations map[string]*gendomain.Generation
	order       []string
}

func newMemStore() *memStore {
	return &memStore{generations: map[string]*gendomain.Generation{}}
}

func (m *memStore) CreateGeneration(ctx context.Context, gen *gendomain.Generation) error {
	if gen.ID == "" {
		gen.ID = "gen-" + time.Now().Format("150405.000000000")
	}
	m.generations[gen.ID] = gen
	m.order = append(m.order, gen.ID)
	return nil
}

func (m *memStore) ListGenerations(ctx context.Context) ([]gendomain.Generation, error) {
	out := make([]gendomain.Generation, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, *m.generations[m.order[i]])
	}
	return out, nil
}

func (m *memStore) GetGeneration(ctx context.Context, id string) (*gendomain.Generation, error) {
	gen, ok := m.generations[id]
	if !ok {
		return nil, gendomain.ErrNotFound
	}
	return gen, nil
}

func (m *memStore) DeleteGeneration(ctx context.Context, id string) error {
	if _, ok := m.generations[id]; !ok {
		return gendomain.ErrNotFound
	}
	delete(m.generations, id)
	return nil
}

// fakeModelServer speaks just enough of the generative-language wire format
// to return a canned reply text.
func fakeModelServer(t *testing.T, replyText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": replyText}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func modelReply(t *testing.T) string {
	t.Helper()
	files := map[string]any{"files": map[string]string{
		"index.html": "<html><head></head><body><h1>Portfolio</h1><a href=\"about.html\">about</a></body></html>",
		"about.html": "<html><body><p>About me</p></body></html>",
		"style.css":  "body{font-family:sans-serif}",
		"script.js":  "console.log('ready')",
	}}
	data, err := json.Marshal(files)
	require.NoError(t, err)
	return "```json\n" + string(data) + "\n```"
}

func TestGenerationToWorkspaceFlow(t *testing.T) {
	ctx := context.Background()

	upstream := fakeModelServer(t, modelReply(t))
	defer upstream.Close()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := newMemStore()
	client := llm.NewClient(llm.Options{APIKey: "test-key", Model: "gemini-2.0-flash", BaseURL: upstream.URL})
	adm := admission.NewController(admission.Limits{PerMinute: 14, PerDay: 1400})
	genSvc := genservice.NewGenerationService(adm, client, store, genservice.Config{})

	// Generate from a prompt: fenced multi-file JSON normalizes into a
	// canonical project and is persisted.
	gen, err := genSvc.Generate(ctx, "a personal portfolio site with an about page")
	require.NoError(t, err)
	require.NotNil(t, gen.Files)
	assert.Len(t, gen.Files.Files, 4)
	assert.Contains(t, gen.GeneratedHTML, "<h1>Portfolio</h1>")
	assert.Contains(t, gen.GeneratedCSS, "sans-serif")

	// Open a workspace over the stored generation and walk a preview
	// navigation round trip.
	wsSvc := wsservice.NewWorkspaceService(wsrepo.NewSessionRepository(rdb), store)

	view, err := wsSvc.Open(ctx, gen.ID)
	require.NoError(t, err)
	assert.Equal(t, "index.html", view.Session.Project.ActiveFile)
	assert.Contains(t, view.Preview, "body{font-family:sans-serif}")
	assert.Contains(t, view.Preview, "postMessage")

	after, err := wsSvc.Navigate(ctx, view.Session.ID, "./about.html")
	require.NoError(t, err)
	assert.Equal(t, "about.html", after.Session.Project.ActiveFile)
	assert.Contains(t, after.Preview, "<p>About me</p>")

	// Edits persist across loads.
	_, err = wsSvc.UpdateFile(ctx, view.Session.ID, "style.css", "body{font-family:serif}")
	require.NoError(t, err)
	got, err := wsSvc.Get(ctx, view.Session.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Preview, "body{font-family:serif}")
}

func TestGenerationFlow_AdmissionDenialSurfacesWait(t *testing.T) {
	ctx := context.Background()

	upstream := fakeModelServer(t, modelReply(t))
	defer upstream.Close()

	store := newMemStore()
	client := llm.NewClient(llm.Options{APIKey: "test-key", Model: "gemini-2.0-flash", BaseURL: upstream.URL})
	adm := admission.NewController(admission.Limits{PerMinute: 1, PerDay: 1000})
	genSvc := genservice.NewGenerationService(adm, client, store, genservice.Config{})

	_, err := genSvc.Generate(ctx, "a personal portfolio site")
	require.NoError(t, err)

	_, err = genSvc.Generate(ctx, "another site right away")
	var denied *gendomain.AdmissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Greater(t, denied.WaitSeconds, 0)
	assert.Len(t, store.order, 1, "denied request must not reach the store")
}
