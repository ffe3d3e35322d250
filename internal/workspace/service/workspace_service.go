package service

import (
	"context"
	"fmt"

	gendomain "github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
	genservice "github.com/pageforge-dev/pageforge-backend/internal/generation/service"
	wsdomain "github.com/pageforge-dev/pageforge-backend/internal/workspace/domain"
	"github.com/pageforge-dev/pageforge-backend/internal/workspace/preview"
	"github.com/pageforge-dev/pageforge-backend/internal/workspace/repository"
)

// WorkspaceService manages editing sessions over virtual projects and keeps
// the derived preview in sync with every mutation.
type WorkspaceService struct {
	sessions *repository.SessionRepository
	store    genservice.Store
}

func NewWorkspaceService(sessions *repository.SessionRepository, store genservice.Store) *WorkspaceService {
	return &WorkspaceService{sessions: sessions, store: store}
}

// View is what handlers return after every operation: the session state plus
// the freshly derived preview document. The preview is recomputed here on
// every call, never cached.
type View struct {
	Session *repository.Session
	Preview string
	Tree    []*wsdomain.TreeNode
}

func (s *WorkspaceService) view(session *repository.Session) *View {
	return &View{
		Session: session,
		Preview: preview.Render(session.Project),
		Tree:    session.Project.Tree(),
	}
}

// Open creates (or returns) the session for a stored generation. An empty
// generationID opens a blank starter project for manual authoring.
func (s *WorkspaceService) Open(ctx context.Context, generationID string) (*View, error) {
	if generationID == "" {
		session := &repository.Session{Project: wsdomain.NewStarter()}
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, err
		}
		return s.view(session), nil
	}

	if existing, err := s.sessions.GetByGenerationID(ctx, generationID); err == nil {
		return s.view(existing), nil
	}

	gen, err := s.store.GetGeneration(ctx, generationID)
	if err != nil {
		return nil, err
	}

	project := projectFromGeneration(gen)
	session := &repository.Session{GenerationID: gen.ID, Project: project}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// Get returns the current state of a session.
func (s *WorkspaceService) Get(ctx context.Context, sessionID string) (*View, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// mutate loads a session, applies fn, and saves. The project error (if any)
// is returned untouched so handlers can map the invariant taxonomy.
func (s *WorkspaceService) mutate(ctx context.Context, sessionID string, fn func(*wsdomain.Project) error) (*View, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(session.Project); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// AddFile creates a new file in the session's project.
func (s *WorkspaceService) AddFile(ctx context.Context, sessionID, name, content string) (*View, error) {
	return s.mutate(ctx, sessionID, func(p *wsdomain.Project) error {
		return p.AddFile(name, content)
	})
}

// UpdateFile replaces a file's content.
func (s *WorkspaceService) UpdateFile(ctx context.Context, sessionID, name, content string) (*View, error) {
	return s.mutate(ctx, sessionID, func(p *wsdomain.Project) error {
		return p.UpdateFile(name, content)
	})
}

// DeleteFile removes a non-protected file.
func (s *WorkspaceService) DeleteFile(ctx context.Context, sessionID, name string) (*View, error) {
	return s.mutate(ctx, sessionID, func(p *wsdomain.Project) error {
		return p.DeleteFile(name)
	})
}

// SelectActive changes the active file selection.
func (s *WorkspaceService) SelectActive(ctx context.Context, sessionID, name string) (*View, error) {
	return s.mutate(ctx, sessionID, func(p *wsdomain.Project) error {
		_, err := p.SelectActive(name)
		return err
	})
}

// Navigate resolves an intercepted in-preview link against the project and,
// on a match, makes the target the active file. The returned view carries
// the recomputed preview for the new selection.
func (s *WorkspaceService) Navigate(ctx context.Context, sessionID, href string) (*View, error) {
	return s.mutate(ctx, sessionID, func(p *wsdomain.Project) error {
		name, err := preview.ResolveHref(p, href)
		if err != nil {
			return fmt.Errorf("%w: no project file matches %q", wsdomain.ErrFileNotFound, href)
		}
		_, err = p.SelectActive(name)
		return err
	})
}

// projectFromGeneration prefers the stored canonical files and falls back to
// the legacy three-column fields for records that predate multi-file storage.
func projectFromGeneration(gen *gendomain.Generation) *wsdomain.Project {
	if gen.Files != nil && len(gen.Files.Files) > 0 {
		return wsdomain.FromCanonical(gen.Files)
	}
	return wsdomain.FromCanonical(&gendomain.CanonicalProject{Files: []gendomain.ProjectFile{
		{Name: "index.html", Kind: gendomain.KindHTML, Content: gen.GeneratedHTML},
		{Name: "style.css", Kind: gendomain.KindCSS, Content: gen.GeneratedCSS},
		{Name: "script.js", Kind: gendomain.KindJS, Content: gen.GeneratedJS},
	}})
}
