package domain

import (
	"path"
	"strings"
	"time"
)

// FileKind classifies a project file by what the preview bundler does with it.
type FileKind string

const (
	KindHTML FileKind = "html"
	KindCSS  FileKind = "css"
	KindJS   FileKind = "js"
)

// KindForName infers a file kind from the name's extension. Returns false for
// extensions the pipeline does not handle.
func KindForName(name string) (FileKind, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return KindHTML, true
	case ".css":
		return KindCSS, true
	case ".js", ".mjs":
		return KindJS, true
	}
	return "", false
}

// ProjectFile is one named file inside a canonical project. Name may contain
// '/' separators; folders are derived from them and have no entity of their own.
type ProjectFile struct {
	Name    string   `json:"name"`
	Kind    FileKind `json:"kind"`
	Content string   `json:"content"`
}

// CanonicalProject is the single shape every accepted upstream reply is
// converted into: an ordered sequence of uniquely named files.
type CanonicalProject struct {
	Files []ProjectFile `json:"files"`
}

// File returns the file with the given name, or nil.
func (p *CanonicalProject) File(name string) *ProjectFile {
	for i := range p.Files {
		if p.Files[i].Name == name {
			return &p.Files[i]
		}
	}
	return nil
}

// IndexHTML returns the conventional entry file: an exact index.html path if
// present, otherwise any file whose base name is index.html.
func (p *CanonicalProject) IndexHTML() *ProjectFile {
	for _, name := range []string{"index.html", "html/index.html"} {
		if f := p.File(name); f != nil {
			return f
		}
	}
	for i := range p.Files {
		if path.Base(p.Files[i].Name) == "index.html" {
			return &p.Files[i]
		}
	}
	return nil
}

// ConcatKind joins the content of every file of the given kind, in project
// file order, separated by newlines.
func (p *CanonicalProject) ConcatKind(kind FileKind) string {
	var parts []string
	for _, f := range p.Files {
		if f.Kind == kind && strings.TrimSpace(f.Content) != "" {
			parts = append(parts, f.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// Generation is a stored result of one pipeline run. GeneratedHTML/CSS/JS are
// convenience fields kept for clients that predate multi-file projects; Files
// is the serialized canonical project.
type Generation struct {
	ID            string            `json:"id"`
	Prompt        string            `json:"prompt"`
	GeneratedHTML string            `json:"generatedHtml"`
	GeneratedCSS  string            `json:"generatedCss"`
	GeneratedJS   string            `json:"generatedJs"`
	Files         *CanonicalProject `json:"files,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
