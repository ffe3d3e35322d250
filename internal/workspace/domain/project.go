// Package domain holds the virtual project model: the in-memory set of named
// files a workspace session edits and previews. Folders exist only as '/'
// prefixes of file names; there is no separate folder entity.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	gendomain "github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
)

var (
	ErrDuplicateFile = errors.New("a file with that name already exists")
	ErrProtectedFile = errors.New("this file cannot be deleted")
	ErrFileNotFound  = errors.New("file not found")
)

// protectedPaths are the canonical entry files a project always keeps, under
// both flat and foldered conventions.
var protectedPaths = map[string]bool{
	"index.html":      true,
	"html/index.html": true,
	"style.css":       true,
	"css/style.css":   true,
	"script.js":       true,
	"js/script.js":    true,
}

// IsProtected reports whether name is one of the canonical undeletable paths.
func IsProtected(name string) bool {
	return protectedPaths[name]
}

// Project is a mutable virtual project with an active file selection. It is
// not safe for concurrent use; a workspace session owns one instance at a time.
type Project struct {
	Files      []gendomain.ProjectFile `json:"files"`
	ActiveFile string                  `json:"activeFile"`
}

// FromCanonical builds a project from a generation's canonical files, with
// the entry HTML file selected.
func FromCanonical(p *gendomain.CanonicalProject) *Project {
	project := &Project{Files: append([]gendomain.ProjectFile(nil), p.Files...)}
	if f := p.IndexHTML(); f != nil {
		project.ActiveFile = f.Name
	} else if len(project.Files) > 0 {
		project.ActiveFile = project.Files[0].Name
	}
	return project
}

// NewStarter builds the blank three-file project manual authoring starts from.
func NewStarter() *Project {
	return &Project{
		Files: []gendomain.ProjectFile{
			{Name: "index.html", Kind: gendomain.KindHTML, Content: "<h1>New project</h1>\n"},
			{Name: "style.css", Kind: gendomain.KindCSS, Content: ""},
			{Name: "script.js", Kind: gendomain.KindJS, Content: ""},
		},
		ActiveFile: "index.html",
	}
}

// File returns the named file, or nil.
func (p *Project) File(name string) *gendomain.ProjectFile {
	for i := range p.Files {
		if p.Files[i].Name == name {
			return &p.Files[i]
		}
	}
	return nil
}

// Active returns the currently selected file, or nil when nothing is selected.
func (p *Project) Active() *gendomain.ProjectFile {
	if p.ActiveFile == "" {
		return nil
	}
	return p.File(p.ActiveFile)
}

// AddFile appends a new file. Names are unique within a project.
func (p *Project) AddFile(name, content string) error {
	name = strings.TrimPrefix(strings.TrimSpace(name), "./")
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrFileNotFound)
	}
	if p.File(name) != nil {
		return ErrDuplicateFile
	}

	kind, ok := gendomain.KindForName(name)
	if !ok {
		return fmt.Errorf("unsupported file type: %s", name)
	}

	p.Files = append(p.Files, gendomain.ProjectFile{Name: name, Kind: kind, Content: content})
	return nil
}

// DeleteFile removes a file. The canonical entry paths are protected. When
// the active file is deleted, selection moves to the first remaining HTML
// file, else the first remaining file, else empty.
func (p *Project) DeleteFile(name string) error {
	if IsProtected(name) {
		return ErrProtectedFile
	}

	idx := -1
	for i := range p.Files {
		if p.Files[i].Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrFileNotFound
	}

	p.Files = append(p.Files[:idx], p.Files[idx+1:]...)

	if p.ActiveFile == name {
		p.ActiveFile = ""
		for _, f := range p.Files {
			if f.Kind == gendomain.KindHTML {
				p.ActiveFile = f.Name
				break
			}
		}
		if p.ActiveFile == "" && len(p.Files) > 0 {
			p.ActiveFile = p.Files[0].Name
		}
	}
	return nil
}

// UpdateFile replaces a file's content in place. This is the only mutation
// path for edited code.
func (p *Project) UpdateFile(name, content string) error {
	f := p.File(name)
	if f == nil {
		return ErrFileNotFound
	}
	f.Content = content
	return nil
}

// SelectActive makes the named file the active selection and returns it.
func (p *Project) SelectActive(name string) (*gendomain.ProjectFile, error) {
	f := p.File(name)
	if f == nil {
		return nil, ErrFileNotFound
	}
	p.ActiveFile = name
	return f, nil
}

// TreeNode is one entry of the display tree: a folder (with children) or a file.
type TreeNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path,omitempty"`
	IsFolder bool        `json:"isFolder"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Tree groups files by their '/' segments for display: folders sort before
// files, then lexicographically, at every level.
func (p *Project) Tree() []*TreeNode {
	root := &TreeNode{IsFolder: true}
	index := map[string]*TreeNode{"": root}

	for _, f := range p.Files {
		segments := strings.Split(f.Name, "/")
		prefix := ""
		parent := root
		for _, seg := range segments[:len(segments)-1] {
			if prefix == "" {
				prefix = seg
			} else {
				prefix = prefix + "/" + seg
			}
			node, ok := index[prefix]
			if !ok {
				node = &TreeNode{Name: seg, IsFolder: true}
				index[prefix] = node
				parent.Children = append(parent.Children, node)
			}
			parent = node
		}
		parent.Children = append(parent.Children, &TreeNode{
			Name: segments[len(segments)-1],
			Path: f.Name,
		})
	}

	sortTree(root)
	return root.Children
}

func sortTree(n *TreeNode) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.IsFolder != b.IsFolder {
			return a.IsFolder
		}
		return a.Name < b.Name
	})
	for _, c := range n.Children {
		if c.IsFolder {
			sortTree(c)
		}
	}
}
