// Package preview derives a single renderable document from a virtual
// project. The document is ephemeral: it is recomputed from current project
// state on every change and never stored.
package preview

import (
	"strings"

	gendomain "github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
	wsdomain "github.com/pageforge-dev/pageforge-backend/internal/workspace/domain"
)

// MessageNavigate is the type field of navigation messages posted by the
// interception script to the embedding context.
const MessageNavigate = "NAVIGATE"

// NavigateMessage is the payload the sandboxed preview posts when a link is
// clicked inside the rendered document.
type NavigateMessage struct {
	Type string `json:"type"`
	Href string `json:"href"`
}

// navigationScript intercepts anchor clicks inside the preview and forwards
// them to the host instead of letting the sandbox navigate. It is injected
// ahead of the project's own script block.
const navigationScript = `<script>
document.addEventListener('click', function (e) {
  var a = e.target.closest('a');
  if (!a) return;
  var href = a.getAttribute('href');
  if (!href || href.startsWith('#')) return;
  e.preventDefault();
  window.parent.postMessage({ type: 'NAVIGATE', href: href }, '*');
});
</script>`

// Render builds the preview document for the project's current state: the
// selected HTML file with every CSS file concatenated into one style block
// and every JS file into one script block, in project file order. Returns
// "" when the project has no HTML file to render.
func Render(p *wsdomain.Project) string {
	entry := selectEntry(p)
	if entry == nil {
		return ""
	}

	var css strings.Builder
	var js strings.Builder
	for _, f := range p.Files {
		switch f.Kind {
		case gendomain.KindCSS:
			if strings.TrimSpace(f.Content) != "" {
				if css.Len() > 0 {
					css.WriteString("\n")
				}
				css.WriteString(f.Content)
			}
		case gendomain.KindJS:
			if strings.TrimSpace(f.Content) != "" {
				if js.Len() > 0 {
					js.WriteString("\n")
				}
				js.WriteString(f.Content)
			}
		}
	}

	doc := entry.Content

	if css.Len() > 0 {
		styleBlock := "<style>\n" + css.String() + "\n</style>"
		doc = injectBefore(doc, "</head>", styleBlock, styleBlock+"\n"+doc)
	}

	scriptBlock := navigationScript
	if js.Len() > 0 {
		scriptBlock += "\n<script>\n" + js.String() + "\n</script>"
	}
	doc = injectBefore(doc, "</body>", scriptBlock, doc+"\n"+scriptBlock)

	return doc
}

// selectEntry picks the HTML file to render: the active file when it is HTML,
// else the conventional index path, else the first HTML file.
func selectEntry(p *wsdomain.Project) *gendomain.ProjectFile {
	if f := p.Active(); f != nil && f.Kind == gendomain.KindHTML {
		return f
	}
	for _, name := range []string{"index.html", "html/index.html"} {
		if f := p.File(name); f != nil {
			return f
		}
	}
	for i := range p.Files {
		if p.Files[i].Kind == gendomain.KindHTML {
			return &p.Files[i]
		}
	}
	return nil
}

// injectBefore inserts block ahead of the first case-insensitive occurrence
// of marker; fallback is the whole result when the marker is absent.
func injectBefore(doc, marker, block, fallback string) string {
	idx := strings.Index(strings.ToLower(doc), marker)
	if idx == -1 {
		return fallback
	}
	return doc[:idx] + block + "\n" + doc[idx:]
}

// ResolveHref resolves an intercepted link target against the project's file
// names: exact match after stripping a leading ./ or /, then the conventional
// html/ folder. Returns ErrFileNotFound when nothing matches, in which case
// the host reports the condition without navigating.
func ResolveHref(p *wsdomain.Project, href string) (string, error) {
	href = strings.TrimSpace(href)
	href = strings.TrimPrefix(href, "./")
	href = strings.TrimPrefix(href, "/")
	if i := strings.IndexAny(href, "?#"); i != -1 {
		href = href[:i]
	}
	if href == "" {
		return "", wsdomain.ErrFileNotFound
	}

	if p.File(href) != nil {
		return href, nil
	}
	if candidate := "html/" + href; p.File(candidate) != nil {
		return candidate, nil
	}
	return "", wsdomain.ErrFileNotFound
}
