// Package normalize turns the raw text reply of the upstream model into a
// canonical multi-file project. The model's output arrives in several
// incompatible shapes, frequently wrapped in markdown fences and sometimes
// structurally broken; this package reconciles all of them into one shape or
// fails with a typed error, never a guessed project.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
)

// Shape identifies which accepted reply schema matched.
type Shape int

const (
	ShapeInvalid Shape = iota
	ShapeMultiFile
	ShapeLegacyTriple
	ShapeBareHTML
)

func (s Shape) String() string {
	switch s {
	case ShapeMultiFile:
		return "multi-file"
	case ShapeLegacyTriple:
		return "legacy-triple"
	case ShapeBareHTML:
		return "bare-html"
	}
	return "invalid"
}

// Normalize runs the full chain: fence stripping, opportunistic control
// character repair, ordered shape detection. On failure it returns
// domain.ErrInvalidFormat wrapped with the parse detail.
func Normalize(raw string) (*domain.CanonicalProject, error) {
	project, _, err := NormalizeWithShape(raw)
	return project, err
}

// NormalizeWithShape is Normalize plus the detected shape, for diagnostics.
func NormalizeWithShape(raw string) (*domain.CanonicalProject, Shape, error) {
	text := StripCodeFences(strings.TrimSpace(raw))
	if text == "" {
		return nil, ShapeInvalid, fmt.Errorf("%w: empty reply", domain.ErrInvalidFormat)
	}

	doc, parseErr := parseObject(text)
	if parseErr != nil {
		// Repair is opportunistic: on continued failure the original parse
		// error is the one reported.
		if repaired := EscapeControlChars(text); repaired != text {
			if d, err := parseObject(repaired); err == nil {
				doc = d
				parseErr = nil
			}
		}
	}

	if parseErr != nil {
		if LooksLikeHTML(text) {
			return bareHTMLProject(text), ShapeBareHTML, nil
		}
		return nil, ShapeInvalid, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, parseErr)
	}

	if filesRaw, ok := doc["files"]; ok {
		project, err := multiFileProject(filesRaw)
		if err != nil {
			return nil, ShapeInvalid, err
		}
		return project, ShapeMultiFile, nil
	}

	if _, ok := doc["html"]; ok {
		project, err := legacyTripleProject(doc)
		if err != nil {
			return nil, ShapeInvalid, err
		}
		return project, ShapeLegacyTriple, nil
	}

	return nil, ShapeInvalid, fmt.Errorf("%w: no recognized keys in JSON reply", domain.ErrInvalidFormat)
}

// StripCodeFences removes a wrapping markdown code fence, optionally tagged
// json or html. Text without a leading fence is returned untouched.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}

	firstNewline := strings.Index(trimmed, "\n")
	if firstNewline == -1 {
		return s
	}

	body := trimmed[firstNewline+1:]
	if lastFence := strings.LastIndex(body, "```"); lastFence != -1 {
		body = body[:lastFence]
	}
	return strings.TrimSpace(body)
}

// EscapeControlChars escapes literal newline, carriage-return, and tab bytes
// that appear unescaped inside JSON string literals. The model emits these
// when it forgets to escape multi-line file content; the resulting document
// is structurally invalid until they are repaired. Text outside string
// literals is left alone.
func EscapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
			b.WriteRune(r)
		case '"':
			inString = !inString
			b.WriteRune(r)
		case '\n':
			if inString {
				b.WriteString(`\n`)
			} else {
				b.WriteRune(r)
			}
		case '\r':
			if inString {
				b.WriteString(`\r`)
			} else {
				b.WriteRune(r)
			}
		case '\t':
			if inString {
				b.WriteString(`\t`)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LooksLikeHTML reports whether free text is plausibly an HTML document or
// fragment rather than malformed JSON.
func LooksLikeHTML(s string) bool {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "<") {
		return true
	}
	lower := strings.ToLower(trimmed)
	return strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html")
}

// ExtractBody returns the markup between the first <body ...> tag and the
// closing </body>, matched case-insensitively. Documents without a body tag
// are returned whole.
func ExtractBody(html string) string {
	lower := strings.ToLower(html)

	open := strings.Index(lower, "<body")
	if open == -1 {
		return html
	}
	openEnd := strings.Index(lower[open:], ">")
	if openEnd == -1 {
		return html
	}
	start := open + openEnd + 1

	end := strings.LastIndex(lower, "</body>")
	if end == -1 || end < start {
		return html
	}
	return html[start:end]
}

func parseObject(text string) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func bareHTMLProject(text string) *domain.CanonicalProject {
	return &domain.CanonicalProject{Files: []domain.ProjectFile{
		{Name: "index.html", Kind: domain.KindHTML, Content: text},
		{Name: "style.css", Kind: domain.KindCSS, Content: ""},
		{Name: "script.js", Kind: domain.KindJS, Content: ""},
	}}
}

func legacyTripleProject(doc map[string]json.RawMessage) (*domain.CanonicalProject, error) {
	html, err := decodeString(doc["html"])
	if err != nil {
		return nil, fmt.Errorf("%w: html field is not a string", domain.ErrInvalidFormat)
	}
	css, _ := decodeString(doc["css"])
	js, _ := decodeString(doc["js"])

	return &domain.CanonicalProject{Files: []domain.ProjectFile{
		{Name: "index.html", Kind: domain.KindHTML, Content: html},
		{Name: "style.css", Kind: domain.KindCSS, Content: css},
		{Name: "script.js", Kind: domain.KindJS, Content: js},
	}}, nil
}

// multiFileProject decodes {files:{path:content}} preserving the document
// order of entries, which later becomes the concatenation order in previews.
func multiFileProject(filesRaw json.RawMessage) (*domain.CanonicalProject, error) {
	dec := json.NewDecoder(bytes.NewReader(filesRaw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: files entry unreadable", domain.ErrInvalidFormat)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: files entry is not an object", domain.ErrInvalidFormat)
	}

	project := &domain.CanonicalProject{}
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: files entry unreadable", domain.ErrInvalidFormat)
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: files entry has a non-string key", domain.ErrInvalidFormat)
		}

		var content string
		if err := dec.Decode(&content); err != nil {
			return nil, fmt.Errorf("%w: content of %q is not a string", domain.ErrInvalidFormat, name)
		}

		name = strings.TrimPrefix(strings.TrimSpace(name), "./")
		if name == "" || seen[name] {
			continue
		}

		kind, known := domain.KindForName(name)
		if !known {
			log.Printf("[warn] operation=normalize dropping file with unsupported extension: %s", name)
			continue
		}

		seen[name] = true
		project.Files = append(project.Files, domain.ProjectFile{Name: name, Kind: kind, Content: content})
	}

	if !hasIndexHTML(project) {
		return nil, fmt.Errorf("%w: multi-file reply has no index.html", domain.ErrInvalidFormat)
	}
	ensureDefault(project, seen, "style.css", domain.KindCSS)
	ensureDefault(project, seen, "script.js", domain.KindJS)

	return project, nil
}

func hasIndexHTML(p *domain.CanonicalProject) bool {
	for _, f := range p.Files {
		if path.Base(f.Name) == "index.html" {
			return true
		}
	}
	return false
}

// ensureDefault appends an empty file unless an entry with the same base name
// already exists anywhere in the project.
func ensureDefault(p *domain.CanonicalProject, seen map[string]bool, base string, kind domain.FileKind) {
	for name := range seen {
		if path.Base(name) == base {
			return
		}
	}
	seen[base] = true
	p.Files = append(p.Files, domain.ProjectFile{Name: base, Kind: kind, Content: ""})
}

func decodeString(raw json.RawMessage) (string, error) {
	if raw == nil {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}
