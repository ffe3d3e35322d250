package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
)

func TestNormalize_MultiFileRoundTrip(t *testing.T) {
	raw := `{"files":{"index.html":"<h1>Hi</h1>","style.css":"h1{color:red}","script.js":"console.log(1)"}}`

	project, shape, err := NormalizeWithShape(raw)
	require.NoError(t, err)
	assert.Equal(t, ShapeMultiFile, shape)
	require.Len(t, project.Files, 3)

	assert.Equal(t, "index.html", project.Files[0].Name)
	assert.Equal(t, "<h1>Hi</h1>", project.Files[0].Content)
	assert.Equal(t, domain.KindHTML, project.Files[0].Kind)
	assert.Equal(t, "h1{color:red}", project.File("style.css").Content)
	assert.Equal(t, "console.log(1)", project.File("script.js").Content)
}

func TestNormalize_MultiFilePreservesEntryOrder(t *testing.T) {
	raw := `{"files":{"css/reset.css":"*{margin:0}","index.html":"<p>x</p>","css/theme.css":"body{}"}}`

	project, err := Normalize(raw)
	require.NoError(t, err)

	var cssNames []string
	for _, f := range project.Files {
		if f.Kind == domain.KindCSS {
			cssNames = append(cssNames, f.Name)
		}
	}
	// reset.css before theme.css, as authored, plus the defaulted style.css.
	assert.Equal(t, []string{"css/reset.css", "css/theme.css", "style.css"}, cssNames)
}

func TestNormalize_MultiFileRequiresIndexHTML(t *testing.T) {
	raw := `{"files":{"about.html":"<p>x</p>","style.css":""}}`

	_, err := Normalize(raw)
	assert.True(t, errors.Is(err, domain.ErrInvalidFormat))
}

func TestNormalize_MultiFileDefaultsMissingCSSAndJS(t *testing.T) {
	raw := `{"files":{"html/index.html":"<p>x</p>"}}`

	project, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, project.Files, 3)
	assert.Equal(t, "", project.File("style.css").Content)
	assert.Equal(t, "", project.File("script.js").Content)
}

func TestNormalize_LegacyTriple(t *testing.T) {
	raw := `{"html":"<p>A</p>","css":"","js":""}`

	project, shape, err := NormalizeWithShape(raw)
	require.NoError(t, err)
	assert.Equal(t, ShapeLegacyTriple, shape)
	require.Len(t, project.Files, 3)
	assert.Equal(t, "<p>A</p>", project.File("index.html").Content)
	assert.Equal(t, "", project.File("style.css").Content)
	assert.Equal(t, "", project.File("script.js").Content)
}

func TestNormalize_BareHTMLFallback(t *testing.T) {
	raw := "<!DOCTYPE html><html><body><h1>Plain</h1></body></html>"

	project, shape, err := NormalizeWithShape(raw)
	require.NoError(t, err)
	assert.Equal(t, ShapeBareHTML, shape)
	assert.Equal(t, raw, project.File("index.html").Content)
}

func TestNormalize_FencedJSON(t *testing.T) {
	raw := "```json\n{\"html\":\"<p>A</p>\",\"css\":\"\",\"js\":\"\"}\n```"

	project, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "<p>A</p>", project.File("index.html").Content)
}

func TestNormalize_FencedHTML(t *testing.T) {
	raw := "```html\n<html><body>hi</body></html>\n```"

	project, shape, err := NormalizeWithShape(raw)
	require.NoError(t, err)
	assert.Equal(t, ShapeBareHTML, shape)
	assert.Equal(t, "<html><body>hi</body></html>", project.File("index.html").Content)
}

func TestNormalize_RepairsUnescapedControlChars(t *testing.T) {
	// Literal newline inside the html string value makes this invalid JSON
	// until the repair pass escapes it.
	raw := "{\"html\":\"<p>line one\nline two</p>\",\"css\":\"\",\"js\":\"\"}"

	project, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "<p>line one\nline two</p>", project.File("index.html").Content)
}

func TestNormalize_UnrecognizedJSONFails(t *testing.T) {
	_, shape, err := NormalizeWithShape(`{"unexpectedKey": 1}`)
	assert.True(t, errors.Is(err, domain.ErrInvalidFormat))
	assert.Equal(t, ShapeInvalid, shape)
}

func TestNormalize_GarbageFails(t *testing.T) {
	_, err := Normalize(`{"files": broken`)
	assert.True(t, errors.Is(err, domain.ErrInvalidFormat))
}

func TestEscapeControlChars_OnlyTouchesStringInteriors(t *testing.T) {
	in := "{\n  \"k\": \"a\nb\"\n}"
	out := EscapeControlChars(in)
	assert.Equal(t, "{\n  \"k\": \"a\\nb\"\n}", out)
}

func TestEscapeControlChars_LeavesEscapedSequencesAlone(t *testing.T) {
	in := `{"k": "a\nb"}`
	assert.Equal(t, in, EscapeControlChars(in))
}

func TestStripCodeFences_NoFencePassthrough(t *testing.T) {
	assert.Equal(t, `{"html":""}`, StripCodeFences(`{"html":""}`))
}

func TestExtractBody(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>t</title></head><BODY class="x"><h1>inner</h1></BODY></html>`
	assert.Equal(t, "<h1>inner</h1>", ExtractBody(html))
}

func TestExtractBody_NoBodyTagReturnsWhole(t *testing.T) {
	assert.Equal(t, "<h1>frag</h1>", ExtractBody("<h1>frag</h1>"))
}
