package dom

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ppiankov/narrascope/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html><head><title>  Sign in  </title></head>
<body>
  <div id="app">
    <h1 id="t">Sign in</h1>
    <div role="heading" aria-level="3">Sub</div>
    <div role="heading">Default</div>
    <span id="lbl">Email address</span>
    <input id="email" aria-labelledby="lbl missing">
    <label for="pw">Password</label><input id="pw" type="password">
    <label>Remember <input type="checkbox" id="r"></label>
    <p class="note  muted">Text <script>ignored()</script><b>bold</b>
       more</p>
  </div>
  <div id="t">duplicate id</div>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(page)
	require.NoError(t, err)
	return doc
}

func TestDocument_NodeTable(t *testing.T) {
	doc := mustParse(t)

	require.Greater(t, doc.Len(), 10)
	assert.Equal(t, "html", doc.Node(0).Data)
	assert.Nil(t, doc.Node(-1))
	assert.Nil(t, doc.Node(model.NodeID(doc.Len())))

	h1 := doc.ElementByID("t")
	require.NotNil(t, h1)
	ref := doc.Ref(h1)
	require.NotNil(t, ref)
	assert.Equal(t, "h1", ref.Tag)
	assert.Same(t, h1, doc.Node(ref.ID))

	assert.Nil(t, doc.Ref(doc.Root()), "document node is not an element")
	assert.Equal(t, "h1", doc.ElementByID("t").Data, "first id wins")
	assert.Nil(t, doc.ElementByID("nope"))
}

func TestDocument_Container(t *testing.T) {
	doc := mustParse(t)

	n, err := doc.Container("#app")
	require.NoError(t, err)
	assert.Equal(t, "app", AttrValue(n, "id"))

	n, err = doc.Container("")
	require.NoError(t, err)
	assert.Equal(t, "body", n.Data)

	n, err = doc.Container("main")
	require.NoError(t, err)
	assert.Equal(t, "body", n.Data, "unmatched selector falls back to body")

	_, err = doc.Container("[[[")
	assert.Error(t, err)
}

func TestDocument_Title(t *testing.T) {
	assert.Equal(t, "Sign in", mustParse(t).Title())
}

func TestTextContent(t *testing.T) {
	doc := mustParse(t)
	p := QueryFirst(doc.Root(), MustCompile("p"))
	require.NotNil(t, p)
	assert.Equal(t, "Text bold more", TextContent(p))
	assert.True(t, HasClass(p, "muted"))
	assert.False(t, HasClass(p, "mute"))
}

func TestHeadingLevel(t *testing.T) {
	doc := mustParse(t)
	var levels []int
	for _, n := range QueryAll(doc.Root(), MustCompile("h1, [role=heading]")) {
		levels = append(levels, HeadingLevel(n))
	}
	assert.Equal(t, []int{1, 3, 2}, levels)
	assert.Equal(t, 0, HeadingLevel(doc.ElementByID("app")))
}

func TestLabels(t *testing.T) {
	doc := mustParse(t)

	email := doc.ElementByID("email")
	assert.Equal(t, "Email address", doc.LabelledByText(email))
	assert.False(t, doc.HasExternalLabel(email))

	pw := doc.ElementByID("pw")
	assert.Equal(t, "Password", doc.ExternalLabel(pw))
	assert.True(t, doc.HasExternalLabel(pw))

	r := doc.ElementByID("r")
	label := WrappingLabel(r)
	require.NotNil(t, label)
	assert.Equal(t, "Remember", TextContent(label))
	assert.Nil(t, WrappingLabel(pw))

	assert.Equal(t, "b", FirstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", FirstNonEmpty())
}

func TestQueryAll_IncludesRoot(t *testing.T) {
	doc := mustParse(t)
	app := doc.ElementByID("app")
	divs := QueryAll(app, MustCompile("div"))
	require.NotEmpty(t, divs)
	assert.Same(t, app, divs[0])
	assert.Nil(t, Closest(app, MustCompile("p")))
	assert.Equal(t, "body", Closest(app, MustCompile("body")).Data)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile("a[")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	doc, err := ParseString(`<img class="hero" src="https://cdn.example.com/images/very/long/path/to/hero.png" id="h">`)
	require.NoError(t, err)
	img := QueryFirst(doc.Root(), MustCompile("img"))
	assert.Equal(t, `<img id="h" src="https://cdn.example.com/images/very/long…" class="hero">`, Describe(img))
}

func TestDescribe_MultiByteValue(t *testing.T) {
	long := strings.Repeat("é", 45)
	doc, err := ParseString(`<span class="` + long + `">x</span>`)
	require.NoError(t, err)
	span := QueryFirst(doc.Root(), MustCompile("span"))

	got := Describe(span)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, `<span class="`+strings.Repeat("é", 40)+`…">`, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "héllo…", Truncate("héllo world", 5))
}

func TestInputType(t *testing.T) {
	doc, err := ParseString(`<input id="a" type=" SUBMIT "><input id="b" type="Checkbox"><input id="c">`)
	require.NoError(t, err)

	assert.Equal(t, "submit", InputType(doc.ElementByID("a")))
	assert.Equal(t, "checkbox", InputType(doc.ElementByID("b")))
	assert.Equal(t, "", InputType(doc.ElementByID("c")))
}

func TestQueryAll_CaseInsensitiveAttribute(t *testing.T) {
	doc, err := ParseString(`<input type="SUBMIT"><input type="submit"><input type="text">`)
	require.NoError(t, err)

	assert.Len(t, QueryAll(doc.Root(), MustCompile("input[type=submit i]")), 2)
	assert.Len(t, QueryAll(doc.Root(), MustCompile("input[type=submit]")), 1)
}
