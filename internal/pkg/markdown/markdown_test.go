package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderBasics(t *testing.T) {
	html := Render("# Hello\n\nSome *emphasis* and a [link](https://example.com).")

	assert.Contains(t, html, "<h1>Hello</h1>")
	assert.Contains(t, html, "<em>emphasis</em>")
	assert.Contains(t, html, `<a href="https://example.com">link</a>`)
}

func TestRenderGFM(t *testing.T) {
	html := Render("~~gone~~\n\n| a | b |\n|---|---|\n| 1 | 2 |")

	assert.Contains(t, html, "<del>gone</del>")
	assert.Contains(t, html, "<table>")
}

func TestRenderBlocksRawHTML(t *testing.T) {
	html := Render("before\n\n<script>alert(1)</script>\n\nafter")

	assert.NotContains(t, html, "<script>")
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "", Render(""))
	assert.Equal(t, "", Render("   \n\t"))
}
