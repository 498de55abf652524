// Package render derives the content_html form of override values: markdown
// for text kinds, assembled fragments for content-block sequences, with
// chroma-highlighted code blocks.
package render

import (
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/cache"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/util"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

const syntaxStyle = "gruvbox"

var formatter = chromahtml.New(chromahtml.WithClasses(true))

func HighlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	style := styles.Get(syntaxStyle)
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}

	return html.UnescapeString(buf.String())
}

func RenderMarkdown(md []byte) []byte {
	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.HrefTargetBlank,
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if code, ok := node.(*ast.CodeBlock); ok && entering {
				var lang string
				if info := code.Info; info != nil {
					lang = string(info)
				}
				highlighted := HighlightCode(string(code.Literal), lang)
				fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", highlighted)
				return ast.GoToNext, true
			}
			return ast.GoToNext, false
		},
	}

	doc := parser.NewWithExtensions(
		parser.Tables | parser.FencedCode | parser.Autolink | parser.Strikethrough |
			parser.SpaceHeadings | parser.HeadingIDs | parser.AutoHeadingIDs |
			parser.DefinitionLists | parser.Footnotes | parser.OrderedListStart,
	).Parse(md)

	return markdown.Render(doc, md_html.NewRenderer(opts))
}

// Mutex to protect the check-render-set operation in RenderMarkdownCached
var renderCacheMutex sync.Mutex

func RenderMarkdownCached(md []byte, contentHash string) []byte {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		return RenderMarkdown(md)
	}

	if cached, found := cache.GetRenderedHTML(contentHash); found {
		return cached
	}

	renderCacheMutex.Lock()
	defer renderCacheMutex.Unlock()

	rendered := RenderMarkdown(md)
	cache.SetRenderedHTML(contentHash, rendered)

	return rendered
}

// RenderText renders one markdown string, cached by its content hash.
func RenderText(text string) string {
	return string(RenderMarkdownCached([]byte(text), util.ContentHashString(text)))
}
