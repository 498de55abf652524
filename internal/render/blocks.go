package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
)

// RenderBlocks assembles a content-block sequence into HTML, top to bottom.
func RenderBlocks(blocks []model.ContentBlock) string {
	var b strings.Builder
	for _, block := range blocks {
		switch block.Type {
		case model.BlockText:
			b.WriteString(RenderText(block.Value))
		case model.BlockHeader:
			level := block.Level
			if level < 1 || level > 6 {
				level = 2
			}
			fmt.Fprintf(&b, "<h%d>%s</h%d>\n", level, html.EscapeString(block.Value), level)
		case model.BlockImage:
			fmt.Fprintf(&b, "<figure><img src=%q alt=%q>", block.Src, block.Caption)
			writeCaption(&b, block.Caption)
			b.WriteString("</figure>\n")
		case model.BlockVideo:
			fmt.Fprintf(&b, "<figure><iframe src=%q allowfullscreen></iframe>", block.EmbedURL)
			writeCaption(&b, block.Caption)
			b.WriteString("</figure>\n")
		case model.BlockPDF:
			fmt.Fprintf(&b, "<figure><embed src=%q type=\"application/pdf\">", block.Src)
			writeCaption(&b, block.Caption)
			b.WriteString("</figure>\n")
		}
	}
	return b.String()
}

func writeCaption(b *strings.Builder, caption string) {
	if caption != "" {
		fmt.Fprintf(b, "<figcaption>%s</figcaption>", html.EscapeString(caption))
	}
}

// EntryHTML derives the content_html wire form of an override entry.
// Image replacements are bare URLs and have no rendered form.
func EntryHTML(e model.OverrideEntry) string {
	switch e.Kind {
	case model.KindText:
		return RenderText(e.Text)
	case model.KindCaption:
		return html.EscapeString(e.Text)
	case model.KindContentBlocks:
		return RenderBlocks(e.Blocks)
	default:
		return ""
	}
}
