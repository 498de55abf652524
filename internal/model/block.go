package model

import "fmt"

// BlockType tags one member of the ContentBlock union.
type BlockType string

const (
	BlockText   BlockType = "text"
	BlockHeader BlockType = "header"
	BlockImage  BlockType = "image"
	BlockVideo  BlockType = "video"
	BlockPDF    BlockType = "pdf"
)

// ContentBlock is one ordered element of a content-block sequence. Blocks
// render top-to-bottom; order is meaningful and mutable via Reposition.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Value holds the markdown/plain body for text and header blocks.
	Value string `json:"value,omitempty"`

	// Level is the heading level for header blocks (1-6).
	Level int `json:"level,omitempty"`

	// Src points at the asset for image and pdf blocks.
	Src string `json:"src,omitempty"`

	// EmbedURL is the player URL for video blocks.
	EmbedURL string `json:"embedUrl,omitempty"`

	Caption string `json:"caption,omitempty"`
}

func (b ContentBlock) Validate() error {
	switch b.Type {
	case BlockText:
		if b.Value == "" {
			return fmt.Errorf("text block: empty value")
		}
	case BlockHeader:
		if b.Value == "" {
			return fmt.Errorf("header block: empty value")
		}
		if b.Level < 1 || b.Level > 6 {
			return fmt.Errorf("header block: invalid level %d", b.Level)
		}
	case BlockImage:
		if b.Src == "" {
			return fmt.Errorf("image block: empty src")
		}
	case BlockVideo:
		if b.EmbedURL == "" {
			return fmt.Errorf("video block: empty embedUrl")
		}
	case BlockPDF:
		if b.Src == "" {
			return fmt.Errorf("pdf block: empty src")
		}
	default:
		return fmt.Errorf("unknown block type %q", b.Type)
	}
	return nil
}

// Reposition moves the block at index from to index to, shifting the
// blocks in between. It returns an error if either index is out of range.
func Reposition(blocks []ContentBlock, from, to int) error {
	if from < 0 || from >= len(blocks) {
		return fmt.Errorf("reposition: from index %d out of range", from)
	}
	if to < 0 || to >= len(blocks) {
		return fmt.Errorf("reposition: to index %d out of range", to)
	}
	if from == to {
		return nil
	}
	moved := blocks[from]
	if from < to {
		copy(blocks[from:to], blocks[from+1:to+1])
	} else {
		copy(blocks[to+1:from+1], blocks[to:from])
	}
	blocks[to] = moved
	return nil
}
