package model

import (
	"testing"
)

func TestOverrideEntryValidate(t *testing.T) {
	t.Run("Valid text entry", func(t *testing.T) {
		e := OverrideEntry{Key: "hero_title_p1", Kind: KindText, Text: "New Title"}
		if err := e.Validate(); err != nil {
			t.Errorf("Expected valid entry, got %v", err)
		}
	})

	t.Run("Empty key rejected", func(t *testing.T) {
		e := OverrideEntry{Kind: KindText, Text: "value"}
		if err := e.Validate(); err == nil {
			t.Error("Expected error for empty key")
		}
	})

	t.Run("Unknown kind rejected", func(t *testing.T) {
		e := OverrideEntry{Key: "k", Kind: Kind("widget"), Text: "value"}
		if err := e.Validate(); err == nil {
			t.Error("Expected error for unknown kind")
		}
	})

	t.Run("Text entry must not carry blocks", func(t *testing.T) {
		e := OverrideEntry{
			Key:    "k",
			Kind:   KindText,
			Text:   "value",
			Blocks: []ContentBlock{{Type: BlockText, Value: "body"}},
		}
		if err := e.Validate(); err == nil {
			t.Error("Expected error for text entry carrying blocks")
		}
	})

	t.Run("Block entry must not carry text", func(t *testing.T) {
		e := OverrideEntry{
			Key:    "k",
			Kind:   KindContentBlocks,
			Text:   "stray",
			Blocks: []ContentBlock{{Type: BlockText, Value: "body"}},
		}
		if err := e.Validate(); err == nil {
			t.Error("Expected error for block entry carrying text")
		}
	})

	t.Run("Invalid nested block rejected", func(t *testing.T) {
		e := OverrideEntry{
			Key:    "k",
			Kind:   KindContentBlocks,
			Blocks: []ContentBlock{{Type: BlockHeader, Value: "title", Level: 9}},
		}
		if err := e.Validate(); err == nil {
			t.Error("Expected error for invalid header level")
		}
	})

	t.Run("Empty block sequence is valid", func(t *testing.T) {
		e := OverrideEntry{Key: "k", Kind: KindContentBlocks, Blocks: []ContentBlock{}}
		if err := e.Validate(); err != nil {
			t.Errorf("Expected valid entry, got %v", err)
		}
	})
}

func TestContentBlockValidate(t *testing.T) {
	cases := []struct {
		name    string
		block   ContentBlock
		wantErr bool
	}{
		{"Text block", ContentBlock{Type: BlockText, Value: "body"}, false},
		{"Text block empty value", ContentBlock{Type: BlockText}, true},
		{"Header block", ContentBlock{Type: BlockHeader, Value: "Title", Level: 2}, false},
		{"Header level zero", ContentBlock{Type: BlockHeader, Value: "Title"}, true},
		{"Image block", ContentBlock{Type: BlockImage, Src: "/images/a.png"}, false},
		{"Image block empty src", ContentBlock{Type: BlockImage}, true},
		{"Video block", ContentBlock{Type: BlockVideo, EmbedURL: "https://player/v"}, false},
		{"PDF block", ContentBlock{Type: BlockPDF, Src: "/docs/spec.pdf"}, false},
		{"Unknown type", ContentBlock{Type: BlockType("audio"), Src: "/a.mp3"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.block.Validate()
			if tc.wantErr && err == nil {
				t.Error("Expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestReposition(t *testing.T) {
	blocks := func() []ContentBlock {
		return []ContentBlock{
			{Type: BlockText, Value: "a"},
			{Type: BlockText, Value: "b"},
			{Type: BlockText, Value: "c"},
			{Type: BlockText, Value: "d"},
		}
	}

	t.Run("Move forward", func(t *testing.T) {
		b := blocks()
		if err := Reposition(b, 0, 2); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		got := b[0].Value + b[1].Value + b[2].Value + b[3].Value
		if got != "bcad" {
			t.Errorf("Expected bcad, got %s", got)
		}
	})

	t.Run("Move backward", func(t *testing.T) {
		b := blocks()
		if err := Reposition(b, 3, 1); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		got := b[0].Value + b[1].Value + b[2].Value + b[3].Value
		if got != "adbc" {
			t.Errorf("Expected adbc, got %s", got)
		}
	})

	t.Run("Same index is a no-op", func(t *testing.T) {
		b := blocks()
		if err := Reposition(b, 2, 2); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if b[2].Value != "c" {
			t.Errorf("Expected c at index 2, got %s", b[2].Value)
		}
	})

	t.Run("Out of range", func(t *testing.T) {
		b := blocks()
		if err := Reposition(b, 0, 4); err == nil {
			t.Error("Expected error for out-of-range index")
		}
		if err := Reposition(b, -1, 0); err == nil {
			t.Error("Expected error for negative index")
		}
	})
}

func TestProjectDraft(t *testing.T) {
	t.Run("Apply routes by kind", func(t *testing.T) {
		d := NewProjectDraft()
		d.Apply(OverrideEntry{Key: "hero_title_p1", Kind: KindText, Text: "Title"})
		d.Apply(OverrideEntry{Key: "/images/old.png", Kind: KindImage, Text: "/images/new.png"})
		d.Apply(OverrideEntry{Key: "img_caption_/images/new.png", Kind: KindCaption, Text: "A desk"})
		d.Apply(OverrideEntry{Key: "body_p1", Kind: KindContentBlocks, Blocks: []ContentBlock{
			{Type: BlockText, Value: "para"},
		}})

		if d.TextContent["hero_title_p1"] != "Title" {
			t.Error("Expected text override in text map")
		}
		if d.ImageReplacements["/images/old.png"] != "/images/new.png" {
			t.Error("Expected image replacement keyed by original src")
		}
		if d.TextContent["img_caption_/images/new.png"] != "A desk" {
			t.Error("Expected caption in text map")
		}
		if len(d.ContentBlocks["body_p1"]) != 1 {
			t.Error("Expected block sequence stored")
		}
	})

	t.Run("Same key overwrites silently", func(t *testing.T) {
		d := NewProjectDraft()
		d.Apply(OverrideEntry{Key: "k", Kind: KindText, Text: "first"})
		d.Apply(OverrideEntry{Key: "k", Kind: KindText, Text: "second"})
		if d.TextContent["k"] != "second" {
			t.Errorf("Expected second write to win, got %q", d.TextContent["k"])
		}
	})

	t.Run("Lookup checks all maps", func(t *testing.T) {
		d := NewProjectDraft()
		d.Apply(OverrideEntry{Key: "t", Kind: KindText, Text: "text"})
		d.Apply(OverrideEntry{Key: "/i.png", Kind: KindImage, Text: "/j.png"})

		if v, ok := d.Lookup("t"); !ok || v != "text" {
			t.Errorf("Expected text lookup hit, got %v %v", v, ok)
		}
		if v, ok := d.Lookup("/i.png"); !ok || v != "/j.png" {
			t.Errorf("Expected image lookup hit, got %v %v", v, ok)
		}
		if _, ok := d.Lookup("missing"); ok {
			t.Error("Expected miss for unknown key")
		}
	})

	t.Run("IsEmpty", func(t *testing.T) {
		d := NewProjectDraft()
		if !d.IsEmpty() {
			t.Error("Expected fresh draft to be empty")
		}
		d.Apply(OverrideEntry{Key: "k", Kind: KindText, Text: "v"})
		if d.IsEmpty() {
			t.Error("Expected draft with content to be non-empty")
		}
	})

	t.Run("Entries round-trips through Apply", func(t *testing.T) {
		d := NewProjectDraft()
		d.Apply(OverrideEntry{Key: "a", Kind: KindText, Text: "1"})
		d.Apply(OverrideEntry{Key: "/b.png", Kind: KindImage, Text: "/c.png"})

		rebuilt := NewProjectDraft()
		for _, e := range d.Entries() {
			rebuilt.Apply(e)
		}
		if rebuilt.TextContent["a"] != "1" || rebuilt.ImageReplacements["/b.png"] != "/c.png" {
			t.Error("Expected entries to rebuild an equivalent draft")
		}
	})
}
