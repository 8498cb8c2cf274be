package models

import "time"

// BlockType identifies the modality of one content block.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image_url"
	BlockPDF   BlockType = "pdf_url"
	BlockVideo BlockType = "video_url"
)

// ContentBlock is one element of a multimodal content composition.
// Text blocks carry Text; the URL modalities carry URL.
type ContentBlock struct {
	Type BlockType `json:"type"`
	Text string    `json:"text,omitempty"`
	URL  string    `json:"url,omitempty"`
}

// MemoryContent is either a plain string or a multimodal block sequence.
// Exactly one of Text/Blocks is set.
type MemoryContent struct {
	Text   string
	Blocks []ContentBlock
}

// TextContent wraps a plain string as memory content.
func TextContent(s string) MemoryContent { return MemoryContent{Text: s} }

// BlockContent wraps a multimodal block sequence as memory content.
func BlockContent(blocks []ContentBlock) MemoryContent { return MemoryContent{Blocks: blocks} }

// IsEmpty reports whether the content carries neither text nor blocks.
func (c MemoryContent) IsEmpty() bool {
	return c.Text == "" && len(c.Blocks) == 0
}

// Flatten renders the content as a single string. Multimodal blocks are
// joined with their URLs so non-text consumers still get a stable identity.
func (c MemoryContent) Flatten() string {
	if c.Text != "" {
		return c.Text
	}
	var out string
	for i, b := range c.Blocks {
		if i > 0 {
			out += "\n"
		}
		if b.Type == BlockText {
			out += b.Text
		} else {
			out += string(b.Type) + ":" + b.URL
		}
	}
	return out
}

// Memory is a persistent record in the semantic (or graph) memory provider.
type Memory struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// MemoryEvent is one entry in a memory's change history.
type MemoryEvent struct {
	MemoryID  string    `json:"memory_id"`
	Event     string    `json:"event"` // "ADD", "UPDATE", "DELETE"
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Pattern is a learned, reinforceable behavior or approach.
// Confidence is monotonically non-decreasing under reinforcement.
type Pattern struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Topic            string    `json:"topic"`
	Content          string    `json:"content"`
	Confidence       float64   `json:"confidence"`
	Keywords         []string  `json:"keywords,omitempty"`
	LastReinforcedAt time.Time `json:"last_reinforced_at,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
}

// Record is a generic ingested row in one of the searchable content tables
// (examples, knowledge, experiences).
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
