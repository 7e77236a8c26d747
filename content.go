package parley

// ContentBlock is a sealed interface for a segment of adapted message content.
type ContentBlock interface {
	contentBlock()
}

// TextBlock is a run of plain text.
type TextBlock struct {
	Text string
}

func (TextBlock) contentBlock() {}

// ImageURLBlock references an image by URL.
type ImageURLBlock struct {
	URL    string
	Detail ImageDetail
}

func (ImageURLBlock) contentBlock() {}

var (
	_ ContentBlock = TextBlock{}
	_ ContentBlock = ImageURLBlock{}
)

// AdaptedMessage is a message in a provider's wire shape. Blocks is set only
// for segmented vision content; otherwise Content carries the text.
type AdaptedMessage struct {
	Role    Role
	Content string
	Name    string
	Blocks  []ContentBlock
}

// HasImages reports whether m carries at least one image segment.
func (m AdaptedMessage) HasImages() bool {
	for _, b := range m.Blocks {
		if _, ok := b.(ImageURLBlock); ok {
			return true
		}
	}
	return false
}

// Text returns the message text with image segments omitted.
func (m AdaptedMessage) Text() string {
	if m.Blocks == nil {
		return m.Content
	}
	var s string
	for _, b := range m.Blocks {
		if t, ok := b.(TextBlock); ok {
			s += t.Text
		}
	}
	return s
}

// PassThrough converts canonical messages to adapted messages unchanged.
func PassThrough(msgs []Message) []AdaptedMessage {
	out := make([]AdaptedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = AdaptedMessage{Role: m.Role, Content: m.Content, Name: m.Name}
	}
	return out
}
