package models

import "time"

// MessageType discriminates the shape of a message payload.
type MessageType string

// Message payload variants.
const (
	MessageTypeText      MessageType = "text"
	MessageTypeImage     MessageType = "image"
	MessageTypeImageGrid MessageType = "image_grid"
	MessageTypeContact   MessageType = "contact"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeImageGrid, MessageTypeContact:
		return true
	}
	return false
}

// ImagePlaceholderText is the last-message preview text substituted for
// image messages in chat lists.
const ImagePlaceholderText = "📷 Image"

// ReplyRef is the lightweight reference a message carries when it replies to
// an earlier message.
type ReplyRef struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SenderName string `json:"senderName"`
}

// Message is a single entry in a chat's message log. Identity fields
// (ID, SenderID, Timestamp, Type) are immutable once created; Text changes
// only through an edit, which marks IsEdited.
type Message struct {
	ID          string              `json:"id"`
	Text        string              `json:"text"`
	SenderID    string              `json:"senderId"`
	Type        MessageType         `json:"type"`
	MediaURL    string              `json:"mediaUrl,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	ReadBy      []string            `json:"readBy"`
	StarredBy   []string            `json:"starredBy"`
	ReplyTo     *ReplyRef           `json:"replyTo"`
	IsForwarded bool                `json:"isForwarded"`
	IsEdited    bool                `json:"isEdited"`
	Reactions   map[string][]string `json:"reactions"`
}

// PreviewText returns the text used for last-message snapshots: image
// messages collapse to a fixed placeholder.
func (m *Message) PreviewText() string {
	if m.Type == MessageTypeImage {
		return ImagePlaceholderText
	}
	return m.Text
}

// Snapshot returns the last-message snapshot this message would back, the
// same shape stored on the chat document and broadcast in chat_updated.
func (m *Message) Snapshot() *LastMessageSnapshot {
	return &LastMessageSnapshot{
		ID:        m.ID,
		Text:      m.PreviewText(),
		SenderID:  m.SenderID,
		Timestamp: m.Timestamp,
		Read:      false,
	}
}
