package models

import "time"

// ChatSetting keys accepted by the toggle endpoint.
const (
	SettingPinned   = "isPinned"
	SettingArchived = "isArchived"
	SettingMuted    = "isMuted"
)

// ValidChatSettingKey reports whether key is one of the toggleable per-chat
// setting fields.
func ValidChatSettingKey(key string) bool {
	switch key {
	case SettingPinned, SettingArchived, SettingMuted:
		return true
	}
	return false
}

// ChatSetting holds a user's private per-chat flags. A missing document
// implies all-false defaults; writes are merge-upserts so toggling one flag
// never clobbers the others.
type ChatSetting struct {
	IsPinned   bool      `json:"isPinned"`
	IsArchived bool      `json:"isArchived"`
	IsMuted    bool      `json:"isMuted"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StarredMessage is a user-scoped bookmark of a message. The snapshot is the
// caller's denormalized copy; it survives deletion of the original message
// unless the delete cascade removes it.
type StarredMessage struct {
	ID        string         `json:"id"`
	ChatID    string         `json:"chatId"`
	Message   map[string]any `json:"message"`
	StarredAt time.Time      `json:"starredAt"`
}

// BlockedUser is a directed block relation stored under the blocker's
// subcollection. Blocking is one-way: it is not consulted when the blocked
// user sends messages.
type BlockedUser struct {
	ID        string    `json:"id"`
	BlockedAt time.Time `json:"blockedAt"`
}
