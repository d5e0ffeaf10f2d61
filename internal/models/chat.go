package models

import "time"

// Chat is the single conversation document between exactly two users.
// Chats are created lazily on first contact and never deleted; clearing a
// chat removes its messages and resets the last-message snapshot.
type Chat struct {
	ID           string               `json:"id"`
	Participants []string             `json:"participants"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	LastMessage  *LastMessageSnapshot `json:"lastMessage"`
	UnreadCounts map[string]int       `json:"unreadCounts"`
}

// LastMessageSnapshot is a denormalized cache of the most recent non-deleted
// message in a chat, kept so chat lists render without touching the message
// subcollection. It must be recomputed whenever the message it points to
// (matched by ID) is deleted.
type LastMessageSnapshot struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	SenderID  string    `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// HasParticipant reports whether the given user is one of the chat's two
// participants. Membership is order-insensitive.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Counterpart returns the other participant for the given user, or "" when
// the user is not a participant.
func (c *Chat) Counterpart(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// ChatWithCounterpart is the chat-list projection: the chat document joined
// with the other participant's public profile.
type ChatWithCounterpart struct {
	Chat
	OtherUser Profile `json:"otherUser"`
}
