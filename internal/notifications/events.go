// Package notifications provides the realtime fanout channel: per-connection
// clients multiplexed into logical rooms (one per chat, one per user) with
// ordered per-room broadcast.
package notifications

// Client-to-server event names.
const (
	EventJoinChat       = "join_chat"
	EventLeaveChat      = "leave_chat"
	EventJoinUserRoom   = "join_user_room"
	EventSendMessage    = "send_message"
	EventTyping         = "typing"
	EventToggleReaction = "toggle_reaction"
)

// Server-to-client event names.
const (
	EventReceiveMessage  = "receive_message"
	EventChatUpdated     = "chat_updated"
	EventDisplayTyping   = "display_typing"
	EventReactionUpdate  = "message_reaction_update"
	EventMessagesDropped = "messages_dropped"
)

// Event is the wire envelope for both directions of the realtime channel.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// UserRoom returns the personal room name for a user. Every logged-in
// connection joins exactly one of these to receive chat-list notifications.
func UserRoom(userID string) string {
	return "user_" + userID
}
