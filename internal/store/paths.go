package store

// Collection and path helpers for the application's document layout:
//
//	users/{userId}
//	chats/{chatId}
//	chats/{chatId}/messages/{messageId}
//	users/{userId}/chat_settings/{chatId}
//	users/{userId}/starred_messages/{messageId}
//	users/{userId}/blocked_users/{targetId}

// Top-level collections.
const (
	UsersCollection = "users"
	ChatsCollection = "chats"
)

// UserPath returns the path of a user document.
func UserPath(userID string) string { return UsersCollection + "/" + userID }

// ChatPath returns the path of a chat document.
func ChatPath(chatID string) string { return ChatsCollection + "/" + chatID }

// MessagesCollection returns the message subcollection of a chat.
func MessagesCollection(chatID string) string { return ChatPath(chatID) + "/messages" }

// MessagePath returns the path of a message document.
func MessagePath(chatID, messageID string) string {
	return MessagesCollection(chatID) + "/" + messageID
}

// ChatSettingsCollection returns a user's chat settings subcollection.
func ChatSettingsCollection(userID string) string { return UserPath(userID) + "/chat_settings" }

// ChatSettingPath returns the path of a user's settings for one chat.
func ChatSettingPath(userID, chatID string) string {
	return ChatSettingsCollection(userID) + "/" + chatID
}

// StarredCollection returns a user's starred messages subcollection.
func StarredCollection(userID string) string { return UserPath(userID) + "/starred_messages" }

// StarredPath returns the path of a user's star for one message.
func StarredPath(userID, messageID string) string {
	return StarredCollection(userID) + "/" + messageID
}

// BlockedCollection returns a user's blocked users subcollection.
func BlockedCollection(userID string) string { return UserPath(userID) + "/blocked_users" }

// BlockedPath returns the path of one directed block relation.
func BlockedPath(userID, targetID string) string {
	return BlockedCollection(userID) + "/" + targetID
}
