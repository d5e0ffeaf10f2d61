package models

import "pointchat/internal/store"

// Decoders from store documents into domain models. The document ID is not a
// field of the stored data, so each decoder reattaches it.

// UserFromDoc decodes a users/{id} document.
func UserFromDoc(d *store.Document) (*User, error) {
	var u User
	if err := d.DataTo(&u); err != nil {
		return nil, err
	}
	u.ID = d.ID
	if hash, ok := d.Data["passwordHash"].(string); ok {
		u.PasswordHash = hash
	}
	return &u, nil
}

// ChatFromDoc decodes a chats/{id} document.
func ChatFromDoc(d *store.Document) (*Chat, error) {
	var c Chat
	if err := d.DataTo(&c); err != nil {
		return nil, err
	}
	c.ID = d.ID
	return &c, nil
}

// MessageFromDoc decodes a chats/{id}/messages/{id} document.
func MessageFromDoc(d *store.Document) (*Message, error) {
	var m Message
	if err := d.DataTo(&m); err != nil {
		return nil, err
	}
	m.ID = d.ID
	if m.Reactions == nil {
		m.Reactions = map[string][]string{}
	}
	return &m, nil
}

// ChatSettingFromDoc decodes a users/{id}/chat_settings/{chatId} document.
func ChatSettingFromDoc(d *store.Document) (*ChatSetting, error) {
	var s ChatSetting
	if err := d.DataTo(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// StarredFromDoc decodes a users/{id}/starred_messages/{messageId} document.
func StarredFromDoc(d *store.Document) (*StarredMessage, error) {
	var s StarredMessage
	if err := d.DataTo(&s); err != nil {
		return nil, err
	}
	s.ID = d.ID
	return &s, nil
}

// BlockedFromDoc decodes a users/{id}/blocked_users/{targetId} document.
func BlockedFromDoc(d *store.Document) (*BlockedUser, error) {
	var b BlockedUser
	if err := d.DataTo(&b); err != nil {
		return nil, err
	}
	b.ID = d.ID
	return &b, nil
}
