package models

// MessagePayload is a chat message as returned by the remote API, still encrypted.
type MessagePayload struct {
	ConversationID string        `json:"conversation"`
	MessageID      string        `json:"uuid"`
	SenderID       int64         `json:"senderId"`
	SenderEmail    string        `json:"senderEmail"`
	SenderNickname string        `json:"senderNickName"`
	Message        string        `json:"message"`
	ReplyTo        *ReplyPayload `json:"replyTo,omitempty"`
	EmbedDisabled  bool          `json:"embedDisabled"`
	Edited         bool          `json:"edited"`
	EditTimestamp  int64         `json:"editedTimestamp"`
	SentTimestamp  int64         `json:"sentTimestamp"`
}

// ReplyPayload is the encrypted quote of the message being replied to.
type ReplyPayload struct {
	MessageID      string `json:"uuid"`
	SenderID       int64  `json:"senderId"`
	SenderEmail    string `json:"senderEmail"`
	SenderNickname string `json:"senderNickName"`
	Message        string `json:"message"`
}

// Message represents a plaintext message entry after decryption.
type Message struct {
	MessageID      string  `json:"message_id"`
	ConversationID string  `json:"conversation_id"`
	SenderID       int64   `json:"sender_id"`
	SenderEmail    string  `json:"sender_email"`
	SenderNickname string  `json:"sender_nickname"`
	Content        string  `json:"content"`
	ReplyTo        ReplyTo `json:"reply_to"`
	EmbedDisabled  bool    `json:"embed_disabled"`
	Edited         bool    `json:"edited"`
	EditTimestamp  int64   `json:"edit_timestamp"`
	TimestampSent  int64   `json:"timestamp_sent"`
}

// ReplyTo is the decrypted quote of a replied-to message. Content is empty
// when the reply could not be resolved.
type ReplyTo struct {
	MessageID      string `json:"message_id"`
	SenderID       int64  `json:"sender_id"`
	SenderEmail    string `json:"sender_email"`
	SenderNickname string `json:"sender_nickname"`
	Content        string `json:"content"`
}

// SenderName is the nickname if set, otherwise the email.
func (m Message) SenderName() string {
	return displayName(m.SenderNickname, m.SenderEmail)
}

// IsReply reports whether the message quotes another message.
func (m Message) IsReply() bool {
	return m.ReplyTo.MessageID != ""
}

// SenderName is the quoted sender's nickname if set, otherwise the email.
func (r ReplyTo) SenderName() string {
	return displayName(r.SenderNickname, r.SenderEmail)
}
