package models

// ConversationPayload is a conversation as returned by the remote API, still encrypted.
type ConversationPayload struct {
	ConversationID       string               `json:"uuid"`
	LastMessageSender    int64                `json:"lastMessageSender"`
	LastMessage          string               `json:"lastMessage"`
	LastMessageTimestamp int64                `json:"lastMessageTimestamp"`
	LastMessageID        string               `json:"lastMessageUUID"`
	OwnerID              int64                `json:"ownerId"`
	Name                 string               `json:"name"`
	Participants         []ParticipantPayload `json:"participants"`
	CreatedTimestamp     int64                `json:"createdTimestamp"`
}

// ParticipantPayload carries the per-user encryption metadata of one member.
type ParticipantPayload struct {
	UserID         int64  `json:"userId"`
	Email          string `json:"email"`
	Avatar         string `json:"avatar"`
	Nickname       string `json:"nickName"`
	Metadata       string `json:"metadata"`
	PublicKey      string `json:"publicKey"`
	Permissions    int64  `json:"permissionsAdd"`
	AddedTimestamp int64  `json:"addedTimestamp"`
}

// Conversation represents a decrypted conversation.
type Conversation struct {
	ConversationID       string        `json:"conversation_id"`
	Name                 string        `json:"name"`
	Participants         []Participant `json:"participants"`
	LastMessage          string        `json:"last_message"`
	LastMessageSender    int64         `json:"last_message_sender"`
	LastMessageTimestamp int64         `json:"last_message_timestamp"`
	LastMessageID        string        `json:"last_message_id"`
	OwnerID              int64         `json:"owner_id"`
	CreatedTimestamp     int64         `json:"created_timestamp"`
}

// Participant is a conversation member.
type Participant struct {
	UserID         int64  `json:"user_id"`
	Email          string `json:"email"`
	Avatar         string `json:"avatar"`
	Nickname       string `json:"nickname"`
	Metadata       string `json:"metadata"`
	PublicKey      string `json:"public_key"`
	AddedTimestamp int64  `json:"added_timestamp"`
}

// DisplayName is the nickname if set, otherwise the email.
func (p Participant) DisplayName() string {
	return displayName(p.Nickname, p.Email)
}

// Self returns the participant entry of the local user.
func (c Conversation) Self(userID int64) (Participant, bool) {
	for _, participant := range c.Participants {
		if participant.UserID == userID {
			return participant, true
		}
	}
	return Participant{}, false
}

// Self returns the participant entry of the local user.
func (c ConversationPayload) Self(userID int64) (ParticipantPayload, bool) {
	for _, participant := range c.Participants {
		if participant.UserID == userID {
			return participant, true
		}
	}
	return ParticipantPayload{}, false
}

// Others returns every participant except the local user.
func (c Conversation) Others(userID int64) []Participant {
	out := make([]Participant, 0, len(c.Participants))
	for _, participant := range c.Participants {
		if participant.UserID != userID {
			out = append(out, participant)
		}
	}
	return out
}

func displayName(nickname, email string) string {
	if nickname != "" {
		return nickname
	}
	return email
}
