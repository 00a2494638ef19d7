package chat

import (
	"sort"
	"strings"

	"cryptchat/models"
)

// SortConversations orders conversations by last activity, newest first,
// falling back to creation time.
func SortConversations(conversations []models.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		if a.LastMessageTimestamp != b.LastMessageTimestamp {
			return a.LastMessageTimestamp > b.LastMessageTimestamp
		}
		return a.CreatedTimestamp > b.CreatedTimestamp
	})
}

// FilterConversations returns the conversations whose name or any participant's
// nickname or email contains query, case-insensitively. An empty query matches all.
func FilterConversations(conversations []models.Conversation, query string) []models.Conversation {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return conversations
	}

	out := make([]models.Conversation, 0, len(conversations))
	for _, conversation := range conversations {
		if matchesConversation(conversation, query) {
			out = append(out, conversation)
		}
	}
	return out
}

func matchesConversation(conversation models.Conversation, query string) bool {
	if strings.Contains(strings.ToLower(conversation.Name), query) {
		return true
	}
	for _, participant := range conversation.Participants {
		if strings.Contains(strings.ToLower(participant.Nickname), query) ||
			strings.Contains(strings.ToLower(participant.Email), query) {
			return true
		}
	}
	return false
}
