package chat

import (
	"testing"

	"cryptchat/models"
)

func TestSortConversations(t *testing.T) {
	conversations := []models.Conversation{
		{ConversationID: "old", LastMessageTimestamp: 10},
		{ConversationID: "new", LastMessageTimestamp: 30},
		{ConversationID: "fresh-empty", CreatedTimestamp: 50},
		{ConversationID: "stale-empty", CreatedTimestamp: 5},
		{ConversationID: "mid", LastMessageTimestamp: 20},
	}
	SortConversations(conversations)

	want := []string{"new", "mid", "old", "fresh-empty", "stale-empty"}
	for i, id := range want {
		if conversations[i].ConversationID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, conversations[i].ConversationID)
		}
	}
}

func TestFilterConversations(t *testing.T) {
	conversations := []models.Conversation{
		{ConversationID: "a", Name: "Design Team"},
		{ConversationID: "b", Participants: []models.Participant{{Nickname: "Alice"}}},
		{ConversationID: "c", Participants: []models.Participant{{Email: "bob@example.com"}}},
	}

	if got := FilterConversations(conversations, "  "); len(got) != 3 {
		t.Fatalf("empty query should match all, got %d", len(got))
	}
	if got := FilterConversations(conversations, "design"); len(got) != 1 || got[0].ConversationID != "a" {
		t.Fatalf("unexpected name match %+v", got)
	}
	if got := FilterConversations(conversations, "ALICE"); len(got) != 1 || got[0].ConversationID != "b" {
		t.Fatalf("unexpected nickname match %+v", got)
	}
	if got := FilterConversations(conversations, "example.com"); len(got) != 1 || got[0].ConversationID != "c" {
		t.Fatalf("unexpected email match %+v", got)
	}
}
