package chat

import (
	"context"
	"testing"

	"cryptchat/crypto"
	"cryptchat/models"
	"cryptchat/storage"
)

func TestPipelineWithSQLiteAndConversationCipher(t *testing.T) {
	ctx := context.Background()

	store, _, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	privateKey := newTestKey(t)
	conversationKey, err := crypto.NewConversationKey()
	if err != nil {
		t.Fatalf("conversation key: %v", err)
	}
	metadata, err := crypto.SealConversationKey(conversationKey, privateKey.PublicKey())
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	seal := func(plaintext string) string {
		t.Helper()
		out, err := crypto.EncryptPayload(conversationKey, []byte(plaintext))
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		return out
	}

	api := &fakeAPI{
		conversationsFn: func(ctx context.Context) ([]models.ConversationPayload, error) {
			return []models.ConversationPayload{{
				ConversationID: "c1",
				Name:           seal("Weekend plans"),
				LastMessage:    seal("https://youtu.be/abc"),
				Participants: []models.ParticipantPayload{
					{UserID: testUserID, Email: "me@example.com", Metadata: metadata},
				},
			}}, nil
		},
		messagesFn: func(ctx context.Context, conversationID string, before int64) ([]models.MessagePayload, error) {
			return []models.MessagePayload{
				{ConversationID: "c1", MessageID: "m1", Message: seal("hello 👋"), SentTimestamp: 1},
				{ConversationID: "c1", MessageID: "m2", Message: seal(""), SentTimestamp: 2},
			}, nil
		},
	}

	pipeline, err := New(Options{
		Cache:     store,
		Local:     store,
		API:       api,
		Decrypter: crypto.NewConversationCipher(),
		Keys:      crypto.StaticKeySource{Key: privateKey},
		UserID:    testUserID,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(pipeline.Wait)

	convs, err := pipeline.FetchConversations(ctx, false)
	if err != nil {
		t.Fatalf("fetch conversations: %v", err)
	}
	if len(convs.Items) != 1 || convs.Items[0].Name != "Weekend plans" || convs.Items[0].LastMessage != "https://youtu.be/abc" {
		t.Fatalf("unexpected conversations %+v", convs.Items)
	}
	pipeline.Wait()

	self, _ := convs.Items[0].Self(testUserID)
	query := MessageQuery{ConversationID: "c1", Metadata: self.Metadata}
	msgs, err := pipeline.FetchMessages(ctx, query, false)
	if err != nil {
		t.Fatalf("fetch messages: %v", err)
	}
	if len(msgs.Items) != 1 || msgs.Items[0].Content != "hello 👋" {
		t.Fatalf("unexpected messages %+v", msgs.Items)
	}

	cached, err := pipeline.FetchMessages(ctx, query, false)
	if err != nil {
		t.Fatalf("cached fetch: %v", err)
	}
	if !cached.FromCache || cached.Items[0].Content != "hello 👋" {
		t.Fatalf("expected cached plaintext, got %+v", cached)
	}
}
