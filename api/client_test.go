package api

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"cryptchat/crypto"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, ed25519.PublicKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate signing key: %v", err)
	}

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL+"/", 42, priv)
	client.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return client, pub
}

func TestListConversationsSignsRequest(t *testing.T) {
	var publicKey ed25519.PublicKey
	client, pub := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != conversationsPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get(HeaderUser) != "42" {
			t.Errorf("unexpected user header %q", r.Header.Get(HeaderUser))
		}
		ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
		if err != nil || ts != 1700000000000 {
			t.Errorf("unexpected timestamp header %q", r.Header.Get(HeaderTimestamp))
		}
		sig, err := base64.StdEncoding.DecodeString(r.Header.Get(HeaderSignature))
		if err != nil {
			t.Errorf("decode signature: %v", err)
		}
		if !crypto.Verify(publicKey, crypto.RequestSigningPayload(r.Method, r.URL.Path, ts), sig) {
			t.Errorf("signature does not verify")
		}

		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":[
			{"uuid":"c1","name":"enc","lastMessageTimestamp":5,"participants":[{"userId":42,"email":"me@example.com","metadata":"m"}]}
		]}`))
	})
	publicKey = pub

	convs, err := client.ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 1 || convs[0].ConversationID != "c1" || convs[0].LastMessageTimestamp != 5 {
		t.Fatalf("unexpected conversations %+v", convs)
	}
	if self, ok := convs[0].Self(42); !ok || self.Metadata != "m" {
		t.Fatalf("expected self participant with metadata, got %+v ok=%v", self, ok)
	}
}

func TestListMessagesQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != messagesPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("conversation"); got != "c1" {
			t.Errorf("unexpected conversation %q", got)
		}
		if got := r.URL.Query().Get("before"); got != "99" {
			t.Errorf("unexpected before %q", got)
		}
		_, _ = w.Write([]byte(`{"status":true,"data":[{"uuid":"m1","conversation":"c1","message":"x","sentTimestamp":7}]}`))
	})

	msgs, err := client.ListMessages(context.Background(), "c1", 99)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].MessageID != "m1" || msgs[0].SentTimestamp != 7 {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestListMessagesRequiresConversation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request")
	})
	if _, err := client.ListMessages(context.Background(), "", 0); err == nil {
		t.Fatalf("expected error for empty conversation id")
	}
}

func TestEnvelopeFailureIsError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"message":"conversation not found"}`))
	})

	_, err := client.ListMessages(context.Background(), "c1", 0)
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Message != "conversation not found" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestHTTPStatusIsError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":false,"message":"bad signature"}`))
	})

	_, err := client.ListConversations(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 api error, got %v", err)
	}
}

func TestUnsignedClientSendsNoSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderSignature) != "" {
			t.Errorf("expected no signature header")
		}
		_, _ = w.Write([]byte(`{"status":true,"data":null}`))
	}))
	defer server.Close()

	convs, err := NewClient(server.URL, 1, nil).ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 0 {
		t.Fatalf("expected no conversations, got %d", len(convs))
	}
}
