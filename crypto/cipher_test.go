package crypto

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"testing"
)

func newTestMember(t *testing.T) *ecdh.PrivateKey {
	t.Helper()

	key, err := x25519Curve.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate member key: %v", err)
	}
	return key
}

func TestPayloadRoundTrip(t *testing.T) {
	key, err := NewConversationKey()
	if err != nil {
		t.Fatalf("NewConversationKey failed: %v", err)
	}

	payload, err := EncryptPayload(key, []byte("hello world"))
	if err != nil {
		t.Fatalf("EncryptPayload failed: %v", err)
	}
	plaintext, err := DecryptPayload(key, payload)
	if err != nil {
		t.Fatalf("DecryptPayload failed: %v", err)
	}
	if !bytes.Equal(plaintext, []byte("hello world")) {
		t.Fatalf("decrypted plaintext does not match original")
	}
}

func TestDecryptPayloadRejectsMalformedInput(t *testing.T) {
	key, err := NewConversationKey()
	if err != nil {
		t.Fatalf("NewConversationKey failed: %v", err)
	}

	for _, payload := range []string{"not base64!", "AAAA"} {
		if _, err := DecryptPayload(key, payload); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload for %q, got %v", payload, err)
		}
	}
}

func TestConversationCipherSharedAcrossMembers(t *testing.T) {
	alice := newTestMember(t)
	bob := newTestMember(t)

	conversationKey, err := NewConversationKey()
	if err != nil {
		t.Fatalf("NewConversationKey failed: %v", err)
	}
	aliceMeta, err := SealConversationKey(conversationKey, alice.PublicKey())
	if err != nil {
		t.Fatalf("seal for alice: %v", err)
	}
	bobMeta, err := SealConversationKey(conversationKey, bob.PublicKey())
	if err != nil {
		t.Fatalf("seal for bob: %v", err)
	}

	aliceCipher := NewConversationCipher()
	ciphertext, err := aliceCipher.EncryptText("hi bob", aliceMeta, alice)
	if err != nil {
		t.Fatalf("EncryptText failed: %v", err)
	}

	bobCipher := NewConversationCipher()
	plaintext, err := bobCipher.DecryptText(ciphertext, bobMeta, bob)
	if err != nil {
		t.Fatalf("DecryptText failed: %v", err)
	}
	if plaintext != "hi bob" {
		t.Fatalf("expected %q, got %q", "hi bob", plaintext)
	}
}

func TestConversationCipherWrongKey(t *testing.T) {
	alice := newTestMember(t)
	mallory := newTestMember(t)

	conversationKey, err := NewConversationKey()
	if err != nil {
		t.Fatalf("NewConversationKey failed: %v", err)
	}
	aliceMeta, err := SealConversationKey(conversationKey, alice.PublicKey())
	if err != nil {
		t.Fatalf("seal for alice: %v", err)
	}

	if _, err := NewConversationCipher().DecryptText("AAAA", aliceMeta, mallory); !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("expected ErrKeyMismatch, got %v", err)
	}
}

func TestDecryptConversationNameAllowsEmpty(t *testing.T) {
	name, err := NewConversationCipher().DecryptConversationName("", "unused", nil)
	if err != nil {
		t.Fatalf("expected no error for empty name, got %v", err)
	}
	if name != "" {
		t.Fatalf("expected empty name, got %q", name)
	}
}

func TestConversationCipherForgetDropsMemoizedKeys(t *testing.T) {
	alice := newTestMember(t)
	mallory := newTestMember(t)

	conversationKey, err := NewConversationKey()
	if err != nil {
		t.Fatalf("NewConversationKey failed: %v", err)
	}
	aliceMeta, err := SealConversationKey(conversationKey, alice.PublicKey())
	if err != nil {
		t.Fatalf("seal for alice: %v", err)
	}

	cipher := NewConversationCipher()
	ciphertext, err := cipher.EncryptText("hello", aliceMeta, alice)
	if err != nil {
		t.Fatalf("EncryptText failed: %v", err)
	}
	if _, err := cipher.DecryptText(ciphertext, aliceMeta, mallory); err != nil {
		t.Fatalf("expected memoized key to serve the metadata, got %v", err)
	}

	cipher.Forget()
	if _, err := cipher.DecryptText(ciphertext, aliceMeta, mallory); !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("expected ErrKeyMismatch after Forget, got %v", err)
	}
}
