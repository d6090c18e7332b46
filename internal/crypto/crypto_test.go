package crypto

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := NewEncryptor("router-master-key")

	tests := []struct {
		name      string
		plaintext string
	}{
		{"api key", "sk-proj-abc123"},
		{"empty", ""},
		{"json credentials", `{"api_key":"sk-123","org":"acme"}`},
		{"unicode", "clé-secrète-日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if ciphertext == tt.plaintext && tt.plaintext != "" {
				t.Error("ciphertext equals plaintext")
			}

			got, err := enc.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if got != tt.plaintext {
				t.Errorf("Decrypt = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestEncryptUsesRandomNonce(t *testing.T) {
	enc := NewEncryptor("router-master-key")
	a, _ := enc.Encrypt("same input")
	b, _ := enc.Encrypt("same input")
	if a == b {
		t.Error("two encryptions of the same plaintext are identical")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	enc := NewEncryptor("router-master-key")

	for _, ciphertext := range []string{
		"not base64 !!!",
		"YWJj", // shorter than a nonce
		"dGFtcGVyZWQgZGF0YSB0aGF0IGlzIGxvbmcgZW5vdWdo",
	} {
		if _, err := enc.Decrypt(ciphertext); err == nil {
			t.Errorf("Decrypt(%q) succeeded, want error", ciphertext)
		}
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	ciphertext, _ := NewEncryptor("key-one").Encrypt("secret")
	if _, err := NewEncryptor("key-two").Decrypt(ciphertext); err == nil {
		t.Error("decryption under the wrong key succeeded")
	}
}

func TestResolve(t *testing.T) {
	enc := NewEncryptor("router-master-key")

	plain, err := enc.Resolve("sk-plain-value")
	if err != nil || plain != "sk-plain-value" {
		t.Errorf("Resolve(plain) = (%q, %v)", plain, err)
	}

	ciphertext, _ := enc.Encrypt("sk-hidden")
	got, err := enc.Resolve(EncryptedPrefix + ciphertext)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "sk-hidden" {
		t.Errorf("Resolve = %q, want sk-hidden", got)
	}
}

func TestHashAPIKey(t *testing.T) {
	h := HashAPIKey("pc-550e8400-e29b-41d4-a716-446655440000")
	if len(h) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h))
	}
	if h != HashAPIKey("pc-550e8400-e29b-41d4-a716-446655440000") {
		t.Error("hash is not deterministic")
	}
	if h == HashAPIKey("pc-other") {
		t.Error("different keys hash identically")
	}
	if strings.ToLower(h) != h {
		t.Error("hash is not lowercase hex")
	}
}
