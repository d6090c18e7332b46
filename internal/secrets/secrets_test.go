package secrets

import (
	"context"
	"testing"

	"github.com/pagecraft/ai-router/internal/crypto"
)

func TestEnvSourcePlainValue(t *testing.T) {
	t.Setenv("ROUTER_TEST_SECRET", "sk-plain")

	s := NewEnvSource("")
	got, err := s.Get(context.Background(), "ROUTER_TEST_SECRET")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "sk-plain" {
		t.Errorf("Get = %q, want sk-plain", got)
	}
}

func TestEnvSourceMissing(t *testing.T) {
	s := NewEnvSource("")
	if _, err := s.Get(context.Background(), "ROUTER_TEST_NEVER_SET"); err == nil {
		t.Error("Get of an unset variable succeeded")
	}
}

func TestEnvSourceEncryptedValue(t *testing.T) {
	enc := crypto.NewEncryptor("master-key")
	ciphertext, err := enc.Encrypt("sk-hidden")
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROUTER_TEST_ENC_SECRET", crypto.EncryptedPrefix+ciphertext)

	s := NewEnvSource("master-key")
	got, err := s.Get(context.Background(), "ROUTER_TEST_ENC_SECRET")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "sk-hidden" {
		t.Errorf("Get = %q, want sk-hidden", got)
	}
}

func TestEnvSourceWrongMasterKey(t *testing.T) {
	ciphertext, _ := crypto.NewEncryptor("right-key").Encrypt("sk-hidden")
	t.Setenv("ROUTER_TEST_ENC_SECRET", crypto.EncryptedPrefix+ciphertext)

	s := NewEnvSource("wrong-key")
	if _, err := s.Get(context.Background(), "ROUTER_TEST_ENC_SECRET"); err == nil {
		t.Error("Get with the wrong master key succeeded")
	}
}

func TestStaticSourceJSON(t *testing.T) {
	s := NewStaticSource()
	s.Set("providers/openai", `{"api_key":"sk-123"}`)

	var creds struct {
		APIKey string `json:"api_key"`
	}
	if err := s.GetJSON(context.Background(), "providers/openai", &creds); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if creds.APIKey != "sk-123" {
		t.Errorf("APIKey = %q, want sk-123", creds.APIKey)
	}
}
