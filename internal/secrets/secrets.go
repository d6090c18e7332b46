// Package secrets resolves provider credentials. Production deployments pull
// from AWS Secrets Manager; local and test runs use the environment source,
// which also understands values encrypted with the router's master key.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/pagecraft/ai-router/internal/crypto"
)

// Source resolves one named secret.
type Source interface {
	Get(ctx context.Context, name string) (string, error)
	GetJSON(ctx context.Context, name string, v any) error
}

// ManagerSource reads from AWS Secrets Manager with a short local cache so
// per-request credential lookups do not hammer the API.
type ManagerSource struct {
	client *secretsmanager.Client
	mu     sync.RWMutex
	cache  map[string]cachedSecret
	ttl    time.Duration
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

func NewManagerSource(ctx context.Context, region string) (*ManagerSource, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewManagerSourceWithConfig(cfg), nil
}

func NewManagerSourceWithConfig(cfg aws.Config) *ManagerSource {
	return &ManagerSource{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]cachedSecret),
		ttl:    5 * time.Minute,
	}
}

func (s *ManagerSource) Get(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if c, ok := s.cache[name]; ok && time.Now().Before(c.expiresAt) {
		s.mu.RUnlock()
		return c.value, nil
	}
	s.mu.RUnlock()

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}

	value := aws.ToString(out.SecretString)

	s.mu.Lock()
	s.cache[name] = cachedSecret{value: value, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	return value, nil
}

func (s *ManagerSource) GetJSON(ctx context.Context, name string, v any) error {
	raw, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

// EnvSource reads secrets from environment variables. Values prefixed with
// the crypto package's encrypted marker are decrypted with the master key.
type EnvSource struct {
	encryptor *crypto.Encryptor
}

// NewEnvSource builds an environment source. masterKey may be empty when no
// encrypted values are in use.
func NewEnvSource(masterKey string) *EnvSource {
	var enc *crypto.Encryptor
	if masterKey != "" {
		enc = crypto.NewEncryptor(masterKey)
	}
	return &EnvSource{encryptor: enc}
}

func (s *EnvSource) Get(ctx context.Context, name string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("secret %s not set", name)
	}
	if s.encryptor == nil {
		return value, nil
	}
	resolved, err := s.encryptor.Resolve(value)
	if err != nil {
		return "", fmt.Errorf("decrypt secret %s: %w", name, err)
	}
	return resolved, nil
}

func (s *EnvSource) GetJSON(ctx context.Context, name string, v any) error {
	raw, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

// StaticSource backs tests.
type StaticSource struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewStaticSource() *StaticSource {
	return &StaticSource{values: make(map[string]string)}
}

func (s *StaticSource) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

func (s *StaticSource) Get(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	if !ok {
		return "", fmt.Errorf("secret %s not set", name)
	}
	return v, nil
}

func (s *StaticSource) GetJSON(ctx context.Context, name string, v any) error {
	raw, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}
