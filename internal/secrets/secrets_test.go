package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/efebarandurmaz/flowgraph/internal/config"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("FLOWGRAPH_GRAPH_PASSWORD", "prefixed")
	t.Setenv("PUBLISH_URL", "amqp://bare")
	p := NewEnvProvider("FLOWGRAPH_")

	if v, err := p.Get(context.Background(), KeyGraphPassword); err != nil || v != "prefixed" {
		t.Errorf("prefixed lookup = %q, %v", v, err)
	}
	if v, err := p.Get(context.Background(), KeyPublishURL); err != nil || v != "amqp://bare" {
		t.Errorf("bare lookup = %q, %v", v, err)
	}
	if _, err := p.Get(context.Background(), KeyStorageAccessKeyID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func writeSecrets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileProvider_YAMLAndJSON(t *testing.T) {
	for name, body := range map[string]string{
		"yaml": "graph_password: s3cret\n",
		"json": `{"graph_password": "s3cret"}`,
	} {
		t.Run(name, func(t *testing.T) {
			p, err := NewFileProvider(writeSecrets(t, body))
			if err != nil {
				t.Fatal(err)
			}
			if v, err := p.Get(context.Background(), KeyGraphPassword); err != nil || v != "s3cret" {
				t.Errorf("got %q, %v", v, err)
			}
		})
	}
}

func TestNewManager_Errors(t *testing.T) {
	tests := []config.SecretsConfig{
		{Provider: "vault"},
		{Provider: "file"},
		{Provider: "file", File: filepath.Join(t.TempDir(), "absent.yaml")},
	}
	for _, cfg := range tests {
		if _, err := NewManager(cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}

func TestManager_FileThenEnv(t *testing.T) {
	t.Setenv("FLOWGRAPH_PUBLISH_URL", "amqp://from-env")
	t.Setenv("FLOWGRAPH_GRAPH_PASSWORD", "env-loses")
	m, err := NewManager(config.SecretsConfig{
		Provider: "file",
		File:     writeSecrets(t, "graph_password: from-file\n"),
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Storage.AccessKeyID = "configured"
	m.Apply(context.Background(), cfg)

	if cfg.Graph.Password != "from-file" {
		t.Errorf("graph password = %q", cfg.Graph.Password)
	}
	if cfg.Publish.URL != "amqp://from-env" {
		t.Errorf("publish url = %q", cfg.Publish.URL)
	}
	if cfg.Storage.AccessKeyID != "configured" {
		t.Errorf("configured value overwritten: %q", cfg.Storage.AccessKeyID)
	}
	if cfg.Storage.SecretAccessKey != "" {
		t.Errorf("unexpected secret access key %q", cfg.Storage.SecretAccessKey)
	}
}

func TestManager_Caches(t *testing.T) {
	t.Setenv("FLOWGRAPH_GRAPH_PASSWORD", "first")
	m, err := NewManager(config.SecretsConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := m.Get(context.Background(), KeyGraphPassword); v != "first" {
		t.Fatalf("got %q", v)
	}
	os.Setenv("FLOWGRAPH_GRAPH_PASSWORD", "second")
	if v, _ := m.Get(context.Background(), KeyGraphPassword); v != "first" {
		t.Errorf("expected cached value, got %q", v)
	}
}
