package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("INTERVIEW_CALLER_TEST_KEY", " from-env ")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{"file wins", Source{File: keyFile, Value: "inline", Env: "INTERVIEW_CALLER_TEST_KEY"}, "from-file", ""},
		{"inline before env", Source{Value: " inline ", Env: "INTERVIEW_CALLER_TEST_KEY"}, "inline", ""},
		{"env", Source{Env: "INTERVIEW_CALLER_TEST_KEY"}, "from-env", ""},
		{"empty file", Source{Name: "api key", File: emptyFile}, "", "api key file"},
		{"missing file", Source{Name: "api key", File: filepath.Join(dir, "nope")}, "", "reading api key"},
		{"unset env", Source{Name: "api key", Env: "INTERVIEW_CALLER_TEST_UNSET"}, "", "set INTERVIEW_CALLER_TEST_UNSET"},
		{"nothing", Source{}, "", "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
