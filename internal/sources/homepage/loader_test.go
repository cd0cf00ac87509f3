package homepage

import (
	"os"
	"path/filepath"
	"testing"
)

func writeServices(t *testing.T, content string) string {
	t.Helper()
	yamlPath := filepath.Join(t.TempDir(), "services.yaml")
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return yamlPath
}

func TestLoaderLoad(t *testing.T) {
	yamlPath := writeServices(t, `---
- Media:
    - Radarr:
        icon: radarr.svg
        href: https://radarr.domain.ext
        widget:
          type: radarr
          url: http://radarr:7878
          key: abc123
`)

	config, err := NewLoader(yamlPath).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(config) == 0 {
		t.Fatal("Load() returned empty config")
	}
	props := config[0]["Media"][0]["Radarr"]
	if props.Widget.Type != "radarr" || props.Widget.Key != "abc123" {
		t.Errorf("Load() widget = %+v, want radarr with key abc123", props.Widget)
	}
}

func TestLoaderLoadWithTemplateVariables(t *testing.T) {
	t.Setenv("HOMEPAGE_VAR_SONARR_KEY", "from-env")
	secretPath := filepath.Join(t.TempDir(), "qbit-pass")
	if err := os.WriteFile(secretPath, []byte("s3cret\n"), 0o600); err != nil {
		t.Fatalf("Failed to write secret file: %v", err)
	}
	t.Setenv("HOMEPAGE_FILE_QBIT_PASS", secretPath)

	yamlPath := writeServices(t, `---
- Media:
    - Sonarr:
        href: https://sonarr.domain.ext
        widget:
          type: sonarr
          url: http://sonarr:8989
          key: {{HOMEPAGE_VAR_SONARR_KEY}}
    - qBittorrent:
        href: {{HOMEPAGE_VAR_UNSET_URL}}
        widget:
          type: qbittorrent
          url: http://qbittorrent:8080
          username: admin
          password: {{HOMEPAGE_FILE_QBIT_PASS}}
`)

	config, err := NewLoader(yamlPath).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	group := config[0]["Media"]
	if got := group[0]["Sonarr"].Widget.Key; got != "from-env" {
		t.Errorf("sonarr key = %q, want %q", got, "from-env")
	}
	qbit := group[1]["qBittorrent"]
	if qbit.Widget.Password != "s3cret" {
		t.Errorf("qbittorrent password = %q, want %q", qbit.Widget.Password, "s3cret")
	}
	if qbit.Href != "" {
		t.Errorf("unresolved href = %q, want empty", qbit.Href)
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	loader := NewLoader("/nonexistent/path/services.yaml")
	_, err := loader.Load()
	if err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestExpandTemplateVariables(t *testing.T) {
	loader := &Loader{lookup: func(name string) (string, bool) {
		if name == "HOMEPAGE_VAR_URL" {
			return "http://radarr:7878", true
		}
		return "", false
	}}

	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "resolved variable",
			input:    []byte("url: {{HOMEPAGE_VAR_URL}}"),
			expected: "url: http://radarr:7878",
		},
		{
			name:     "unresolved variable",
			input:    []byte("key: {{HOMEPAGE_VAR_MISSING}}"),
			expected: "key: \"\"",
		},
		{
			name:     "unknown prefix",
			input:    []byte("key: {{SOMETHING_ELSE}}"),
			expected: "key: \"\"",
		},
		{
			name:     "no template variables",
			input:    []byte("plain text"),
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := loader.expandTemplateVariables(tt.input)
			if string(result) != tt.expected {
				t.Errorf("expandTemplateVariables() = %q, want %q", string(result), tt.expected)
			}
		})
	}
}
