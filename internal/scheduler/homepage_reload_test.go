package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/store"
	"github.com/MrSnakeDoc/arrgate/internal/store/memory"
	"github.com/MrSnakeDoc/arrgate/internal/vault"
)

const twoServices = `---
- Media:
    - Radarr:
        href: https://radarr.domain.ext
        widget:
          type: radarr
          url: http://radarr:7878
          key: radarr-key
    - Sonarr:
        href: https://sonarr.domain.ext
        widget:
          type: sonarr
          url: http://sonarr:8989
          key: sonarr-key
`

const radarrOnly = `---
- Media:
    - Radarr:
        href: https://radarr.domain.ext
        widget:
          type: radarr
          url: http://radarr:7878
          key: rotated-key
`

func newMemoryStore(t *testing.T) *memory.Store {
	t.Helper()
	v, err := vault.New("0123456789abcdef0123456789abcdef", vault.WithCost(1<<10))
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}
	return memory.NewStore(store.NewSealer(v, logger.Nop()))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestHomepageReloader_Reload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "services.yaml")
	writeFile(t, path, twoServices)

	st := newMemoryStore(t)
	hr := NewHomepageReloader(path, "u1", st, logger.Nop(), 0, nil)

	if err := hr.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	configs, err := st.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("Expected 2 configurations, got %d", len(configs))
	}
	if got := configs["sonarr"]; got == nil || !got.IsEnabled || got.APIKey != "sonarr-key" {
		t.Errorf("sonarr = %+v, want enabled with imported key", got)
	}

	// Sonarr leaves the file, radarr's key rotates
	writeFile(t, path, radarrOnly)
	if err := hr.Reload(ctx); err != nil {
		t.Fatalf("second Reload() error = %v", err)
	}

	radarr, _ := st.Get(ctx, "u1", "radarr")
	if radarr.APIKey != "rotated-key" || !radarr.IsEnabled {
		t.Errorf("radarr = %+v, want enabled with rotated key", radarr)
	}
	sonarr, _ := st.Get(ctx, "u1", "sonarr")
	if sonarr == nil || sonarr.IsEnabled {
		t.Errorf("sonarr = %+v, want kept but disabled", sonarr)
	}

	// Sonarr comes back and is enabled again
	writeFile(t, path, twoServices)
	if err := hr.Reload(ctx); err != nil {
		t.Fatalf("third Reload() error = %v", err)
	}
	sonarr, _ = st.Get(ctx, "u1", "sonarr")
	if !sonarr.IsEnabled {
		t.Error("sonarr should be re-enabled once it is back in homepage")
	}
}

func TestHomepageReloader_KeepsUserDisabledFlag(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "services.yaml")
	writeFile(t, path, twoServices)

	st := newMemoryStore(t)
	hr := NewHomepageReloader(path, "u1", st, logger.Nop(), 0, nil)
	if err := hr.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	// The user switches radarr off through the API
	radarr, _ := st.Get(ctx, "u1", "radarr")
	radarr.IsEnabled = false
	if _, err := st.Upsert(ctx, *radarr); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := hr.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	radarr, _ = st.Get(ctx, "u1", "radarr")
	if radarr.IsEnabled {
		t.Error("import must not re-enable a service the user disabled")
	}
}

func TestHomepageReloader_StartFailsOnMissingFile(t *testing.T) {
	hr := NewHomepageReloader("/nonexistent/services.yaml", "u1", newMemoryStore(t), logger.Nop(), 0, nil)
	if err := hr.Start(context.Background()); err == nil {
		t.Error("Start() with missing file should return error")
	}
}

func TestHomepageReloader_KeepsAPIEditsUntilFileChanges(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "services.yaml")
	writeFile(t, path, twoServices)

	st := newMemoryStore(t)
	hr := NewHomepageReloader(path, "u1", st, logger.Nop(), 0, nil)
	if err := hr.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	// The user points radarr elsewhere through the API
	radarr, _ := st.Get(ctx, "u1", "radarr")
	radarr.BaseURL = "http://radarr.lan:7878"
	radarr.APIKey = "user-key"
	if _, err := st.Upsert(ctx, *radarr); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// Same file: the edit survives
	if err := hr.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	radarr, _ = st.Get(ctx, "u1", "radarr")
	if radarr.APIKey != "user-key" || radarr.BaseURL != "http://radarr.lan:7878" {
		t.Errorf("radarr = %+v, want API edits kept", radarr)
	}

	// The file entry changes: the file wins
	writeFile(t, path, radarrOnly)
	if err := hr.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	radarr, _ = st.Get(ctx, "u1", "radarr")
	if radarr.APIKey != "rotated-key" || radarr.BaseURL != "http://radarr:7878" {
		t.Errorf("radarr = %+v, want values from the updated file", radarr)
	}
}
