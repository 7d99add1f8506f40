package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/labeltower/pkg/config"
)

func TestUserDirs(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		name   string
		fn     func() (string, error)
		env    string
		envVal string
		want   string
	}{
		{"cache default", cacheDir, "XDG_CACHE_HOME", "", filepath.Join(home, ".cache", appName)},
		{"cache xdg", cacheDir, "XDG_CACHE_HOME", "/tmp/custom-cache", filepath.Join("/tmp/custom-cache", appName)},
		{"data default", dataDir, "XDG_DATA_HOME", "", filepath.Join(home, ".local", "share", appName)},
		{"data xdg", dataDir, "XDG_DATA_HOME", "/tmp/custom-data", filepath.Join("/tmp/custom-data", appName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.envVal)

			got, err := tt.fn()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("dir = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunStoreDefaultsToDataDir(t *testing.T) {
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)

	c := newTestCLI()
	c.config().Store.Backend = config.BackendFile
	st, err := newStore(t.Context(), c.config().Store)
	if err != nil {
		t.Fatalf("newStore() error = %v", err)
	}
	defer st.Close(t.Context())

	if _, err := os.Stat(filepath.Join(data, appName, "runs")); err != nil {
		t.Errorf("run directory not created: %v", err)
	}
}
