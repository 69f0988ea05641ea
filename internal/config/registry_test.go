package config_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/internal/config"
)

func loadRegistry(t *testing.T) *config.Registry {
	t.Helper()

	reg, err := config.LoadRegistry(filepath.Join("testdata", "registry.yml"))
	require.NoError(t, err)

	return reg
}

func Test_Registry_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		appID      string
		expectedID string
	}{
		{name: "explicit_id", appID: "bridges", expectedID: "bridges"},
		{name: "first_by_name", appID: "", expectedID: "parks"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			item, err := loadRegistry(t).Resolve(tc.appID)

			// assert
			require.NoError(t, err)
			assert.Equal(t, tc.expectedID, item.ID)
		})
	}
}

func Test_Registry_Resolve_When_Unknown_Then_Error(t *testing.T) {
	// act
	_, err := loadRegistry(t).Resolve("nope")

	// assert
	assert.ErrorContains(t, err, "no configuration found")
}

func Test_Registry_LoadApp_ResolvesRelativePaths(t *testing.T) {
	// setup
	reg := loadRegistry(t)
	item, err := reg.Resolve("bridges")
	require.NoError(t, err)

	// act
	cfg, err := reg.LoadApp(context.Background(), nil, item)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Minneapolis Bridges", cfg.App.Title)
}

func Test_Registry_LoadApp_When_ConfigMissing_Then_Error(t *testing.T) {
	// setup
	reg := loadRegistry(t)
	item, err := reg.Resolve("broken")
	require.NoError(t, err)

	// act
	_, err = reg.LoadApp(context.Background(), nil, item)

	// assert
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_Registry_LoadApp_Remote(t *testing.T) {
	// setup
	body, err := os.ReadFile(filepath.Join("testdata", "parks.json"))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	reg := loadRegistry(t)
	item := config.RegistryItem{ID: "remote", Name: "Remote", Path: server.URL + "/parks.json"}

	// act
	cfg, err := reg.LoadApp(context.Background(), server.Client(), item)

	// assert
	require.NoError(t, err)
	assert.True(t, item.IsRemote())
	assert.Equal(t, "City Parks", cfg.App.Title)
}

func Test_LoadRegistry_When_Invalid_Then_Error(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		errPart  string
	}{
		{name: "no_apps", contents: "apps: []\n", errPart: "at least one app"},
		{name: "missing_id", contents: "apps:\n  - name: a\n    path: a.yml\n", errPart: "id is required"},
		{name: "missing_path", contents: "apps:\n  - id: a\n", errPart: "path is required"},
		{name: "duplicate_id", contents: "apps:\n  - id: a\n    path: a.yml\n  - id: a\n    path: b.yml\n", errPart: "duplicate app id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			path := writeTempConfig(t, "registry.yml", tc.contents)

			// act
			_, err := config.LoadRegistry(path)

			// assert
			assert.ErrorContains(t, err, tc.errPart)
		})
	}
}
