package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	root := t.TempDir()

	v := viper.New()
	v.Set("root_path", root)

	cfg, err := Load(v)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileBytes)
	assert.Equal(t, 100_000, cfg.L1CacheEntries)
	assert.Equal(t, 1800, cfg.L1TTLSeconds.LangDetectionSeconds)
	assert.Equal(t, 7200, cfg.L1TTLSeconds.FileParseSeconds)
	assert.False(t, cfg.L2Enabled)
	assert.False(t, cfg.CDCEnabled)
	assert.Equal(t, "codegraph:events", cfg.StreamName)
	assert.Equal(t, 10, cfg.TraversalMaxDepth)
	assert.Equal(t, 500, cfg.PaginationMaxLimit)
	assert.Equal(t, 50, cfg.PaginationDefaultLimit)
	assert.Equal(t, 0.95, cfg.HubPercentile)
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	root := t.TempDir()
	configPath := filepath.Join(tempDir, "codegraph.yaml")

	content := `
root_path: ` + root + `
l2_enabled: true
l2_url: "redis://localhost:6379/0"
cdc_enabled: true
stream_name: "events"
max_file_bytes: 5242880
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, int64(5242880), cfg.MaxFileBytes)
	assert.True(t, cfg.L2Enabled)
	assert.Equal(t, "redis://localhost:6379/0", cfg.L2URL)
	assert.True(t, cfg.CDCEnabled)
}

func TestLoad_MissingRootPath(t *testing.T) {
	v := viper.New()
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg: Config{
				RootPath: root, MaxFileBytes: 1024, TraversalMaxDepth: 10,
				PaginationMaxLimit: 500, PaginationDefaultLimit: 50, HubPercentile: 0.95,
			},
			wantErr: false,
		},
		{
			name:    "missing root path",
			cfg:     Config{MaxFileBytes: 1024, TraversalMaxDepth: 10, PaginationMaxLimit: 500, PaginationDefaultLimit: 50, HubPercentile: 0.95},
			wantErr: true,
		},
		{
			name: "l2 enabled without url",
			cfg: Config{
				RootPath: root, MaxFileBytes: 1024, TraversalMaxDepth: 10,
				PaginationMaxLimit: 500, PaginationDefaultLimit: 50, HubPercentile: 0.95,
				L2Enabled: true,
			},
			wantErr: true,
		},
		{
			name: "pagination default exceeds max",
			cfg: Config{
				RootPath: root, MaxFileBytes: 1024, TraversalMaxDepth: 10,
				PaginationMaxLimit: 50, PaginationDefaultLimit: 100, HubPercentile: 0.95,
			},
			wantErr: true,
		},
		{
			name: "hub percentile out of range",
			cfg: Config{
				RootPath: root, MaxFileBytes: 1024, TraversalMaxDepth: 10,
				PaginationMaxLimit: 500, PaginationDefaultLimit: 50, HubPercentile: 1.5,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
