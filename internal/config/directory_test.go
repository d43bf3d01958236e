package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryConfigDefaultsWithoutFile(t *testing.T) {
	holder, err := newDirectoryConfigHolder(t.TempDir())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, DefaultDirectorySettings(), got)
}

func TestDirectoryConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("directory:\n  pageSize: 25\n  adminRoleValue: superuser\n  placeholderName: Member\n  roleCacheTTL: 30s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "directory.yml"), content, 0o600))

	holder, err := newDirectoryConfigHolder(dir)
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, 25, got.PageSize)
	assert.Equal(t, "superuser", got.AdminRoleValue)
	assert.Equal(t, "Member", got.PlaceholderName)
	assert.Equal(t, 30*time.Second, got.RoleCacheTTL)
}

func TestDirectoryConfigRejectsInvalidPageSize(t *testing.T) {
	dir := t.TempDir()
	content := []byte("directory:\n  pageSize: 0\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "directory.yml"), content, 0o600))

	_, err := newDirectoryConfigHolder(dir)
	assert.Error(t, err)
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *DirectoryConfigHolder
	assert.Equal(t, 100, holder.Get().PageSize)
}

func TestIsProduction(t *testing.T) {
	cases := map[string]bool{
		"production":    true,
		" Production ":  true,
		"development":   false,
		"":              false,
		"production-eu": false,
	}
	for env, want := range cases {
		assert.Equal(t, want, Config{Environment: env}.IsProduction(), env)
	}
}
