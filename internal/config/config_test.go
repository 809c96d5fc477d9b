package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	cfg := &File{MemBytes: 2048, PeripheralBase: 0x90000000, CycleBudget: 500}

	r := Resolve(cfg, 0, false, 0, false, 0, false)
	assert.Equal(t, 2048, r.MemBytes)
	assert.Equal(t, uint32(0x90000000), r.PeripheralBase)
	assert.Equal(t, 500, r.CycleBudget)

	r = Resolve(cfg, 4096, true, 0, false, 0, false)
	assert.Equal(t, 4096, r.MemBytes, "an explicit flag overrides the config file")
}

func TestResolveDefaultsWithNoConfig(t *testing.T) {
	r := Resolve(nil, 0, false, 0, false, 0, false)
	assert.Equal(t, DefaultMemBytes, r.MemBytes)
	assert.Equal(t, uint32(DefaultPeripheralBase), r.PeripheralBase)
	assert.Equal(t, DefaultCycleBudget, r.CycleBudget)
}

func TestLoadParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rvm.toml")
	require.NoError(t, os.WriteFile(path, []byte("mem_bytes = 8192\ncycle_budget = 10\n"), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8192, f.MemBytes)
	assert.Equal(t, 10, f.CycleBudget)
	assert.Equal(t, uint32(0), f.PeripheralBase)
}
