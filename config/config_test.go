package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/ip4/0.0.0.0/tcp/1123", cfg.Network.ListenAddr)
	assert.Equal(t, "/pragma/kad/0.1.0", cfg.Network.KadProtocol)
	assert.Equal(t, 1000, cfg.Messaging.ChannelSize)
	assert.Empty(t, cfg.Network.BootstrapPeers)
	assert.Empty(t, cfg.Storage.DataDir)
}

func TestFromJSON_KeepsDefaults(t *testing.T) {
	cfg, err := FromJSON([]byte(`{
		"network": {"listen_addr": "/ip4/127.0.0.1/tcp/4001"},
		"messaging": {"topics": ["prices"]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "/ip4/127.0.0.1/tcp/4001", cfg.Network.ListenAddr)
	assert.Equal(t, "/pragma/kad/0.1.0", cfg.Network.KadProtocol)
	assert.Equal(t, []string{"prices"}, cfg.Messaging.Topics)
	assert.Equal(t, 1000, cfg.Messaging.ChannelSize)

	_, err = FromJSON([]byte("{"))
	assert.Error(t, err)
}

func TestLoadFile_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Identity.Certificate = "authority"
	data, err := cfg.ToJSON()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "node.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	cases := map[string]func(*Config){
		"exclusive key sources": func(c *Config) { c.Identity.PrivateKey, c.Identity.KeyFile = "k", "f" },
		"listen addr":           func(c *Config) { c.Network.ListenAddr = "0.0.0.0:1123" },
		"kad protocol":          func(c *Config) { c.Network.KadProtocol = "kad" },
		"conn watermarks":       func(c *Config) { c.Network.ConnLow, c.Network.ConnHigh = 10, 5 },
		"channel size":          func(c *Config) { c.Messaging.ChannelSize = 0 },
		"empty topic":           func(c *Config) { c.Messaging.Topics = []string{""} },
		"negative rate":         func(c *Config) { c.Admission.RatePerSecond = -1 },
		"zero burst":            func(c *Config) { c.Admission.Burst = 0 },
		"cert without authority": func(c *Config) { c.Admission.RequireCertificate = true },
		"log level":             func(c *Config) { c.Log.Level = "verbose" },
		"log format":            func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewConfig()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
