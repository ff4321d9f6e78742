package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pragmalink/go-pragmalink"
	"github.com/pragmalink/go-pragmalink/config"
	"github.com/pragmalink/go-pragmalink/internal/core/broadcast"
	"github.com/pragmalink/go-pragmalink/internal/core/identity"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

func newBoundRunCmd(t *testing.T, args ...string) (*cobra.Command, *viper.Viper) {
	t.Helper()
	cmd := NewRunCmd()
	require.NoError(t, cmd.ParseFlags(args))
	v := viper.New()
	require.NoError(t, bindFlagsLoadViper(cmd, v))
	return cmd, v
}

func TestLoadConfig_Defaults(t *testing.T) {
	_, v := newBoundRunCmd(t)
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, config.NewConfig(), cfg)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.json")
	data := `{"network": {"listen_addr": "/ip4/127.0.0.1/tcp/5000"}, "messaging": {"topics": ["from-file"], "channel_size": 10}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	_, v := newBoundRunCmd(t,
		"--config", path,
		"--topics", "alpha,beta",
		"--require-cert",
		"--authority-key", "AUTHORITY",
	)
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "/ip4/127.0.0.1/tcp/5000", cfg.Network.ListenAddr)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Messaging.Topics)
	assert.Equal(t, 10, cfg.Messaging.ChannelSize)
	assert.True(t, cfg.Admission.RequireCertificate)
	assert.Equal(t, "AUTHORITY", cfg.Admission.AuthorityKey)
}

func TestLoadConfig_Env(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PRAGMALINK_DATA_DIR", dir)
	t.Setenv("PRAGMALINK_LOG_LEVEL", "debug")

	_, v := newBoundRunCmd(t)
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Storage.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, v := newBoundRunCmd(t, "--log-level", "verbose")
	_, err := loadConfig(v)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, v = newBoundRunCmd(t, "--config", filepath.Join(t.TempDir(), "missing.json"))
	_, err = loadConfig(v)
	assert.Error(t, err)

	_, v = newBoundRunCmd(t, "--require-cert")
	_, err = loadConfig(v)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestAdmissionPolicy(t *testing.T) {
	authority, err := identity.Generate()
	require.NoError(t, err)
	encoded, err := identity.EncodePublicKey(authority.GetPublic())
	require.NoError(t, err)

	pc, err := admissionPolicy(config.AdmissionConfig{
		RequireCertificate: true,
		AuthorityKey:       encoded,
		RatePerSecond:      5,
		Burst:              3,
	})
	require.NoError(t, err)
	assert.True(t, pc.RequireCertificate)
	assert.True(t, authority.GetPublic().Equals(pc.Authority))
	assert.Equal(t, 5.0, pc.RatePerSecond)
	assert.Equal(t, 3, pc.Burst)

	_, err = admissionPolicy(config.AdmissionConfig{AuthorityKey: "not-a-key"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestIssue(t *testing.T) {
	dir := t.TempDir()
	authorityPath := filepath.Join(dir, "authority.key")
	authority, err := identity.Generate()
	require.NoError(t, err)
	require.NoError(t, identity.Save(authority, authorityPath))

	priv, err := identity.Generate()
	require.NoError(t, err)
	node, err := identity.New(priv)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	cmd := NewIssueCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--authority", authorityPath, "--peer", node.ID().String(), "--material", "member-7"})
	require.NoError(t, cmd.Execute())

	token, err := node.SignCertificate(bytes.TrimSpace(out.Bytes()))
	require.NoError(t, err)
	pub, err := identity.DecodePublicKey(strings.TrimSpace(errOut.String()))
	require.NoError(t, err)
	material, err := identity.VerifyCertificate(node.PublicKey(), token, pub)
	require.NoError(t, err)
	assert.Equal(t, "member-7", string(material))

	bad := NewIssueCmd()
	bad.SetOut(&bytes.Buffer{})
	bad.SetErr(&bytes.Buffer{})
	bad.SetArgs([]string{"--authority", authorityPath, "--peer", "not-a-peer", "--material", "m"})
	assert.Error(t, bad.Execute())
}

func TestKeygen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "node.key")

	var out bytes.Buffer
	cmd := NewKeygenCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--out", path})
	require.NoError(t, cmd.Execute())

	priv, created, err := identity.LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
	id, err := identity.New(priv)
	require.NoError(t, err)
	assert.Equal(t, id.ID().String(), strings.TrimSpace(out.String()))

	again := NewKeygenCmd()
	again.SetOut(&bytes.Buffer{})
	again.SetErr(&bytes.Buffer{})
	again.SetArgs([]string{"--out", path})
	assert.Error(t, again.Execute())
}

func TestKeygen_Stdout(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := NewKeygenCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--out", "-"})
	require.NoError(t, cmd.Execute())

	priv, err := identity.DecodePrivateKey(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	id, err := identity.New(priv)
	require.NoError(t, err)
	assert.Equal(t, id.ID().String(), strings.TrimSpace(errOut.String()))
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), pragmalink.Version)
}

func TestPrintMessages(t *testing.T) {
	hub := broadcast.New[types.InboundMessage](4)
	r, err := hub.Subscribe()
	require.NoError(t, err)

	_, err = hub.Send(types.InboundMessage{Topic: "alpha", Data: []byte("hello")})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	var out bytes.Buffer
	require.NoError(t, printMessages(context.Background(), &out, r))
	assert.Equal(t, "[alpha] anonymous: hello\n", out.String())
}

func TestReadLines(t *testing.T) {
	requests := make(chan types.OutboundRequest, 4)
	readLines(context.Background(), strings.NewReader("one\n\ntwo\n"), "alpha", requests)
	close(requests)

	var got []types.OutboundRequest
	for req := range requests {
		got = append(got, req)
	}
	assert.Equal(t, []types.OutboundRequest{
		types.NewBroadcast("alpha", []byte("one")),
		types.NewBroadcast("alpha", []byte("two")),
	}, got)
}
