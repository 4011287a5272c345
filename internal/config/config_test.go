package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "work.config.yaml", `
meta:
  id: work
  name: Work account
  enabled: true
email:
  protocols:
    imap:
      enabled: true
      server: mail.corp.example
      default_port: 993
      username: me
      password: secret
`)
	writeConfigFile(t, dir, "ignored.yaml", "meta:\n  id: ignored\n")

	require.NoError(t, LoadConfigs(dir))

	cfg, err := GetConfig("work")
	require.NoError(t, err)
	assert.Equal(t, "Work account", cfg.Meta.Name)
	assert.True(t, cfg.Email.Protocols.IMAP.Enabled)
	assert.Equal(t, "mail.corp.example", cfg.Email.Protocols.IMAP.Server)

	// Files without the .config.yaml suffix are not loaded
	_, err = GetConfig("ignored")
	assert.Error(t, err)

	assert.Len(t, ListConfigs(), 1)
	assert.Len(t, GetEnabledConfigs(), 1)
}

func TestLoadConfigsExpandsEnv(t *testing.T) {
	t.Setenv("TEST_MAIL_PASSWORD", "hunter2")

	dir := t.TempDir()
	writeConfigFile(t, dir, "env.config.yaml", `
meta:
  id: env
  enabled: true
email:
  protocols:
    imap:
      enabled: true
      username: me
      password: ${TEST_MAIL_PASSWORD}
`)

	require.NoError(t, LoadConfigs(dir))

	cfg, err := GetConfig("env")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Email.Protocols.IMAP.Password)
}

func TestLoadConfigsRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "broken.config.yaml", "meta:\n  name: no id here\n")

	err := LoadConfigs(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meta.id")
}

func TestLoadConfigsRejectsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "a.config.yaml", "meta:\n  id: same\n")
	writeConfigFile(t, dir, "b.config.yaml", "meta:\n  id: same\n")

	err := LoadConfigs(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate config ID")
}

func TestProviderDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "gmail.config.yaml", `
meta:
  id: gmail-acct
  enabled: true
email:
  provider: gmail
  protocols:
    imap:
      enabled: true
      username: someone@gmail.com
`)

	require.NoError(t, LoadConfigs(dir))

	cfg, err := GetConfig("gmail-acct")
	require.NoError(t, err)
	assert.Equal(t, "imap.gmail.com", cfg.Email.Protocols.IMAP.Server)
	assert.Equal(t, 993, cfg.Email.Protocols.IMAP.DefaultPort)
	assert.True(t, cfg.Email.Protocols.IMAP.Security.TLS.Enabled)
}

func TestProviderDefaultsDoNotOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "custom.config.yaml", `
meta:
  id: custom
email:
  provider: outlook
  protocols:
    imap:
      enabled: true
      server: proxy.internal
      default_port: 143
`)

	require.NoError(t, LoadConfigs(dir))

	cfg, err := GetConfig("custom")
	require.NoError(t, err)
	assert.Equal(t, "proxy.internal", cfg.Email.Protocols.IMAP.Server)
	assert.Equal(t, 143, cfg.Email.Protocols.IMAP.DefaultPort)
}

func TestApplyTemplate(t *testing.T) {
	dir := t.TempDir()
	templatesDir := filepath.Join(dir, "templates")
	require.NoError(t, os.Mkdir(templatesDir, 0755))

	writeConfigFile(t, templatesDir, "corporate.yaml", `
email:
  default_timeout: 60
  protocols:
    imap:
      server: mail.corp.example
      default_port: 993
      security:
        tls:
          enabled: true
          verify_cert: true
  attachments:
    storage_path: /srv/attachments
`)
	writeConfigFile(t, dir, "alice.config.yaml", `
meta:
  id: alice
  template: corporate
  enabled: true
email:
  protocols:
    imap:
      enabled: true
      username: alice
      password: pw
  attachments:
    storage_path: /home/alice/attachments
`)

	require.NoError(t, LoadConfigs(dir))

	cfg, err := GetConfig("alice")
	require.NoError(t, err)

	// Template fills the gaps
	assert.Equal(t, "mail.corp.example", cfg.Email.Protocols.IMAP.Server)
	assert.Equal(t, 60, cfg.Email.DefaultTimeout)
	assert.True(t, cfg.Email.Protocols.IMAP.Security.TLS.VerifyCert)

	// Config values win over template values
	assert.Equal(t, "alice", cfg.Email.Protocols.IMAP.Username)
	assert.Equal(t, "/home/alice/attachments", cfg.Email.Attachments.StoragePath)
}

func TestApplyTemplateUnknown(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "bad.config.yaml", `
meta:
  id: bad
  template: does-not-exist
`)

	err := LoadConfigs(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
