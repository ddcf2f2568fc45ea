package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"PORT", "KEY_SERVER_URL", "SIGNER", "SIGNER_KEY", "SIGNER_IV",
	"POLICY", "TRACKS", "ORIGIN_URL", "USER_AGENT", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()

	for _, name := range envVars {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("KEY_SERVER_URL", "https://license.example.com/cenc/getcontentkey/widevine_test")
	t.Setenv("SIGNER", "widevine_test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "SD,HD,AUDIO", cfg.Tracks)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "widevine_test", cfg.Signer)
	assert.False(t, cfg.Signs())
}

func TestLoadRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIGNER", "widevine_test")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "test.env")
	content := "KEY_SERVER_URL=https://license.example.com\n" +
		"SIGNER=widevine_test\n" +
		"SIGNER_KEY=000102030405060708090a0b0c0d0e0f\n" +
		"SIGNER_IV=0f0e0d0c0b0a09080706050403020100\n" +
		"TRACKS=HD\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "HD", cfg.Tracks)
	assert.True(t, cfg.Signs())
}

func TestLoadMissingEnvFileIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("KEY_SERVER_URL", "https://license.example.com")
	t.Setenv("SIGNER", "widevine_test")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		key, iv string
		wantErr bool
	}{
		{"no signing", "", "", false},
		{"aes128", "000102030405060708090a0b0c0d0e0f", "0f0e0d0c0b0a09080706050403020100", false},
		{"aes256", "000102030405060708090a0b0c0d0e0f000102030405060708090a0b0c0d0e0f", "0f0e0d0c0b0a09080706050403020100", false},
		{"key without iv", "000102030405060708090a0b0c0d0e0f", "", true},
		{"iv without key", "", "0f0e0d0c0b0a09080706050403020100", true},
		{"bad key length", "0001", "0f0e0d0c0b0a09080706050403020100", true},
		{"bad key hex", "zz0102030405060708090a0b0c0d0e0f", "0f0e0d0c0b0a09080706050403020100", true},
		{"bad iv length", "000102030405060708090a0b0c0d0e0f", "00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{SignerKey: tt.key, SignerIV: tt.iv}
			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
