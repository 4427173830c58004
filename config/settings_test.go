package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFileGivesDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	data := `
service_name: ss
arch: aarch64
ip_timeout: 3s
unit_user: nobody
telegram:
  enabled: true
  bot_token: "123:abc"
  admin_user_ids: [42]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "ss", s.ServiceName)
	assert.Equal(t, 3*time.Second, s.IPTimeout)
	assert.Equal(t, "nobody", s.UnitUser)
	assert.Equal(t, "aarch64", s.Arch)
	assert.Equal(t, []int64{42}, s.Telegram.AdminUserIDs)
	// untouched keys keep their defaults
	assert.Equal(t, "/usr/local/bin/ssserver", s.BinaryPath)
	assert.Equal(t, "@every 1m", s.Watchdog.Spec)
}

func TestLoadSettingsRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed yaml", "service_name: [\n"},
		{"empty binary path", "binary_path: \"\"\n"},
		{"api without token", "api:\n  enabled: true\n"},
		{"telegram without token", "telegram:\n  enabled: true\n"},
		{"zero timeout", "ip_timeout: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o600))
			_, err := LoadSettings(path)
			assert.Error(t, err)
		})
	}
}

func TestGetOverrides(t *testing.T) {
	t.Setenv(EnvPassword, "secret")
	t.Setenv(EnvPort, "8388")
	t.Setenv(EnvMethod, "")

	o := GetOverrides()
	assert.Equal(t, Overrides{Password: "secret", Port: "8388"}, o)
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("SSM_DEBUG", "")
	t.Setenv("SSM_LOG_LEVEL", "")
	assert.Equal(t, Info, GetLogLevel())

	t.Setenv("SSM_LOG_LEVEL", "warn")
	assert.Equal(t, Warn, GetLogLevel())

	t.Setenv("SSM_DEBUG", "true")
	assert.Equal(t, Debug, GetLogLevel())
}
