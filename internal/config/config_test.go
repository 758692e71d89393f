package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
port: 8080
env: production
dsn: user:pass@tcp(localhost:3306)/kandid
jwt_secret: super-secret
site:
  name: The Kandid Edit
  url: https://thekandidedit.com/
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "https://thekandidedit.com", cfg.BaseURL())
	assert.Equal(t, "The Kandid Edit", cfg.SiteName())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
dsn: from-yaml
jwt_secret: yaml-secret
site:
  url: https://yaml.example.com
`)

	t.Setenv("KANDID_DSN", "user:pass@tcp(db:3306)/kandid")
	t.Setenv("KANDID_JWT_SECRET", "env-secret")
	t.Setenv("KANDID_SITE_URL", "https://env.example.com")
	t.Setenv("KANDID_RESEND_KEY", "re_123")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "user:pass@tcp(db:3306)/kandid", cfg.DSN)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, "https://env.example.com", cfg.BaseURL())
	assert.Equal(t, "re_123", cfg.MailOptions.ResendKey)
	assert.True(t, cfg.MailOptions.UseResend)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
dsn: user:pass@tcp(localhost:3306)/kandid
jwt_secret: s
site:
  url: https://example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "The Kandid Edit", cfg.SiteName())
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing dsn",
			yaml: "jwt_secret: s\nsite:\n  url: https://example.com\n",
			want: "dsn is required",
		},
		{
			name: "missing jwt secret",
			yaml: "dsn: d\nsite:\n  url: https://example.com\n",
			want: "jwt_secret is required",
		},
		{
			name: "missing site url",
			yaml: "dsn: d\njwt_secret: s\n",
			want: "site.url is required",
		},
		{
			name: "relative site url",
			yaml: "dsn: d\njwt_secret: s\nsite:\n  url: /just/a/path\n",
			want: "not an absolute URL",
		},
		{
			name: "bad port",
			yaml: "port: 99999\ndsn: d\njwt_secret: s\nsite:\n  url: https://example.com\n",
			want: "invalid port",
		},
		{
			name: "mail enabled without transport",
			yaml: "dsn: d\njwt_secret: s\nsite:\n  url: https://example.com\nmail:\n  enable: true\n",
			want: "mail.host is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadUnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, `
dsn: d
jwt_secret: s
site:
  url: https://example.com
typo_field: oops
`)

	_, err := Load(path)
	require.Error(t, err)
}
