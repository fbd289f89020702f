package config

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
)

func getTestIMAPConfig() IMAPConfig {
	return IMAPConfig{
		URL:      "imaps://imap.hostname.com:1234",
		Username: "username",
		Password: "password",
	}
}

func TestIMAPConfigResolve(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := getTestIMAPConfig()

		imapConfig, err := cfg.resolve()
		assert.NoError(t, err)
		assert.Equal(t, "imap.hostname.com:1234", imapConfig.HostPort)
		assert.True(t, imapConfig.TLS)
		assert.Nil(t, imapConfig.TLSConfig)
		assert.NotNil(t, imapConfig.Auth)
	})

	t.Run("default_ports", func(t *testing.T) {
		cfg := getTestIMAPConfig()
		cfg.URL = "imaps://imap.hostname.com"

		imapConfig, err := cfg.resolve()
		assert.NoError(t, err)
		assert.Equal(t, "imap.hostname.com:993", imapConfig.HostPort)
		assert.True(t, imapConfig.TLS)

		cfg.URL = "imap://imap.hostname.com"
		imapConfig, err = cfg.resolve()
		assert.NoError(t, err)
		assert.Equal(t, "imap.hostname.com:143", imapConfig.HostPort)
		assert.False(t, imapConfig.TLS)
	})

	t.Run("invalid_scheme", func(t *testing.T) {
		cfg := getTestIMAPConfig()
		cfg.URL = "https://imap.hostname.com"

		_, err := cfg.resolve()
		assert.ErrorIs(t, err, errInvalidScheme)
	})

	t.Run("password_file", func(t *testing.T) {
		cfg := getTestIMAPConfig()
		cfg.Password = ""
		cfg.PasswordFile = "testdata/testpass.txt"

		imapConfig, err := cfg.resolve()
		assert.NoError(t, err)
		assert.NotNil(t, imapConfig.Auth)
	})

	t.Run("no_password", func(t *testing.T) {
		cfg := getTestIMAPConfig()
		cfg.Password = ""

		_, err := cfg.resolve()
		assert.Error(t, err)
	})

	t.Run("missing_username", func(t *testing.T) {
		cfg := getTestIMAPConfig()
		cfg.Username = ""

		_, err := cfg.resolve()
		assert.Error(t, err)
	})

	t.Run("tls_skip_verify", func(t *testing.T) {
		cfg := getTestIMAPConfig()
		cfg.TLSSkipVerify = true

		imapConfig, err := cfg.resolve()
		assert.NoError(t, err)
		assert.Equal(t, &tls.Config{InsecureSkipVerify: true}, imapConfig.TLSConfig)
	})
}
