package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-learning/pkg/config"
)

func TestSessionDSNUnchangedWithoutSettings(t *testing.T) {
	dsn := "postgres://u:p@localhost:5432/app?sslmode=disable"

	got, err := SessionDSN(config.DBConfig{DSN: dsn})
	require.NoError(t, err)
	assert.Equal(t, dsn, got)
}

func TestSessionDSNURL(t *testing.T) {
	got, err := SessionDSN(config.DBConfig{
		DSN:            "postgres://u:p@localhost:5432/app?sslmode=disable",
		TimeZone:       "Asia/Shanghai",
		ClientEncoding: "UTF8",
	})
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "disable", q.Get("sslmode"))
	assert.Equal(t, "Asia/Shanghai", q.Get("timezone"))
	assert.Equal(t, "UTF8", q.Get("client_encoding"))
	assert.Equal(t, "localhost:5432", u.Host)
	assert.Equal(t, "/app", u.Path)
}

func TestSessionDSNOverridesExistingParam(t *testing.T) {
	got, err := SessionDSN(config.DBConfig{
		DSN:      "postgresql://localhost/app?timezone=UTC",
		TimeZone: "Europe/Berlin",
	})
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, []string{"Europe/Berlin"}, u.Query()["timezone"])
}

func TestSessionDSNKeyValue(t *testing.T) {
	got, err := SessionDSN(config.DBConfig{
		DSN:      "host=localhost dbname=app sslmode=disable",
		TimeZone: "America/New_York",
	})
	require.NoError(t, err)
	assert.Equal(t, "host=localhost dbname=app sslmode=disable timezone='America/New_York'", got)
}

func TestQuoteValueEscapes(t *testing.T) {
	assert.Equal(t, `'it\'s'`, quoteValue("it's"))
	assert.Equal(t, `'a\\b'`, quoteValue(`a\b`))
}

func TestSessionDSNBadURL(t *testing.T) {
	_, err := SessionDSN(config.DBConfig{DSN: "postgres://%zz", TimeZone: "UTC"})
	assert.Error(t, err)
}
