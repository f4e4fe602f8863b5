package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "rangedesk", Name: "rangedesk"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=rangedesk dbname=rangedesk sslmode=disable", dsn)
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{User: "rangedesk"})
	require.Error(t, err)
}

func TestBuildPostgresDSNHonoursOverride(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://custom"})
	require.NoError(t, err)
	require.Equal(t, "postgres://custom", dsn)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "rangedesk",
		Password: "secret",
		Name:     "backoffice",
		Host:     "db.internal",
		Port:     3307,
	})
	require.NoError(t, err)
	require.Equal(t, "rangedesk:secret@tcp(db.internal:3307)/backoffice?charset=utf8mb4&loc=Local&parseTime=True", dsn)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}
