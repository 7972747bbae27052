package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	require.NoError(t, sqlDB.Close())
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{Driver: "postgres", User: "flowdeck", Name: "flowdeck", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=flowdeck dbname=flowdeck sslmode=disable password=secret", dsn)

	_, err = buildPostgresDSN(Config{Driver: "postgres"})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{Driver: "mysql", User: "flowdeck", Name: "flowdeck", Host: "db", Port: 3307})
	require.NoError(t, err)
	require.Equal(t, "flowdeck@tcp(db:3307)/flowdeck?charset=utf8mb4&parseTime=True&loc=Local", dsn)
}

func TestDSNOverrideWins(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://elsewhere/db"})
	require.NoError(t, err)
	require.Equal(t, "postgres://elsewhere/db", dsn)
}
