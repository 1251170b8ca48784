package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_ConnectionString_WithPassword(t *testing.T) {
	cfg := Config{Host: "localhost", Port: 5432, User: "testuser", Database: "testdb", SSLMode: "disable", Password: "testpass"}
	assert.Equal(t, "host=localhost port=5432 user=testuser dbname=testdb sslmode=disable password=testpass", cfg.ConnectionString())
}

func TestConfig_ConnectionString_WithoutPassword(t *testing.T) {
	cfg := Config{Host: "localhost", Port: 5432, User: "testuser", Database: "testdb", SSLMode: "disable"}
	result := cfg.ConnectionString()
	assert.Equal(t, "host=localhost port=5432 user=testuser dbname=testdb sslmode=disable", result)
	assert.NotContains(t, result, "password=")
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()
	valid.Host = "localhost"
	assert.NoError(t, valid.Validate())

	missingHost := DefaultConfig()
	assert.Error(t, missingHost.Validate())

	badPort := DefaultConfig()
	badPort.Host = "localhost"
	badPort.Port = 0
	assert.Error(t, badPort.Validate())
}

func TestPagination_ExactlyOneModeActive(t *testing.T) {
	cursor := Cursor(42)
	assert.True(t, cursor.IsCursor())

	offset := Offset(0)
	assert.False(t, offset.IsCursor())
}
