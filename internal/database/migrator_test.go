package database

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewMigratorValidation(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("requires a migrations path", func(t *testing.T) {
		_, err := NewMigrator(&DB{}, "", logger)
		assert.ErrorContains(t, err, "migrations path")
	})

	t.Run("rejects a path that does not exist", func(t *testing.T) {
		_, err := NewMigrator(&DB{}, "/nonexistent/migrations", logger)
		assert.ErrorContains(t, err, "migrations path")
	})

	t.Run("rejects a nil database", func(t *testing.T) {
		_, err := NewMigrator(nil, t.TempDir(), logger)
		assert.ErrorContains(t, err, "database connection")
	})

	t.Run("rejects a database that never connected", func(t *testing.T) {
		_, err := NewMigrator(&DB{}, t.TempDir(), logger)
		assert.ErrorContains(t, err, "database connection")
	})
}
