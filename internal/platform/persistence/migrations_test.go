package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunMigrations_RejectsEmptyInputs(t *testing.T) {
	t.Run("EmptyMigrationsPath", func(t *testing.T) {
		err := RunMigrations("postgres://localhost/fundflow", "")
		assert.EqualError(t, err, "migrations path cannot be empty")
	})

	t.Run("EmptyDatabaseURL", func(t *testing.T) {
		err := RunMigrations("", "migrations/postgres")
		assert.EqualError(t, err, "database URL cannot be empty")
	})
}

// Applying migrations for real needs a live database; startup wiring in
// cmd/ covers that path.
