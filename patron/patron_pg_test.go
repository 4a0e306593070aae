//go:build integration

package patron

import (
	"testing"

	"github.com/indexdata/olebridge/dbutil"
	"github.com/stretchr/testify/assert"
)

func TestLoginPostgres(t *testing.T) {
	pgCtx, pgContainer, connStr, err := dbutil.StartPGContainer()
	assert.NoError(t, err)
	defer func() {
		assert.NoError(t, dbutil.TerminatePGContainer(pgCtx, pgContainer))
	}()

	_, to, _, err := dbutil.RunMigrateScripts("file://../migrations/postgres", connStr)
	assert.NoError(t, err)
	assert.Equal(t, uint(2), to)

	for _, driver := range []string{dbutil.Postgres, dbutil.Pgx} {
		db, err := dbutil.OpenDb(ctx, driver, connStr)
		assert.NoError(t, err)
		store, err := NewStore(db, dbutil.Dialect(driver), "ole", "LAST_NM", "")
		assert.NoError(t, err)

		row, err := store.Login(ctx, "10100055", "lovelace")
		assert.NoError(t, err, driver)
		assert.NotNil(t, row, driver)
		assert.Equal(t, "10100055U", row.Id)
		assert.Equal(t, "Ada", row.FirstName.String)

		row, err = store.Login(ctx, "10100055", "babbage")
		assert.NoError(t, err)
		assert.Nil(t, row)
		assert.NoError(t, store.Close())
	}
}
