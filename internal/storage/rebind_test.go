package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	q := `DELETE FROM journal_entries WHERE started_at < ? AND session_id = ?`
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, `DELETE FROM journal_entries WHERE started_at < $1 AND session_id = $2`, pg.rebind(q))

	for _, d := range []string{DriverSQLite, DriverMySQL} {
		assert.Equal(t, q, (&DB{driver: d}).rebind(q), d)
	}
}
