package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupSharedDB(t *testing.T) {
	t.Helper()
	require.NoError(t, Connect("sqlite3", ":memory:"))
	_, err := Shared().Exec(`CREATE TABLE IF NOT EXISTS widgets (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
}

func TestContextCommitPersistsRows(t *testing.T) {
	setupSharedDB(t)
	c := NewContext(Shared())

	require.NoError(t, c.Begin())
	_, err := c.Tx().Exec(`INSERT INTO widgets (name) VALUES (?)`, "gizmo")
	require.NoError(t, err)
	require.NoError(t, c.Commit())

	var count int
	require.NoError(t, Shared().Get(&count, `SELECT COUNT(*) FROM widgets WHERE name = ?`, "gizmo"))
	require.Equal(t, 1, count)
}

func TestContextRollbackDiscardsRows(t *testing.T) {
	setupSharedDB(t)
	c := NewContext(Shared())

	require.NoError(t, c.Begin())
	_, err := c.Tx().Exec(`INSERT INTO widgets (name) VALUES (?)`, "doohickey")
	require.NoError(t, err)
	require.NoError(t, c.Rollback())

	var count int
	require.NoError(t, Shared().Get(&count, `SELECT COUNT(*) FROM widgets WHERE name = ?`, "doohickey"))
	require.Equal(t, 0, count)
}

func TestContextRollbackIsNoopWithoutBegin(t *testing.T) {
	setupSharedDB(t)
	c := NewContext(Shared())
	require.NoError(t, c.Rollback())
}

func TestContextCommitAfterCommitClearsTx(t *testing.T) {
	setupSharedDB(t)
	c := NewContext(Shared())
	require.NoError(t, c.Begin())
	require.NoError(t, c.Commit())
	require.Nil(t, c.Tx())
}

func TestIsSyncConflictFalseForUnrelatedError(t *testing.T) {
	require.False(t, IsSyncConflict(nil))
	require.False(t, IsSyncConflict(errors.New("not a sqlite error")))
}
