package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectools/secrules/internal/db"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	database, err := db.NewSqliteDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	logger, err := New(database)
	require.NoError(t, err)
	return logger
}

func TestRecordAndRecent(t *testing.T) {
	logger := newTestLogger(t)

	logger.Record("add", 1001, "Allow SSH Access", "ok")
	logger.Record("add", 1001, "", "invalid_rule")
	logger.Record("remove", 1001, "Allow SSH Access", "ok")

	entries, err := logger.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// newest first
	assert.Equal(t, "remove", entries[0].Op)
	assert.Equal(t, uint32(1001), entries[0].UID)
	assert.Equal(t, "ok", entries[0].Outcome)
	assert.Equal(t, "invalid_rule", entries[1].Outcome)
	assert.Equal(t, "Allow SSH Access", entries[2].Rule)
	assert.False(t, entries[2].Timestamp.IsZero())
}

func TestRecentLimit(t *testing.T) {
	logger := newTestLogger(t)

	for range 5 {
		logger.Record("read", 0, "", "ok")
	}

	entries, err := logger.Recent(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSchemaIsIdempotent(t *testing.T) {
	logger := newTestLogger(t)

	// creating a second logger over the same db must not fail
	again, err := New(logger.db)
	require.NoError(t, err)
	assert.NotNil(t, again)
}
