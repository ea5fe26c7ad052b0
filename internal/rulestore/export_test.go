package rulestore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportSingleUser(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(1001, "Allow SSH Access"))
	require.NoError(t, s.Add(1001, "Deny FTP"))
	require.NoError(t, s.Add(2002, "other user"))

	data, truncated := Export(s, 1001, 0)
	assert.False(t, truncated)
	assert.Equal(t, "Allow SSH Access\nDeny FTP\n", string(data))
}

func TestExportAllUsers(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(20, "second"))
	require.NoError(t, s.Add(10, "first"))
	require.NoError(t, s.Add(SentinelUID, "legacy"))

	data, truncated := Export(s, SentinelUID, 0)
	assert.False(t, truncated)
	assert.Equal(t, "first\nsecond\nlegacy\n", string(data))
}

func TestExportEmptyStore(t *testing.T) {
	s := New()

	data, truncated := Export(s, SentinelUID, 0)
	assert.False(t, truncated)
	assert.Empty(t, data)

	data, truncated = Export(s, 404, 0)
	assert.False(t, truncated)
	assert.Empty(t, data)
}

func TestExportTruncatesAtLineBoundary(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(1, strings.Repeat("a", 10)))
	require.NoError(t, s.Add(1, strings.Repeat("b", 10)))
	require.NoError(t, s.Add(1, strings.Repeat("c", 10)))

	// room for exactly two 11-byte lines
	data, truncated := Export(s, 1, 22)
	assert.True(t, truncated)
	assert.Equal(t, strings.Repeat("a", 10)+"\n"+strings.Repeat("b", 10)+"\n", string(data))

	// one byte short of the second line: only the first fits
	data, truncated = Export(s, 1, 21)
	assert.True(t, truncated)
	assert.Equal(t, strings.Repeat("a", 10)+"\n", string(data))
}

func TestExportCache(t *testing.T) {
	s := New()
	cache, err := NewExportCache(s)
	require.NoError(t, err)

	require.NoError(t, s.Add(1, "cached"))

	data, truncated := cache.Export(1, 0)
	assert.False(t, truncated)
	assert.Equal(t, "cached\n", string(data))

	// repeated read of an unchanged store
	again, _ := cache.Export(1, 0)
	assert.Equal(t, data, again)

	// mutation invalidates via the version key
	require.NoError(t, s.Add(1, "fresh"))
	data, _ = cache.Export(1, 0)
	assert.Equal(t, "cached\nfresh\n", string(data))
}
