package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueAndOrdered(t *testing.T) {
	t.Parallel()

	prev := New()
	seen := map[string]bool{prev: true}
	for i := 0; i < 1000; i++ {
		next := New()
		assert.False(t, seen[next], "duplicate id %s", next)
		assert.Greater(t, next, prev)
		seen[next] = true
		prev = next
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Valid(New()))
	assert.False(t, Valid("not-a-ulid"))
	assert.False(t, Valid(""))
}

func TestTime(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC().Add(-time.Second)
	ts, err := Time(New())
	require.NoError(t, err)
	assert.True(t, ts.After(before))

	_, err = Time("bogus")
	assert.Error(t, err)
}
