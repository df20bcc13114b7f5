package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClickID_Format(t *testing.T) {
	id, err := NewClickID(time.Now())

	assert.NoError(t, err)
	assert.Len(t, id, 12)
	for _, c := range id {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'v'),
			"unexpected character %q in click id %s", c, id)
	}
}

func TestNewClickID_TimeOrdered(t *testing.T) {
	earlier, err := NewClickID(time.Unix(1700000000, 0))
	assert.NoError(t, err)
	later, err := NewClickID(time.Unix(1700000100, 0))
	assert.NoError(t, err)

	assert.Less(t, earlier, later)
}

func TestNewClickID_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewClickID(now)
		assert.NoError(t, err)
		assert.False(t, seen[id], "duplicate click id %s", id)
		seen[id] = true
	}
}

func TestSessionIDFromKey(t *testing.T) {
	assert.Equal(t, "sess-1", sessionIDFromKey("fallback:1700000000000000000:sess-1"))
	assert.Equal(t, "a:b", sessionIDFromKey("fallback:1700000000000000000:a:b"))
}
