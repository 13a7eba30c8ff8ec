package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()

	_, ok := registry.Lookup("u1")
	assert.False(t, ok)

	registry.Register("u1", "rtc-token")
	token, ok := registry.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, "rtc-token", token)
	assert.Equal(t, 1, registry.Len())
}

func TestRegisterOverwritesPreviousToken(t *testing.T) {
	registry := NewRegistry()
	registry.Register("u1", "old")
	registry.Register("u1", "new")

	token, ok := registry.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, "new", token)
	assert.Equal(t, 1, registry.Len())
}

func TestUnregisterIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	registry.Register("u1", "token")

	registry.Unregister("u1")
	registry.Unregister("u1")
	registry.Unregister("never-registered")

	_, ok := registry.Lookup("u1")
	assert.False(t, ok)
	assert.Equal(t, 0, registry.Len())
}
