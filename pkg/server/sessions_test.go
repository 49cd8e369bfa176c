package server_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/walteh/gokts/pkg/server"
)

func TestSessions(t *testing.T) {
	sessions := server.NewSessions()

	sessions.Register("kak", "client0")
	sessions.Register("kak", "client1")
	sessions.Register("other", "")

	assert.Equal(t, []string{"kak", "other"}, sessions.Names())

	session, ok := sessions.SessionOf("client1")
	assert.True(t, ok)
	assert.Equal(t, "kak", session)

	assert.True(t, sessions.Remove("kak"))
	assert.False(t, sessions.Remove("kak"))

	_, ok = sessions.SessionOf("client0")
	assert.False(t, ok)
	assert.Equal(t, 1, sessions.Len())
}
