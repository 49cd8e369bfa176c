package server

import (
	"sort"
	"sync"
)

// Sessions tracks the editor sessions known to the daemon and the clients attached to them.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]map[string]struct{}
	clients  map[string]string
}

func NewSessions() *Sessions {
	return &Sessions{
		sessions: make(map[string]map[string]struct{}),
		clients:  make(map[string]string),
	}
}

// Register records a session and, when non-empty, one of its clients.
func (me *Sessions) Register(session, client string) {
	me.mu.Lock()
	defer me.mu.Unlock()

	clients, ok := me.sessions[session]
	if !ok {
		clients = make(map[string]struct{})
		me.sessions[session] = clients
	}

	if client != "" {
		clients[client] = struct{}{}
		me.clients[client] = session
	}
}

// Remove forgets a session and its clients. It reports whether the session was known.
func (me *Sessions) Remove(session string) bool {
	me.mu.Lock()
	defer me.mu.Unlock()

	clients, ok := me.sessions[session]
	if !ok {
		return false
	}

	for client := range clients {
		if me.clients[client] == session {
			delete(me.clients, client)
		}
	}
	delete(me.sessions, session)

	return true
}

func (me *Sessions) SessionOf(client string) (string, bool) {
	me.mu.Lock()
	defer me.mu.Unlock()

	session, ok := me.clients[client]
	return session, ok
}

func (me *Sessions) Names() []string {
	me.mu.Lock()
	defer me.mu.Unlock()

	names := make([]string, 0, len(me.sessions))
	for name := range me.sessions {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (me *Sessions) Len() int {
	me.mu.Lock()
	defer me.mu.Unlock()

	return len(me.sessions)
}
