package server

import (
	"net"
	"sync"
	"time"

	"github.com/rawblock/hui-federated/internal/federated/protocol"
)

// clientRecord tracks one connected client's liveness and the connection
// used to push it training requests.
type clientRecord struct {
	id        string
	publicKey string
	conn      net.Conn
	lastSeen  time.Time
	active    bool
}

// Registry is the server's single source of truth for which clients are
// connected and active. All access goes through its mutex — the same
// "single advisory lock over shared client state" pattern the teacher uses
// for its websocket Hub.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*clientRecord
	ttl     time.Duration
}

// NewRegistry builds an empty registry. A client not heard from within ttl
// is considered inactive and excluded from sampling.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{clients: make(map[string]*clientRecord), ttl: ttl}
}

// Register records a newly connected client, replacing any stale prior
// connection under the same ID.
func (r *Registry) Register(id, publicKey string, conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[id] = &clientRecord{id: id, publicKey: publicKey, conn: conn, lastSeen: time.Now(), active: true}
}

// Heartbeat marks a client as recently seen.
func (r *Registry) Heartbeat(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		c.lastSeen = time.Now()
		c.active = true
	}
}

// Remove deregisters a client, typically on connection close.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// Purge marks clients unseen for longer than ttl as inactive. It does not
// remove them outright — a client can still reconnect and re-register under
// the same ID.
func (r *Registry) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-r.ttl)
	for _, c := range r.clients {
		if c.lastSeen.Before(cutoff) {
			c.active = false
		}
	}
}

// ActiveClients returns the IDs of clients currently considered active.
func (r *Registry) ActiveClients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.clients))
	for id, c := range r.clients {
		if c.active {
			out = append(out, id)
		}
	}
	return out
}

// ActiveCount is a cheap count used by the round state machine's
// await_minimum_clients gate.
func (r *Registry) ActiveCount() int {
	return len(r.ActiveClients())
}

// conn looks up the live connection for a sampled client, for pushing a
// training_request.
func (r *Registry) conn(id string) (net.Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, false
	}
	return c.conn, true
}

// publicKey looks up a client's registered public key for signature
// verification.
func (r *Registry) publicKey(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return "", false
	}
	return c.publicKey, true
}

// pushTrainingRequest sends a training_request frame to a sampled client.
func (r *Registry) pushTrainingRequest(id string, req protocol.TrainingRequest) error {
	conn, ok := r.conn(id)
	if !ok {
		return errClientGone
	}
	return protocol.Encode(conn, protocol.TypeTrainingRequest, "", req)
}
