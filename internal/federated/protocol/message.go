// Package protocol defines the wire format shared by the federated server
// and client: a 4-byte big-endian length prefix followed by a UTF-8 JSON
// body (§4.H/I/J, §6).
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rawblock/hui-federated/internal/hui"
)

// MaxMessageBytes bounds a single frame's body so a misbehaving peer cannot
// force an unbounded allocation (§5 resource model).
const MaxMessageBytes = 64 << 20 // 64 MiB

// Type names every message the protocol carries.
type Type string

const (
	TypeRegister         Type = "register"
	TypeRegistrationAck  Type = "registration_ack"
	TypeHeartbeat        Type = "heartbeat"
	TypeHeartbeatAck     Type = "heartbeat_ack"
	TypeTrainingRequest  Type = "training_request"
	TypeTrainingResults  Type = "training_results"
)

// Envelope wraps every message on the wire. Payload carries the
// type-specific fields as json.RawMessage so Encode/Decode never needs a
// type switch on the envelope itself.
type Envelope struct {
	Type      Type            `json:"type"`
	ClientID  string          `json:"client_id,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Register is sent by a client immediately after connecting.
type Register struct {
	ClientID  string `json:"client_id"`
	PublicKey string `json:"public_key,omitempty"`
}

// RegistrationAck acknowledges a Register. ClientID echoes back the ID the
// server assigned, for a client that registered without one (§2 Domain
// Stack — uuid-assigned client identifiers).
type RegistrationAck struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Epoch    int64  `json:"epoch"`
	ClientID string `json:"client_id,omitempty"`
}

// Heartbeat keeps a client marked active between rounds.
type Heartbeat struct {
	ClientID string `json:"client_id"`
}

// HeartbeatAck acknowledges a Heartbeat.
type HeartbeatAck struct{}

// TrainingRequest asks a sampled client to mine its local data for one
// round.
type TrainingRequest struct {
	Epoch      int64 `json:"epoch"`
	MinUtility int64 `json:"min_utility"`
}

// TrainingResults carries one client's locally mined HUIs back to the
// server, along with the statistics a federated round needs to account for
// communication cost and client participation (§3 Supplemented Features).
type TrainingResults struct {
	ClientID      string        `json:"client_id"`
	Epoch         int64         `json:"epoch"`
	Itemsets      []hui.Record  `json:"itemsets"`
	Statistics    ResultStats   `json:"statistics"`
	Signature     string        `json:"signature,omitempty"`
	SignaturePubK string        `json:"signature_pubkey,omitempty"`
}

// ResultStats mirrors the bookkeeping fields a mining.Result produces, in a
// form safe to marshal (durations as milliseconds, not time.Duration).
type ResultStats struct {
	TransactionsRead  int64 `json:"transactions_read"`
	CandidatesEmitted int64 `json:"candidates_emitted"`
	PrunedByTWU       int64 `json:"pruned_by_twu"`
	PrunedByBound     int64 `json:"pruned_by_bound"`
	TimedOut          bool  `json:"timed_out"`
	Approximated      bool  `json:"approximated"`
	MiningMillis      int64 `json:"mining_millis"`
}

// Encode marshals the payload into an Envelope and writes it as one
// length-prefixed frame.
func Encode(w io.Writer, typ Type, clientID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("protocol: marshal payload: %w", err)
	}
	env := Envelope{Type: typ, ClientID: clientID, Timestamp: time.Now().UnixMilli(), Payload: body}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("protocol: marshal envelope: %w", err)
	}
	if len(data) > MaxMessageBytes {
		return fmt.Errorf("protocol: message of %d bytes exceeds limit %d", len(data), MaxMessageBytes)
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("protocol: write length prefix: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("protocol: write body: %w", err)
	}
	return nil
}

// Decode reads one length-prefixed frame and unmarshals its envelope. The
// payload field is left as raw JSON for the caller to unmarshal against the
// concrete type implied by Envelope.Type.
func Decode(r io.Reader) (Envelope, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Envelope{}, fmt.Errorf("protocol: read length prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > MaxMessageBytes {
		return Envelope{}, fmt.Errorf("protocol: declared length %d exceeds limit %d", n, MaxMessageBytes)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Envelope{}, fmt.Errorf("protocol: read body: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("protocol: unmarshal envelope: %w", err)
	}
	return env, nil
}

// DecodePayload unmarshals env.Payload into dst.
func DecodePayload(env Envelope, dst any) error {
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("protocol: unmarshal %s payload: %w", env.Type, err)
	}
	return nil
}
