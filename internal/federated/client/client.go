// Package client implements the federated learning client: it registers
// with the server, sends periodic heartbeats, and mines its local data
// whenever a training_request arrives, replying with signed
// training_results (§4.J).
package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/rawblock/hui-federated/internal/federated/protocol"
	"github.com/rawblock/hui-federated/internal/hui"
	"github.com/rawblock/hui-federated/internal/identity"
	"github.com/rawblock/hui-federated/internal/mining"
	"github.com/rawblock/hui-federated/internal/source"
)

const heartbeatInterval = 30 * time.Second

// Client connects to one federated server and serves training requests
// against a local TransactionSource.
type Client struct {
	ServerAddr string
	Source     source.TransactionSource
	MiningCfg  mining.Config
	Identity   *identity.Identity

	conn net.Conn

	// trainingQueue serialises training requests: only one local mining
	// task runs at a time (§5), a second request arriving mid-mine is
	// queued rather than run concurrently.
	trainingQueue chan protocol.TrainingRequest
	queueOnce     sync.Once
}

// New builds a Client. If id is nil a fresh signing identity is generated.
func New(serverAddr string, src source.TransactionSource, cfg mining.Config, id *identity.Identity) (*Client, error) {
	if id == nil {
		var err error
		id, err = identity.Generate()
		if err != nil {
			return nil, fmt.Errorf("client: generate identity: %w", err)
		}
	}
	return &Client{ServerAddr: serverAddr, Source: src, MiningCfg: cfg, Identity: id}, nil
}

// Run connects, registers, and serves requests until ctx is cancelled or
// the connection fails, at which point it reconnects after a short backoff.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.runOnce(ctx); err != nil {
			log.Printf("[client %s] connection lost: %v, reconnecting in 3s", c.Identity.ClientID, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, err := net.Dial("tcp", c.ServerAddr)
	if err != nil {
		return fmt.Errorf("client: dial: %w", err)
	}
	defer conn.Close()
	c.conn = conn

	reg := protocol.Register{ClientID: c.Identity.ClientID, PublicKey: c.Identity.PublicKeyHex()}
	if err := protocol.Encode(conn, protocol.TypeRegister, c.Identity.ClientID, reg); err != nil {
		return fmt.Errorf("client: send register: %w", err)
	}
	env, err := protocol.Decode(conn)
	if err != nil {
		return fmt.Errorf("client: read registration ack: %w", err)
	}
	var ack protocol.RegistrationAck
	if err := protocol.DecodePayload(env, &ack); err != nil {
		return fmt.Errorf("client: decode registration ack: %w", err)
	}
	if !ack.Accepted {
		return fmt.Errorf("client: registration rejected: %s", ack.Reason)
	}
	log.Printf("[client %s] registered at epoch %d", c.Identity.ClientID, ack.Epoch)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.heartbeatLoop(connCtx, conn)

	c.queueOnce.Do(func() { c.trainingQueue = make(chan protocol.TrainingRequest, 16) })
	go c.trainingWorker(connCtx, conn)

	for {
		env, err := protocol.Decode(conn)
		if err != nil {
			return fmt.Errorf("client: decode: %w", err)
		}
		switch env.Type {
		case protocol.TypeTrainingRequest:
			var req protocol.TrainingRequest
			if err := protocol.DecodePayload(env, &req); err != nil {
				log.Printf("[client %s] malformed training_request: %v", c.Identity.ClientID, err)
				continue
			}
			// Enqueue rather than run inline: only one local mining task
			// runs at a time (§5); a request arriving mid-mine waits its
			// turn instead of racing the in-flight one.
			select {
			case c.trainingQueue <- req:
			default:
				log.Printf("[client %s] training queue full, dropping request for epoch %d", c.Identity.ClientID, req.Epoch)
			}
		case protocol.TypeHeartbeatAck:
			// no-op, the heartbeat goroutine doesn't wait for this reply
		default:
			log.Printf("[client %s] unexpected message type %s", c.Identity.ClientID, env.Type)
		}
	}
}

func (c *Client) heartbeatLoop(ctx context.Context, conn net.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hb := protocol.Heartbeat{ClientID: c.Identity.ClientID}
			if err := protocol.Encode(conn, protocol.TypeHeartbeat, c.Identity.ClientID, hb); err != nil {
				log.Printf("[client %s] heartbeat failed: %v", c.Identity.ClientID, err)
				return
			}
		}
	}
}

// trainingWorker drains trainingQueue one request at a time, so a training
// request that arrives while mining is already in progress waits rather
// than running concurrently with it.
func (c *Client) trainingWorker(ctx context.Context, conn net.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.trainingQueue:
			c.handleTrainingRequest(conn, req)
		}
	}
}

func (c *Client) handleTrainingRequest(conn net.Conn, req protocol.TrainingRequest) {
	start := time.Now()
	cfg := c.MiningCfg
	cfg.MinUtility = req.MinUtility

	result := mining.Run(cfg, c.Source)
	itemsets := toRecords(result)

	payload, err := json.Marshal(itemsets)
	if err != nil {
		log.Printf("[client %s] failed to marshal itemsets for signing: %v", c.Identity.ClientID, err)
		return
	}
	sig := base64.StdEncoding.EncodeToString(c.Identity.Sign(payload))

	res := protocol.TrainingResults{
		ClientID: c.Identity.ClientID,
		Epoch:    req.Epoch,
		Itemsets: itemsets,
		Statistics: protocol.ResultStats{
			TransactionsRead:  result.Stats.TransactionsRead,
			CandidatesEmitted: result.Prune.CandidatesEmitted,
			PrunedByTWU:       result.Prune.PrunedByTWU,
			PrunedByBound:     result.Prune.PrunedByBound,
			TimedOut:          result.Prune.TimedOut,
			Approximated:      result.Verify.Approximated,
			MiningMillis:      time.Since(start).Milliseconds(),
		},
		Signature:     sig,
		SignaturePubK: c.Identity.PublicKeyHex(),
	}

	if err := protocol.Encode(conn, protocol.TypeTrainingResults, c.Identity.ClientID, res); err != nil {
		log.Printf("[client %s] failed to send training_results: %v", c.Identity.ClientID, err)
	}
}

// toRecords converts a mining.Result's itemsets into the wire Record shape.
func toRecords(result mining.Result) []hui.Record {
	out := make([]hui.Record, len(result.HUIs))
	for i, h := range result.HUIs {
		out[i] = h.ToRecord()
	}
	return out
}
