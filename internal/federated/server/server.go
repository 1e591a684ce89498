// Package server implements the federated coordination server: a TCP accept
// loop, a client registry, and a ticker-driven round state machine that
// samples clients, pushes training requests, polls for results with a
// timeout, aggregates, optionally perturbs with differential privacy, and
// persists the global result — all grounded on the teacher's
// internal/mempool/poller.go ticker-and-bounded-work pattern (§4.I).
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rawblock/hui-federated/internal/dbstore"
	"github.com/rawblock/hui-federated/internal/federated/admin"
	"github.com/rawblock/hui-federated/internal/federated/aggregator"
	"github.com/rawblock/hui-federated/internal/federated/protocol"
	"github.com/rawblock/hui-federated/internal/hui"
	"github.com/rawblock/hui-federated/internal/identity"
	"github.com/rawblock/hui-federated/internal/privacy"
)

// Config bundles the round state machine's tunables (§6).
type Config struct {
	ListenAddr        string
	MinClients        int
	SamplingRate      float64
	RoundTimeout      time.Duration
	HeartbeatTTL      time.Duration
	Aggregation       aggregator.Policy
	MinUtility        int64
	Epsilon           float64
	Sensitivity       float64
	ResultsDir        string
}

// Server coordinates federated rounds over plain TCP connections framed by
// the protocol package.
type Server struct {
	cfg      Config
	registry *Registry
	db       *dbstore.Store
	budget   *privacy.BudgetTracker

	mu          sync.Mutex
	epoch       int64
	phase       Phase
	pending     map[string]protocol.TrainingResults
	sampled     []string
	lastMetrics admin.RoundMetrics
	haveMetrics bool

	hub *admin.Hub
}

// New builds a Server. db may be nil if persistence isn't configured; hub
// may be nil if the admin surface isn't running.
func New(cfg Config, db *dbstore.Store, hub *admin.Hub) *Server {
	return &Server{
		cfg:      cfg,
		registry: NewRegistry(cfg.HeartbeatTTL),
		db:       db,
		budget:   &privacy.BudgetTracker{},
		phase:    PhaseAwaitingMinimumClients,
		pending:  make(map[string]protocol.TrainingResults),
		hub:      hub,
	}
}

// Run starts the TCP accept loop and the round orchestrator, blocking until
// ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	defer ln.Close()
	log.Printf("[server] federated coordinator listening on %s", s.cfg.ListenAddr)

	go s.acceptLoop(ctx, ln)
	s.orchestrate(ctx)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("[server] accept error: %v", err)
				continue
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	var clientID string
	defer func() {
		if clientID != "" {
			s.registry.Remove(clientID)
		}
		conn.Close()
	}()

	for {
		env, err := protocol.Decode(conn)
		if err != nil {
			return
		}

		switch env.Type {
		case protocol.TypeRegister:
			var reg protocol.Register
			if err := protocol.DecodePayload(env, &reg); err != nil {
				log.Printf("[server] malformed register: %v", err)
				return
			}
			if reg.ClientID == "" {
				reg.ClientID = uuid.NewString()
			}
			clientID = reg.ClientID
			s.registry.Register(reg.ClientID, reg.PublicKey, conn)
			ack := protocol.RegistrationAck{Accepted: true, Epoch: s.currentEpoch(), ClientID: reg.ClientID}
			if err := protocol.Encode(conn, protocol.TypeRegistrationAck, "", ack); err != nil {
				log.Printf("[server] failed to ack registration: %v", err)
				return
			}
			log.Printf("[server] client %s registered", reg.ClientID)

		case protocol.TypeHeartbeat:
			var hb protocol.Heartbeat
			if err := protocol.DecodePayload(env, &hb); err != nil {
				continue
			}
			s.registry.Heartbeat(hb.ClientID)
			_ = protocol.Encode(conn, protocol.TypeHeartbeatAck, "", protocol.HeartbeatAck{})

		case protocol.TypeTrainingResults:
			var res protocol.TrainingResults
			if err := protocol.DecodePayload(env, &res); err != nil {
				log.Printf("[server] malformed training_results: %v", err)
				continue
			}
			s.acceptResults(res)

		default:
			log.Printf("[server] unexpected message type %s", env.Type)
		}
	}
}

func (s *Server) currentEpoch() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Server) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	s.broadcastEvent(p)
}

func (s *Server) broadcastEvent(p Phase) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{"type": "round_phase", "phase": p, "epoch": s.currentEpoch()})
	if err != nil {
		return
	}
	s.hub.Broadcast(payload)
}

// acceptResults records one client's training_results for the round
// currently being polled, verifying its signature when the client
// registered a public key.
func (s *Server) acceptResults(res protocol.TrainingResults) {
	if pub, ok := s.registry.publicKey(res.ClientID); ok && pub != "" {
		if res.Signature == "" {
			log.Printf("[server] rejecting training_results from %s: missing signature", res.ClientID)
			return
		}
		sigBytes, err := base64.StdEncoding.DecodeString(res.Signature)
		if err != nil {
			log.Printf("[server] rejecting training_results from %s: malformed signature: %v", res.ClientID, err)
			return
		}
		payload, _ := json.Marshal(res.Itemsets)
		verified, err := identity.Verify(payload, sigBytes, pub)
		if err != nil || !verified {
			log.Printf("[server] rejecting training_results from %s: signature verification failed", res.ClientID)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Epoch != s.epoch {
		return
	}
	s.pending[res.ClientID] = res
}

// orchestrate drives the round state machine on a fixed tick, the same
// bounded-work-per-tick pattern the teacher's mempool poller uses.
func (s *Server) orchestrate(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	cleanup := time.NewTicker(s.cfg.HeartbeatTTL)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			s.registry.Purge()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Server) tick(ctx context.Context) {
	if s.registry.ActiveCount() < s.cfg.MinClients {
		s.setPhase(PhaseAwaitingMinimumClients)
		return
	}
	s.runRound(ctx)
}

// runRound executes one full sample→dispatch→poll→aggregate→persist cycle.
func (s *Server) runRound(ctx context.Context) {
	s.setPhase(PhaseSampling)
	active := s.registry.ActiveClients()
	sampled := sampleClients(active, s.cfg.SamplingRate)

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.sampled = sampled
	s.pending = make(map[string]protocol.TrainingResults)
	s.mu.Unlock()

	log.Printf("[server] round %d: sampled %d of %d active clients", epoch, len(sampled), len(active))

	s.setPhase(PhaseDispatching)
	req := protocol.TrainingRequest{Epoch: epoch, MinUtility: s.cfg.MinUtility}
	for _, id := range sampled {
		if err := s.registry.pushTrainingRequest(id, req); err != nil {
			log.Printf("[server] round %d: failed to dispatch to %s: %v", epoch, id, err)
		}
	}

	s.setPhase(PhasePolling)
	deadline := time.Now().Add(s.cfg.RoundTimeout)
	pollTicker := time.NewTicker(500 * time.Millisecond)
	defer pollTicker.Stop()
	for time.Now().Before(deadline) {
		if s.respondedCount(sampled) == len(sampled) {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-pollTicker.C:
		}
	}

	s.setPhase(PhaseAggregating)
	contributions := s.collectContributions()
	result := aggregator.Aggregate(contributions, s.cfg.Aggregation, s.cfg.MinUtility)

	global := result.Global
	cumulativeEpsilon := s.budget.Cumulative
	if s.cfg.Epsilon > 0 {
		mech := privacy.NewMechanism(s.cfg.Epsilon, s.cfg.Sensitivity, nil)
		global = mech.PerturbAll(global, s.cfg.MinUtility)
		cumulativeEpsilon = s.budget.Spend(s.cfg.Epsilon)
	}

	s.setPhase(PhasePersisting)
	if err := s.persist(ctx, epoch, result, global, cumulativeEpsilon); err != nil {
		log.Printf("[server] round %d: persist failed: %v", epoch, err)
	}

	s.mu.Lock()
	s.lastMetrics = admin.RoundMetrics{
		Epoch:              epoch,
		ParticipatingCount: result.ParticipatingCount,
		CommBytes:          result.CommBytes,
		GlobalHUICount:     len(global),
		TopHUIs:            topRecords(global, 10),
	}
	s.haveMetrics = true
	s.mu.Unlock()

	log.Printf("[server] round %d complete: %d clients, %d global HUIs, %d comm bytes",
		epoch, result.ParticipatingCount, len(global), result.CommBytes)
}

func (s *Server) respondedCount(sampled []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range sampled {
		if _, ok := s.pending[id]; ok {
			n++
		}
	}
	return n
}

func (s *Server) collectContributions() []aggregator.ClientContribution {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]aggregator.ClientContribution, 0, len(s.pending))
	for id, res := range s.pending {
		sets := make([]hui.Itemset, 0, len(res.Itemsets))
		for _, rec := range res.Itemsets {
			names := make([]hui.ItemName, len(rec.Items))
			for i, raw := range rec.Items {
				names[i] = hui.StringName(raw)
			}
			set, err := hui.NewItemset(names, rec.Utility)
			if err != nil {
				continue
			}
			sets = append(sets, set)
		}
		out = append(out, aggregator.ClientContribution{ClientID: id, Itemsets: sets})
	}
	return out
}

// persist writes the round's global HUIs and metrics to JSON files on disk
// (when ResultsDir is set) and to the database (when configured), matching
// the spec's documented file-naming scheme.
func (s *Server) persist(ctx context.Context, epoch int64, result aggregator.Result, global []hui.Itemset, cumulativeEpsilon float64) error {
	if s.cfg.ResultsDir != "" {
		if err := os.MkdirAll(s.cfg.ResultsDir, 0o755); err != nil {
			return fmt.Errorf("server: create results dir: %w", err)
		}
		records := make([]hui.Record, len(global))
		for i, g := range global {
			records[i] = g.ToRecord()
		}
		resultsPath := filepath.Join(s.cfg.ResultsDir, fmt.Sprintf("federated_results_%d.json", epoch))
		if err := writeJSON(resultsPath, records); err != nil {
			return err
		}
		metricsPath := filepath.Join(s.cfg.ResultsDir, fmt.Sprintf("federated_metrics_%d.json", epoch))
		metrics := map[string]any{
			"epoch":               epoch,
			"participating_count": result.ParticipatingCount,
			"comm_bytes":          result.CommBytes,
			"cumulative_epsilon":  cumulativeEpsilon,
		}
		if err := writeJSON(metricsPath, metrics); err != nil {
			return err
		}
	}

	if s.db != nil {
		if err := s.db.SaveRound(ctx, epoch, result.ParticipatingCount, result.CommBytes, cumulativeEpsilon, global); err != nil {
			return fmt.Errorf("server: db save round: %w", err)
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("server: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("server: write %s: %w", path, err)
	}
	return nil
}

func topRecords(sets []hui.Itemset, n int) []hui.Record {
	if n > len(sets) {
		n = len(sets)
	}
	out := make([]hui.Record, n)
	for i := 0; i < n; i++ {
		out[i] = sets[i].ToRecord()
	}
	return out
}

// CurrentStatus implements admin.StatusProvider.
func (s *Server) CurrentStatus() admin.RoundStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return admin.RoundStatus{
		Epoch:             s.epoch,
		Phase:             string(s.phase),
		ActiveClients:     s.registry.ActiveCount(),
		SampledClients:    len(s.sampled),
		RespondedClients:  len(s.pending),
		CumulativeEpsilon: s.budget.Cumulative,
	}
}

// LastMetrics implements admin.StatusProvider.
func (s *Server) LastMetrics() (admin.RoundMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMetrics, s.haveMetrics
}
