package protocol

import (
	"bytes"
	"testing"

	"github.com/rawblock/hui-federated/internal/hui"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := TrainingRequest{Epoch: 3, MinUtility: 15}
	if err := Encode(&buf, TypeTrainingRequest, "", req); err != nil {
		t.Fatalf("encode: %v", err)
	}

	env, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != TypeTrainingRequest {
		t.Fatalf("expected type %s, got %s", TypeTrainingRequest, env.Type)
	}

	var got TrainingRequest
	if err := DecodePayload(env, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got != req {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}
}

func TestEncodeDecodeTrainingResults(t *testing.T) {
	var buf bytes.Buffer
	res := TrainingResults{
		ClientID: "client-1",
		Epoch:    1,
		Itemsets: []hui.Record{{Items: []string{"1", "2"}, Utility: 42}},
		Statistics: ResultStats{
			TransactionsRead:  100,
			CandidatesEmitted: 20,
		},
	}
	if err := Encode(&buf, TypeTrainingResults, "client-1", res); err != nil {
		t.Fatalf("encode: %v", err)
	}

	env, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.ClientID != "client-1" {
		t.Fatalf("expected client_id to survive envelope round trip, got %q", env.ClientID)
	}

	var got TrainingResults
	if err := DecodePayload(env, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(got.Itemsets) != 1 || got.Itemsets[0].Utility != 42 {
		t.Fatalf("unexpected itemsets after round trip: %+v", got.Itemsets)
	}
}

func TestDecodeRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf.Write(header)
	if _, err := Decode(&buf); err == nil {
		t.Fatalf("expected an error for an oversized declared length")
	}
}

func TestMultipleFramesOnSharedStream(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, TypeHeartbeat, "c1", Heartbeat{ClientID: "c1"}); err != nil {
		t.Fatalf("encode first: %v", err)
	}
	if err := Encode(&buf, TypeHeartbeatAck, "", HeartbeatAck{}); err != nil {
		t.Fatalf("encode second: %v", err)
	}

	first, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if first.Type != TypeHeartbeat {
		t.Fatalf("expected first frame to be heartbeat, got %s", first.Type)
	}

	second, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if second.Type != TypeHeartbeatAck {
		t.Fatalf("expected second frame to be heartbeat_ack, got %s", second.Type)
	}
}
