package server

import "testing"

func TestSampleClientsCeilsSamplingRate(t *testing.T) {
	active := []string{"a", "b", "c", "d", "e"}
	got := sampleClients(active, 0.5)
	if len(got) != 3 {
		t.Fatalf("expected ceil(0.5*5)=3 clients, got %d", len(got))
	}
}

func TestSampleClientsFullRateReturnsAll(t *testing.T) {
	active := []string{"a", "b", "c"}
	got := sampleClients(active, 1.0)
	if len(got) != 3 {
		t.Fatalf("expected all 3 clients sampled, got %d", len(got))
	}
}

func TestSampleClientsIsDeterministic(t *testing.T) {
	active := []string{"c", "a", "b"}
	first := sampleClients(active, 0.34)
	second := sampleClients(active, 0.34)
	if len(first) != len(second) {
		t.Fatalf("expected deterministic sample size")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected deterministic sample order, got %v and %v", first, second)
		}
	}
}

func TestSampleClientsEmptyActive(t *testing.T) {
	got := sampleClients(nil, 0.5)
	if len(got) != 0 {
		t.Fatalf("expected no clients sampled from an empty active set")
	}
}
