package identity

import "testing"

func TestGenerateProducesStableClientID(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	reloaded, err := FromPrivateKeyBytes(id.PrivateKeyBytes())
	if err != nil {
		t.Fatalf("FromPrivateKeyBytes: %v", err)
	}
	if reloaded.ClientID != id.ClientID {
		t.Fatalf("expected reloaded identity to keep client ID %s, got %s", id.ClientID, reloaded.ClientID)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	payload := []byte(`{"epoch":1,"itemsets":[]}`)
	sig := id.Sign(payload)

	ok, err := Verify(payload, sig, id.PublicKeyHex())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	sig := id.Sign([]byte("original"))

	ok, err := Verify([]byte("tampered"), sig, id.PublicKeyHex())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("expected signature verification to fail for tampered payload")
	}
}

func TestDistinctIdentitiesHaveDistinctClientIDs(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate a: %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate b: %v", err)
	}
	if a.ClientID == b.ClientID {
		t.Fatalf("expected distinct client IDs, both were %s", a.ClientID)
	}
}
