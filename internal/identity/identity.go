// Package identity gives each federated client a signing keypair and a
// stable client ID, repurposing the teacher's Bitcoin primitives
// (btcec/chainhash/btcutil) as a generic signer rather than anything
// blockchain-specific (§2 Domain Stack).
package identity

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Identity holds one client's keypair. ClientID is derived from the public
// key so it's reproducible from the key alone and never needs a separate
// registry lookup.
type Identity struct {
	ClientID   string
	privateKey *btcec.PrivateKey
	PublicKey  *btcec.PublicKey
}

// Generate creates a fresh signing identity.
func Generate() (*Identity, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("identity: generate key: %w", err)
	}
	return fromPrivateKey(priv), nil
}

// FromPrivateKeyBytes reconstructs an identity from a serialized private
// key, for clients that persist their key across restarts.
func FromPrivateKeyBytes(b []byte) (*Identity, error) {
	if len(b) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("identity: expected %d private key bytes, got %d", btcec.PrivKeyBytesLen, len(b))
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return fromPrivateKey(priv), nil
}

func fromPrivateKey(priv *btcec.PrivateKey) *Identity {
	pub := priv.PubKey()
	return &Identity{
		ClientID:   deriveClientID(pub),
		privateKey: priv,
		PublicKey:  pub,
	}
}

// deriveClientID base58check-encodes the first 20 bytes of a double-SHA256
// of the compressed public key, giving a short, copy-pasteable, checksum-protected client
// identifier rather than a raw hex key.
func deriveClientID(pub *btcec.PublicKey) string {
	sum := chainhash.DoubleHashB(pub.SerializeCompressed())
	return base58.CheckEncode(sum[:20], 0x00)
}

// PrivateKeyBytes serializes the private key for persistence.
func (id *Identity) PrivateKeyBytes() []byte {
	return id.privateKey.Serialize()
}

// Sign signs payload's double-SHA256 digest and returns a DER-encoded
// signature, matching how training_results are authenticated on the wire
// (§4.I/J).
func (id *Identity) Sign(payload []byte) []byte {
	digest := chainhash.DoubleHashB(payload)
	sig := ecdsa.Sign(id.privateKey, digest)
	return sig.Serialize()
}

// PublicKeyHex returns the compressed public key as hex, for inclusion in a
// register message.
func (id *Identity) PublicKeyHex() string {
	return hex.EncodeToString(id.PublicKey.SerializeCompressed())
}

// Verify checks a DER signature against payload and a hex-encoded
// compressed public key.
func Verify(payload []byte, sigDER []byte, pubKeyHex string) (bool, error) {
	pubBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false, fmt.Errorf("identity: decode public key: %w", err)
	}
	pub, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		return false, fmt.Errorf("identity: parse public key: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(sigDER)
	if err != nil {
		return false, fmt.Errorf("identity: parse signature: %w", err)
	}
	digest := chainhash.DoubleHashB(payload)
	return sig.Verify(digest, pub), nil
}
