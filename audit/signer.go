package audit

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"

	"go.vocdoni.io/dvote/log"
)

// NoKeySignature is written instead of a signature when no private key is
// configured. The verifier treats such entries as invalid.
const NoKeySignature = "NO_KEY"

// HashHex returns the SHA-256 digest of s as 64 lowercase hex characters.
func HashHex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Signer signs ledger entry hashes with a process-wide RSA private key
// loaded once at startup. Callers share it lock-free.
type Signer struct {
	key *rsa.PrivateKey
}

// NewSigner loads the PEM RSA private key from path, falling back to
// fallbackPath if path is empty or missing. A Signer without a key is
// valid; it signs everything with NoKeySignature.
func NewSigner(path, fallbackPath string) (*Signer, error) {
	for _, p := range []string{path, fallbackPath} {
		if p == "" {
			continue
		}
		raw, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read signing key %s: %w", p, err)
		}
		key, err := parsePrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("cannot parse signing key %s: %w", p, err)
		}
		log.Infof("audit ledger signing key loaded from %s", p)
		return &Signer{key: key}, nil
	}
	log.Warn("no audit signing key configured, ledger entries will be unsigned")
	return &Signer{}, nil
}

// NewSignerFromKey wraps an already parsed key, used by tests.
func NewSignerFromKey(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// HasKey reports whether a private key is loaded.
func (s *Signer) HasKey() bool {
	return s.key != nil
}

// Sign produces the hex RSA-SHA256 signature of the given hex digest string.
// The digest string itself is the signed message, matching the verifier.
func (s *Signer) Sign(hexDigest string) string {
	if s.key == nil {
		return NoKeySignature
	}
	digest := sha256.Sum256([]byte(hexDigest))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		log.Errorf("cannot sign audit entry hash: %v", err)
		return NoKeySignature
	}
	return hex.EncodeToString(sig)
}

// PublicKeyPEM returns the PEM encoding of the signer's public key.
func (s *Signer) PublicKeyPEM() ([]byte, error) {
	if s.key == nil {
		return nil, fmt.Errorf("no signing key loaded")
	}
	der, err := x509.MarshalPKIXPublicKey(&s.key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// Verify checks sigHex against the hex digest string under the PEM public
// key. Any parse failure or the NoKeySignature marker yields false.
func Verify(hexDigest, sigHex string, publicKeyPEM []byte) bool {
	if sigHex == NoKeySignature {
		return false
	}
	pub, err := parsePublicKey(publicKeyPEM)
	if err != nil {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(hexDigest))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}

func parsePrivateKey(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return key, nil
}

func parsePublicKey(raw []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if pub, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return pub, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return pub, nil
}
