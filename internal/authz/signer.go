package authz

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"time"

	"github.com/remoteled/platform/internal/domain"
)

var (
	ErrNoPrivateKey         = errors.New("no private key configured")
	ErrInvalidKey           = errors.New("invalid key type, expected ECDSA P-256")
	ErrSignatureFailed      = errors.New("signature generation failed")
	ErrSignatureInvalid     = errors.New("signature invalid")
	ErrAuthorizationExpired = errors.New("authorization expired")
)

// Signer signs authorization payloads using ECDSA P-256 with RFC 6979 nonces,
// so the same payload and key always produce the same signature.
type Signer struct {
	privateKey *ecdsa.PrivateKey
}

// NewSigner creates a signer from an existing ECDSA P-256 private key.
func NewSigner(key *ecdsa.PrivateKey) (*Signer, error) {
	if key == nil {
		return nil, ErrNoPrivateKey
	}
	if key.Curve != elliptic.P256() {
		return nil, ErrInvalidKey
	}
	return &Signer{privateKey: key}, nil
}

// Sign returns the hex-encoded DER signature over the canonical payload.
func (s *Signer) Sign(p domain.AuthorizationPayload) (string, error) {
	sig, err := s.signMessage(SigningMessage(p))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

func (s *Signer) signMessage(message []byte) ([]byte, error) {
	if s.privateKey == nil {
		return nil, ErrNoPrivateKey
	}
	digest := sha256.Sum256(message)
	// A nil random source selects deterministic signing.
	sig, err := s.privateKey.Sign(nil, digest[:], crypto.SHA256)
	if err != nil {
		return nil, ErrSignatureFailed
	}
	return sig, nil
}

// PublicKey returns the verification half of the key pair.
func (s *Signer) PublicKey() *ecdsa.PublicKey {
	return &s.privateKey.PublicKey
}

// PublicKeyPEM returns the PEM-encoded SPKI public key for out-of-band distribution.
func (s *Signer) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(s.PublicKey())
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// Verifier checks authorization signatures and expiry.
type Verifier struct {
	publicKey *ecdsa.PublicKey
}

// NewVerifier creates a verifier from an ECDSA P-256 public key.
func NewVerifier(pub *ecdsa.PublicKey) (*Verifier, error) {
	if pub == nil || pub.Curve != elliptic.P256() {
		return nil, ErrInvalidKey
	}
	return &Verifier{publicKey: pub}, nil
}

// NewVerifierFromPEM creates a verifier from a PEM-encoded SPKI public key.
func NewVerifierFromPEM(data []byte) (*Verifier, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidKey
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrInvalidKey
	}
	return NewVerifier(ecdsaPub)
}

// Verify checks signatureHex against the canonical form of p and rejects the
// payload once now has reached its expiry, even if the signature is valid.
func (v *Verifier) Verify(p domain.AuthorizationPayload, signatureHex string, now time.Time) error {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) == 0 {
		return ErrSignatureInvalid
	}
	digest := sha256.Sum256(SigningMessage(p))
	if !ecdsa.VerifyASN1(v.publicKey, digest[:], sig) {
		return ErrSignatureInvalid
	}
	if now.Unix() >= p.Exp {
		return ErrAuthorizationExpired
	}
	return nil
}
