package authz

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/remoteled/platform/internal/domain"
)

func newTestSigner(t *testing.T) (*Signer, *Verifier) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := NewSigner(key)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	verifier, err := NewVerifier(signer.PublicKey())
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return signer, verifier
}

func samplePayload(exp time.Time) domain.AuthorizationPayload {
	return domain.AuthorizationPayload{
		DeviceID:    "dev-1",
		OrderID:     "order-1",
		ServiceType: domain.ServiceTypeFixed,
		Seconds:     300,
		Nonce:       "0123456789abcdef",
		Exp:         exp.Unix(),
	}
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	got := Canonicalize(map[string]string{"b": "2", "a": "1", "c": "x=y"})
	if got != "a=1&b=2&c=x=y" {
		t.Fatalf("unexpected canonical form %q", got)
	}

	p := samplePayload(time.Unix(1700000300, 0))
	want := "deviceId=dev-1&exp=1700000300&nonce=0123456789abcdef&orderId=order-1&seconds=300&type=FIXED"
	if got := CanonicalString(p); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if msg := string(SigningMessage(p)); msg != DomainPrefix+want {
		t.Fatalf("unexpected signing message %q", msg)
	}
}

func TestParsePayload_KeyOrderIndependent(t *testing.T) {
	t.Parallel()

	a := []byte(`{"deviceId":"dev-1","orderId":"order-1","type":"FIXED","seconds":300,"nonce":"0123456789abcdef","exp":1700000300}`)
	b := []byte(`{"exp":1700000300,"nonce":"0123456789abcdef","type":"FIXED","seconds":300,"orderId":"order-1","deviceId":"dev-1"}`)

	pa, err := ParsePayload(a)
	if err != nil {
		t.Fatalf("parse a: %v", err)
	}
	pb, err := ParsePayload(b)
	if err != nil {
		t.Fatalf("parse b: %v", err)
	}
	if CanonicalString(pa) != CanonicalString(pb) {
		t.Fatalf("expected identical canonical forms, got %q and %q", CanonicalString(pa), CanonicalString(pb))
	}

	signer, _ := newTestSigner(t)
	sigA, err := signer.Sign(pa)
	if err != nil {
		t.Fatalf("sign a: %v", err)
	}
	sigB, err := signer.Sign(pb)
	if err != nil {
		t.Fatalf("sign b: %v", err)
	}
	if sigA != sigB {
		t.Fatalf("expected identical signatures for equivalent payloads")
	}
}

func TestParsePayload_MissingField(t *testing.T) {
	t.Parallel()

	cases := []string{
		`not json`,
		`{"deviceId":"dev-1","orderId":"order-1","type":"FIXED","seconds":300,"nonce":"n"}`,
		`{"orderId":"order-1","type":"FIXED","seconds":300,"nonce":"n","exp":1}`,
	}
	for _, tc := range cases {
		if _, err := ParsePayload([]byte(tc)); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload for %q, got %v", tc, err)
		}
	}
}

func TestSigner_SignAndVerify(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	signer, verifier := newTestSigner(t)

	t.Run("valid signature within window", func(t *testing.T) {
		p := samplePayload(now.Add(5 * time.Minute))
		sig, err := signer.Sign(p)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if sig != strings.ToLower(sig) {
			t.Fatalf("expected lowercase hex signature")
		}
		if err := verifier.Verify(p, sig, now); err != nil {
			t.Fatalf("expected valid signature, got %v", err)
		}
	})

	t.Run("tampered field is rejected", func(t *testing.T) {
		p := samplePayload(now.Add(5 * time.Minute))
		sig, err := signer.Sign(p)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		p.Seconds = 3000
		if err := verifier.Verify(p, sig, now); !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("expected ErrSignatureInvalid, got %v", err)
		}
	})

	t.Run("non canonical serialization is rejected", func(t *testing.T) {
		p := samplePayload(now.Add(5 * time.Minute))
		scrambled := DomainPrefix + "type=FIXED&seconds=300&orderId=order-1&nonce=0123456789abcdef&exp=" +
			"1740830700&deviceId=dev-1"
		raw, err := signer.signMessage([]byte(scrambled))
		if err != nil {
			t.Fatalf("sign scrambled: %v", err)
		}
		if err := verifier.Verify(p, hex.EncodeToString(raw), now); !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("expected ErrSignatureInvalid, got %v", err)
		}
	})

	t.Run("bad hex is rejected", func(t *testing.T) {
		p := samplePayload(now.Add(5 * time.Minute))
		for _, sig := range []string{"", "zz", "abcd"} {
			if err := verifier.Verify(p, sig, now); !errors.Is(err, ErrSignatureInvalid) {
				t.Fatalf("expected ErrSignatureInvalid for %q, got %v", sig, err)
			}
		}
	})

	t.Run("expired payload is rejected with a valid signature", func(t *testing.T) {
		p := samplePayload(now.Add(5 * time.Minute))
		sig, err := signer.Sign(p)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if err := verifier.Verify(p, sig, now.Add(5*time.Minute)); !errors.Is(err, ErrAuthorizationExpired) {
			t.Fatalf("expected ErrAuthorizationExpired at exp, got %v", err)
		}
		if err := verifier.Verify(p, sig, now.Add(5*time.Minute-time.Second)); err != nil {
			t.Fatalf("expected valid one second before exp, got %v", err)
		}
	})

	t.Run("other key is rejected", func(t *testing.T) {
		p := samplePayload(now.Add(5 * time.Minute))
		sig, err := signer.Sign(p)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		_, otherVerifier := newTestSigner(t)
		if err := otherVerifier.Verify(p, sig, now); !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("expected ErrSignatureInvalid, got %v", err)
		}
	})
}

func TestVerifierFromPEM(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t)
	pemBytes, err := signer.PublicKeyPEM()
	if err != nil {
		t.Fatalf("public key pem: %v", err)
	}
	verifier, err := NewVerifierFromPEM(pemBytes)
	if err != nil {
		t.Fatalf("verifier from pem: %v", err)
	}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := samplePayload(now.Add(time.Minute))
	sig, err := signer.Sign(p)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := verifier.Verify(p, sig, now); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}

	if _, err := NewVerifierFromPEM([]byte("garbage")); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestNewSigner_RejectsOtherCurves(t *testing.T) {
	t.Parallel()

	if _, err := NewSigner(nil); !errors.Is(err, ErrNoPrivateKey) {
		t.Fatalf("expected ErrNoPrivateKey, got %v", err)
	}
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if _, err := NewSigner(key); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestNewNonce(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n, err := NewNonce()
		if err != nil {
			t.Fatalf("nonce: %v", err)
		}
		if len(n) != 2*NonceBytes || len(n) < 12 {
			t.Fatalf("unexpected nonce length %d", len(n))
		}
		if _, err := hex.DecodeString(n); err != nil || n != strings.ToLower(n) {
			t.Fatalf("expected lowercase hex nonce, got %q", n)
		}
		if seen[n] {
			t.Fatalf("duplicate nonce %q", n)
		}
		seen[n] = true
	}
}
