package phi

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func generateTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	return key
}

func TestNewEncryptor_KeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 64} {
		if _, err := NewEncryptor(make([]byte, n)); err == nil {
			t.Errorf("expected error for %d-byte key", n)
		}
	}
	if _, err := NewEncryptor(generateTestKey(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSealOpen(t *testing.T) {
	enc, err := NewEncryptor(generateTestKey(t))
	if err != nil {
		t.Fatalf("create encryptor: %v", err)
	}

	payload := []byte(`{"overall_risk_level":"HIGH"}`)
	sid := []byte("session-1")

	sealed, err := enc.Seal(payload, sid)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, payload) {
		t.Fatal("sealed output contains plaintext")
	}

	got, err := enc.Open(sealed, sid)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestSeal_UniqueNonce(t *testing.T) {
	enc, _ := NewEncryptor(generateTestKey(t))
	a, _ := enc.Seal([]byte("same"), nil)
	b, _ := enc.Seal([]byte("same"), nil)
	if bytes.Equal(a, b) {
		t.Error("expected distinct ciphertexts for identical input")
	}
}

func TestOpen_WrongAssociatedData(t *testing.T) {
	enc, _ := NewEncryptor(generateTestKey(t))
	sealed, _ := enc.Seal([]byte("data"), []byte("session-1"))
	if _, err := enc.Open(sealed, []byte("session-2")); err == nil {
		t.Error("expected error when associated data differs")
	}
}

func TestOpen_WrongKey(t *testing.T) {
	a, _ := NewEncryptor(generateTestKey(t))
	b, _ := NewEncryptor(generateTestKey(t))
	sealed, _ := a.Seal([]byte("data"), nil)
	if _, err := b.Open(sealed, nil); err == nil {
		t.Error("expected error when opening with a different key")
	}
}

func TestOpen_Short(t *testing.T) {
	enc, _ := NewEncryptor(generateTestKey(t))
	if _, err := enc.Open([]byte{1, 2, 3}, nil); !errors.Is(err, ErrShortCiphertext) {
		t.Errorf("expected ErrShortCiphertext, got %v", err)
	}
}

func TestOpen_Tampered(t *testing.T) {
	enc, _ := NewEncryptor(generateTestKey(t))
	sealed, _ := enc.Seal([]byte("data"), nil)
	sealed[len(sealed)-1] ^= 0xff
	if _, err := enc.Open(sealed, nil); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}
