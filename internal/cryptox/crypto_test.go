package cryptox

import (
	"bytes"
	"errors"
	"testing"
)

// small parameters keep the suite fast; the algorithm is the same.
func testHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(Params{Time: 1, MemoryKiB: 64, Threads: 1, KeyLen: 32, SaltLen: 16})
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	return h
}

func TestHash_VerifyRoundTrip(t *testing.T) {
	h := testHasher(t)

	hash, salt, err := h.Hash([]byte("secret-password"))
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if len(hash) != 32 || len(salt) != 16 {
		t.Fatalf("unexpected lengths: hash=%d salt=%d", len(hash), len(salt))
	}
	if !h.Verify([]byte("secret-password"), hash, salt) {
		t.Errorf("expected password to verify")
	}
	if h.Verify([]byte("secret-passwore"), hash, salt) {
		t.Errorf("expected wrong password to fail")
	}
}

func TestHash_FreshSaltPerCall(t *testing.T) {
	h := testHasher(t)

	hash1, salt1, _ := h.Hash([]byte("pw"))
	hash2, salt2, _ := h.Hash([]byte("pw"))

	// одинаковый пароль, разные соли -> разные хеши
	if bytes.Equal(salt1, salt2) {
		t.Errorf("expected different salts")
	}
	if bytes.Equal(hash1, hash2) {
		t.Errorf("expected different hashes for different salts")
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	h := testHasher(t)
	if _, _, err := h.Hash(nil); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("want ErrEmptyPassword, got %v", err)
	}
}

func TestVerify_MissingStoredValues(t *testing.T) {
	h := testHasher(t)
	if h.Verify([]byte("pw"), nil, []byte("salt")) {
		t.Errorf("nil hash must not verify")
	}
	if h.Verify([]byte("pw"), []byte("hash"), nil) {
		t.Errorf("nil salt must not verify")
	}
}

func TestVerify_WrongSalt(t *testing.T) {
	h := testHasher(t)
	hash, _, _ := h.Hash([]byte("pw"))
	if h.Verify([]byte("pw"), hash, []byte("other-salt-value")) {
		t.Errorf("expected mismatch with a different salt")
	}
}

func TestDerive_Deterministic(t *testing.T) {
	h, err := NewHasher(DefaultParams())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	a := h.derive([]byte("secret-password"), []byte("fixed-salt"))
	b := h.derive([]byte("secret-password"), []byte("fixed-salt"))
	if !bytes.Equal(a, b) {
		t.Errorf("expected same result for same inputs, got different")
	}
}

func TestNewHasher_RejectsZeroParams(t *testing.T) {
	if _, err := NewHasher(Params{}); err == nil {
		t.Fatalf("expected error for zero params")
	}
}
