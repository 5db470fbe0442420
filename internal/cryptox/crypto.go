// Package cryptox implements password hashing for stored credentials.
package cryptox

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// Params configures argon2id.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
	SaltLen   int
}

// DefaultParams are the production parameters: one pass over 64 MiB with
// four lanes, producing a 32-byte digest from a 16-byte salt.
func DefaultParams() Params {
	return Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

// ErrEmptyPassword is returned by Hash for zero-length input.
var ErrEmptyPassword = errors.New("empty password")

// Hasher salts and hashes passwords with argon2id. It holds no mutable
// state and is safe for concurrent use.
type Hasher struct {
	p Params
}

// NewHasher validates p and returns a Hasher.
func NewHasher(p Params) (*Hasher, error) {
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 || p.KeyLen == 0 || p.SaltLen <= 0 {
		return nil, fmt.Errorf("invalid argon2 params: %+v", p)
	}
	return &Hasher{p: p}, nil
}

// Hash derives a digest for password using a fresh random salt.
func (h *Hasher) Hash(password []byte) (hash, salt []byte, err error) {
	if len(password) == 0 {
		return nil, nil, ErrEmptyPassword
	}
	salt, err = common.GenerateRandByteArray(h.p.SaltLen)
	if err != nil {
		return nil, nil, fmt.Errorf("salt: %w", err)
	}
	return h.derive(password, salt), salt, nil
}

// Verify recomputes the digest for password and salt and compares it with
// hash in constant time.
func (h *Hasher) Verify(password, hash, salt []byte) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(h.derive(password, salt), hash) == 1
}

func (h *Hasher) derive(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, h.p.Time, h.p.MemoryKiB, h.p.Threads, h.p.KeyLen)
}
