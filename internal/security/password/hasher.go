// Package password hashes passwords with argon2id and scores their strength.
package password

import (
	"github.com/5w1tchy/book-reviews/internal/config"
	"github.com/alexedwards/argon2id"
)

const (
	saltLength = 16
	keyLength  = 32
)

// Hasher produces PHC strings like `$argon2id$v=19$m=131072,t=3,p=1$...`.
type Hasher struct {
	params argon2id.Params
}

func NewHasher(cfg config.Argon2Config) *Hasher {
	return &Hasher{params: argon2id.Params{
		Memory:      cfg.Memory,
		Iterations:  cfg.Iterations,
		Parallelism: cfg.Parallelism,
		SaltLength:  saltLength,
		KeyLength:   keyLength,
	}}
}

func (h *Hasher) Hash(plain string) (string, error) {
	return argon2id.CreateHash(plain, &h.params)
}

// Verify checks plain against phc and reports whether phc was made with
// weaker parameters than the current policy.
func (h *Hasher) Verify(plain, phc string) (ok bool, needsRehash bool, err error) {
	ok, err = argon2id.ComparePasswordAndHash(plain, phc)
	if err != nil || !ok {
		return ok, false, err
	}
	return ok, h.NeedsRehash(phc), nil
}

func (h *Hasher) NeedsRehash(phc string) bool {
	stored, _, _, err := argon2id.DecodeHash(phc)
	if err != nil {
		return true
	}
	p := h.params
	return stored.Memory < p.Memory ||
		stored.Iterations < p.Iterations ||
		stored.Parallelism < p.Parallelism ||
		stored.SaltLength < p.SaltLength ||
		stored.KeyLength < p.KeyLength
}
