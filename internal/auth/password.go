package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm names a one-way password hash.
type Algorithm string

const (
	Bcrypt   Algorithm = "bcrypt"
	Argon2id Algorithm = "argon2id"
)

// CredentialKind distinguishes hashed credentials from rows written before
// passwords were hashed.
type CredentialKind int

const (
	Hashed CredentialKind = iota
	LegacyPlaintext
)

func (k CredentialKind) String() string {
	if k == LegacyPlaintext {
		return "legacy-plaintext"
	}
	return "hashed"
}

// Credential is the parsed form of the users.password column.
type Credential struct {
	Kind      CredentialKind
	Algorithm Algorithm // empty for LegacyPlaintext
	Value     string
}

// ParseCredential classifies a stored password by its hash prefix. Anything
// without a recognised prefix is legacy plaintext.
func ParseCredential(stored string) Credential {
	switch {
	case strings.HasPrefix(stored, "$2a$"),
		strings.HasPrefix(stored, "$2b$"),
		strings.HasPrefix(stored, "$2y$"):
		return Credential{Kind: Hashed, Algorithm: Bcrypt, Value: stored}
	case strings.HasPrefix(stored, "$argon2id$"):
		return Credential{Kind: Hashed, Algorithm: Argon2id, Value: stored}
	default:
		return Credential{Kind: LegacyPlaintext, Value: stored}
	}
}

// Verify compares password against the credential. A mismatch is reported as
// (false, nil); err is only set for malformed hashes.
func (c Credential) Verify(password string) (bool, error) {
	switch {
	case c.Kind == LegacyPlaintext:
		return subtle.ConstantTimeCompare([]byte(c.Value), []byte(password)) == 1, nil
	case c.Algorithm == Bcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(c.Value), bcryptInput(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("compare bcrypt hash: %w", err)
		}
		return true, nil
	case c.Algorithm == Argon2id:
		match, _, err := argon2id.CheckHash(password, c.Value)
		if err != nil {
			return false, fmt.Errorf("compare argon2id hash: %w", err)
		}
		return match, nil
	default:
		return false, fmt.Errorf("unsupported hash algorithm %q", c.Algorithm)
	}
}

// Hasher produces salted hashes with a single configured algorithm.
type Hasher struct {
	alg Algorithm
}

func NewHasher(alg string) (*Hasher, error) {
	switch Algorithm(alg) {
	case Bcrypt, Argon2id:
		return &Hasher{alg: Algorithm(alg)}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", alg)
	}
}

func (h *Hasher) Algorithm() Algorithm { return h.alg }

func (h *Hasher) Hash(password string) (string, error) {
	if h.alg == Argon2id {
		hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
		if err != nil {
			return "", fmt.Errorf("create argon2id hash: %w", err)
		}
		return hash, nil
	}
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("create bcrypt hash: %w", err)
	}
	return string(hash), nil
}

// bcryptMaxInput is the longest password bcrypt accepts.
const bcryptMaxInput = 72

// bcryptInput returns password unchanged when bcrypt can take it, and the
// base64 SHA-256 digest of it otherwise. Passwords within the limit keep
// verifying against hashes written before long passwords were supported.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
