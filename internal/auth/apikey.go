// Package auth implements API key authentication for the MeetPoint API.
// Keys look like "mk_live_<prefix><secret>": the prefix is stored in clear
// for indexed lookup, the secret only as a bcrypt hash.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"meetpoint/internal/types"
)

const (
	// keyScheme prefixes every issued key.
	keyScheme = "mk_live_"

	// prefixLength is the number of hex characters stored in clear and
	// used for lookup.
	prefixLength = 8

	// secretBytes is the number of random bytes behind the hashed part.
	secretBytes = 24

	// bcryptCost is the bcrypt cost factor for key hashing.
	bcryptCost = 10
)

// KeyStore is the persistence interface the Service needs. Implemented by
// db.APIKeyRepository.
type KeyStore interface {
	FindByPrefix(ctx context.Context, prefix string) ([]*types.APIKey, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

// Service authenticates API keys against the key store.
type Service struct {
	store KeyStore
	clock types.Clock
}

// NewService creates an auth Service.
func NewService(store KeyStore) *Service {
	return &Service{store: store, clock: types.RealClock{}}
}

// GeneratedKey is the result of minting a new API key. Plaintext is
// returned exactly once and never stored.
type GeneratedKey struct {
	Plaintext string
	Prefix    string
	Hash      string
}

// GenerateKey mints a new API key: random secret, visible prefix, bcrypt
// hash of the remainder.
func GenerateKey() (GeneratedKey, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return GeneratedKey{}, fmt.Errorf("generating api key secret: %w", err)
	}

	secret := hex.EncodeToString(raw)
	prefix := secret[:prefixLength]
	remainder := secret[prefixLength:]

	hash, err := bcrypt.GenerateFromPassword([]byte(remainder), bcryptCost)
	if err != nil {
		return GeneratedKey{}, fmt.Errorf("hashing api key secret: %w", err)
	}

	return GeneratedKey{
		Plaintext: keyScheme + secret,
		Prefix:    prefix,
		Hash:      string(hash),
	}, nil
}

// Authenticate resolves a presented key to an Actor. The prefix narrows
// the candidate set; bcrypt comparison picks the match. Every failure maps
// to the same invalid-key error so callers cannot probe for prefixes.
func (s *Service) Authenticate(ctx context.Context, presented string) (types.Actor, error) {
	secret, ok := strings.CutPrefix(presented, keyScheme)
	if !ok || len(secret) <= prefixLength {
		return types.Actor{}, types.NewAppError(types.ErrCodeAuthKeyInvalid, "invalid api key", nil)
	}

	prefix := secret[:prefixLength]
	remainder := secret[prefixLength:]

	candidates, err := s.store.FindByPrefix(ctx, prefix)
	if err != nil {
		return types.Actor{}, err
	}

	for _, key := range candidates {
		if !key.Active() {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(remainder)) == nil {
			// Best-effort usage tracking; a failure here must not
			// fail the request.
			_ = s.store.TouchLastUsed(ctx, key.ID, s.clock.Now())

			return types.Actor{
				ID:     key.ID,
				Type:   types.ActorTypeAPIKey,
				UserID: key.UserID,
			}, nil
		}
	}

	return types.Actor{}, types.NewAppError(types.ErrCodeAuthKeyInvalid, "invalid api key", nil)
}
