// Package redisadapter implements ports.CredentialStore against the
// precomputed credential set loaded into Redis ahead of the voting window.
package redisadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"votepipeline/contexts/voteprocessing/domain/entities"
	"votepipeline/contexts/voteprocessing/ports"

	"github.com/redis/go-redis/v9"
)

const (
	validHashesKey       = "valid_hashes"
	votedHashesKey       = "voted_hashes"
	duplicateCountPrefix = "duplicate_count:"
)

// CredentialStore wraps a Redis client with the three primitives the
// validation worker needs: a membership test against the valid-credential
// set, an atomic claim against the cast-credential set, and duplicate-
// attempt bookkeeping.
type CredentialStore struct {
	client       *redis.Client
	logger       *slog.Logger
	duplicateTTL time.Duration
}

func NewCredentialStore(client *redis.Client, duplicateTTL time.Duration, logger *slog.Logger) *CredentialStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{client: client, logger: logger, duplicateTTL: duplicateTTL}
}

// IsValid tests membership in the valid_hashes set loaded by the hashloader
// from the election authority's precomputed credential list.
func (s *CredentialStore) IsValid(ctx context.Context, f entities.Fingerprint) (bool, error) {
	result, err := s.client.SIsMember(ctx, validHashesKey, f.String()).Result()
	if err != nil {
		return false, s.logError("credential_store_is_valid_failed", err, f)
	}
	return result, nil
}

// Claim adds f to the voted_hashes set. SADD's return value is the count of
// elements actually added, making this the atomic add-if-absent primitive
// a single allowed claim per fingerprint relies on: only the caller that
// observes 1 is the unique claimer, everyone else observes 0 and is a
// duplicate.
func (s *CredentialStore) Claim(ctx context.Context, f entities.Fingerprint) (ports.ClaimOutcome, error) {
	added, err := s.client.SAdd(ctx, votedHashesKey, f.String()).Result()
	if err != nil {
		return ports.ClaimDuplicate, s.logError("credential_store_claim_failed", err, f)
	}
	if added > 0 {
		return ports.ClaimNew, nil
	}
	return ports.ClaimDuplicate, nil
}

// RecordDuplicate increments the per-fingerprint duplicate counter D[f] and
// applies the configured TTL on first write only, so a long-lived key
// doesn't reset its expiry on every repeated duplicate attempt.
func (s *CredentialStore) RecordDuplicate(ctx context.Context, f entities.Fingerprint) (int, error) {
	key := duplicateCountPrefix + f.String()
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, s.logError("credential_store_record_duplicate_failed", err, f)
	}
	if count == 1 && s.duplicateTTL > 0 {
		if err := s.client.Expire(ctx, key, s.duplicateTTL).Err(); err != nil {
			s.logger.Warn("duplicate counter expire failed",
				"event", "credential_store_duplicate_expire_failed",
				"module", "voteprocessing",
				"layer", "adapter",
				"fingerprint", f.String(),
				"error", err.Error(),
			)
		}
	}
	return int(count), nil
}

func (s *CredentialStore) logError(event string, err error, f entities.Fingerprint) error {
	s.logger.Error("credential store operation failed",
		"event", event,
		"module", "voteprocessing",
		"layer", "adapter",
		"fingerprint", f.String(),
		"error", err.Error(),
	)
	return fmt.Errorf("%s: %w", event, err)
}

var _ ports.CredentialStore = (*CredentialStore)(nil)
