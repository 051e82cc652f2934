// Package memory implements every voteprocessing port as an in-memory
// adapter. It backs application-layer tests and NewInMemoryModule; it is
// not a production deployment target.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"votepipeline/contexts/voteprocessing/domain/entities"
	domainerrors "votepipeline/contexts/voteprocessing/domain/errors"
	"votepipeline/contexts/voteprocessing/ports"

	"github.com/google/uuid"
)

// CredentialStore is an in-memory ports.CredentialStore backed by three
// maps mirroring Redis's valid_hashes set, voted_hashes set, and
// duplicate_count:* counters.
type CredentialStore struct {
	mu         sync.Mutex
	valid      map[string]struct{}
	claimed    map[string]struct{}
	duplicates map[string]int
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		valid:      make(map[string]struct{}),
		claimed:    make(map[string]struct{}),
		duplicates: make(map[string]int),
	}
}

// SeedValid loads fingerprints into the valid set, mirroring the
// hashloader's bulk import.
func (s *CredentialStore) SeedValid(fingerprints ...entities.Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fingerprints {
		s.valid[f.String()] = struct{}{}
	}
}

func (s *CredentialStore) IsValid(_ context.Context, f entities.Fingerprint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.valid[f.String()]
	return ok, nil
}

func (s *CredentialStore) Claim(_ context.Context, f entities.Fingerprint) (ports.ClaimOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claimed[f.String()]; ok {
		return ports.ClaimDuplicate, nil
	}
	s.claimed[f.String()] = struct{}{}
	return ports.ClaimNew, nil
}

func (s *CredentialStore) RecordDuplicate(_ context.Context, f entities.Fingerprint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duplicates[f.String()]++
	return s.duplicates[f.String()], nil
}

// AuditTallyStore is an in-memory ports.AuditRepository, ports.TallyRepository,
// and ports.ElectionRepository, playing the role Postgres plays in
// production: one struct, one mutex, every flush visible to reads
// immediately.
type AuditTallyStore struct {
	mu sync.Mutex

	nextAuditID int64
	audit       []entities.AuditRecord
	acceptedKey map[string]struct{}

	lawTallies      map[string]entities.LawTally
	electionTallies map[string]entities.ElectionTally

	elections map[int64]entities.Election
}

func NewAuditTallyStore() *AuditTallyStore {
	return &AuditTallyStore{
		acceptedKey:     make(map[string]struct{}),
		lawTallies:      make(map[string]entities.LawTally),
		electionTallies: make(map[string]entities.ElectionTally),
		elections:       make(map[int64]entities.Election),
	}
}

// SeedElection registers an election window for GetElection/ListElections.
func (s *AuditTallyStore) SeedElection(election entities.Election) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elections[election.ID] = election
}

func (s *AuditTallyStore) InsertAudit(_ context.Context, record entities.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Status == entities.StatusAccepted {
		key := record.Fingerprint.String() + "|" + record.BallotScope
		if _, exists := s.acceptedKey[key]; exists {
			return ports.ErrAuditConflict
		}
		s.acceptedKey[key] = struct{}{}
	}

	s.nextAuditID++
	record.ID = s.nextAuditID
	s.audit = append(s.audit, record)
	return nil
}

func (s *AuditTallyStore) CountAccepted(_ context.Context, ballotScope string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, record := range s.audit {
		if record.BallotScope == ballotScope && record.Status == entities.StatusAccepted {
			count++
		}
	}
	return count, nil
}

func (s *AuditTallyStore) ApplyLawDeltas(_ context.Context, deltas []entities.LawTallyDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, delta := range deltas {
		tally := s.lawTallies[delta.BallotID]
		tally.BallotID = delta.BallotID
		tally.YesCount += delta.DeltaYes
		tally.NoCount += delta.DeltaNo
		tally.UpdatedAt = time.Now().UTC()
		s.lawTallies[delta.BallotID] = tally
	}
	return nil
}

func (s *AuditTallyStore) ApplyElectionDeltas(_ context.Context, deltas []entities.ElectionTallyDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, delta := range deltas {
		key := electionTallyKey(delta.ElectionID, delta.RegionID, delta.CandidateID)
		tally := s.electionTallies[key]
		tally.ElectionID = delta.ElectionID
		tally.RegionID = delta.RegionID
		tally.CandidateID = delta.CandidateID
		tally.VoteCount += delta.Delta
		tally.UpdatedAt = time.Now().UTC()
		s.electionTallies[key] = tally
	}
	return nil
}

func (s *AuditTallyStore) GetLawTally(_ context.Context, ballotID string) (entities.LawTally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tally, ok := s.lawTallies[ballotID]
	if !ok {
		return entities.LawTally{BallotID: ballotID}, nil
	}
	return tally, nil
}

func (s *AuditTallyStore) GetElectionTally(_ context.Context, electionID, regionID int64) ([]entities.ElectionTally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]entities.ElectionTally, 0)
	for _, tally := range s.electionTallies {
		if tally.ElectionID == electionID && tally.RegionID == regionID {
			items = append(items, tally)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CandidateID < items[j].CandidateID })
	return items, nil
}

func (s *AuditTallyStore) GetElection(_ context.Context, electionID int64) (entities.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	election, ok := s.elections[electionID]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (s *AuditTallyStore) ListElections(_ context.Context) ([]entities.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]entities.Election, 0, len(s.elections))
	for _, election := range s.elections {
		items = append(items, election)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StartAt.Before(items[j].StartAt) })
	return items, nil
}

func electionTallyKey(electionID, regionID, candidateID int64) string {
	return fmt.Sprintf("%d|%d|%d", electionID, regionID, candidateID)
}

// Bus is an in-memory ports.MessageBus: one buffered channel per stream,
// acking simply drops the message and nacking with requeue puts it back at
// the tail. It does not model broker crash/redelivery ordering exactly, but
// gives application-layer tests a real at-least-once consumer loop to drive.
type Bus struct {
	mu      sync.Mutex
	streams map[string]chan ports.EventEnvelope
}

func NewBus() *Bus {
	return &Bus{streams: make(map[string]chan ports.EventEnvelope)}
}

func (b *Bus) stream(name string) chan ports.EventEnvelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.streams[name]
	if !ok {
		ch = make(chan ports.EventEnvelope, 4096)
		b.streams[name] = ch
	}
	return ch
}

func (b *Bus) Publish(ctx context.Context, stream string, envelope ports.EventEnvelope, _ time.Duration) error {
	select {
	case b.stream(stream) <- envelope:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) Consume(ctx context.Context, stream string, prefetch int, handler func(ports.Delivery)) error {
	if prefetch <= 0 {
		prefetch = 1
	}
	ch := b.stream(stream)
	inflight := make(chan struct{}, prefetch)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case envelope := <-ch:
			inflight <- struct{}{}
			delivered := envelope
			handler(ports.Delivery{
				Envelope: delivered,
				Ack: func(_ context.Context) error {
					<-inflight
					return nil
				},
				Nack: func(nackCtx context.Context, requeue bool) error {
					<-inflight
					if requeue {
						select {
						case ch <- delivered:
						case <-nackCtx.Done():
							return nackCtx.Err()
						}
					}
					return nil
				},
			})
		}
	}
}

// IDGenerator is an in-memory ports.IDGenerator backed by uuid v4, matching
// the production adapter's behavior exactly.
type IDGenerator struct{}

func (IDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.CredentialStore = (*CredentialStore)(nil)
var _ ports.AuditRepository = (*AuditTallyStore)(nil)
var _ ports.TallyRepository = (*AuditTallyStore)(nil)
var _ ports.ElectionRepository = (*AuditTallyStore)(nil)
var _ ports.MessageBus = (*Bus)(nil)
var _ ports.IDGenerator = IDGenerator{}
