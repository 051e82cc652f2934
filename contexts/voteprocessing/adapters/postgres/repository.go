package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainerrors "votepipeline/contexts/voteprocessing/domain/errors"
	"votepipeline/contexts/voteprocessing/domain/entities"
	"votepipeline/contexts/voteprocessing/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the audit & tally store: the single Postgres-backed
// implementation of AuditRepository, TallyRepository, and
// ElectionRepository, sharing one connection pool. Audit writes come from
// the validation worker; the aggregator's flushes touch only the tally
// tables.
type Repository struct {
	db               *gorm.DB
	logger           *slog.Logger
	statementTimeout time.Duration
}

func NewRepository(db *gorm.DB, logger *slog.Logger, statementTimeout time.Duration) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	if statementTimeout <= 0 {
		statementTimeout = 10 * time.Second
	}
	return &Repository{db: db, logger: logger, statementTimeout: statementTimeout}
}

// InsertAudit writes an audit row. A unique-violation on the partial index
// backing (fingerprint, ballot_scope) WHERE status = 'accepted' is
// translated to ports.ErrAuditConflict rather than bubbled as a raw
// Postgres error, so the worker can re-classify the race against a claim
// it believed was new.
func (r *Repository) InsertAudit(ctx context.Context, record entities.AuditRecord) error {
	row, err := auditModelFromEntity(record)
	if err != nil {
		return r.logError("audit_repo_insert_marshal_failed", err,
			"fingerprint", record.Fingerprint.String(),
			"ballot_scope", record.BallotScope,
		)
	}
	create := r.db.WithContext(ctx).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return ports.ErrAuditConflict
		}
		return r.logError("audit_repo_insert_failed", create.Error,
			"fingerprint", record.Fingerprint.String(),
			"ballot_scope", record.BallotScope,
		)
	}
	return nil
}

func (r *Repository) CountAccepted(ctx context.Context, ballotScope string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&auditModel{}).
		Where("ballot_scope = ?", ballotScope).
		Where("status = ?", string(entities.StatusAccepted)).
		Count(&count).Error
	if err != nil {
		return 0, r.logError("audit_repo_count_accepted_failed", err, "ballot_scope", ballotScope)
	}
	return count, nil
}

// ApplyLawDeltas upserts one batch of law-tally increments in a single
// transaction. Each delta is additive: ON CONFLICT does UPDATE SET
// yes_count = yes_count + excluded.yes_count. A batch applied a second time
// (a retry after a commit whose success was not observed, or a redelivery
// after a crash between commit and ack) is counted twice: neither this
// method nor the aggregator checks for already-applied envelopes.
func (r *Repository) ApplyLawDeltas(ctx context.Context, deltas []entities.LawTallyDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.statementTimeout)
	defer cancel()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, delta := range deltas {
			row := lawTallyModel{
				BallotID: delta.BallotID,
				YesCount: delta.DeltaYes,
				NoCount:  delta.DeltaNo,
			}
			result := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "ballot_id"}},
				DoUpdates: clause.Assignments(map[string]any{
					"yes_count":  gorm.Expr("law_tallies.yes_count + ?", delta.DeltaYes),
					"no_count":   gorm.Expr("law_tallies.no_count + ?", delta.DeltaNo),
					"updated_at": gorm.Expr("now()"),
				}),
			}).Create(&row)
			if result.Error != nil {
				return r.logError("tally_repo_apply_law_deltas_failed", result.Error, "ballot_id", delta.BallotID)
			}
		}
		return nil
	})
}

func (r *Repository) ApplyElectionDeltas(ctx context.Context, deltas []entities.ElectionTallyDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.statementTimeout)
	defer cancel()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, delta := range deltas {
			row := electionTallyModel{
				ElectionID:  delta.ElectionID,
				RegionID:    delta.RegionID,
				CandidateID: delta.CandidateID,
				VoteCount:   delta.Delta,
			}
			result := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "election_id"}, {Name: "region_id"}, {Name: "candidate_id"}},
				DoUpdates: clause.Assignments(map[string]any{
					"vote_count": gorm.Expr("election_tallies.vote_count + ?", delta.Delta),
					"updated_at": gorm.Expr("now()"),
				}),
			}).Create(&row)
			if result.Error != nil {
				return r.logError("tally_repo_apply_election_deltas_failed", result.Error,
					"election_id", delta.ElectionID,
					"region_id", delta.RegionID,
					"candidate_id", delta.CandidateID,
				)
			}
		}
		return nil
	})
}

func (r *Repository) GetLawTally(ctx context.Context, ballotID string) (entities.LawTally, error) {
	var row lawTallyModel
	err := r.db.WithContext(ctx).Where("ballot_id = ?", ballotID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.LawTally{BallotID: ballotID}, nil
		}
		return entities.LawTally{}, r.logError("tally_repo_get_law_tally_failed", err, "ballot_id", ballotID)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetElectionTally(ctx context.Context, electionID, regionID int64) ([]entities.ElectionTally, error) {
	var rows []electionTallyModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", electionID).
		Where("region_id = ?", regionID).
		Order("candidate_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("tally_repo_get_election_tally_failed", err,
			"election_id", electionID,
			"region_id", regionID,
		)
	}
	items := make([]entities.ElectionTally, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetElection(ctx context.Context, electionID int64) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).Where("id = ?", electionID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("election_repo_get_failed", err, "election_id", electionID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListElections(ctx context.Context) ([]entities.Election, error) {
	var rows []electionModel
	if err := r.db.WithContext(ctx).Order("start_at ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_failed", err)
	}
	items := make([]entities.Election, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "voteprocessing",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("audit/tally repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.AuditRepository = (*Repository)(nil)
var _ ports.TallyRepository = (*Repository)(nil)
var _ ports.ElectionRepository = (*Repository)(nil)
