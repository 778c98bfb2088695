package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tally-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	ListDistricts(ctx context.Context) ([]model.District, error)
	CreateDistrict(ctx context.Context, d *model.District) error

	ListWards(ctx context.Context, districtID string) ([]model.Ward, error)
	GetWard(ctx context.Context, id string) (model.Ward, error)
	CreateWard(ctx context.Context, w *model.Ward) error

	ListCenters(ctx context.Context, wardID string) ([]model.Center, error)
	GetCenter(ctx context.Context, id string) (model.Center, error)
	CreateCenter(ctx context.Context, c *model.Center) error

	ListCandidates(ctx context.Context) ([]model.Candidate, error)
	GetCandidate(ctx context.Context, id string) (model.Candidate, error)
	CreateCandidate(ctx context.Context, c *model.Candidate) error

	ListVotes(ctx context.Context) ([]model.Vote, error)
	GetVote(ctx context.Context, centerID string) (model.Vote, error)
	SaveVote(ctx context.Context, centerID string, counts map[string]int, now time.Time) (model.Vote, bool, error)

	UpsertSeed(ctx context.Context, batch SeedBatch) error

	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (model.Session, error)
	RevokeSession(ctx context.Context, id string) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// --- Geography ---

func (s *gormStore) ListDistricts(ctx context.Context) ([]model.District, error) {
	var districts []model.District
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&districts).Error; err != nil {
		return nil, fmt.Errorf("failed to list districts: %w", err)
	}
	return districts, nil
}

func (s *gormStore) CreateDistrict(ctx context.Context, d *model.District) error {
	ensureID(&d.ID)
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("failed to create district %q: %w", d.Name, err)
	}
	return nil
}

func (s *gormStore) ListWards(ctx context.Context, districtID string) ([]model.Ward, error) {
	q := s.db.WithContext(ctx)
	if districtID != "" {
		q = q.Where("district_id = ?", districtID)
	}
	var wards []model.Ward
	if err := q.Order("created_at, id").Find(&wards).Error; err != nil {
		return nil, fmt.Errorf("failed to list wards: %w", err)
	}
	return wards, nil
}

func (s *gormStore) GetWard(ctx context.Context, id string) (model.Ward, error) {
	var ward model.Ward
	if err := s.db.WithContext(ctx).First(&ward, "id = ?", id).Error; err != nil {
		return model.Ward{}, lookupError("ward", id, err)
	}
	return ward, nil
}

func (s *gormStore) CreateWard(ctx context.Context, w *model.Ward) error {
	ensureID(&w.ID)
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("failed to create ward %q: %w", w.Name, err)
	}
	return nil
}

func (s *gormStore) ListCenters(ctx context.Context, wardID string) ([]model.Center, error) {
	q := s.db.WithContext(ctx)
	if wardID != "" {
		q = q.Where("ward_id = ?", wardID)
	}
	var centers []model.Center
	if err := q.Order("created_at, id").Find(&centers).Error; err != nil {
		return nil, fmt.Errorf("failed to list centers: %w", err)
	}
	return centers, nil
}

func (s *gormStore) GetCenter(ctx context.Context, id string) (model.Center, error) {
	var center model.Center
	if err := s.db.WithContext(ctx).First(&center, "id = ?", id).Error; err != nil {
		return model.Center{}, lookupError("center", id, err)
	}
	return center, nil
}

func (s *gormStore) CreateCenter(ctx context.Context, c *model.Center) error {
	ensureID(&c.ID)
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create center %q: %w", c.Name, err)
	}
	return nil
}

// --- Candidates ---

func (s *gormStore) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	var candidates []model.Candidate
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

func (s *gormStore) GetCandidate(ctx context.Context, id string) (model.Candidate, error) {
	var candidate model.Candidate
	if err := s.db.WithContext(ctx).First(&candidate, "id = ?", id).Error; err != nil {
		return model.Candidate{}, lookupError("candidate", id, err)
	}
	return candidate, nil
}

func (s *gormStore) CreateCandidate(ctx context.Context, c *model.Candidate) error {
	ensureID(&c.ID)
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create candidate %q: %w", c.Name, err)
	}
	return nil
}

// --- Votes ---

func (s *gormStore) ListVotes(ctx context.Context) ([]model.Vote, error) {
	var votes []model.Vote
	if err := s.db.WithContext(ctx).Preload("Counts").Order("center_id").Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	return votes, nil
}

func (s *gormStore) GetVote(ctx context.Context, centerID string) (model.Vote, error) {
	var vote model.Vote
	if err := s.db.WithContext(ctx).Preload("Counts").First(&vote, "center_id = ?", centerID).Error; err != nil {
		return model.Vote{}, lookupError("vote for center", centerID, err)
	}
	return vote, nil
}

// SaveVote writes the center's counts, creating the record on first save and
// replacing its counts afterwards. The record keeps its ID and SubmittedAt
// across updates. Concurrent saves for one center resolve as last write wins.
// The returned bool is true when the record was created by this call.
func (s *gormStore) SaveVote(ctx context.Context, centerID string, counts map[string]int, now time.Time) (model.Vote, bool, error) {
	fresh := model.Vote{
		CenterID:    centerID,
		ID:          uuid.NewString(),
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	var saved model.Vote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "center_id"}},
			DoUpdates: clause.Assignments(map[string]any{"updated_at": now}),
		}).Create(&fresh).Error; err != nil {
			return fmt.Errorf("failed to upsert vote for center %s: %w", centerID, err)
		}

		if err := tx.Where("center_id = ?", centerID).Delete(&model.VoteCount{}).Error; err != nil {
			return fmt.Errorf("failed to clear counts for center %s: %w", centerID, err)
		}

		if rows := voteCountRows(centerID, counts); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to write counts for center %s: %w", centerID, err)
			}
		}

		return tx.Preload("Counts").First(&saved, "center_id = ?", centerID).Error
	})
	if err != nil {
		return model.Vote{}, false, err
	}

	return saved, saved.ID == fresh.ID, nil
}

func voteCountRows(centerID string, counts map[string]int) []model.VoteCount {
	candidateIDs := make([]string, 0, len(counts))
	for id := range counts {
		candidateIDs = append(candidateIDs, id)
	}
	sort.Strings(candidateIDs)

	rows := make([]model.VoteCount, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		rows = append(rows, model.VoteCount{CenterID: centerID, CandidateID: id, Count: counts[id]})
	}
	return rows
}

// --- Seed ---

// UpsertSeed writes every record in the batch, updating rows whose ID exists.
func (s *gormStore) UpsertSeed(ctx context.Context, batch SeedBatch) error {
	for i := range batch.Districts {
		ensureID(&batch.Districts[i].ID)
	}
	for i := range batch.Wards {
		ensureID(&batch.Wards[i].ID)
	}
	for i := range batch.Centers {
		ensureID(&batch.Centers[i].ID)
	}
	for i := range batch.Candidates {
		ensureID(&batch.Candidates[i].ID)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(batch.Districts) > 0 {
			if err := upsertByID(tx, &batch.Districts, "name"); err != nil {
				return fmt.Errorf("batch upsert districts failed: %w", err)
			}
		}
		if len(batch.Wards) > 0 {
			if err := upsertByID(tx, &batch.Wards, "district_id", "name"); err != nil {
				return fmt.Errorf("batch upsert wards failed: %w", err)
			}
		}
		if len(batch.Centers) > 0 {
			if err := upsertByID(tx, &batch.Centers, "ward_id", "center_number", "name", "registered_voters"); err != nil {
				return fmt.Errorf("batch upsert centers failed: %w", err)
			}
		}
		if len(batch.Candidates) > 0 {
			if err := upsertByID(tx, &batch.Candidates, "name", "party"); err != nil {
				return fmt.Errorf("batch upsert candidates failed: %w", err)
			}
		}
		return nil
	})
}

func upsertByID(tx *gorm.DB, rows any, columns ...string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(rows).Error
}

// --- Sessions ---

func (s *gormStore) CreateSession(ctx context.Context, session *model.Session) error {
	ensureID(&session.ID)
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *gormStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	var session model.Session
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return model.Session{}, lookupError("session", id, err)
	}
	return session, nil
}

func (s *gormStore) RevokeSession(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&model.Session{}).Where("id = ?", id).Update("revoked", true)
	if res.Error != nil {
		return fmt.Errorf("failed to revoke session %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return nil
}

// --- Helpers ---

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func lookupError(kind, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %q: %w", kind, id, err)
}
