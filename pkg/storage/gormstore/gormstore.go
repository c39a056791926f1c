// Package gormstore implements storage.Driver on top of a gorm.DB handle.
// The SQLite and Postgres drivers both wrap this store; they differ only in
// how the connection is opened.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/storage"
)

// Store implements storage.Driver using gorm.
type Store struct {
	db *gorm.DB
}

// New wraps a gorm handle and runs auto-migration for the three row types.
// Auto-migration handles append-only schema changes (new tables, columns,
// indexes).
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&profileRow{}, &captureRow{}, &memoryRow{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// CreateProfile stores a profile, demoting any existing account default in
// the same transaction when the new profile is marked default.
func (s *Store) CreateProfile(ctx context.Context, p *memory.Profile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.Default {
			err := tx.Model(&profileRow{}).
				Where("account_id = ? AND is_default = ?", p.AccountID, true).
				Update("is_default", false).Error
			if err != nil {
				return fmt.Errorf("demoting existing default profile: %w", err)
			}
		}

		if err := tx.Create(profileToRow(p)).Error; err != nil {
			return fmt.Errorf("creating profile: %w", err)
		}

		return nil
	})
}

func (s *Store) GetProfile(ctx context.Context, id string) (*memory.Profile, error) {
	var row profileRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.NotFoundError{Kind: "profile", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}

	return profileToDomain(&row), nil
}

func (s *Store) ListProfiles(ctx context.Context, accountID string) ([]*memory.Profile, error) {
	var rows []profileRow
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}

	profiles := make([]*memory.Profile, len(rows))
	for i := range rows {
		profiles[i] = profileToDomain(&rows[i])
	}

	return profiles, nil
}

// DeleteProfile removes a profile and cascades to its captures and memories.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", id).Delete(&memoryRow{}).Error; err != nil {
			return fmt.Errorf("deleting profile memories: %w", err)
		}
		if err := tx.Where("profile_id = ?", id).Delete(&captureRow{}).Error; err != nil {
			return fmt.Errorf("deleting profile captures: %w", err)
		}

		res := tx.Delete(&profileRow{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("deleting profile: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return storage.NotFoundError{Kind: "profile", ID: id}
		}

		return nil
	})
}

func (s *Store) CreateCapture(ctx context.Context, c *memory.Capture) error {
	if err := s.db.WithContext(ctx).Create(captureToRow(c)).Error; err != nil {
		return fmt.Errorf("creating capture: %w", err)
	}
	return nil
}

func (s *Store) GetCapture(ctx context.Context, id string) (*memory.Capture, error) {
	var row captureRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.NotFoundError{Kind: "capture", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("getting capture: %w", err)
	}

	return captureToDomain(&row), nil
}

func (s *Store) GetOwnedCapture(ctx context.Context, profileID, id string) (*memory.Capture, error) {
	var row captureRow
	err := s.db.WithContext(ctx).First(&row, "id = ? AND profile_id = ?", id, profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.NotFoundError{Kind: "capture", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("getting capture: %w", err)
	}

	return captureToDomain(&row), nil
}

func (s *Store) FindCaptureByFingerprint(ctx context.Context, profileID, fp string) (*memory.Capture, error) {
	var row captureRow
	err := s.db.WithContext(ctx).First(&row, "profile_id = ? AND fingerprint = ?", profileID, fp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.NotFoundError{Kind: "capture"}
	}
	if err != nil {
		return nil, fmt.Errorf("finding capture by fingerprint: %w", err)
	}

	return captureToDomain(&row), nil
}

func (s *Store) ListCaptures(ctx context.Context, profileID string, status memory.CaptureStatus, cursor string, limit int) ([]*memory.Capture, string, error) {
	cur, err := storage.DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	q := s.db.WithContext(ctx).Where("profile_id = ?", profileID)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if !cur.Zero() {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var rows []captureRow
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, "", fmt.Errorf("listing captures: %w", err)
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = storage.EncodeCursor(storage.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	captures := make([]*memory.Capture, len(rows))
	for i := range rows {
		captures[i] = captureToDomain(&rows[i])
	}

	return captures, next, nil
}

// TransitionCapture performs the status-gated claim: a single conditional
// UPDATE that fails when the row is not in an eligible status, so two
// workers can never both own the same capture.
func (s *Store) TransitionCapture(ctx context.Context, id string, from []memory.CaptureStatus, to memory.CaptureStatus) error {
	fromStrs := make([]string, len(from))
	for i, st := range from {
		fromStrs[i] = string(st)
	}

	res := s.db.WithContext(ctx).Model(&captureRow{}).
		Where("id = ? AND status IN ?", id, fromStrs).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("transitioning capture: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var row captureRow
		err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storage.NotFoundError{Kind: "capture", ID: id}
		}
		if err != nil {
			return fmt.Errorf("checking capture status: %w", err)
		}

		return storage.ConflictError{ID: id, Status: row.Status}
	}

	return nil
}

func (s *Store) FailCapture(ctx context.Context, id, reason string) error {
	res := s.db.WithContext(ctx).Model(&captureRow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       string(memory.StatusFailed),
			"error_detail": reason,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failing capture: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.NotFoundError{Kind: "capture", ID: id}
	}

	return nil
}

// CommitExtraction replaces the capture's memory set and flips its status
// in one transaction. The status flip is conditional on the capture still
// being in processing, so a concurrently forced terminal transition (e.g.
// an operator timeout) aborts the commit instead of racing it.
func (s *Store) CommitExtraction(ctx context.Context, captureID string, mems []*memory.Memory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&captureRow{}).
			Where("id = ? AND status = ?", captureID, string(memory.StatusProcessing)).
			Updates(map[string]any{
				"status":       string(memory.StatusCompleted),
				"memory_count": len(mems),
				"error_detail": "",
				"updated_at":   time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("completing capture: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return storage.ConflictError{ID: captureID, Status: "unknown"}
		}

		// Replace, not append: a re-run wipes the prior attempt's set.
		if err := tx.Where("capture_id = ?", captureID).Delete(&memoryRow{}).Error; err != nil {
			return fmt.Errorf("deleting prior memory set: %w", err)
		}

		for _, m := range mems {
			if err := tx.Create(memoryToRow(m)).Error; err != nil {
				return fmt.Errorf("inserting memory: %w", err)
			}
		}

		return nil
	})
}

// DeleteCapture removes a capture; its memories survive with the source
// reference nulled.
func (s *Store) DeleteCapture(ctx context.Context, profileID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&memoryRow{}).
			Where("capture_id = ?", id).
			Update("capture_id", nil).Error
		if err != nil {
			return fmt.Errorf("detaching memories: %w", err)
		}

		res := tx.Delete(&captureRow{}, "id = ? AND profile_id = ?", id, profileID)
		if res.Error != nil {
			return fmt.Errorf("deleting capture: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return storage.NotFoundError{Kind: "capture", ID: id}
		}

		return nil
	})
}

func (s *Store) CreateMemory(ctx context.Context, m *memory.Memory) error {
	if err := s.db.WithContext(ctx).Create(memoryToRow(m)).Error; err != nil {
		return fmt.Errorf("creating memory: %w", err)
	}
	return nil
}

func (s *Store) GetMemory(ctx context.Context, profileID, id string) (*memory.Memory, error) {
	var row memoryRow
	err := s.db.WithContext(ctx).First(&row, "id = ? AND profile_id = ?", id, profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.NotFoundError{Kind: "memory", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("getting memory: %w", err)
	}

	return memoryToDomain(&row), nil
}

func (s *Store) ListMemories(ctx context.Context, profileID string, category *memory.Category, cursor string, limit int) ([]*memory.Memory, string, error) {
	cur, err := storage.DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	q := s.db.WithContext(ctx).Where("profile_id = ?", profileID)
	if category != nil {
		q = q.Where("category = ?", string(*category))
	}
	if !cur.Zero() {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var rows []memoryRow
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, "", fmt.Errorf("listing memories: %w", err)
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = storage.EncodeCursor(storage.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	mems := make([]*memory.Memory, len(rows))
	for i := range rows {
		mems[i] = memoryToDomain(&rows[i])
	}

	return mems, next, nil
}

func (s *Store) AllMemories(ctx context.Context, profileID string) ([]*memory.Memory, error) {
	var rows []memoryRow
	err := s.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading memories: %w", err)
	}

	mems := make([]*memory.Memory, len(rows))
	for i := range rows {
		mems[i] = memoryToDomain(&rows[i])
	}

	return mems, nil
}

func (s *Store) UpdateMemory(ctx context.Context, profileID, id string, patch storage.MemoryPatch) (*memory.Memory, error) {
	var updated *memory.Memory

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row memoryRow
		err := tx.First(&row, "id = ? AND profile_id = ?", id, profileID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storage.NotFoundError{Kind: "memory", ID: id}
		}
		if err != nil {
			return fmt.Errorf("loading memory: %w", err)
		}

		applyPatch(&row, patch)
		row.UpdatedAt = time.Now().UTC()

		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("saving memory: %w", err)
		}

		updated = memoryToDomain(&row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func applyPatch(row *memoryRow, patch storage.MemoryPatch) {
	if patch.Content != nil {
		row.Content = *patch.Content
	}
	if patch.EmotionalNote != nil {
		row.EmotionalNote = patch.EmotionalNote
	}
	if patch.Category != nil {
		row.Category = string(*patch.Category)
	}
	if patch.Importance != nil {
		row.Importance = *patch.Importance
	}
	if patch.PreferVerbatim != nil {
		row.PreferVerbatim = *patch.PreferVerbatim
	}
	if patch.Summary != nil {
		row.Summary = patch.Summary
	}
	if patch.SummaryTokens != nil {
		row.SummaryTokens = *patch.SummaryTokens
	}
}

func (s *Store) DeleteMemory(ctx context.Context, profileID, id string) error {
	res := s.db.WithContext(ctx).Delete(&memoryRow{}, "id = ? AND profile_id = ?", id, profileID)
	if res.Error != nil {
		return fmt.Errorf("deleting memory: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.NotFoundError{Kind: "memory", ID: id}
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	return sqlDB.Close()
}
