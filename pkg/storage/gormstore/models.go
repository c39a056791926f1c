package gormstore

import (
	"time"

	"github.com/reveriehq/reverie/pkg/memory"
)

// profileRow is the gorm row type for profiles.
type profileRow struct {
	ID        string `gorm:"primaryKey"`
	AccountID string `gorm:"index;not null"`
	Name      string `gorm:"not null"`
	IsDefault bool   `gorm:"column:is_default;default:false"`
	CreatedAt time.Time
}

func (profileRow) TableName() string { return "profiles" }

// captureRow is the gorm row type for captures. The composite unique index
// on (profile_id, fingerprint) is the schema-level backstop for idempotent
// intake.
type captureRow struct {
	ID           string `gorm:"primaryKey"`
	ProfileID    string `gorm:"index;not null;uniqueIndex:idx_captures_profile_fingerprint"`
	Method       string `gorm:"not null"`
	RawText      string `gorm:"type:text"`
	Fingerprint  string `gorm:"not null;uniqueIndex:idx_captures_profile_fingerprint"`
	Status       string `gorm:"index;not null"`
	ErrorDetail  string `gorm:"type:text"`
	MemoryCount  int    `gorm:"default:0"`
	PlatformHint string
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time

	Profile profileRow `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"-"`
}

func (captureRow) TableName() string { return "captures" }

// memoryRow is the gorm row type for memories. CaptureID is nullable so a
// memory survives deletion of its source capture.
type memoryRow struct {
	ID                string  `gorm:"primaryKey"`
	ProfileID         string  `gorm:"index;not null"`
	CaptureID         *string `gorm:"index"`
	Category          string  `gorm:"index;not null"`
	Content           string  `gorm:"type:text;not null"`
	EmotionalNote     *string `gorm:"type:text"`
	Importance        int     `gorm:"not null"`
	Verbatim          string  `gorm:"type:text;not null"`
	Summary           *string `gorm:"type:text"`
	PreferVerbatim    bool    `gorm:"default:false"`
	VerbatimTokens    int     `gorm:"default:0"`
	SummaryTokens     int     `gorm:"default:0"`
	SpeakerConfidence *float64
	CreatedAt         time.Time `gorm:"index"`
	UpdatedAt         time.Time

	Profile profileRow  `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"-"`
	Capture *captureRow `gorm:"foreignKey:CaptureID;constraint:OnDelete:SET NULL" json:"-"`
}

func (memoryRow) TableName() string { return "memories" }

func profileToRow(p *memory.Profile) *profileRow {
	return &profileRow{
		ID:        p.ID,
		AccountID: p.AccountID,
		Name:      p.Name,
		IsDefault: p.Default,
		CreatedAt: p.CreatedAt,
	}
}

func profileToDomain(r *profileRow) *memory.Profile {
	return &memory.Profile{
		ID:        r.ID,
		AccountID: r.AccountID,
		Name:      r.Name,
		Default:   r.IsDefault,
		CreatedAt: r.CreatedAt,
	}
}

func captureToRow(c *memory.Capture) *captureRow {
	return &captureRow{
		ID:           c.ID,
		ProfileID:    c.ProfileID,
		Method:       string(c.Method),
		RawText:      c.RawText,
		Fingerprint:  c.Fingerprint,
		Status:       string(c.Status),
		ErrorDetail:  c.ErrorDetail,
		MemoryCount:  c.MemoryCount,
		PlatformHint: c.PlatformHint,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func captureToDomain(r *captureRow) *memory.Capture {
	return &memory.Capture{
		ID:           r.ID,
		ProfileID:    r.ProfileID,
		Method:       memory.Method(r.Method),
		RawText:      r.RawText,
		Fingerprint:  r.Fingerprint,
		Status:       memory.CaptureStatus(r.Status),
		ErrorDetail:  r.ErrorDetail,
		MemoryCount:  r.MemoryCount,
		PlatformHint: r.PlatformHint,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func memoryToRow(m *memory.Memory) *memoryRow {
	return &memoryRow{
		ID:                m.ID,
		ProfileID:         m.ProfileID,
		CaptureID:         m.CaptureID,
		Category:          string(m.Category),
		Content:           m.Content,
		EmotionalNote:     m.EmotionalNote,
		Importance:        m.Importance,
		Verbatim:          m.Verbatim,
		Summary:           m.Summary,
		PreferVerbatim:    m.PreferVerbatim,
		VerbatimTokens:    m.VerbatimTokens,
		SummaryTokens:     m.SummaryTokens,
		SpeakerConfidence: m.SpeakerConfidence,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func memoryToDomain(r *memoryRow) *memory.Memory {
	return &memory.Memory{
		ID:                r.ID,
		ProfileID:         r.ProfileID,
		CaptureID:         r.CaptureID,
		Category:          memory.Category(r.Category),
		Content:           r.Content,
		EmotionalNote:     r.EmotionalNote,
		Importance:        r.Importance,
		Verbatim:          r.Verbatim,
		Summary:           r.Summary,
		PreferVerbatim:    r.PreferVerbatim,
		VerbatimTokens:    r.VerbatimTokens,
		SummaryTokens:     r.SummaryTokens,
		SpeakerConfidence: r.SpeakerConfidence,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
