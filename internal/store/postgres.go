package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"colornamer/internal/game"
)

// Postgres is the durable backend: one jsonb row per session plus an update
// table trimmed to UpdateLogSize rows per session.
type Postgres struct {
	db *gorm.DB
}

type sessionRecord struct {
	Code      string `gorm:"primaryKey"`
	Doc       []byte `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (sessionRecord) TableName() string { return "game_sessions" }

type updateRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"index"`
	Timestamp int64
	Type      string
	PlayerID  string
}

func (updateRecord) TableName() string { return "game_updates" }

func NewPostgres(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&sessionRecord{}, &updateRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (game.State, error) {
	var rec sessionRecord
	err := p.db.WithContext(ctx).First(&rec, "code = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return game.State{}, ErrNotFound
	}
	if err != nil {
		return game.State{}, fmt.Errorf("postgres get: %w", err)
	}

	var s game.State
	if err := json.Unmarshal(rec.Doc, &s); err != nil {
		return game.State{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

func (p *Postgres) Put(ctx context.Context, id string, s game.State) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	err = p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
		}).
		Create(&sessionRecord{Code: id, Doc: doc, UpdatedAt: time.Now()}).Error
	if err != nil {
		return fmt.Errorf("postgres put: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if err := p.db.WithContext(ctx).Delete(&sessionRecord{}, "code = ?", id).Error; err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	if err := p.db.WithContext(ctx).Delete(&updateRecord{}, "code = ?", id).Error; err != nil {
		return fmt.Errorf("postgres delete updates: %w", err)
	}
	return nil
}

func (p *Postgres) AppendUpdate(ctx context.Context, id string, upd Update) error {
	tx := p.db.WithContext(ctx)
	err := tx.Create(&updateRecord{
		Code:      id,
		Timestamp: upd.Timestamp,
		Type:      upd.Type,
		PlayerID:  upd.PlayerID,
	}).Error
	if err != nil {
		return fmt.Errorf("postgres append update: %w", err)
	}
	// Trim anything older than the newest UpdateLogSize rows.
	err = tx.Exec(
		`DELETE FROM game_updates WHERE code = ? AND id NOT IN
		 (SELECT id FROM game_updates WHERE code = ? ORDER BY id DESC LIMIT ?)`,
		id, id, UpdateLogSize,
	).Error
	if err != nil {
		return fmt.Errorf("postgres trim updates: %w", err)
	}
	return nil
}

func (p *Postgres) Updates(ctx context.Context, id string, since int64) ([]Update, error) {
	var recs []updateRecord
	err := p.db.WithContext(ctx).
		Where("code = ? AND timestamp > ?", id, since).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("postgres updates: %w", err)
	}

	out := make([]Update, 0, len(recs))
	for _, r := range recs {
		out = append(out, Update{Timestamp: r.Timestamp, Type: r.Type, PlayerID: r.PlayerID})
	}
	return out, nil
}
