package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type refreshTokenModel struct {
	ID        uint      `gorm:"primaryKey"`
	Subject   string    `gorm:"size:64;index;not null"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null"`
	IssuedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	Revoked   bool      `gorm:"not null;default:false"`
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

// Gorm is a GORM-backed TokenStore. Any dialect supported by GORM works;
// the tests use SQLite, production deployments typically Postgres or MySQL.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an open *gorm.DB and migrates the refresh_tokens table.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&refreshTokenModel{}); err != nil {
		return nil, err
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Save(ctx context.Context, rec *Record) error {
	model := refreshTokenModel{
		Subject:   rec.Subject,
		TokenHash: rec.TokenHash,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
		Revoked:   rec.Revoked,
	}
	return g.db.WithContext(ctx).Create(&model).Error
}

func (g *Gorm) GetByHash(ctx context.Context, hash string) (*Record, error) {
	var model refreshTokenModel
	err := g.db.WithContext(ctx).Where("token_hash = ?", hash).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &Record{
		Subject:   model.Subject,
		TokenHash: model.TokenHash,
		IssuedAt:  model.IssuedAt,
		ExpiresAt: model.ExpiresAt,
		Revoked:   model.Revoked,
	}, nil
}

func (g *Gorm) Revoke(ctx context.Context, hash string) (bool, error) {
	res := g.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("token_hash = ?", hash).
		Update("revoked", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// Rows already revoked report zero affected rows on some dialects;
	// distinguish "absent" from "already revoked" with a lookup.
	rec, err := g.GetByHash(ctx, hash)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

func (g *Gorm) RevokeAllForUser(ctx context.Context, subject string) (int64, error) {
	res := g.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("subject = ? AND revoked = ?", subject, false).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}

func (g *Gorm) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := g.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&refreshTokenModel{})
	return res.RowsAffected, res.Error
}
