package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fouadsmari/DIA360-sub000/internal/model"

	"gorm.io/gorm"
)

// CredentialRepository stored Graph API keys
type CredentialRepository interface {
	ListCredentials(ctx context.Context) ([]*model.FacebookCredential, error)
	CreateCredential(ctx context.Context, c *model.FacebookCredential) error
	DeleteCredential(ctx context.Context, id uint64) error
	// ActiveCredential newest active credential not expired at now
	ActiveCredential(ctx context.Context, now time.Time) (*model.FacebookCredential, error)
}

type credentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) ListCredentials(ctx context.Context) ([]*model.FacebookCredential, error) {
	var list []*model.FacebookCredential
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *credentialRepository) CreateCredential(ctx context.Context, c *model.FacebookCredential) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *credentialRepository) DeleteCredential(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.FacebookCredential{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("credential %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *credentialRepository) ActiveCredential(ctx context.Context, now time.Time) (*model.FacebookCredential, error) {
	var c model.FacebookCredential
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND (expires_at IS NULL OR expires_at > ?)", true, now).
		Order("created_at DESC, id DESC").
		First(&c).Error
	if err != nil {
		return nil, wrapNotFound(err, "active facebook credential")
	}
	return &c, nil
}
