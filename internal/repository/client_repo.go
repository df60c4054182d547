package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/fouadsmari/DIA360-sub000/internal/model"

	"gorm.io/gorm"
)

// ClientFilter list filter
type ClientFilter struct {
	Search     string // matches company or contact name
	OnlyActive bool
}

// ClientRepository client accounts and their linked ad accounts
type ClientRepository interface {
	ListClients(ctx context.Context, filter ClientFilter, page, pageSize int) ([]*model.Client, int64, error)
	GetClient(ctx context.Context, id uint64) (*model.Client, error)
	CreateClient(ctx context.Context, c *model.Client) error
	// UpdateClient saves scalar fields and replaces the linked ad accounts.
	UpdateClient(ctx context.Context, c *model.Client) error
	DeleteClient(ctx context.Context, id uint64) error
	// ListLinkedAdAccounts distinct ad accounts linked to active clients
	ListLinkedAdAccounts(ctx context.Context) ([]string, error)
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) ListClients(ctx context.Context, filter ClientFilter, page, pageSize int) ([]*model.Client, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	db := r.db.WithContext(ctx).Model(&model.Client{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		db = db.Where("LOWER(company_name) LIKE ? OR LOWER(contact_name) LIKE ?", like, like)
	}
	if filter.OnlyActive {
		db = db.Where("is_active = ?", true)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var clients []*model.Client
	if err := db.Preload("AdAccounts").
		Order("company_name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&clients).Error; err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

func (r *clientRepository) GetClient(ctx context.Context, id uint64) (*model.Client, error) {
	var c model.Client
	if err := r.db.WithContext(ctx).Preload("AdAccounts").Where("id = ?", id).First(&c).Error; err != nil {
		return nil, wrapNotFound(err, fmt.Sprintf("client %d", id))
	}
	return &c, nil
}

func (r *clientRepository) CreateClient(ctx context.Context, c *model.Client) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *clientRepository) UpdateClient(ctx context.Context, c *model.Client) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Client{}).Where("id = ?", c.ID).
			Select("company_name", "contact_name", "email", "phone", "address", "city", "postal_code", "notes", "is_active", "updated_at").
			Updates(c)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("client %d: %w", c.ID, ErrNotFound)
		}
		if err := tx.Where("client_id = ?", c.ID).Delete(&model.ClientAdAccount{}).Error; err != nil {
			return err
		}
		for i := range c.AdAccounts {
			c.AdAccounts[i].ID = 0
			c.AdAccounts[i].ClientID = c.ID
		}
		if len(c.AdAccounts) > 0 {
			if err := tx.Create(&c.AdAccounts).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *clientRepository) DeleteClient(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id).Delete(&model.ClientAdAccount{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Client{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("client %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (r *clientRepository) ListLinkedAdAccounts(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.ClientAdAccount{}).
		Joins("JOIN clients ON clients.id = client_ad_accounts.client_id").
		Where("clients.is_active = ?", true).
		Distinct("client_ad_accounts.ad_account_id").
		Order("client_ad_accounts.ad_account_id ASC").
		Pluck("client_ad_accounts.ad_account_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
