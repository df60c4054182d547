package service

import (
	"context"
	"strings"

	"github.com/fouadsmari/DIA360-sub000/internal/adapter/facebook"
	"github.com/fouadsmari/DIA360-sub000/internal/model"
	"github.com/fouadsmari/DIA360-sub000/internal/repository"

	"github.com/sirupsen/logrus"
)

// ClientInput writable client fields. A nil IsActive keeps the current value on update.
type ClientInput struct {
	CompanyName string   `json:"company_name" binding:"required"`
	ContactName string   `json:"contact_name"`
	Email       string   `json:"email" binding:"omitempty,email"`
	Phone       string   `json:"phone"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	PostalCode  string   `json:"postal_code"`
	Notes       string   `json:"notes"`
	IsActive    *bool    `json:"is_active"`
	AdAccounts  []string `json:"ad_accounts"`
}

type ClientService struct {
	repo   repository.ClientRepository
	logger *logrus.Logger
}

func NewClientService(repo repository.ClientRepository, logger *logrus.Logger) *ClientService {
	return &ClientService{repo: repo, logger: logger}
}

func (s *ClientService) ListClients(ctx context.Context, filter repository.ClientFilter, page, pageSize int) ([]*model.Client, int64, error) {
	return s.repo.ListClients(ctx, filter, page, pageSize)
}

func (s *ClientService) GetClient(ctx context.Context, id uint64) (*model.Client, error) {
	if id == 0 {
		return nil, invalidf("client id is required")
	}
	return s.repo.GetClient(ctx, id)
}

func (s *ClientService) CreateClient(ctx context.Context, in ClientInput) (*model.Client, error) {
	c := &model.Client{IsActive: true}
	if err := applyClientInput(c, in); err != nil {
		return nil, err
	}
	if err := s.repo.CreateClient(ctx, c); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"client_id": c.ID, "ad_accounts": len(c.AdAccounts)}).Info("client created")
	return c, nil
}

// UpdateClient replaces the scalar fields and the linked ad account list.
func (s *ClientService) UpdateClient(ctx context.Context, id uint64, in ClientInput) (*model.Client, error) {
	c, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyClientInput(c, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateClient(ctx, c); err != nil {
		return nil, err
	}
	return s.repo.GetClient(ctx, id)
}

func (s *ClientService) DeleteClient(ctx context.Context, id uint64) error {
	if id == 0 {
		return invalidf("client id is required")
	}
	if err := s.repo.DeleteClient(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("client_id", id).Info("client deleted")
	return nil
}

// LinkedAdAccounts ad accounts of active clients; the scheduler sweeps these.
func (s *ClientService) LinkedAdAccounts(ctx context.Context) ([]string, error) {
	return s.repo.ListLinkedAdAccounts(ctx)
}

func applyClientInput(c *model.Client, in ClientInput) error {
	name := strings.TrimSpace(in.CompanyName)
	if name == "" {
		return invalidf("company_name is required")
	}
	accounts, err := normalizeAdAccounts(in.AdAccounts)
	if err != nil {
		return err
	}
	c.CompanyName = name
	c.ContactName = strings.TrimSpace(in.ContactName)
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Address = strings.TrimSpace(in.Address)
	c.City = strings.TrimSpace(in.City)
	c.PostalCode = strings.TrimSpace(in.PostalCode)
	c.Notes = in.Notes
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	c.AdAccounts = c.AdAccounts[:0]
	for _, id := range accounts {
		c.AdAccounts = append(c.AdAccounts, model.ClientAdAccount{ClientID: c.ID, AdAccountID: id})
	}
	return nil
}

// normalizeAdAccounts act_-prefixes, validates and dedupes, keeping first-seen order.
func normalizeAdAccounts(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := facebook.NormalizeAccountID(raw)
		if id == "" {
			continue
		}
		if !validAdAccountID(id) {
			return nil, invalidf("ad account %q must be act_ followed by digits", raw)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func validAdAccountID(id string) bool {
	digits := strings.TrimPrefix(id, "act_")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
