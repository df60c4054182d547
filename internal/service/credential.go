package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fouadsmari/DIA360-sub000/internal/model"
	"github.com/fouadsmari/DIA360-sub000/internal/repository"

	"github.com/sirupsen/logrus"
)

// ErrNoAccessToken neither a stored credential nor a configured token is available.
var ErrNoAccessToken = errors.New("no facebook access token available")

// CredentialInput fields accepted when registering a Graph API key
type CredentialInput struct {
	Name        string     `json:"name" binding:"required"`
	AppID       string     `json:"app_id"`
	AppSecret   string     `json:"app_secret"`
	AccessToken string     `json:"access_token" binding:"required"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// CredentialService manages stored keys and resolves the token used by sync runs.
type CredentialService struct {
	repo     repository.CredentialRepository
	fallback string
	logger   *logrus.Logger
	now      func() time.Time
}

// NewCredentialService fallback is the configured token, used when no stored credential is active.
func NewCredentialService(repo repository.CredentialRepository, fallback string, logger *logrus.Logger) *CredentialService {
	return &CredentialService{repo: repo, fallback: strings.TrimSpace(fallback), logger: logger, now: time.Now}
}

// AccessToken newest active stored credential, else the configured token.
func (s *CredentialService) AccessToken(ctx context.Context) (string, error) {
	c, err := s.repo.ActiveCredential(ctx, s.now())
	switch {
	case err == nil && c.AccessToken != "":
		return c.AccessToken, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return "", fmt.Errorf("load active credential: %w", err)
	}
	if s.fallback != "" {
		return s.fallback, nil
	}
	return "", ErrNoAccessToken
}

func (s *CredentialService) ListCredentials(ctx context.Context) ([]*model.FacebookCredential, error) {
	return s.repo.ListCredentials(ctx)
}

func (s *CredentialService) CreateCredential(ctx context.Context, in CredentialInput) (*model.FacebookCredential, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.AccessToken = strings.TrimSpace(in.AccessToken)
	if in.Name == "" {
		return nil, invalidf("name is required")
	}
	if in.AccessToken == "" {
		return nil, invalidf("access_token is required")
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return nil, invalidf("expires_at must be in the future")
	}
	c := &model.FacebookCredential{
		Name:        in.Name,
		AppID:       strings.TrimSpace(in.AppID),
		AppSecret:   in.AppSecret,
		AccessToken: in.AccessToken,
		IsActive:    true,
		ExpiresAt:   in.ExpiresAt,
	}
	if err := s.repo.CreateCredential(ctx, c); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"credential_id": c.ID, "name": c.Name}).Info("facebook credential stored")
	return c, nil
}

func (s *CredentialService) DeleteCredential(ctx context.Context, id uint64) error {
	if id == 0 {
		return invalidf("credential id is required")
	}
	return s.repo.DeleteCredential(ctx, id)
}
