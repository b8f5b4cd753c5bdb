package account

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=account
type Repository interface {
	CreateAccount(ctx context.Context, acc *Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
}

type Service struct {
	repo      Repository
	freeGrant int
}

// NewService returns an account service. freeGrant is the number of free
// conversions granted at registration.
func NewService(repo Repository, freeGrant int) *Service {
	return &Service{repo: repo, freeGrant: freeGrant}
}

// Create registers a new account with the default free-conversion grant
// and a zero balance.
func (s *Service) Create(ctx context.Context, email string) (*Account, error) {
	acc := &Account{
		Email:           email,
		FreeConversions: s.freeGrant,
	}
	if err := s.repo.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}

	return acc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, id)
}
