package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/fundflow-core/internal/balance"
	"github.com/fundflow-core/internal/domain/account"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accountRepo account.Repository
	balances    BalanceComputer
}

// NewAccountService creates a new account service
func NewAccountService(accountRepo account.Repository, balances BalanceComputer) AccountService {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		balances:    balances,
	}
}

// CreateAccount validates and persists a new account
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, ownerName string, kind account.Kind, currency string) (*account.Account, error) {
	acc, err := account.New(ownerName, kind, currency)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	return acc, nil
}

// GetAccountByID retrieves an account, returns ErrAccountNotFound if missing
func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// AddMember attaches a member to a pooled account
func (s *AccountServiceImpl) AddMember(ctx context.Context, accountID uuid.UUID, displayName string) (*account.Member, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	member, err := acc.NewMember(uuid.New().String(), displayName)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.CreateMember(ctx, member); err != nil {
		return nil, err
	}

	return member, nil
}

// GetBalance aggregates the account's balance report; a store failure shows
// up as an all-zero report rather than an error
func (s *AccountServiceImpl) GetBalance(ctx context.Context, accountID uuid.UUID, memberID string) (balance.Report, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return balance.Report{}, err
	}
	if memberID != "" {
		if _, err := s.accountRepo.GetMember(ctx, accountID, memberID); err != nil {
			return balance.Report{}, err
		}
	}

	return s.balances.Compute(ctx, acc, memberID), nil
}
