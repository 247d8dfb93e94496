package data

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gaia-dao/campaigns/src/CampApi/types"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(u *types.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return s.db.Create(u).Error
}

func (s *UserStore) GetByID(id string) (*types.User, error) {
	var u types.User
	err := s.db.First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) GetByWallet(wallet string) (*types.User, error) {
	var u types.User
	err := s.db.First(&u, "wallet = ?", wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureWalletUser returns the user linked to the wallet, creating a bare
// profile on first authentication.
func (s *UserStore) EnsureWalletUser(wallet string) (*types.User, error) {
	u, err := s.GetByWallet(wallet)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	nu := &types.User{ID: uuid.NewString(), Wallet: wallet}
	if err := s.db.Create(nu).Error; err != nil {
		return nil, err
	}
	return nu, nil
}

func (s *UserStore) UpdateName(id, name string) error {
	return s.db.Model(&types.User{}).Where("id = ?", id).Update("name", name).Error
}
