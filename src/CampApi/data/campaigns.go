package data

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gaia-dao/campaigns/src/CampApi/types"
)

// Domain rejections. Surfaced synchronously to the caller, never retried.
var (
	ErrNotFound             = errors.New("campaign not found")
	ErrAlreadyFull          = errors.New("campaign already full")
	ErrDuplicateParticipant = errors.New("participant already enrolled")
	ErrInvalidState         = errors.New("invalid campaign state")
	ErrAlreadyExternalized  = errors.New("external reference already recorded")
	ErrUserNotFound         = errors.New("user not found")
)

// CampaignStore is the primary transactional store for campaigns.
type CampaignStore struct {
	db *gorm.DB
}

func NewCampaignStore(db *gorm.DB) *CampaignStore {
	return &CampaignStore{db: db}
}

// Create persists a new campaign in Created state.
func (s *CampaignStore) Create(c *types.Campaign) error {
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Status = types.StatusCreated
	c.CurrentParticipants = 0
	return s.db.Create(c).Error
}

func (s *CampaignStore) GetByID(id string) (*types.Campaign, error) {
	var c types.Campaign
	err := s.db.Preload("Creator").Preload("Participants").First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CampaignStore) GetAll() ([]types.Campaign, error) {
	var cs []types.Campaign
	err := s.db.Preload("Creator").Order("created_at asc").Find(&cs).Error
	return cs, err
}

// Approve fixes the reward and moves the campaign from Created to Active.
func (s *CampaignStore) Approve(id string, reward decimal.Decimal) error {
	if reward.IsNegative() {
		return fmt.Errorf("reward must be non-negative")
	}
	res := s.db.Model(&types.Campaign{}).
		Where("id = ? AND status = ?", id, types.StatusCreated).
		Updates(map[string]any{"status": types.StatusActive, "reward": reward})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.classifyMissedTransition(id)
	}
	return nil
}

// Cancel is allowed from Created or Active only.
func (s *CampaignStore) Cancel(id string) error {
	res := s.db.Model(&types.Campaign{}).
		Where("id = ? AND status IN ?", id, []types.CampaignStatus{types.StatusCreated, types.StatusActive}).
		Update("status", types.StatusCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.classifyMissedTransition(id)
	}
	return nil
}

// Complete records the externally driven InProgress -> Completed transition.
func (s *CampaignStore) Complete(id string) error {
	res := s.db.Model(&types.Campaign{}).
		Where("id = ? AND status = ?", id, types.StatusInProgress).
		Update("status", types.StatusCompleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.classifyMissedTransition(id)
	}
	return nil
}

// Enroll adds a participant to an Active campaign. The capacity check and
// counter increment run as one guarded UPDATE, so concurrent enrollers can
// neither overshoot capacity nor both observe justFilled. When the increment
// fills the campaign, the same transaction flips it to InProgress and queues
// the externalization job, leaving the publish itself to the outbox worker.
func (s *CampaignStore) Enroll(id, userID string) (justFilled bool, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var user types.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		res := tx.Model(&types.Campaign{}).
			Where("id = ? AND status = ? AND current_participants < capacity", id, types.StatusActive).
			UpdateColumn("current_participants", gorm.Expr("current_participants + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.classifyMissedEnroll(tx, id)
		}

		// Duplicate enrollment shows up as a key violation and rolls the
		// increment back with the transaction.
		if err := tx.Create(&types.CampaignParticipant{CampaignID: id, UserID: userID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateParticipant
			}
			return err
		}

		var c types.Campaign
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			return err
		}
		if c.CurrentParticipants == c.Capacity {
			justFilled = true
			if err := tx.Model(&types.Campaign{}).
				Where("id = ?", id).
				Update("status", types.StatusInProgress).Error; err != nil {
				return err
			}
			if err := tx.Create(&types.ExternalizationJob{CampaignID: id, Status: types.JobPending}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return justFilled, nil
}

// RecordExternalReference sets the on-chain reference at most once. Called
// only by the externalization worker.
func (s *CampaignStore) RecordExternalReference(id, ref string) error {
	res := s.db.Model(&types.Campaign{}).
		Where("id = ? AND external_reference IS NULL", id).
		Update("external_reference", ref)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var c types.Campaign
		if err := s.db.First(&c, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return ErrAlreadyExternalized
	}
	return nil
}

// SetOnchainID backfills the ledger-native id once a scan has correlated
// the uuid tag. Idempotent.
func (s *CampaignStore) SetOnchainID(id string, onchainID uint64) error {
	return s.db.Model(&types.Campaign{}).
		Where("id = ?", id).
		Update("onchain_id", onchainID).Error
}

// classifyMissedEnroll explains why the guarded increment matched no row.
func (s *CampaignStore) classifyMissedEnroll(tx *gorm.DB, id string) error {
	var c types.Campaign
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if c.CurrentParticipants >= c.Capacity {
		return ErrAlreadyFull
	}
	return ErrInvalidState
}

func (s *CampaignStore) classifyMissedTransition(id string) error {
	var c types.Campaign
	if err := s.db.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return ErrInvalidState
}
