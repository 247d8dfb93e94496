package data

import (
	"github.com/gaia-dao/campaigns/src/CampApi/types"
)

// GetByCreatorWallet returns campaigns whose creator has the given wallet.
func (s *CampaignStore) GetByCreatorWallet(wallet string) ([]types.Campaign, error) {
	var cs []types.Campaign
	err := s.db.Preload("Creator").
		Joins("JOIN users ON users.id = campaigns.creator_id").
		Where("users.wallet = ?", wallet).
		Order("campaigns.created_at asc").
		Find(&cs).Error
	return cs, err
}

// GetByParticipantWallet returns campaigns the wallet is enrolled in.
func (s *CampaignStore) GetByParticipantWallet(wallet string) ([]types.Campaign, error) {
	var cs []types.Campaign
	err := s.db.Preload("Creator").
		Joins("JOIN campaign_participants cp ON cp.campaign_id = campaigns.id").
		Joins("JOIN users ON users.id = cp.user_id").
		Where("users.wallet = ?", wallet).
		Order("campaigns.created_at asc").
		Find(&cs).Error
	return cs, err
}
