// Package views builds the unified read model over the primary store and
// the on-chain ledger.
package views

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gaia-dao/campaigns/src/CampApi/types"
	"github.com/gaia-dao/campaigns/src/campchain"
)

type Source string

const (
	SourcePrimary  Source = "primary"
	SourceExternal Source = "external"
)

// CampaignView is a read-only projection of one logical campaign,
// regardless of which store produced it.
type CampaignView struct {
	Source      Source `json:"source"`
	ID          string `json:"id,omitempty"` // primary store uuid, empty for unmatched chain records

	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	StartAt     time.Time `json:"startAt"`
	EndAt       time.Time `json:"endAt"`
	Status      string    `json:"status"`
	Creator     string    `json:"creator,omitempty"` // wallet address

	// Live counters from the primary store. Once a campaign is
	// externalized these reflect creation time; the ledger roster is the
	// authority for attendance.
	Capacity            int `json:"capacity,omitempty"`
	CurrentParticipants int `json:"currentParticipants,omitempty"`

	Reward decimal.Decimal `json:"reward"`
	Funds  decimal.Decimal `json:"funds"`

	OnchainID   *uint64 `json:"onchainId,omitempty"`
	TxReference string  `json:"txReference,omitempty"`
}

// Compose merges primary and ledger result sets into one list with no two
// entries for the same logical campaign. A primary record holding an
// external reference that matches a ledger record's uuid tag absorbs that
// record: mutable fields stay primary, externalization data comes from the
// ledger.
func Compose(primary []types.Campaign, onchain []campchain.OnchainCampaign) []CampaignView {
	byUUID := make(map[string]*campchain.OnchainCampaign, len(onchain))
	for i := range onchain {
		byUUID[onchain[i].UUID] = &onchain[i]
	}

	consumed := make(map[string]bool)
	out := make([]CampaignView, 0, len(primary)+len(onchain))

	for i := range primary {
		c := &primary[i]
		v := fromPrimary(c)
		if c.Externalized() {
			if oc, ok := byUUID[c.ID]; ok {
				mergeOnchain(&v, oc)
				consumed[c.ID] = true
			}
		}
		out = append(out, v)
	}

	for i := range onchain {
		oc := &onchain[i]
		if consumed[oc.UUID] {
			continue
		}
		out = append(out, fromOnchain(oc))
	}

	return out
}

func fromPrimary(c *types.Campaign) CampaignView {
	v := CampaignView{
		Source:              SourcePrimary,
		ID:                  c.ID,
		Name:                c.Name,
		Description:         c.Description,
		ImageURL:            c.ImageURL,
		StartAt:             c.StartDate,
		EndAt:               c.EndDate,
		Status:              string(c.Status),
		Creator:             c.Creator.Wallet,
		Capacity:            c.Capacity,
		CurrentParticipants: c.CurrentParticipants,
		Reward:              c.Reward,
		OnchainID:           c.OnchainID,
	}
	if c.ExternalReference != nil {
		v.TxReference = *c.ExternalReference
	}
	return v
}

func fromOnchain(oc *campchain.OnchainCampaign) CampaignView {
	id := oc.ID
	return CampaignView{
		Source:      SourceExternal,
		ID:          oc.UUID,
		Name:        oc.Name,
		Description: oc.Description,
		ImageURL:    oc.ImageURL,
		StartAt:     oc.StartAt,
		EndAt:       oc.EndAt,
		Status:      oc.Status.String(),
		Creator:     oc.Creator,
		Reward:      oc.RewardAmount,
		Funds:       oc.Funds,
		OnchainID:   &id,
	}
}

func mergeOnchain(v *CampaignView, oc *campchain.OnchainCampaign) {
	id := oc.ID
	v.OnchainID = &id
	v.Funds = oc.Funds
	if v.Creator == "" {
		v.Creator = oc.Creator
	}
}
