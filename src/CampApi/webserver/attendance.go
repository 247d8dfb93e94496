package webserver

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/gaia-dao/campaigns/src/CampApi/data"
)

// AttendanceMarker is the chain write surface for attendance marks.
type AttendanceMarker interface {
	MarkAttendance(ctx context.Context, id uint64, attendees []common.Address) (string, error)
}

type Attendance struct {
	store *data.CampaignStore
	users *data.UserStore
	chain AttendanceMarker // nil when the chain is not configured
}

func NewAttendance(store *data.CampaignStore, users *data.UserStore, chain AttendanceMarker) Attendance {
	return Attendance{store: store, users: users, chain: chain}
}

// Mark records attendance on the ledger. Attendance lives only on chain
// after externalization; the primary roster is never mutated here.
func (h Attendance) Mark(c *gin.Context) {
	var req struct {
		Addresses []string `json:"addresses" binding:"required,min=1,max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	attendees := make([]common.Address, 0, len(req.Addresses))
	for _, a := range req.Addresses {
		if !common.IsHexAddress(a) {
			c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address: " + a})
			return
		}
		attendees = append(attendees, common.HexToAddress(a))
	}

	addr := c.GetString("addr")
	user, err := h.users.GetByWallet(addr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "unknown user"})
		return
	}

	campaign, err := h.store.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(storeStatus(err), gin.H{"err": err.Error()})
		return
	}
	if campaign.CreatorID != user.ID && !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"err": "not the campaign creator"})
		return
	}
	if !campaign.Externalized() || campaign.OnchainID == nil {
		c.JSON(http.StatusConflict, gin.H{"err": "campaign is not externalized yet"})
		return
	}
	if h.chain == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "chain not configured"})
		return
	}

	tx, err := h.chain.MarkAttendance(c, *campaign.OnchainID, attendees)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx": tx})
}
