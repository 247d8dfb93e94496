package webserver

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gaia-dao/campaigns/src/CampApi/data"
	"github.com/gaia-dao/campaigns/src/CampApi/externalize"
	"github.com/gaia-dao/campaigns/src/CampApi/types"
)

type Campaigns struct {
	store  *data.CampaignStore
	users  *data.UserStore
	worker *externalize.Worker // nil when the chain is not configured
}

func NewCampaigns(store *data.CampaignStore, users *data.UserStore, worker *externalize.Worker) Campaigns {
	return Campaigns{store: store, users: users, worker: worker}
}

func (h Campaigns) currentUser(c *gin.Context) (*types.User, bool) {
	addr := c.GetString("addr")
	u, err := h.users.GetByWallet(addr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "unknown user"})
		return nil, false
	}
	return u, true
}

func (h Campaigns) Create(c *gin.Context) {
	var req struct {
		Name        string    `json:"name" binding:"required,max=255"`
		Description string    `json:"description" binding:"max=10000"`
		ImageURL    string    `json:"imageUrl" binding:"max=512"`
		StartDate   time.Time `json:"startDate" binding:"required"`
		EndDate     time.Time `json:"endDate" binding:"required"`
		Capacity    int       `json:"capacity" binding:"required,min=1,max=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !req.EndDate.After(req.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "endDate must be after startDate"})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	campaign := types.Campaign{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Capacity:    req.Capacity,
		CreatorID:   user.ID,
	}
	if err := h.store.Create(&campaign); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": campaign.ID})
}

func (h Campaigns) Get(c *gin.Context) {
	campaign, err := h.store.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(storeStatus(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (h Campaigns) List(c *gin.Context) {
	campaigns, err := h.store.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

func (h Campaigns) Approve(c *gin.Context) {
	var req struct {
		Reward string `json:"reward" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	reward, err := decimal.NewFromString(req.Reward)
	if err != nil || reward.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"err": "reward must be a non-negative decimal"})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"err": "admin only"})
		return
	}

	if err := h.store.Approve(c.Param("id"), reward); err != nil {
		c.JSON(storeStatus(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": types.StatusActive})
}

// Join enrolls the authenticated user. Enrollment success is acknowledged
// regardless of how the externalization publish later fares.
func (h Campaigns) Join(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	h.enroll(c, c.Param("id"), user.ID)
}

// AddParticipant lets the creator or an admin enroll another user, e.g.
// one who has not linked a wallet yet.
func (h Campaigns) AddParticipant(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required,uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
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
	h.enroll(c, campaign.ID, req.UserID)
}

func (h Campaigns) enroll(c *gin.Context, campaignID, userID string) {
	justFilled, err := h.store.Enroll(campaignID, userID)
	if err != nil {
		c.JSON(storeStatus(err), gin.H{"err": err.Error()})
		return
	}
	if justFilled {
		log.Printf("Campaign %s reached capacity, externalization queued", campaignID)
		if h.worker != nil {
			h.worker.Kick()
		}
	}
	c.JSON(http.StatusOK, gin.H{"joined": true, "justFilled": justFilled})
}

func (h Campaigns) Cancel(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
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
	if err := h.store.Cancel(campaign.ID); err != nil {
		c.JSON(storeStatus(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": types.StatusCancelled})
}

func (h Campaigns) Complete(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"err": "admin only"})
		return
	}
	if err := h.store.Complete(c.Param("id")); err != nil {
		c.JSON(storeStatus(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": types.StatusCompleted})
}

// ExternalizationStatus exposes the outbox job for a campaign so operators
// can see terminal failures and pending retries.
func (h Campaigns) ExternalizationStatus(c *gin.Context) {
	job, err := h.store.GetJob(c.Param("id"))
	if err != nil {
		c.JSON(storeStatus(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func storeStatus(err error) int {
	switch {
	case errors.Is(err, data.ErrNotFound), errors.Is(err, data.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, data.ErrAlreadyFull),
		errors.Is(err, data.ErrDuplicateParticipant),
		errors.Is(err, data.ErrInvalidState),
		errors.Is(err, data.ErrAlreadyExternalized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
