package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gaia-dao/campaigns/src/CampApi/data"
	"github.com/gaia-dao/campaigns/src/CampApi/types"
)

type Users struct {
	users *data.UserStore
}

func NewUsers(users *data.UserStore) Users {
	return Users{users: users}
}

func (h Users) Me(c *gin.Context) {
	u, err := h.users.GetByWallet(c.GetString("addr"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h Users) UpdateMe(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	u, err := h.users.GetByWallet(c.GetString("addr"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "unknown user"})
		return
	}
	if err := h.users.UpdateName(u.ID, req.Name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Create registers a profile without a wallet, e.g. a participant who will
// link one later. Admin only.
func (h Users) Create(c *gin.Context) {
	var req struct {
		Name   string `json:"name" binding:"required,max=128"`
		Email  string `json:"email" binding:"required,email,max=256"`
		Wallet string `json:"wallet" binding:"max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	caller, err := h.users.GetByWallet(c.GetString("addr"))
	if err != nil || !caller.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"err": "admin only"})
		return
	}

	u := types.User{Name: req.Name, Email: req.Email, Wallet: req.Wallet}
	if err := h.users.Create(&u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"err": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": u.ID})
}
