package webserver

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/gaia-dao/campaigns/src/CampApi/data"
	"github.com/gaia-dao/campaigns/src/CampApi/types"
	"github.com/gaia-dao/campaigns/src/CampApi/views"
	"github.com/gaia-dao/campaigns/src/campchain"
)

// ChainReader is the scanner surface the view endpoints need. nil when the
// chain is not configured; views then degrade to primary-store data only.
type ChainReader interface {
	AllCampaigns(ctx context.Context, maxID uint64) ([]campchain.OnchainCampaign, error)
	CampaignsCreatedBy(ctx context.Context, maxID uint64, wallet string) ([]campchain.OnchainCampaign, error)
	CampaignsForWallet(ctx context.Context, maxID uint64, wallet string) ([]campchain.OnchainCampaign, error)
}

type Views struct {
	store     *data.CampaignStore
	scanner   ChainReader
	rdb       *redis.Client
	maxScanID uint64
}

func NewViews(store *data.CampaignStore, scanner ChainReader, rdb *redis.Client, maxScanID uint64) Views {
	return Views{store: store, scanner: scanner, rdb: rdb, maxScanID: maxScanID}
}

// List returns the unified view over both stores. Scan results are a lower
// bound when the ledger is partially unreachable.
func (h Views) List(c *gin.Context) {
	primary, err := h.store.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	onchain := h.scanAll(c)
	h.backfillOnchainIDs(primary, onchain)
	c.JSON(http.StatusOK, gin.H{"campaigns": views.Compose(primary, onchain)})
}

// Campaign returns the unified view of a single campaign.
func (h Views) Campaign(c *gin.Context) {
	campaign, err := h.store.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(storeStatus(err), gin.H{"err": err.Error()})
		return
	}

	primary := []types.Campaign{*campaign}
	var matched []campchain.OnchainCampaign
	if campaign.Externalized() {
		for _, oc := range h.scanAll(c) {
			if oc.UUID == campaign.ID {
				matched = append(matched, oc)
				break
			}
		}
		h.backfillOnchainIDs(primary, matched)
	}

	c.JSON(http.StatusOK, views.Compose(primary, matched)[0])
}

// Wallet lists campaigns a wallet created or joined, merged across stores.
func (h Views) Wallet(c *gin.Context) {
	if !common.IsHexAddress(c.Param("address")) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address format"})
		return
	}
	wallet := common.HexToAddress(c.Param("address")).Hex()
	role := c.DefaultQuery("role", "joined")

	var (
		primary []types.Campaign
		onchain []campchain.OnchainCampaign
		err     error
	)
	switch role {
	case "created":
		primary, err = h.store.GetByCreatorWallet(wallet)
		if err == nil && h.scanner != nil {
			onchain = h.cachedScan(c, fmt.Sprintf("created:%s:%d", wallet, h.maxScanID), func(ctx context.Context) ([]campchain.OnchainCampaign, error) {
				return h.scanner.CampaignsCreatedBy(ctx, h.maxScanID, wallet)
			})
		}
	case "joined":
		primary, err = h.store.GetByParticipantWallet(wallet)
		if err == nil && h.scanner != nil {
			onchain = h.cachedScan(c, fmt.Sprintf("joined:%s:%d", wallet, h.maxScanID), func(ctx context.Context) ([]campchain.OnchainCampaign, error) {
				return h.scanner.CampaignsForWallet(ctx, h.maxScanID, wallet)
			})
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"err": "role must be created or joined"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	h.backfillOnchainIDs(primary, onchain)
	c.JSON(http.StatusOK, gin.H{"campaigns": views.Compose(primary, onchain)})
}

func (h Views) scanAll(c *gin.Context) []campchain.OnchainCampaign {
	if h.scanner == nil {
		return nil
	}
	return h.cachedScan(c, fmt.Sprintf("all:%d", h.maxScanID), func(ctx context.Context) ([]campchain.OnchainCampaign, error) {
		return h.scanner.AllCampaigns(ctx, h.maxScanID)
	})
}

func (h Views) cachedScan(c *gin.Context, key string, fetch func(context.Context) ([]campchain.OnchainCampaign, error)) []campchain.OnchainCampaign {
	var cached []campchain.OnchainCampaign
	if h.rdb != nil && data.CachedScan(c, h.rdb, key, &cached) {
		return cached
	}

	result, err := fetch(c)
	if err != nil {
		// Best effort: the primary store still answers.
		log.Printf("Ledger scan %s failed: %v", key, err)
		return result
	}
	if h.rdb != nil {
		if err := data.CacheScan(c, h.rdb, key, result); err != nil {
			log.Printf("Failed to cache scan %s: %v", key, err)
		}
	}
	return result
}

// backfillOnchainIDs persists ledger-native ids discovered by correlation,
// so later reads need no scan to find them.
func (h Views) backfillOnchainIDs(primary []types.Campaign, onchain []campchain.OnchainCampaign) {
	byUUID := make(map[string]uint64, len(onchain))
	for _, oc := range onchain {
		byUUID[oc.UUID] = oc.ID
	}
	for i := range primary {
		c := &primary[i]
		if !c.Externalized() || c.OnchainID != nil {
			continue
		}
		if id, ok := byUUID[c.ID]; ok {
			if err := h.store.SetOnchainID(c.ID, id); err != nil {
				log.Printf("Failed to backfill onchain id for %s: %v", c.ID, err)
				continue
			}
			c.OnchainID = &id
		}
	}
}
