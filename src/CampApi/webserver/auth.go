package webserver

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gaia-dao/campaigns/src/CampApi/data"
)

type Auth struct {
	rdb       *redis.Client
	users     *data.UserStore
	jwtSecret []byte
}

func NewAuth(rdb *redis.Client, users *data.UserStore, secret []byte) Auth {
	return Auth{rdb: rdb, users: users, jwtSecret: secret}
}

func (a Auth) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address format"})
		return
	}

	addr := common.HexToAddress(req.Address).Hex()
	nonce := uuid.NewString()
	if err := data.SetNonce(c, a.rdb, addr, nonce); err != nil {
		log.Printf("Failed to set nonce for %s: %v", addr, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to create challenge"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

func (a Auth) Verify(c *gin.Context) {
	var req struct {
		Address   string `json:"address"   binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address format"})
		return
	}

	addr := common.HexToAddress(req.Address).Hex()
	nonce, err := data.GetAndDelNonce(c, a.rdb, addr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "challenge expired"})
		return
	}

	if err := verifySignature(addr, req.Signature, nonce); err != nil {
		log.Printf("Signature verification failed for %s: %v", addr, err)
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad signature"})
		return
	}

	if _, err := a.users.EnsureWalletUser(addr); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	token, err := issueJWT(addr, a.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// verifySignature checks an EIP-191 personal_sign signature over the nonce.
func verifySignature(addr, sigHex, nonce string) error {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}
	// Wallets return V as 27/28; go-ethereum expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(nonce)), sig)
	if err != nil {
		return fmt.Errorf("recover pubkey: %w", err)
	}
	if !strings.EqualFold(crypto.PubkeyToAddress(*pub).Hex(), addr) {
		return fmt.Errorf("recovered address mismatch")
	}
	return nil
}
