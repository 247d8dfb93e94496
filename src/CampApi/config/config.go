package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/gaia-dao/campaigns/src/CampApi/data"
)

type Config struct {
	Port      string
	MySQLDSN  string
	RedisURL  string
	JWTSecret string

	// Chain
	RPCURL         string
	ManagerAddress string
	SignerKey      string
	RPCTimeout     time.Duration

	// Scanner bounds. The ledger has no list primitive, so scans stop at
	// MaxScanID.
	MaxScanID   uint64
	ScanWorkers int

	OutboxInterval time.Duration

	FrontendURL string
}

func Load(db *gorm.DB) Config {
	// Load settings from database
	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}

	// Chain endpoints live in settings with env fallbacks; secrets come
	// from the environment only.
	rpcURL := data.GetSetting("rpc_url")
	if rpcURL == "" {
		rpcURL = os.Getenv("RPC_URL")
	}

	managerAddr := data.GetSetting("campaign_manager_address")
	if managerAddr == "" {
		managerAddr = os.Getenv("CAMPAIGN_MANAGER_ADDRESS")
	}

	frontendURL := data.GetSetting("frontend_url")
	if frontendURL == "" {
		frontendURL = getenv("FRONTEND_URL", "http://localhost:3000")
	}

	return Config{
		Port:           getenv("PORT", "8080"),
		MySQLDSN:       getenv("MYSQL_DSN", "dev:test@tcp(localhost:3306)/campaigns"),
		RedisURL:       getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:      getenv("JWT_SECRET", ""),
		RPCURL:         rpcURL,
		ManagerAddress: managerAddr,
		SignerKey:      os.Getenv("SIGNER_KEY"),
		RPCTimeout:     getduration("RPC_TIMEOUT", 15*time.Second),
		MaxScanID:      getuint("MAX_SCAN_ID", 100),
		ScanWorkers:    int(getuint("SCAN_WORKERS", 5)),
		OutboxInterval: getduration("OUTBOX_INTERVAL", 30*time.Second),
		FrontendURL:    frontendURL,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getuint(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
		log.Printf("Invalid %s=%q, using %d", key, os.Getenv(key), def)
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid %s=%q, using %s", key, os.Getenv(key), def)
	}
	return def
}
