package data

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	noncePrefix     = "nonce:"
	scanPrefix      = "scan:"
	streamEvents    = "campaigns.externalized"
	nonceTTL        = 5 * time.Minute
	scanCacheTTL    = 30 * time.Second
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

func SetNonce(ctx context.Context, rdb *redis.Client, addr, nonce string) error {
	return rdb.Set(ctx, noncePrefix+addr, nonce, nonceTTL).Err()
}

func GetAndDelNonce(ctx context.Context, rdb *redis.Client, addr string) (string, error) {
	return rdb.GetDel(ctx, noncePrefix+addr).Result()
}

// PublishExternalized emits a stream event once a campaign snapshot has
// landed on chain and its reference is recorded.
func PublishExternalized(ctx context.Context, rdb *redis.Client, campaignID, txHash string) error {
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamEvents,
		Values: map[string]any{
			"campaign": campaignID,
			"tx":       txHash,
			"time":     time.Now().Unix(),
		},
	}).Result()
	return err
}

// CacheScan stores a ledger scan result under the given key. Scans are
// expensive (one RPC round-trip per id) so even a short TTL helps.
func CacheScan(ctx context.Context, rdb *redis.Client, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, scanPrefix+key, raw, scanCacheTTL).Err()
}

// CachedScan loads a previously cached scan into out. Returns false on a
// cache miss.
func CachedScan(ctx context.Context, rdb *redis.Client, key string, out any) bool {
	raw, err := rdb.Get(ctx, scanPrefix+key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}
