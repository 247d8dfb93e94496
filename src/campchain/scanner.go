package campchain

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"
)

// Reader is the read side of the ledger client, narrowed for the scanner
// and for tests.
type Reader interface {
	CampaignByID(ctx context.Context, id uint64) (*OnchainCampaign, error)
	Participants(ctx context.Context, id uint64) ([]OnchainParticipant, error)
}

// Predicate decides whether a fetched campaign belongs in a scan result.
// It may issue follow-up reads (e.g. the roster) through the Reader.
type Predicate func(ctx context.Context, r Reader, c *OnchainCampaign) (bool, error)

// All matches every campaign.
func All() Predicate {
	return func(context.Context, Reader, *OnchainCampaign) (bool, error) {
		return true, nil
	}
}

// CreatedBy matches campaigns created by the given wallet.
func CreatedBy(wallet string) Predicate {
	return func(_ context.Context, _ Reader, c *OnchainCampaign) (bool, error) {
		return strings.EqualFold(c.Creator, wallet), nil
	}
}

// HasParticipant matches campaigns whose roster contains the given wallet.
func HasParticipant(wallet string) Predicate {
	return func(ctx context.Context, r Reader, c *OnchainCampaign) (bool, error) {
		participants, err := r.Participants(ctx, c.ID)
		if err != nil {
			return false, err
		}
		for _, p := range participants {
			if strings.EqualFold(p.Wallet, wallet) {
				return true, nil
			}
		}
		return false, nil
	}
}

// Scanner answers queries the ledger cannot index directly by enumerating
// ids 1..maxID. The ledger exposes no count or list primitive, so the upper
// bound is the caller's responsibility and results are a lower bound: ids
// that error are skipped, not retried.
type Scanner struct {
	reader      Reader
	workers     int
	perIDBudget time.Duration
}

func NewScanner(reader Reader, workers int, perIDBudget time.Duration) *Scanner {
	if workers <= 0 {
		workers = 5
	}
	if perIDBudget <= 0 {
		perIDBudget = 10 * time.Second
	}
	return &Scanner{reader: reader, workers: workers, perIDBudget: perIDBudget}
}

// Scan enumerates the id range with bounded concurrency and returns the
// campaigns matching pred, ordered by id. A single id failing never aborts
// the scan.
func (s *Scanner) Scan(ctx context.Context, maxID uint64, pred Predicate) ([]OnchainCampaign, error) {
	results := make([]*OnchainCampaign, maxID)
	semaphore := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for id := uint64(1); id <= maxID; id++ {
		select {
		case <-ctx.Done():
			wg.Wait()
			return compact(results), ctx.Err()
		default:
		}

		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				return
			}

			idCtx, cancel := context.WithTimeout(ctx, s.perIDBudget)
			defer cancel()

			c, err := s.reader.CampaignByID(idCtx, id)
			if err != nil {
				if !errors.Is(err, ErrNotFound) {
					log.Printf("campchain: scan id %d: %v", id, err)
				}
				return
			}

			ok, err := pred(idCtx, s.reader, c)
			if err != nil {
				log.Printf("campchain: scan predicate id %d: %v", id, err)
				return
			}
			if ok {
				results[id-1] = c
			}
		}(id)
	}

	wg.Wait()
	return compact(results), nil
}

// AllCampaigns returns every campaign up to maxID.
func (s *Scanner) AllCampaigns(ctx context.Context, maxID uint64) ([]OnchainCampaign, error) {
	return s.Scan(ctx, maxID, All())
}

// CampaignsCreatedBy returns campaigns created by the wallet.
func (s *Scanner) CampaignsCreatedBy(ctx context.Context, maxID uint64, wallet string) ([]OnchainCampaign, error) {
	return s.Scan(ctx, maxID, CreatedBy(wallet))
}

// CampaignsForWallet returns campaigns the wallet participates in.
func (s *Scanner) CampaignsForWallet(ctx context.Context, maxID uint64, wallet string) ([]OnchainCampaign, error) {
	return s.Scan(ctx, maxID, HasParticipant(wallet))
}

func compact(results []*OnchainCampaign) []OnchainCampaign {
	out := make([]OnchainCampaign, 0, len(results))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}
