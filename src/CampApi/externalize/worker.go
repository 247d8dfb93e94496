// Package externalize publishes filled campaigns to the on-chain ledger.
//
// Publishing is driven by an outbox: the enroll transaction that fills a
// campaign also inserts a pending job, and this worker drains jobs with
// retry. The worker is safe to re-run because it never publishes a campaign
// that already carries an external reference, and a publish whose reference
// could not be recorded is resumed from the job row instead of republished.
package externalize

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jpillora/backoff"
	"github.com/redis/go-redis/v9"

	"github.com/gaia-dao/campaigns/src/CampApi/data"
	"github.com/gaia-dao/campaigns/src/CampApi/types"
	"github.com/gaia-dao/campaigns/src/campchain"
)

// Terminal job failure reasons. These are precondition failures no retry
// can fix; the enrollment that triggered the job has already succeeded.
const (
	ReasonMissingCreatorWallet     = "creator has no wallet address"
	ReasonMissingParticipantWallet = "participant has no wallet address"
	ReasonCampaignMissing          = "campaign row missing"
)

// Ledger is the write side of the chain client used for publishing.
type Ledger interface {
	CreateCampaign(ctx context.Context, snap campchain.Snapshot) (string, error)
}

type Worker struct {
	store  *data.CampaignStore
	ledger Ledger
	rdb    *redis.Client // optional; event stream only
	retry  *backoff.Backoff
	kick   chan struct{}

	// Best-effort guard against republishing inside one process lifetime
	// when a publish succeeded but no row could be updated afterwards.
	mu        sync.Mutex
	published map[string]string // campaign id -> tx hash
}

func NewWorker(store *data.CampaignStore, ledger Ledger, rdb *redis.Client) *Worker {
	return &Worker{
		store:  store,
		ledger: ledger,
		rdb:    rdb,
		retry: &backoff.Backoff{
			Min:    5 * time.Second,
			Max:    10 * time.Minute,
			Factor: 2,
		},
		kick:      make(chan struct{}, 1),
		published: make(map[string]string),
	}
}

// Kick nudges the worker without blocking. Called from the enroll path so
// a freshly filled campaign is picked up before the next poll tick, while
// the enroll response never waits on the ledger.
func (w *Worker) Kick() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run drains pending jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.processPending(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("externalize: stopping worker")
			return
		case <-w.kick:
			w.processPending(ctx)
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

func (w *Worker) processPending(ctx context.Context) {
	jobs, err := w.store.PendingJobs(50)
	if err != nil {
		log.Printf("externalize: list pending jobs: %v", err)
		return
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		if !w.due(job) {
			continue
		}
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("externalize: campaign %s attempt %d: %v", job.CampaignID, job.Attempts+1, err)
		}
	}
}

// due applies the retry backoff between attempts of the same job.
func (w *Worker) due(job types.ExternalizationJob) bool {
	if job.Attempts == 0 {
		return true
	}
	return time.Since(job.UpdatedAt) >= w.retry.ForAttempt(float64(job.Attempts))
}

func (w *Worker) processJob(ctx context.Context, job types.ExternalizationJob) error {
	campaign, err := w.store.GetByID(job.CampaignID)
	if err != nil {
		if err == data.ErrNotFound {
			log.Printf("externalize: job %d references missing campaign %s", job.ID, job.CampaignID)
			return w.store.MarkJobFailed(job.ID, ReasonCampaignMissing)
		}
		return err
	}

	// Idempotence guard: never publish twice.
	if campaign.Externalized() {
		return w.store.MarkJobDone(job.ID)
	}
	if tx := w.recoveredTx(job); tx != "" {
		// Published on an earlier attempt but the reference was never
		// recorded. Finish the bookkeeping without touching the chain.
		log.Printf("externalize: campaign %s was published as %s but unrecorded, recording now", campaign.ID, tx)
		return w.finish(ctx, job, campaign.ID, tx)
	}

	if campaign.Creator.Wallet == "" {
		// Terminal: surfaced loudly, never retried, enrollment unaffected.
		log.Printf("externalize: campaign %s cannot be published: %s", campaign.ID, ReasonMissingCreatorWallet)
		return w.store.MarkJobFailed(job.ID, ReasonMissingCreatorWallet)
	}

	snap, err := buildSnapshot(campaign)
	if err != nil {
		log.Printf("externalize: campaign %s cannot be published: %v", campaign.ID, err)
		return w.store.MarkJobFailed(job.ID, err.Error())
	}

	txHash, err := w.ledger.CreateCampaign(ctx, snap)
	if err != nil {
		if recErr := w.store.RecordJobAttempt(job.ID, err.Error()); recErr != nil {
			log.Printf("externalize: record attempt for %s: %v", campaign.ID, recErr)
		}
		return fmt.Errorf("publish: %w", err)
	}

	w.mu.Lock()
	w.published[campaign.ID] = txHash
	w.mu.Unlock()

	if err := w.store.MarkJobPublishedTx(job.ID, txHash); err != nil {
		// Published but nothing persisted. Logged distinctly from a publish
		// failure so operators reconcile manually; the in-memory guard
		// keeps this process from republishing meanwhile.
		log.Printf("externalize: PUBLISHED BUT UNRECORDED campaign %s tx %s: %v", campaign.ID, txHash, err)
		return err
	}

	return w.finish(ctx, job, campaign.ID, txHash)
}

// recoveredTx returns the transaction hash of a previous publish attempt,
// from the job row or the process-local guard.
func (w *Worker) recoveredTx(job types.ExternalizationJob) string {
	if job.PublishedTx != nil && *job.PublishedTx != "" {
		return *job.PublishedTx
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.published[job.CampaignID]
}

func (w *Worker) finish(ctx context.Context, job types.ExternalizationJob, campaignID, txHash string) error {
	if err := w.store.RecordExternalReference(campaignID, txHash); err != nil && err != data.ErrAlreadyExternalized {
		log.Printf("externalize: PUBLISHED BUT UNRECORDED campaign %s tx %s: %v", campaignID, txHash, err)
		return err
	}
	if err := w.store.MarkJobDone(job.ID); err != nil {
		return err
	}
	log.Printf("externalize: campaign %s published as %s", campaignID, txHash)

	if w.rdb != nil {
		if err := data.PublishExternalized(ctx, w.rdb, campaignID, txHash); err != nil {
			log.Printf("externalize: publish event for %s: %v", campaignID, err)
		}
	}
	return nil
}

// buildSnapshot freezes the campaign into the immutable on-chain payload.
func buildSnapshot(c *types.Campaign) (campchain.Snapshot, error) {
	names := make([]string, 0, len(c.Participants))
	wallets := make([]common.Address, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.Wallet == "" {
			return campchain.Snapshot{}, fmt.Errorf("%s: user %s", ReasonMissingParticipantWallet, p.ID)
		}
		names = append(names, p.Name)
		wallets = append(wallets, common.HexToAddress(p.Wallet))
	}

	return campchain.Snapshot{
		UUID:               c.ID,
		Name:               c.Name,
		Description:        c.Description,
		StartAt:            c.StartDate.Unix(),
		EndAt:              c.EndDate.Unix(),
		Creator:            common.HexToAddress(c.Creator.Wallet),
		ParticipantNames:   names,
		ParticipantWallets: wallets,
		Reward:             campchain.ToBaseUnits(c.Reward),
	}, nil
}
