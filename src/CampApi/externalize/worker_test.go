package externalize

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gaia-dao/campaigns/src/CampApi/data"
	"github.com/gaia-dao/campaigns/src/CampApi/types"
	"github.com/gaia-dao/campaigns/src/campchain"
)

type fakeLedger struct {
	mu    sync.Mutex
	calls int
	snaps []campchain.Snapshot
	err   error
}

func (f *fakeLedger) CreateCampaign(_ context.Context, snap campchain.Snapshot) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.snaps = append(f.snaps, snap)
	return fmt.Sprintf("0xtx%04d", f.calls), nil
}

func (f *fakeLedger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, data.Migrate(db))
	return db
}

// fillCampaign drives a campaign through the real enroll path until the
// outbox job exists.
func fillCampaign(t *testing.T, db *gorm.DB, s *data.CampaignStore, creatorWallet string) *types.Campaign {
	t.Helper()

	creator := &types.User{ID: uuid.NewString(), Name: "creator", Email: uuid.NewString() + "@test.local", Wallet: creatorWallet}
	require.NoError(t, db.Create(creator).Error)
	member := &types.User{ID: uuid.NewString(), Name: "member", Email: uuid.NewString() + "@test.local", Wallet: "0xaaa0000000000000000000000000000000000001"}
	require.NoError(t, db.Create(member).Error)

	c := &types.Campaign{
		Name:      "beach day",
		StartDate: time.Unix(1700000000, 0),
		EndDate:   time.Unix(1700003600, 0),
		Capacity:  1,
		CreatorID: creator.ID,
	}
	require.NoError(t, s.Create(c))
	require.NoError(t, s.Approve(c.ID, decimal.NewFromInt(50)))

	justFilled, err := s.Enroll(c.ID, member.ID)
	require.NoError(t, err)
	require.True(t, justFilled)
	return c
}

func newTestWorker(s *data.CampaignStore, ledger Ledger) *Worker {
	w := NewWorker(s, ledger, nil)
	// No waiting between attempts in tests.
	w.retry = &backoff.Backoff{Min: time.Nanosecond, Max: time.Nanosecond}
	return w
}

func TestWorkerPublishesExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	s := data.NewCampaignStore(db)
	ledger := &fakeLedger{}
	w := newTestWorker(s, ledger)

	c := fillCampaign(t, db, s, "0x1111111111111111111111111111111111111111")

	w.processPending(context.Background())
	assert.Equal(t, 1, ledger.callCount())

	got, err := s.GetByID(c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExternalReference)
	assert.Equal(t, "0xtx0001", *got.ExternalReference)

	job, err := s.GetJob(c.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobPublished, job.Status)

	// Re-running the worker must not touch the chain again.
	w.processPending(context.Background())
	assert.Equal(t, 1, ledger.callCount())
}

func TestWorkerSnapshotContents(t *testing.T) {
	db := newTestDB(t)
	s := data.NewCampaignStore(db)
	ledger := &fakeLedger{}
	w := newTestWorker(s, ledger)

	c := fillCampaign(t, db, s, "0x1111111111111111111111111111111111111111")
	w.processPending(context.Background())

	require.Len(t, ledger.snaps, 1)
	snap := ledger.snaps[0]
	assert.Equal(t, c.ID, snap.UUID)
	assert.Equal(t, "beach day", snap.Name)
	assert.Equal(t, int64(1700000000), snap.StartAt)
	assert.Equal(t, int64(1700003600), snap.EndAt)
	require.Len(t, snap.ParticipantWallets, 1)
	// 50 tokens in 18-decimal base units.
	assert.Equal(t, "50000000000000000000", snap.Reward.String())
}

func TestWorkerMissingCreatorWalletIsTerminal(t *testing.T) {
	db := newTestDB(t)
	s := data.NewCampaignStore(db)
	ledger := &fakeLedger{}
	w := newTestWorker(s, ledger)

	c := fillCampaign(t, db, s, "")

	w.processPending(context.Background())
	w.processPending(context.Background())

	assert.Equal(t, 0, ledger.callCount(), "publish must never be attempted")

	got, err := s.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, got.Status)
	assert.Nil(t, got.ExternalReference)

	job, err := s.GetJob(c.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobFailed, job.Status)
	assert.Equal(t, ReasonMissingCreatorWallet, job.LastError)
}

func TestWorkerRetriesTransportFailure(t *testing.T) {
	db := newTestDB(t)
	s := data.NewCampaignStore(db)
	ledger := &fakeLedger{err: fmt.Errorf("rpc unreachable")}
	w := newTestWorker(s, ledger)

	c := fillCampaign(t, db, s, "0x1111111111111111111111111111111111111111")

	w.processPending(context.Background())
	assert.Equal(t, 1, ledger.callCount())

	job, err := s.GetJob(c.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobPending, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.Contains(t, job.LastError, "rpc unreachable")

	// Endpoint recovers; the pending job goes through on the next pass.
	ledger.mu.Lock()
	ledger.err = nil
	ledger.mu.Unlock()

	w.processPending(context.Background())
	got, err := s.GetByID(c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExternalReference)
}

func TestWorkerBackoffDelaysRetry(t *testing.T) {
	db := newTestDB(t)
	s := data.NewCampaignStore(db)
	ledger := &fakeLedger{err: fmt.Errorf("rpc unreachable")}
	w := NewWorker(s, ledger, nil) // real backoff

	fillCampaign(t, db, s, "0x1111111111111111111111111111111111111111")

	w.processPending(context.Background())
	w.processPending(context.Background())
	assert.Equal(t, 1, ledger.callCount(), "second attempt must wait out the backoff")
}

func TestWorkerHealsPublishedButUnrecorded(t *testing.T) {
	db := newTestDB(t)
	s := data.NewCampaignStore(db)
	ledger := &fakeLedger{}
	w := newTestWorker(s, ledger)

	c := fillCampaign(t, db, s, "0x1111111111111111111111111111111111111111")

	// Simulate a crash after publish: the job row knows the tx hash but
	// the campaign row was never updated.
	job, err := s.GetJob(c.ID)
	require.NoError(t, err)
	require.NoError(t, s.MarkJobPublishedTx(job.ID, "0xorphan"))

	w.processPending(context.Background())

	assert.Equal(t, 0, ledger.callCount(), "recovery must not republish")

	got, err := s.GetByID(c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExternalReference)
	assert.Equal(t, "0xorphan", *got.ExternalReference)

	job, err = s.GetJob(c.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobPublished, job.Status)
}

func TestWorkerSkipsAlreadyExternalized(t *testing.T) {
	db := newTestDB(t)
	s := data.NewCampaignStore(db)
	ledger := &fakeLedger{}
	w := newTestWorker(s, ledger)

	c := fillCampaign(t, db, s, "0x1111111111111111111111111111111111111111")
	require.NoError(t, s.RecordExternalReference(c.ID, "0xmanual"))

	w.processPending(context.Background())

	assert.Equal(t, 0, ledger.callCount())
	job, err := s.GetJob(c.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobPublished, job.Status)
}
