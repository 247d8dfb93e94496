package campchain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	campaigns    map[uint64]*OnchainCampaign
	errs         map[uint64]error
	participants map[uint64][]OnchainParticipant
	partErrs     map[uint64]error

	delay time.Duration

	mu         sync.Mutex
	inFlight   int32
	maxInFlight int32
}

func (f *fakeReader) CampaignByID(_ context.Context, id uint64) (*OnchainCampaign, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)

	f.mu.Lock()
	if cur > f.maxInFlight {
		f.maxInFlight = cur
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	if c, ok := f.campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (f *fakeReader) Participants(_ context.Context, id uint64) ([]OnchainParticipant, error) {
	if err, ok := f.partErrs[id]; ok {
		return nil, err
	}
	return f.participants[id], nil
}

func campaignAt(id uint64, creator string) *OnchainCampaign {
	return &OnchainCampaign{
		ID:      id,
		UUID:    fmt.Sprintf("uuid-%d", id),
		Name:    fmt.Sprintf("campaign %d", id),
		Creator: creator,
	}
}

func TestScanSkipsAbsentAndErroringIDs(t *testing.T) {
	reader := &fakeReader{
		campaigns: map[uint64]*OnchainCampaign{
			3: campaignAt(3, "0x1111111111111111111111111111111111111111"),
			7: campaignAt(7, "0x2222222222222222222222222222222222222222"),
		},
		errs: map[uint64]error{
			5: fmt.Errorf("rpc timeout"),
			8: fmt.Errorf("connection refused"),
		},
	}
	s := NewScanner(reader, 4, time.Second)

	got, err := s.AllCampaigns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2, "exactly the present records, errors isolated per id")
	assert.Equal(t, uint64(3), got[0].ID)
	assert.Equal(t, uint64(7), got[1].ID)
}

func TestScanCreatedByPredicate(t *testing.T) {
	creator := "0x1111111111111111111111111111111111111111"
	reader := &fakeReader{
		campaigns: map[uint64]*OnchainCampaign{
			1: campaignAt(1, creator),
			2: campaignAt(2, "0x3333333333333333333333333333333333333333"),
			3: campaignAt(3, creator),
		},
	}
	s := NewScanner(reader, 2, time.Second)

	// Address comparison is case-insensitive.
	got, err := s.CampaignsCreatedBy(context.Background(), 5, "0X1111111111111111111111111111111111111111")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].ID)
	assert.Equal(t, uint64(3), got[1].ID)
}

func TestScanForWalletPredicate(t *testing.T) {
	wallet := "0xaaaa000000000000000000000000000000000001"
	reader := &fakeReader{
		campaigns: map[uint64]*OnchainCampaign{
			1: campaignAt(1, "0x1111111111111111111111111111111111111111"),
			2: campaignAt(2, "0x1111111111111111111111111111111111111111"),
			3: campaignAt(3, "0x1111111111111111111111111111111111111111"),
		},
		participants: map[uint64][]OnchainParticipant{
			1: {{Name: "alice", Wallet: wallet}},
			2: {{Name: "bob", Wallet: "0xbbbb000000000000000000000000000000000002"}},
		},
		partErrs: map[uint64]error{
			// A failing roster read drops that id, not the scan.
			3: fmt.Errorf("rpc timeout"),
		},
	}
	s := NewScanner(reader, 2, time.Second)

	got, err := s.CampaignsForWallet(context.Background(), 3, wallet)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].ID)
}

func TestScanBoundsConcurrency(t *testing.T) {
	reader := &fakeReader{
		campaigns: map[uint64]*OnchainCampaign{},
		delay:     5 * time.Millisecond,
	}
	for id := uint64(1); id <= 20; id++ {
		reader.campaigns[id] = campaignAt(id, "0x1111111111111111111111111111111111111111")
	}

	s := NewScanner(reader, 3, time.Second)
	got, err := s.AllCampaigns(context.Background(), 20)
	require.NoError(t, err)
	assert.Len(t, got, 20)

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.LessOrEqual(t, reader.maxInFlight, int32(3), "worker bound must hold")
}

func TestScanHonorsCancellation(t *testing.T) {
	reader := &fakeReader{
		campaigns: map[uint64]*OnchainCampaign{1: campaignAt(1, "0x1111111111111111111111111111111111111111")},
	}
	s := NewScanner(reader, 2, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AllCampaigns(ctx, 100)
	assert.ErrorIs(t, err, context.Canceled)
}
