package campchain

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound means the ledger holds no campaign at that id. Callers
	// distinguish this from transport errors.
	ErrNotFound = errors.New("campaign not found on chain")
	// ErrNoSigner is returned by mutating calls on a read-only client.
	ErrNoSigner = errors.New("client has no signing key")
)

// Status is the contract-local lifecycle enum. It is narrower than the
// primary store's status set.
type Status uint8

const (
	StatusCreated Status = iota
	StatusActive
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusActive:
		return "Active"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// OnchainCampaign is an immutable campaign record read from the ledger.
// UUID carries the primary store identifier as an opaque cross-reference
// tag.
type OnchainCampaign struct {
	ID           uint64          `json:"id"`
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	StartAt      time.Time       `json:"startAt"`
	EndAt        time.Time       `json:"endAt"`
	Creator      string          `json:"creator"`
	RewardAmount decimal.Decimal `json:"rewardAmount"`
	Funds        decimal.Decimal `json:"funds"`
	Status       Status          `json:"status"`
	ImageURL     string          `json:"imageUrl"`
}

type OnchainParticipant struct {
	Name        string `json:"name"`
	Wallet      string `json:"wallet"`
	Attended    bool   `json:"attended"`
	BadgeMinted bool   `json:"badgeMinted"`
}

// Snapshot is the immutable payload published when a campaign fills up.
type Snapshot struct {
	UUID               string
	Name               string
	Description        string
	StartAt            int64 // epoch seconds
	EndAt              int64
	Creator            common.Address
	ParticipantNames   []string
	ParticipantWallets []common.Address
	Reward             *big.Int // token base units
}
