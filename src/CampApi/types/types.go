package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Campaign lifecycle in the primary store. Distinct from the on-chain
// status enum (see campchain.Status).
type CampaignStatus string

const (
	StatusCreated    CampaignStatus = "Created"
	StatusActive     CampaignStatus = "Active"
	StatusInProgress CampaignStatus = "InProgress"
	StatusCompleted  CampaignStatus = "Completed"
	StatusCancelled  CampaignStatus = "Cancelled"
)

// Users
type User struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:128"`
	Email     string `gorm:"size:256;uniqueIndex"`
	Wallet    string `gorm:"size:64;index"` // 0x address, empty until linked
	IsAdmin   bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Campaigns
type Campaign struct {
	ID                  string `gorm:"primaryKey;size:36"`
	Name                string `gorm:"size:255;not null"`
	Description         string `gorm:"type:text"`
	ImageURL            string `gorm:"size:512"`
	StartDate           time.Time
	EndDate             time.Time
	Status              CampaignStatus  `gorm:"size:16;not null;default:'Created'"`
	Capacity            int             `gorm:"not null"`
	CurrentParticipants int             `gorm:"not null;default:0"`
	Reward              decimal.Decimal `gorm:"type:decimal(36,18);default:0"`
	CreatorID           string          `gorm:"size:36;index;not null"`
	Creator             User            `gorm:"foreignKey:CreatorID;references:ID"`
	Participants        []User          `gorm:"many2many:campaign_participants;joinForeignKey:CampaignID;joinReferences:UserID"`

	// Set exactly once by the externalization worker, never overwritten.
	ExternalReference *string `gorm:"size:128"`
	// On-chain sequential id, backfilled once a scan correlates the uuid tag.
	OnchainID *uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Externalized reports whether the campaign snapshot has been published.
func (c *Campaign) Externalized() bool {
	return c.ExternalReference != nil && *c.ExternalReference != ""
}

// Join rows are written explicitly so duplicate enrollment surfaces as a
// key violation inside the enroll transaction.
type CampaignParticipant struct {
	CampaignID string `gorm:"primaryKey;size:36"`
	UserID     string `gorm:"primaryKey;size:36"`
	CreatedAt  time.Time
}

func (CampaignParticipant) TableName() string { return "campaign_participants" }

// Externalization outbox
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobPublished JobStatus = "published"
	// Terminal. Set on precondition failures such as a creator without a
	// wallet; never retried automatically.
	JobFailed JobStatus = "failed"
)

// ExternalizationJob is created in the same transaction that flips a
// campaign to InProgress. PublishedTx is set as soon as the chain accepts
// the snapshot, before the campaign row is updated, so a crash between the
// two never leads to a second publish.
type ExternalizationJob struct {
	ID         uint64    `gorm:"primaryKey"`
	CampaignID string    `gorm:"size:36;uniqueIndex;not null"`
	Status     JobStatus `gorm:"size:16;not null;default:'pending'"`
	Attempts   int       `gorm:"default:0"`
	LastError  string    `gorm:"size:512"`
	PublishedTx *string  `gorm:"size:128"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}
