package data

import (
	"errors"

	"gorm.io/gorm"

	"github.com/gaia-dao/campaigns/src/CampApi/types"
)

// PendingJobs returns externalization jobs awaiting publish, oldest first.
func (s *CampaignStore) PendingJobs(limit int) ([]types.ExternalizationJob, error) {
	var jobs []types.ExternalizationJob
	err := s.db.Where("status = ?", types.JobPending).
		Order("created_at asc").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (s *CampaignStore) GetJob(campaignID string) (*types.ExternalizationJob, error) {
	var job types.ExternalizationJob
	err := s.db.First(&job, "campaign_id = ?", campaignID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkJobPublishedTx stores the transaction hash on the job row. This
// happens before the campaign row is updated so that a failure between the
// two leaves evidence of the publish and prevents a second one.
func (s *CampaignStore) MarkJobPublishedTx(jobID uint64, txHash string) error {
	return s.db.Model(&types.ExternalizationJob{}).
		Where("id = ?", jobID).
		Update("published_tx", txHash).Error
}

func (s *CampaignStore) MarkJobDone(jobID uint64) error {
	return s.db.Model(&types.ExternalizationJob{}).
		Where("id = ?", jobID).
		Updates(map[string]any{"status": types.JobPublished, "last_error": ""}).Error
}

// MarkJobFailed sets a job to its terminal failed state. Used for
// precondition failures that no retry can fix.
func (s *CampaignStore) MarkJobFailed(jobID uint64, reason string) error {
	return s.db.Model(&types.ExternalizationJob{}).
		Where("id = ?", jobID).
		Updates(map[string]any{"status": types.JobFailed, "last_error": reason}).Error
}

// RecordJobAttempt bumps the attempt counter after a transient failure.
func (s *CampaignStore) RecordJobAttempt(jobID uint64, lastError string) error {
	return s.db.Model(&types.ExternalizationJob{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		}).Error
}
