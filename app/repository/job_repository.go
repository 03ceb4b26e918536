package repository

import (
	"time"

	"github.com/novrh/platform/app/models"
	"gorm.io/gorm"
)

// jobRepository implements the JobRepository interface
type jobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository instance
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(job *models.JobPosting) error {
	return r.db.Create(job).Error
}

func (r *jobRepository) GetByID(id uint) (*models.JobPosting, error) {
	var job models.JobPosting
	err := r.db.Preload("Company").First(&job, id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) GetByCompanyID(companyID uint, offset, limit int) ([]models.JobPosting, error) {
	var jobs []models.JobPosting
	err := r.db.Where("company_id = ?", companyID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&jobs).Error
	return jobs, err
}

// GetOpen returns open, unexpired postings for the public listing.
func (r *jobRepository) GetOpen(offset, limit int) ([]models.JobPosting, error) {
	var jobs []models.JobPosting
	err := r.db.Preload("Company").
		Where("status = ? AND (expires_at IS NULL OR expires_at > ?)", models.JobStatusOpen, time.Now()).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&jobs).Error
	return jobs, err
}

func (r *jobRepository) Update(job *models.JobPosting) error {
	return r.db.Save(job).Error
}

func (r *jobRepository) Delete(id uint) error {
	return r.db.Delete(&models.JobPosting{}, id).Error
}

func (r *jobRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.JobPosting{}).Count(&count).Error
	return count, err
}

func (r *jobRepository) CountByCompanyID(companyID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.JobPosting{}).Where("company_id = ?", companyID).Count(&count).Error
	return count, err
}

func (r *jobRepository) Search(query string) ([]models.JobPosting, error) {
	var jobs []models.JobPosting
	pattern := "%" + query + "%"
	err := r.db.
		Where("status = ?", models.JobStatusOpen).
		Where("title LIKE ? OR description LIKE ? OR location LIKE ?", pattern, pattern, pattern).
		Limit(100).
		Find(&jobs).Error
	return jobs, err
}
