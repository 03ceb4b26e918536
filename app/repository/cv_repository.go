package repository

import (
	"github.com/novrh/platform/app/models"
	"gorm.io/gorm"
)

// cvRepository implements the CVRepository interface
type cvRepository struct {
	db *gorm.DB
}

// NewCVRepository creates a new CV repository instance
func NewCVRepository(db *gorm.DB) CVRepository {
	return &cvRepository{db: db}
}

func (r *cvRepository) Create(doc *models.CVDocument) error {
	return r.db.Create(doc).Error
}

func (r *cvRepository) GetByID(id uint) (*models.CVDocument, error) {
	var doc models.CVDocument
	err := r.db.Preload("User").First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *cvRepository) GetByUserID(userID uint) ([]models.CVDocument, error) {
	var docs []models.CVDocument
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

func (r *cvRepository) Update(doc *models.CVDocument) error {
	return r.db.Save(doc).Error
}

func (r *cvRepository) Delete(id uint) error {
	return r.db.Delete(&models.CVDocument{}, id).Error
}

// IncrementDownloadCount bumps the counter atomically in one statement.
func (r *cvRepository) IncrementDownloadCount(id uint) error {
	return r.db.Model(&models.CVDocument{}).Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).Error
}

func (r *cvRepository) List(offset, limit int) ([]models.CVDocument, error) {
	var docs []models.CVDocument
	err := r.db.Preload("User").Order("created_at DESC").Offset(offset).Limit(limit).Find(&docs).Error
	return docs, err
}
