package repository

import (
	"github.com/novrh/platform/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
}

// JobRepository defines the interface for job-posting database operations
type JobRepository interface {
	Create(job *models.JobPosting) error
	GetByID(id uint) (*models.JobPosting, error)
	GetByCompanyID(companyID uint, offset, limit int) ([]models.JobPosting, error)
	GetOpen(offset, limit int) ([]models.JobPosting, error)
	Update(job *models.JobPosting) error
	Delete(id uint) error
	Count() (int64, error)
	CountByCompanyID(companyID uint) (int64, error)
	Search(query string) ([]models.JobPosting, error)
}

// CVRepository defines the interface for CV document metadata operations
type CVRepository interface {
	Create(doc *models.CVDocument) error
	GetByID(id uint) (*models.CVDocument, error)
	GetByUserID(userID uint) ([]models.CVDocument, error)
	Update(doc *models.CVDocument) error
	Delete(id uint) error
	IncrementDownloadCount(id uint) error
	List(offset, limit int) ([]models.CVDocument, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User UserRepository
	Job  JobRepository
	CV   CVRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User: NewUserRepository(db),
		Job:  NewJobRepository(db),
		CV:   NewCVRepository(db),
	}
}
