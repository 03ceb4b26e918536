package controllers

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/novrh/platform/app/models"
	"github.com/novrh/platform/internal/pkg/entitlements"
	"github.com/novrh/platform/internal/pkg/usercontext"
)

type createJobRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Location     string     `json:"location"`
	ContractType string     `json:"contract_type"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// HandleCreateJob publishes a vacancy. The route is behind the job_posting
// gate; each successful creation consumes one unit of that feature.
func HandleCreateJob(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if userCtx.Role != models.ROLE_COMPANY {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "only company accounts can publish job postings")
	}

	var req createJobRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}

	job := &models.JobPosting{
		CompanyID:    userCtx.UserID,
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		ContractType: req.ContractType,
		Status:       models.JobStatusOpen,
		ExpiresAt:    req.ExpiresAt,
	}
	if job.ContractType == "" {
		job.ContractType = models.ContractTypeCDI
	}
	if err := job.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	if err := repos.Job.Create(job); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not save job posting")
	}

	if _, err := billingService.IncrementUsage(c.UserContext(), userCtx.UserID, entitlements.FeatureJobPosting); err != nil {
		// The posting exists; losing the ledger write is logged, not rolled back.
		log.Printf("usage increment %s for user %d failed: %v", entitlements.FeatureJobPosting, userCtx.UserID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toJobResponse(job))
}

// HandleListJobs returns open postings, newest first, with offset/limit paging.
func HandleListJobs(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	jobs, err := repos.Job.GetOpen(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load job postings")
	}

	out := make([]fiber.Map, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}
	return c.JSON(fiber.Map{"jobs": out, "offset": offset, "limit": limit})
}

// HandleSearchJobs finds open postings matching a free-text query against
// title, description and location.
func HandleSearchJobs(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "query parameter q is required")
	}

	jobs, err := repos.Job.Search(query)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not search job postings")
	}

	out := make([]fiber.Map, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}
	return c.JSON(fiber.Map{"jobs": out, "query": query})
}

// HandleGetJob returns a single posting. Closed and draft postings are only
// visible to their owning company and to admins.
func HandleGetJob(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid job id")
	}

	job, err := repos.Job.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "job posting not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load job posting")
	}

	userCtx := usercontext.GetUserContext(c)
	if !job.IsOpen(time.Now()) && job.CompanyID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusNotFound, "not_found", "job posting not found")
	}

	return c.JSON(toJobResponse(job))
}

// HandleListMyJobs returns the calling company's own postings, any status.
func HandleListMyJobs(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	jobs, err := repos.Job.GetByCompanyID(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load job postings")
	}

	out := make([]fiber.Map, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}
	return c.JSON(fiber.Map{"jobs": out})
}

// HandleCloseJob takes a posting off the board. Only the owning company or an
// admin may close it. Closing does not refund the consumed posting unit.
func HandleCloseJob(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid job id")
	}

	job, err := repos.Job.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "job posting not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load job posting")
	}

	userCtx := usercontext.GetUserContext(c)
	if job.CompanyID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "not your posting")
	}

	if job.Status != models.JobStatusClosed {
		job.Status = models.JobStatusClosed
		if err := repos.Job.Update(job); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not close job posting")
		}
	}

	return c.JSON(toJobResponse(job))
}

func toJobResponse(j *models.JobPosting) fiber.Map {
	return fiber.Map{
		"id":            j.ID,
		"company_id":    j.CompanyID,
		"title":         j.Title,
		"description":   j.Description,
		"location":      j.Location,
		"contract_type": j.ContractType,
		"status":        j.Status,
		"expires_at":    formatTimePtr(j.ExpiresAt),
		"created_at":    j.CreatedAt.UTC().Format(time.RFC3339),
	}
}
