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
	"github.com/novrh/platform/internal/pkg/storage"
	"github.com/novrh/platform/internal/pkg/usercontext"
)

const maxCVSize = 10 << 20 // 10 MiB

var allowedCVTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/msword": true,
}

// HandleUploadCV stores a candidate's CV in the object store and records its
// metadata. A new upload replaces the previous document.
func HandleUploadCV(c *fiber.Ctx) error {
	if cvStore == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "service_unavailable", "cv storage is not configured")
	}

	userCtx := usercontext.GetUserContext(c)
	if userCtx.Role != models.ROLE_CANDIDATE {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "only candidates can upload a CV")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "multipart field 'file' is required")
	}
	if fileHeader.Size > maxCVSize {
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "file_too_large", "cv must be 10 MB or smaller")
	}

	contentType := fileHeader.Header.Get(fiber.HeaderContentType)
	if !allowedCVTypes[strings.ToLower(strings.TrimSpace(contentType))] {
		return jsonError(c, fiber.StatusUnsupportedMediaType, "unsupported_type", "cv must be a PDF or Word document")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "could not read uploaded file")
	}
	defer src.Close()

	objectKey := storage.NewObjectKey(userCtx.UserID, fileHeader.Filename)
	if err := cvStore.Upload(c.UserContext(), objectKey, contentType, src); err != nil {
		log.Printf("cv upload for user %d failed: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusBadGateway, "storage_error", "could not store cv")
	}

	// Drop the previous CV so one document per candidate holds.
	if existing, err := repos.CV.GetByUserID(userCtx.UserID); err == nil {
		for i := range existing {
			if err := cvStore.Delete(c.UserContext(), existing[i].ObjectKey); err != nil {
				log.Printf("deleting replaced cv object %s: %v", existing[i].ObjectKey, err)
			}
			if err := repos.CV.Delete(existing[i].ID); err != nil {
				log.Printf("deleting replaced cv record %d: %v", existing[i].ID, err)
			}
		}
	}

	doc := &models.CVDocument{
		UserID:      userCtx.UserID,
		ObjectKey:   objectKey,
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		FileSize:    fileHeader.Size,
	}
	if err := repos.CV.Create(doc); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not save cv metadata")
	}

	return c.Status(fiber.StatusCreated).JSON(toCVResponse(doc))
}

// HandleListCVs lists CV documents for company users browsing candidates.
// The route sits behind the cv_access_limited gate; listing metadata does not
// consume a unit, downloading does.
func HandleListCVs(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := repos.CV.List(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load cv list")
	}

	out := make([]fiber.Map, 0, len(docs))
	for i := range docs {
		out = append(out, toCVResponse(&docs[i]))
	}
	return c.JSON(fiber.Map{"cvs": out, "offset": offset, "limit": limit})
}

// HandleDownloadCV streams a candidate CV to a company user. Each download by
// a non-owner consumes one cv_access_limited unit; unlimited plans pass the
// gate without ever reaching their cap.
func HandleDownloadCV(c *fiber.Ctx) error {
	if cvStore == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "service_unavailable", "cv storage is not configured")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid cv id")
	}

	doc, err := repos.CV.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "cv not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load cv")
	}

	userCtx := usercontext.GetUserContext(c)

	body, err := cvStore.Download(c.UserContext(), doc.ObjectKey)
	if err != nil {
		log.Printf("cv download %d failed: %v", doc.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "storage_error", "could not fetch cv")
	}

	// Owners re-downloading their own CV are not metered, and full-access
	// plans bypass the limited counter entirely.
	if doc.UserID != userCtx.UserID && !entitlementResolver.HasAccess(c.UserContext(), userCtx.UserID, entitlements.FeatureCVAccessFull) {
		if _, err := billingService.IncrementUsage(c.UserContext(), userCtx.UserID, entitlements.FeatureCVAccessLimited); err != nil {
			log.Printf("usage increment %s for user %d failed: %v", entitlements.FeatureCVAccessLimited, userCtx.UserID, err)
		}
		if err := repos.CV.IncrementDownloadCount(doc.ID); err != nil {
			log.Printf("download count for cv %d failed: %v", doc.ID, err)
		}
	}

	c.Set(fiber.HeaderContentType, doc.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+doc.FileName+`"`)
	return c.SendStream(body)
}

// HandleDeleteCV removes the caller's own CV document and its stored object.
func HandleDeleteCV(c *fiber.Ctx) error {
	if cvStore == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "service_unavailable", "cv storage is not configured")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid cv id")
	}

	doc, err := repos.CV.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "cv not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load cv")
	}

	userCtx := usercontext.GetUserContext(c)
	if doc.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "not your document")
	}

	if err := cvStore.Delete(c.UserContext(), doc.ObjectKey); err != nil {
		log.Printf("deleting cv object %s: %v", doc.ObjectKey, err)
	}
	if err := repos.CV.Delete(doc.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not delete cv")
	}

	return c.JSON(fiber.Map{"status": "deleted"})
}

func toCVResponse(d *models.CVDocument) fiber.Map {
	return fiber.Map{
		"id":             d.ID,
		"user_id":        d.UserID,
		"file_name":      d.FileName,
		"content_type":   d.ContentType,
		"file_size":      d.FileSize,
		"download_count": d.DownloadCount,
		"created_at":     d.CreatedAt.UTC().Format(time.RFC3339),
	}
}
