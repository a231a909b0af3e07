package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/labworks/labops/config"
	"github.com/labworks/labops/events"
	"github.com/labworks/labops/models"
	"github.com/labworks/labops/storage"
	"github.com/labworks/labops/utils"
)

// ReportController manages report metadata and the report file lifecycle:
// upload into the blob store, streamed download, and delete. Records created
// before the blob store existed stream from the legacy uploads directory.
type ReportController struct {
	db    *gorm.DB
	store *storage.Store
	bus   *events.Bus

	stagingDir string
	legacyDir  string
}

// NewReportController creates a new ReportController instance.
func NewReportController(db *gorm.DB, store *storage.Store, bus *events.Bus) *ReportController {
	cfg := config.Get()
	return &ReportController{
		db:         db,
		store:      store,
		bus:        bus,
		stagingDir: cfg.UploadStagingDir,
		legacyDir:  cfg.UploadLegacyDir,
	}
}

// Upload stages the posted file, validates the form, commits the bytes to
// the blob store and persists the report record. Validation failures never
// touch the store. The staged file is removed on every exit path.
func (r *ReportController) Upload(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		// A chunked body that trips the size cap surfaces here as a parse
		// failure rather than through the Content-Length check.
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "request body too large")
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40050, "no report file uploaded")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(ctx.PostForm("title")))
	rtype := strings.TrimSpace(ctx.PostForm("type"))
	format := strings.TrimSpace(ctx.PostForm("format"))
	description := utils.Sanitize(strings.TrimSpace(ctx.PostForm("description")))

	if title == "" || rtype == "" || format == "" {
		utils.Error(ctx, http.StatusBadRequest, 40051, "title, type and format are required")
		return
	}
	if !models.IsValidReportType(rtype) {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid report type")
		return
	}
	if !models.IsValidReportFormat(format) {
		utils.Error(ctx, http.StatusBadRequest, 40053, "invalid report format")
		return
	}

	if err := os.MkdirAll(r.stagingDir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to prepare staging directory")
		return
	}

	fileName := filepath.Base(header.Filename)
	if fileName == "." || fileName == "" {
		fileName = fmt.Sprintf("report_%d", time.Now().UnixNano())
	}
	stagedPath := filepath.Join(r.stagingDir, fmt.Sprintf("%d_%d_%s", time.Now().UnixNano(), userID, fileName))
	if err := ctx.SaveUploadedFile(header, stagedPath); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to stage uploaded file")
		return
	}
	// Every path below must remove the staged file, success included.
	defer removeStaged(stagedPath)

	staged, err := os.Open(stagedPath)
	if err != nil {
		// The file vanished between staging and processing.
		utils.Error(ctx, http.StatusBadRequest, 40054, "staged upload no longer exists")
		return
	}
	defer staged.Close()

	info, err := staged.Stat()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40054, "staged upload no longer exists")
		return
	}

	key, err := r.store.Put(ctx.Request.Context(), staged, storage.Metadata{
		OriginalName: fileName,
		MimeType:     header.Header.Get("Content-Type"),
		Size:         info.Size(),
		UploadedBy:   fmt.Sprint(userID),
	})
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			utils.Error(ctx, http.StatusServiceUnavailable, 50350, "report storage is unavailable")
			return
		}
		utils.Sugar.Errorf("report upload to blob store failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to store report file")
		return
	}
	if key == "" {
		// A store that reports success must yield a usable id.
		utils.Sugar.Error("blob store returned empty key for successful put")
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to store report file")
		return
	}

	report := models.Report{
		Title:        title,
		Type:         rtype,
		Format:       format,
		Description:  description,
		FileName:     fileName,
		FileSize:     info.Size(),
		FileURL:      "/api/v1/reports/files/" + key,
		StorageRef:   key,
		UploadedByID: userID,
	}
	if err := r.db.Create(&report).Error; err != nil {
		// Roll the blob back so a failed upload leaves nothing behind.
		if delErr := r.store.Delete(ctx.Request.Context(), key); delErr != nil {
			utils.Sugar.Warnf("orphan blob cleanup failed for %s: %v", key, delErr)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to save report record")
		return
	}

	if err := r.db.Preload("UploadedBy").First(&report, report.ID).Error; err != nil {
		utils.Sugar.Warnf("reload report %d after create: %v", report.ID, err)
	}

	r.publish(events.Event{
		Type:        events.ReportCreated,
		Description: fmt.Sprintf("report %q uploaded", report.Title),
		UserID:      userID,
		Meta:        map[string]any{"report_id": report.ID, "title": report.Title},
	})
	utils.InvalidateByPrefix("cache:reports:list:")

	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"report": report}})
}

// Download streams the report file to the client. The attachment header is
// written before the body is resolved so a failed lookup still presents as a
// download rather than an inline render.
func (r *ReportController) Download(ctx *gin.Context) {
	var report models.Report
	if err := r.db.First(&report, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "report not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to load report")
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))

	r.publish(events.Event{
		Type:        events.ReportDownloaded,
		Description: fmt.Sprintf("report %q downloaded", report.Title),
		UserID:      getUserIDOrZero(ctx),
		Meta:        map[string]any{"report_id": report.ID},
	})

	r.streamReport(ctx, &report)
}

// streamReport writes the report body from wherever the bytes live.
func (r *ReportController) streamReport(ctx *gin.Context, report *models.Report) {
	switch loc := report.Location(r.legacyDir).(type) {
	case models.LegacyFile:
		info, err := os.Stat(loc.Path)
		if err != nil {
			utils.Error(ctx, http.StatusNotFound, 40450, "report file not found")
			return
		}
		length := report.FileSize
		if length == 0 {
			length = info.Size()
		}
		ctx.Header("Content-Type", "application/octet-stream")
		ctx.Header("Content-Length", fmt.Sprint(length))

		f, err := os.Open(loc.Path)
		if err != nil {
			r.failStream(ctx, report.ID, err)
			return
		}
		defer f.Close()
		if _, err := copyBody(ctx, f); err != nil {
			r.failStream(ctx, report.ID, err)
		}

	case models.BlobRef:
		info, err := r.store.Get(ctx.Request.Context(), loc.Key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				utils.Error(ctx, http.StatusNotFound, 40450, "report file not found")
				return
			}
			if errors.Is(err, storage.ErrUnavailable) {
				utils.Error(ctx, http.StatusServiceUnavailable, 50350, "report storage is unavailable")
				return
			}
			r.failStream(ctx, report.ID, err)
			return
		}

		mimeType := info.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		length := info.Size
		if length == 0 {
			length = report.FileSize
		}
		ctx.Header("Content-Type", mimeType)
		ctx.Header("Content-Length", fmt.Sprint(length))

		// The request context cancels the copy when the client disconnects.
		if err := r.store.StreamTo(ctx.Request.Context(), loc.Key, ctx.Writer); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				dropBodyHeaders(ctx)
				utils.Error(ctx, http.StatusNotFound, 40450, "report file not found")
				return
			}
			r.failStream(ctx, report.ID, err)
		}
	}
}

// failStream handles a mid-stream failure. If bytes already went out the
// connection is simply dropped; a second response would corrupt the download.
func (r *ReportController) failStream(ctx *gin.Context, reportID uint, err error) {
	utils.Sugar.Errorf("streaming report %d failed: %v", reportID, err)
	if ctx.Writer.Written() {
		ctx.Abort()
		return
	}
	dropBodyHeaders(ctx)
	utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to stream report file")
}

// dropBodyHeaders removes headers announced for the file body. An error
// payload written after them would otherwise go out under the file's
// Content-Length and read as a truncated download.
func dropBodyHeaders(ctx *gin.Context) {
	ctx.Writer.Header().Del("Content-Length")
	ctx.Writer.Header().Del("Content-Type")
}

// Delete removes the report record and best-effort deletes its blob.
// Metadata deletion is authoritative; a blob cleanup failure is logged only.
func (r *ReportController) Delete(ctx *gin.Context) {
	var report models.Report
	if err := r.db.First(&report, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "report not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to load report")
		return
	}

	if blob, ok := report.Location(r.legacyDir).(models.BlobRef); ok {
		if err := r.store.Delete(ctx.Request.Context(), blob.Key); err != nil {
			utils.Sugar.Warnf("blob cleanup failed for report %d key %s: %v", report.ID, blob.Key, err)
		}
	}

	if err := r.db.Delete(&report).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50056, "failed to delete report")
		return
	}

	r.publish(events.Event{
		Type:        events.ReportDeleted,
		Description: fmt.Sprintf("report %q deleted", report.Title),
		UserID:      getUserIDOrZero(ctx),
		Meta:        map[string]any{"report_id": report.ID},
	})
	utils.InvalidateByPrefix("cache:reports:list:")

	utils.Success(ctx, gin.H{"message": "report deleted"})
}

// List returns paginated reports with uploader information.
func (r *ReportController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	rtype := strings.TrimSpace(ctx.Query("type"))

	if search == "" {
		cacheKey := fmt.Sprintf("cache:reports:list:type=%s:page=%d:size=%d", rtype, page, pageSize)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", b)
			return
		}
	}

	var reports []models.Report
	var total int64

	query := r.db.Preload("UploadedBy").Order("created_at DESC")
	if search != "" {
		query = query.Where("title LIKE ?", "%"+search+"%")
	}
	if rtype != "" {
		query = query.Where("type = ?", rtype)
	}
	if err := query.Model(&models.Report{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50057, "failed to count reports")
		return
	}
	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(&reports).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50058, "failed to list reports")
		return
	}

	payload := gin.H{
		"items": reports,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	if search == "" {
		cacheKey := fmt.Sprintf("cache:reports:list:type=%s:page=%d:size=%d", rtype, page, pageSize)
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	}
	utils.Success(ctx, payload)
}

// Get returns a single report.
func (r *ReportController) Get(ctx *gin.Context) {
	var report models.Report
	if err := r.db.Preload("UploadedBy").First(&report, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "report not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to load report")
		return
	}
	utils.Success(ctx, gin.H{"report": report})
}

// Update edits report metadata. The stored file is immutable; only title,
// type and description change.
func (r *ReportController) Update(ctx *gin.Context) {
	var req struct {
		Title       string `json:"title"`
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40055, "invalid request payload")
		return
	}

	var report models.Report
	if err := r.db.First(&report, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "report not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to load report")
		return
	}

	if req.Title != "" {
		report.Title = utils.Sanitize(strings.TrimSpace(req.Title))
	}
	if req.Type != "" {
		if !models.IsValidReportType(req.Type) {
			utils.Error(ctx, http.StatusBadRequest, 40052, "invalid report type")
			return
		}
		report.Type = req.Type
	}
	report.Description = utils.Sanitize(req.Description)

	if err := r.db.Save(&report).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50059, "failed to update report")
		return
	}
	utils.InvalidateByPrefix("cache:reports:list:")
	utils.Success(ctx, gin.H{"report": report})
}

func (r *ReportController) publish(evt events.Event) {
	if r.bus != nil {
		r.bus.Publish(evt)
	}
}

// copyBody streams src to the response, stopping when the client disconnects.
func copyBody(ctx *gin.Context, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		select {
		case <-ctx.Request.Context().Done():
			return written, ctx.Request.Context().Err()
		default:
		}
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := ctx.Writer.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
		}
		if err != nil {
			if err == io.EOF {
				return written, nil
			}
			return written, err
		}
	}
}

func removeStaged(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		utils.Sugar.Warnf("failed to remove staged upload %s: %v", path, err)
	}
}

func getUserIDOrZero(ctx *gin.Context) uint {
	id, _ := getUserID(ctx)
	return id
}
