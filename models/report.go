package models

import (
	"path/filepath"
	"time"
)

// Report types.
const (
	ReportRegulatory    = "regulatory"
	ReportResearch      = "research"
	ReportMiscellaneous = "miscellaneous"
)

var (
	// ValidReportTypes lists the accepted report types.
	ValidReportTypes = []string{ReportRegulatory, ReportResearch, ReportMiscellaneous}
	// ValidReportFormats lists the accepted report file formats.
	ValidReportFormats = []string{"pdf", "xlsx", "csv", "docx", "json", "jpg", "jpeg", "png", "gif"}
)

// Report correlates a logical report with its stored file. Records created
// before the blob store was introduced have an empty StorageRef and their
// bytes live on the local filesystem under the legacy uploads directory.
type Report struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Type         string    `gorm:"size:32;not null" json:"type"`
	Format       string    `gorm:"size:16;not null" json:"format"`
	Description  string    `gorm:"type:text" json:"description"`
	FileName     string    `gorm:"size:512;not null" json:"file_name"`
	FileSize     int64     `gorm:"not null" json:"file_size"`
	FileURL      string    `gorm:"size:1024" json:"file_url"`
	StorageRef   string    `gorm:"size:64;index" json:"storage_ref"` // blob store key; empty for legacy records
	UploadedByID uint      `gorm:"index" json:"uploaded_by_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UploadedBy   User      `gorm:"foreignKey:UploadedByID" json:"uploaded_by"`
}

// StorageLocation is the authoritative place a report's bytes live.
// Exactly one variant applies to a record at any time.
type StorageLocation interface {
	storageLocation()
}

// BlobRef points at a blob in the object store.
type BlobRef struct {
	Key string
}

// LegacyFile points at a file kept on the local filesystem.
type LegacyFile struct {
	Path string
}

func (BlobRef) storageLocation()    {}
func (LegacyFile) storageLocation() {}

// Location resolves the report's storage location. legacyDir is the root of
// the filesystem store used before the blob store existed.
func (r *Report) Location(legacyDir string) StorageLocation {
	if r.StorageRef != "" {
		return BlobRef{Key: r.StorageRef}
	}
	return LegacyFile{Path: filepath.Join(legacyDir, filepath.Base(r.FileName))}
}

// IsValidReportType reports whether t is a known report type.
func IsValidReportType(t string) bool {
	for _, v := range ValidReportTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsValidReportFormat reports whether f is a known report file format.
func IsValidReportFormat(f string) bool {
	for _, v := range ValidReportFormats {
		if v == f {
			return true
		}
	}
	return false
}
