package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidReportType(t *testing.T) {
	for _, v := range []string{"regulatory", "research", "miscellaneous"} {
		assert.True(t, IsValidReportType(v), v)
	}
	for _, v := range []string{"", "Regulatory", "financial", "misc"} {
		assert.False(t, IsValidReportType(v), v)
	}
}

func TestIsValidReportFormat(t *testing.T) {
	for _, v := range []string{"pdf", "xlsx", "csv", "docx", "json", "jpg", "jpeg", "png", "gif"} {
		assert.True(t, IsValidReportFormat(v), v)
	}
	for _, v := range []string{"", "PDF", "exe", "txt", "zip"} {
		assert.False(t, IsValidReportFormat(v), v)
	}
}

func TestReportLocationBlob(t *testing.T) {
	r := Report{StorageRef: "4f1c2d", FileName: "audit.pdf"}
	loc := r.Location("/var/uploads")
	blob, ok := loc.(BlobRef)
	require.True(t, ok)
	assert.Equal(t, "4f1c2d", blob.Key)
}

func TestReportLocationLegacy(t *testing.T) {
	r := Report{FileName: "q1-summary.csv"}
	loc := r.Location("/var/uploads")
	legacy, ok := loc.(LegacyFile)
	require.True(t, ok)
	assert.Equal(t, filepath.Join("/var/uploads", "q1-summary.csv"), legacy.Path)
}

func TestReportLocationLegacyStripsPath(t *testing.T) {
	// A legacy file name must never escape the uploads directory.
	r := Report{FileName: "../../etc/passwd"}
	legacy := r.Location("/var/uploads").(LegacyFile)
	assert.Equal(t, filepath.Join("/var/uploads", "passwd"), legacy.Path)
}
