package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, 24, c.TokenTTLHours)
	assert.Equal(t, "lab-reports", c.MinioBucket)
	assert.Equal(t, "uploads/staging", c.UploadStagingDir)
	assert.Equal(t, "uploads", c.UploadLegacyDir)
	assert.Equal(t, 50, c.MaxReportSizeMB)
	assert.Equal(t, "info", c.LogLevel)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	c := AppConfig{AppPort: "9090", MaxReportSizeMB: 10, MinioBucket: "archive"}
	applyDefaults(&c)

	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, 10, c.MaxReportSizeMB)
	assert.Equal(t, "archive", c.MinioBucket)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("MINIO_ENDPOINT", "storage.lab:9000")
	t.Setenv("MAX_REPORT_SIZE_MB", "25")
	t.Setenv("MINIO_USE_SSL", "true")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "storage.lab:9000", c.MinioEndpoint)
	assert.Equal(t, 25, c.MaxReportSizeMB)
	assert.True(t, c.MinioUseSSL)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , b ,"))
	assert.Empty(t, splitAndTrim("  ,  "))
}
