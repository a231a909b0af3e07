package utils

import (
	"os"
	"path/filepath"
	"time"
)

// StartStagingCleaner launches a background goroutine that periodically
// removes stale files from the upload staging directory. Handlers delete
// their own staged file on every exit path; the sweeper only catches files
// orphaned by a crash or kill between staging and cleanup.
func StartStagingCleaner(dir string, ttl, interval time.Duration) {
	if dir == "" {
		return
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing with in-flight uploads at startup.
			time.Sleep(interval)
			sweepStaging(dir, ttl)
		}
	}()
}

func sweepStaging(dir string, ttl time.Duration) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if Sugar != nil && !os.IsNotExist(err) {
			Sugar.Warnf("staging cleaner read %s: %v", dir, err)
		}
		return
	}
	cutoff := time.Now().Add(-ttl)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if Sugar != nil {
				Sugar.Warnf("staging cleaner remove %s: %v", path, err)
			}
		} else if Sugar != nil {
			Sugar.Infof("staging cleaner removed orphaned file %s", path)
		}
	}
}
