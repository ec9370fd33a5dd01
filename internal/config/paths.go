package config

import (
	"os"
	"path/filepath"
	"strings"
)

// anchorPaths rewrites relative runtime paths so they resolve against
// base, the directory holding the config file, instead of wherever the
// process happens to be started from.
func (c *AppConfig) anchorPaths(base string) {
	c.Paths.Logs = anchor(base, c.Paths.Logs, defaultLogDir)
	c.Storage.LocalDir = anchor(base, c.Storage.LocalDir, defaultUploadDir)
	if !isMemorySQLite(c.Database.Path) {
		c.Database.Path = anchor(base, c.Database.Path, defaultSQLitePath)
	}
}

func anchor(base, raw, fallback string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		target = fallback
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(base, target))
}

// ResolveRuntimePath returns raw (or fallback when raw is empty) as an
// absolute path, relative to the working directory.
func ResolveRuntimePath(raw, fallback string) string {
	wd, err := os.Getwd()
	if err != nil || wd == "" {
		wd = "."
	}
	return anchor(wd, raw, fallback)
}

func isMemorySQLite(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}
