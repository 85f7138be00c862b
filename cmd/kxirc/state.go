package main

import (
	"os"
	"path/filepath"
	"strings"
)

func cachePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	cache := filepath.Join(cacheDir, "kxirc")
	if err := os.MkdirAll(cache, 0o755); err != nil {
		return "", err
	}
	return cache, nil
}

func lastTargetPath() (string, error) {
	cache, err := cachePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, "lasttarget.txt"), nil
}

// getLastTarget returns the conversation selected when kxirc last exited.
func getLastTarget() string {
	p, err := lastTargetPath()
	if err != nil {
		return ""
	}
	buf, err := os.ReadFile(p)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(buf))
}

func writeLastTarget(target string) {
	p, err := lastTargetPath()
	if err != nil {
		return
	}
	if target == "" {
		_ = os.Remove(p)
		return
	}
	_ = os.WriteFile(p, []byte(target+"\n"), 0o644)
}
