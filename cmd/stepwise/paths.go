package main

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	storeKindFile   = "file"
	storeKindSQLite = "sqlite"
)

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".stepwise"), nil
}

func defaultStorePath(kind string) (string, error) {
	dir, err := defaultDataDir()
	if err != nil {
		return "", err
	}

	switch kind {
	case storeKindFile:
		return filepath.Join(dir, "sessions.json"), nil
	case storeKindSQLite:
		return filepath.Join(dir, "sessions.db"), nil
	default:
		return "", fmt.Errorf("unknown store kind %q", kind)
	}
}
