// Package fileutils provides utility functions for handling files.
package fileutils

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// sizeUnits maps the size units written by the inventory collector to their power of two.
// Decimal spellings (KB, GB) are binary multiples too: the collector divides by 1024.
var sizeUnits = map[string]int{
	"": 0, "b": 0, "bytes": 0,
	"k": 10, "kb": 10, "kib": 10,
	"m": 20, "mb": 20, "mib": 20,
	"g": 30, "gb": 30, "gib": 30,
	"t": 40, "tb": 40, "tib": 40,
}

// ConvertUnitToBytes converts value, expressed in unit, to bytes. Units are case-insensitive.
// An unknown unit returns value unchanged with an error.
func ConvertUnitToBytes(unit string, value float64) (float64, error) {
	exp, ok := sizeUnits[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return value, fmt.Errorf("unrecognized size unit %q", unit)
	}
	return math.Ldexp(value, exp), nil
}

// AtomicWrite replaces the file at path with data, with permissions perm.
// Readers see either the previous content or the new one, never a partial write.
// Not atomic on Windows.
func AtomicWrite(path string, data []byte, perm fs.FileMode) (err error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary file: %v", err)
	}
	defer func() {
		if err == nil {
			return
		}
		_ = tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			slog.Warn("Failed to remove temporary file", "file", tmp.Name(), "err", rmErr)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("could not set permissions of temporary file: %v", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("could not write to temporary file: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("could not flush temporary file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close temporary file: %v", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("could not replace %s: %v", path, err)
	}
	return nil
}
