// Package identity reads the bundle identifier embedded in an application
// bundle's Info.plist.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lu-zhengda/appsweep/internal/logging"
)

const (
	// InfoPlist is the metadata file location relative to the bundle root.
	InfoPlist = "Contents/Info.plist"

	// BundleIDKey is the Info.plist key holding the reverse-domain identifier.
	BundleIDKey = "CFBundleIdentifier"
)

// Reader extracts a single string key from a property list file.
type Reader interface {
	ReadKey(ctx context.Context, plistPath, key string) (string, error)
}

// DefaultsReader reads plist keys with the macOS `defaults` tool.
type DefaultsReader struct{}

func (DefaultsReader) ReadKey(ctx context.Context, plistPath, key string) (string, error) {
	out, err := exec.CommandContext(ctx, "defaults", "read", plistPath, key).Output()
	if err != nil {
		return "", fmt.Errorf("defaults read %s %s: %w", plistPath, key, err)
	}
	return string(out), nil
}

// Resolver maps a bundle path to its identifier.
type Resolver struct {
	reader Reader
	log    *slog.Logger
}

// NewResolver returns a Resolver using reader, or DefaultsReader when nil.
func NewResolver(reader Reader, log *slog.Logger) *Resolver {
	if reader == nil {
		reader = DefaultsReader{}
	}
	return &Resolver{reader: reader, log: logging.OrDefault(log)}
}

// BundleID returns the trimmed identifier of the bundle at bundlePath.
// A missing Info.plist, a failed read, or an empty value all yield false.
func (r *Resolver) BundleID(ctx context.Context, bundlePath string) (string, bool) {
	plist := filepath.Join(bundlePath, InfoPlist)
	if _, err := os.Stat(plist); err != nil {
		return "", false
	}

	raw, err := r.reader.ReadKey(ctx, plist, BundleIDKey)
	if err != nil {
		r.log.Debug("bundle identifier unavailable", "bundle", bundlePath, "err", err)
		return "", false
	}

	id := strings.TrimSpace(raw)
	if id == "" {
		return "", false
	}
	return id, true
}
