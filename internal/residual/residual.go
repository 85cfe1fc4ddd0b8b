// Package residual finds the files an application leaves behind in the
// per-user Library: support data, caches, preferences, containers and
// web storage.
package residual

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lu-zhengda/appsweep/internal/logging"
	"github.com/lu-zhengda/appsweep/internal/utils"
)

// SearchDirs are the Library subdirectories scanned for residual entries.
var SearchDirs = []string{
	"Application Support",
	"Caches",
	"Preferences",
	"Logs",
	"Containers",
	"Group Containers",
	"Saved Application State",
	"WebKit",
	"HTTPStorages",
	"Cookies",
}

const preferencesDir = "Preferences"

// Finder locates residual files under a Library directory.
type Finder struct {
	libraryBase string
	log         *slog.Logger
}

// NewFinder returns a Finder rooted at libraryBase (~/Library when empty).
func NewFinder(libraryBase string, log *slog.Logger) *Finder {
	return &Finder{libraryBase: libraryBase, log: logging.OrDefault(log)}
}

func (f *Finder) library() string {
	if f.libraryBase != "" {
		return f.libraryBase
	}
	return utils.LibraryPath("")
}

// Matches reports whether entry name belongs to term: exact, case-insensitive
// equality, or term contained in name with or without case folding.
// An empty term matches everything.
func Matches(name, term string) bool {
	lowerName := strings.ToLower(name)
	lowerTerm := strings.ToLower(term)
	return name == term ||
		lowerName == lowerTerm ||
		strings.Contains(name, term) ||
		strings.Contains(lowerName, lowerTerm)
}

func matchesAny(name string, terms []string) bool {
	for _, term := range terms {
		if Matches(name, term) {
			return true
		}
	}
	return false
}

// PreferencesPlist is the conventional preferences file for a bundle identifier.
func (f *Finder) PreferencesPlist(bundleID string) string {
	return filepath.Join(f.library(), preferencesDir, bundleID+".plist")
}

// Find returns every residual path for appName and the optional bundleID,
// sorted ascending with duplicates removed. Missing or unreadable search
// directories are skipped. The scan always completes; ctx is only consulted
// between directories.
func (f *Finder) Find(ctx context.Context, appName, bundleID string) ([]string, error) {
	terms := []string{appName}
	if bundleID != "" {
		terms = append(terms, bundleID)
	}

	var found []string
	lib := f.library()

	for _, dir := range SearchDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		searchPath := filepath.Join(lib, dir)
		entries, err := os.ReadDir(searchPath)
		if err != nil {
			if !os.IsNotExist(err) {
				f.log.Debug("skipping residual directory", "dir", searchPath, "err", err)
			}
			continue
		}

		for _, entry := range entries {
			if matchesAny(entry.Name(), terms) {
				found = append(found, filepath.Join(searchPath, entry.Name()))
			}
		}
	}

	if bundleID != "" {
		plist := f.PreferencesPlist(bundleID)
		if utils.Exists(plist) {
			found = append(found, plist)
		}
	}

	slices.Sort(found)
	found = slices.Compact(found)

	f.log.Debug("residual scan finished", "app", appName, "bundle_id", bundleID, "matches", len(found))
	return found, nil
}
