package residual

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lu-zhengda/appsweep/internal/utils"
)

// Orphan is a leftover whose owning application is no longer installed.
type Orphan struct {
	Path        string `json:"path"`
	AppName     string `json:"app_name"`
	Description string `json:"description"`
}

// orphanRelatedDirs are checked for remnants sharing an orphaned plist's
// identifier or app name.
var orphanRelatedDirs = []string{"Caches", "Application Support"}

// systemPlistPrefixes belong to the OS, not to an installed application.
var systemPlistPrefixes = []string{"com.apple.", "."}

func isSystemPlist(name string) bool {
	for _, prefix := range systemPlistPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// FindOrphans scans Preferences for "<id>.plist" files that belong to no
// installed application, plus Caches and Application Support entries named
// after the same identifier or app name. A plist is owned when its trailing
// name component matches one of names, or when its identifier equals (or is a
// dotted child of) one of bundleIDs. Both comparisons ignore case. Results are
// sorted by path.
func (f *Finder) FindOrphans(ctx context.Context, names, bundleIDs []string) ([]Orphan, error) {
	lib := f.library()

	prefsDir := filepath.Join(lib, preferencesDir)
	if !utils.DirExists(prefsDir) {
		return nil, nil
	}

	entries, err := os.ReadDir(prefsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences directory: %w", err)
	}

	installedApps := make(map[string]bool, len(names))
	for _, name := range names {
		installedApps[strings.ToLower(name)] = true
	}
	installedIDs := make([]string, 0, len(bundleIDs))
	for _, id := range bundleIDs {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			installedIDs = append(installedIDs, id)
		}
	}

	seen := make(map[string]bool)
	var orphans []Orphan
	add := func(o Orphan) {
		if seen[o.Path] {
			return
		}
		seen[o.Path] = true
		orphans = append(orphans, o)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".plist") || isSystemPlist(name) {
			continue
		}

		appName := extractAppName(name)
		bundleIDLower := strings.ToLower(strings.TrimSuffix(name, ".plist"))
		if appName == "" || installedApps[strings.ToLower(appName)] || ownedByID(bundleIDLower, installedIDs) {
			continue
		}

		add(Orphan{
			Path:        filepath.Join(prefsDir, name),
			AppName:     appName,
			Description: "Preferences",
		})

		appNameLower := strings.ToLower(appName)

		for _, dir := range orphanRelatedDirs {
			dirPath := filepath.Join(lib, dir)
			relEntries, err := os.ReadDir(dirPath)
			if err != nil {
				continue
			}
			for _, re := range relEntries {
				reLower := strings.ToLower(re.Name())
				if reLower != bundleIDLower && reLower != appNameLower {
					continue
				}
				add(Orphan{
					Path:        filepath.Join(dirPath, re.Name()),
					AppName:     appName,
					Description: dir,
				})
			}
		}
	}

	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].Path < orphans[j].Path
	})
	return orphans, nil
}

// ownedByID reports whether the lowercased plist identifier id is one of ids
// or nested under one, as in "com.google.chrome.helper".
func ownedByID(id string, ids []string) bool {
	for _, installed := range ids {
		if id == installed || strings.HasPrefix(id, installed+".") {
			return true
		}
	}
	return false
}

// extractAppName derives an app name from a plist filename.
// For example, "com.example.MyApp.plist" returns "MyApp".
func extractAppName(plistFilename string) string {
	base := strings.TrimSuffix(plistFilename, ".plist")
	parts := strings.Split(base, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}
