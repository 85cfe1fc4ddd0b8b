// Package catalog enumerates installed application bundles in the system
// and per-user application roots.
package catalog

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/lu-zhengda/appsweep/internal/logging"
	"github.com/lu-zhengda/appsweep/internal/utils"
)

// BundleSuffix marks a directory entry as an application bundle.
const BundleSuffix = ".app"

// ErrNotFound is returned when a requested application matches no bundle.
var ErrNotFound = errors.New("application not found")

// App is one installed application bundle. List leaves Size and BundleID
// zero; engine.Describe fills them in.
type App struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	BundleID string `json:"bundle_id,omitempty"`
}

// Catalog looks up bundles under a system root and a user root, in that
// priority order.
type Catalog struct {
	systemRoot string
	userRoot   string
	log        *slog.Logger
}

// New returns a Catalog over the given roots. Empty roots fall back to
// /Applications and ~/Applications.
func New(systemRoot, userRoot string, log *slog.Logger) *Catalog {
	return &Catalog{systemRoot: systemRoot, userRoot: userRoot, log: logging.OrDefault(log)}
}

// Roots returns the searched roots in priority order.
func (c *Catalog) Roots() []string {
	system := c.systemRoot
	if system == "" {
		system = "/Applications"
	}
	user := c.userRoot
	if user == "" {
		user = filepath.Join(utils.HomeDir(), "Applications")
	}
	return []string{system, user}
}

// Stem strips the bundle suffix from a bundle filename.
func Stem(filename string) string {
	return strings.TrimSuffix(filename, BundleSuffix)
}

// AppAt returns the App for a bundle path, with Size and BundleID unset.
func AppAt(bundlePath string) App {
	return App{Name: Stem(filepath.Base(bundlePath)), Path: bundlePath}
}

func isBundleName(name string) bool {
	return strings.HasSuffix(name, BundleSuffix) && len(name) > len(BundleSuffix)
}

// readRoot lists a root, treating unreadable or missing roots as empty.
func (c *Catalog) readRoot(root string) []os.DirEntry {
	entries, err := os.ReadDir(root)
	if err != nil {
		c.log.Debug("skipping application root", "root", root, "err", err)
		return nil
	}
	return entries
}

// List returns every bundle in both roots, sorted case-insensitively by name.
// Ties keep enumeration order (system root first).
func (c *Catalog) List() []App {
	var apps []App
	for _, root := range c.Roots() {
		for _, entry := range c.readRoot(root) {
			if !isBundleName(entry.Name()) {
				continue
			}
			apps = append(apps, AppAt(filepath.Join(root, entry.Name())))
		}
	}

	sort.SliceStable(apps, func(i, j int) bool {
		return strings.ToLower(apps[i].Name) < strings.ToLower(apps[j].Name)
	})
	return apps
}

// Search returns bundles whose name contains query, ignoring case.
func (c *Catalog) Search(query string) []App {
	return Filter(c.List(), query)
}

// Filter keeps the apps whose name contains query, ignoring case.
// An empty query keeps everything.
func Filter(apps []App, query string) []App {
	if query == "" {
		return apps
	}
	q := strings.ToLower(query)
	var matches []App
	for _, app := range apps {
		if strings.Contains(strings.ToLower(app.Name), q) {
			matches = append(matches, app)
		}
	}
	return matches
}

// Find resolves name to a bundle path. The bundle suffix is appended when
// missing. An exact path in either root wins; otherwise the first
// case-insensitive filename match is returned.
func (c *Catalog) Find(name string) (string, bool) {
	filename := name
	if !strings.HasSuffix(filename, BundleSuffix) {
		filename += BundleSuffix
	}

	roots := c.Roots()
	for _, root := range roots {
		path := filepath.Join(root, filename)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	lower := strings.ToLower(filename)
	for _, root := range roots {
		for _, entry := range c.readRoot(root) {
			if strings.ToLower(entry.Name()) == lower {
				return filepath.Join(root, entry.Name()), true
			}
		}
	}

	return "", false
}

const suggestMinSimilarity = 0.5

// Suggest returns up to limit installed app names that look like name, best
// match first. Used to help after a failed Find.
func (c *Catalog) Suggest(name string, limit int) []string {
	type scored struct {
		name  string
		score float32
	}

	target := strings.ToLower(Stem(name))
	if target == "" || limit <= 0 {
		return nil
	}

	var candidates []scored
	for _, app := range c.List() {
		sim, err := edlib.StringsSimilarity(target, strings.ToLower(app.Name), edlib.DamerauLevenshtein)
		if err != nil {
			continue
		}
		if sim >= suggestMinSimilarity {
			candidates = append(candidates, scored{name: app.Name, score: sim})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	names := make([]string, 0, len(candidates))
	for _, s := range candidates {
		names = append(names, s.name)
	}
	return names
}
