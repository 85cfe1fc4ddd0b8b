package cli

import (
	"time"

	"github.com/lu-zhengda/appsweep/internal/catalog"
	"github.com/lu-zhengda/appsweep/internal/engine"
	"github.com/lu-zhengda/appsweep/internal/history"
	"github.com/lu-zhengda/appsweep/internal/remover"
	"github.com/lu-zhengda/appsweep/internal/residual"
)

// ---------------------------------------------------------------------------
// List / search JSON types
// ---------------------------------------------------------------------------

type appsJSON struct {
	Version   string        `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
	Query     string        `json:"query,omitempty"`
	Apps      []catalog.App `json:"apps"`
	TotalSize int64         `json:"total_size"`
}

func buildAppsJSON(query string, apps []catalog.App) appsJSON {
	var total int64
	for _, a := range apps {
		total += a.Size
	}
	if apps == nil {
		apps = []catalog.App{}
	}
	return appsJSON{
		Version:   version,
		Timestamp: time.Now().UTC(),
		Query:     query,
		Apps:      apps,
		TotalSize: total,
	}
}

// ---------------------------------------------------------------------------
// Remove JSON types
// ---------------------------------------------------------------------------

type outcomeJSON struct {
	Path  string `json:"path"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type removeJSON struct {
	Version        string        `json:"version"`
	Timestamp      time.Time     `json:"timestamp"`
	DryRun         bool          `json:"dry_run"`
	Plan           engine.Plan   `json:"plan"`
	Outcomes       []outcomeJSON `json:"outcomes,omitempty"`
	Failed         int           `json:"failed"`
	NeedsPrivilege bool          `json:"needs_privilege,omitempty"`
}

// buildRemoveJSON describes a plan and, when report is non-nil, what
// happened to each path.
func buildRemoveJSON(plan engine.Plan, report *remover.Report) removeJSON {
	out := removeJSON{
		Version:   version,
		Timestamp: time.Now().UTC(),
		DryRun:    report == nil,
		Plan:      plan,
	}
	if report == nil {
		return out
	}

	out.Outcomes = outcomesJSON(*report)
	out.Failed = len(report.Failed())
	out.NeedsPrivilege = report.NeedsPrivilege()
	return out
}

func outcomesJSON(report remover.Report) []outcomeJSON {
	outcomes := make([]outcomeJSON, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		oj := outcomeJSON{Path: o.Path, OK: o.OK()}
		if o.Err != nil {
			oj.Error = o.Err.Error()
		}
		outcomes = append(outcomes, oj)
	}
	return outcomes
}

// ---------------------------------------------------------------------------
// Orphans JSON types
// ---------------------------------------------------------------------------

type orphanJSON struct {
	residual.Orphan
	Size int64 `json:"size"`
}

type orphansJSON struct {
	Version   string        `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
	Orphans   []orphanJSON  `json:"orphans"`
	TotalSize int64         `json:"total_size"`
	Outcomes  []outcomeJSON `json:"outcomes,omitempty"`
}

func buildOrphansJSON(orphans []residual.Orphan, sizes map[string]int64, report *remover.Report) orphansJSON {
	out := orphansJSON{
		Version:   version,
		Timestamp: time.Now().UTC(),
		Orphans:   make([]orphanJSON, 0, len(orphans)),
	}
	for _, o := range orphans {
		out.Orphans = append(out.Orphans, orphanJSON{Orphan: o, Size: sizes[o.Path]})
		out.TotalSize += sizes[o.Path]
	}
	if report != nil {
		out.Outcomes = outcomesJSON(*report)
	}
	return out
}

// ---------------------------------------------------------------------------
// History JSON type
// ---------------------------------------------------------------------------

type historyJSON struct {
	Version       string                         `json:"version"`
	TotalFreed    int64                          `json:"total_freed"`
	TotalRemovals int                            `json:"total_removals"`
	TotalFailed   int                            `json:"total_failed"`
	ByMethod      map[string]history.MethodStats `json:"by_method"`
	Recent        []history.Entry                `json:"recent"`
}

func buildHistoryJSON(stats history.Stats) historyJSON {
	return historyJSON{
		Version:       version,
		TotalFreed:    stats.TotalFreed,
		TotalRemovals: stats.TotalRemovals,
		TotalFailed:   stats.TotalFailed,
		ByMethod:      stats.ByMethod,
		Recent:        stats.Recent,
	}
}
