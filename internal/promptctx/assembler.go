// Package promptctx turns the marketing catalog into the text block that is
// appended to the model instructions. The whole catalog is loaded on every
// request; there is no retrieval step, so prompt size grows with the
// catalog and is kept in bounds by a truncation policy.
package promptctx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hoc_companion/internal/models"
	"hoc_companion/internal/utils"
)

// ErrDataUnavailable is returned when the catalog could not be read
var ErrDataUnavailable = errors.New("data unavailable")

const (
	projectsQuery = `SELECT project_id, project_name, year FROM projects ORDER BY year DESC`

	assetsQuery = `SELECT p.project_name, p.year, a.asset_kind, a.asset_content, a.language, a.file_name,
       a.description, a.version, a.document_content, a.campaign_context
FROM assets a
JOIN projects p ON a.project_id = p.id
ORDER BY p.year DESC, p.project_name`

	statsQuery = `SELECT
    (SELECT COUNT(*) FROM projects) AS total_projects,
    (SELECT COUNT(*) FROM assets) AS total_assets`
)

// ContentSuffix marks asset content cut at MaxAssetChars
const ContentSuffix = "…"

// PromptContext is the rendered catalog text. It is built per request.
type PromptContext string

// Database runs read-only queries and returns rows as column maps
type Database interface {
	Execute(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// TokenCounter counts tokens the way the target model does
type TokenCounter interface {
	CountText(model, text string) int
}

// Options bound the rendered context. Zero means no limit.
type Options struct {
	Model            string
	MaxAssetChars    int
	MaxContextTokens int
}

// Assembler builds PromptContexts
type Assembler struct {
	opts     Options
	counter  TokenCounter
	observer RenderObserver
	logger   *utils.Logger
}

// RenderObserver is told how many assets each rendered context carried
type RenderObserver interface {
	SetContextAssets(included, omitted int)
}

// NewAssembler creates an assembler. counter may be nil when
// MaxContextTokens is 0.
func NewAssembler(opts Options, counter TokenCounter, logger *utils.Logger) *Assembler {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Assembler{opts: opts, counter: counter, logger: logger}
}

// WithObserver sets the observer called after every Build
func (a *Assembler) WithObserver(o RenderObserver) *Assembler {
	a.observer = o
	return a
}

// Snapshot is the catalog as read from the database
type Snapshot struct {
	Stats    models.CatalogStats
	Projects []models.Project
	Assets   []models.Asset
}

// Build loads the catalog and renders it
func (a *Assembler) Build(ctx context.Context, db Database) (PromptContext, error) {
	snap, err := Load(ctx, db)
	if err != nil {
		return "", err
	}
	rendered := a.Render(snap)
	if a.observer != nil {
		a.observer.SetContextAssets(rendered.Included, rendered.Omitted)
	}
	if rendered.Omitted > 0 {
		a.logger.Warn("Context budget reached, older assets omitted",
			"included", rendered.Included, "omitted", rendered.Omitted, "budget", a.opts.MaxContextTokens)
	}
	return rendered.Text, nil
}

// Load runs the three catalog queries in order. Any failure is wrapped in
// ErrDataUnavailable; no partial snapshot is returned.
func Load(ctx context.Context, db Database) (*Snapshot, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: no database configured", ErrDataUnavailable)
	}

	projectRows, err := db.Execute(ctx, projectsQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: loading projects: %v", ErrDataUnavailable, err)
	}
	assetRows, err := db.Execute(ctx, assetsQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: loading assets: %v", ErrDataUnavailable, err)
	}
	statRows, err := db.Execute(ctx, statsQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: loading stats: %v", ErrDataUnavailable, err)
	}
	if len(statRows) == 0 {
		return nil, fmt.Errorf("%w: stats query returned no rows", ErrDataUnavailable)
	}

	snap := &Snapshot{
		Stats: models.CatalogStats{
			TotalProjects: intValue(statRows[0]["total_projects"]),
			TotalAssets:   intValue(statRows[0]["total_assets"]),
		},
		Projects: make([]models.Project, 0, len(projectRows)),
		Assets:   make([]models.Asset, 0, len(assetRows)),
	}
	for _, row := range projectRows {
		snap.Projects = append(snap.Projects, projectFromRow(row))
	}
	for _, row := range assetRows {
		snap.Assets = append(snap.Assets, assetFromRow(row))
	}
	return snap, nil
}

// Rendered is the outcome of Render
type Rendered struct {
	Text     PromptContext
	Included int
	Omitted  int
}

// Render serializes a snapshot. Asset content is cut at MaxAssetChars runes.
// When MaxContextTokens is set, assets are admitted in snapshot order (newest
// project year first) until the next one would exceed the budget; the rest
// are dropped and counted in a trailing note. STATS always shows the full
// database counts.
func (a *Assembler) Render(snap *Snapshot) Rendered {
	var head strings.Builder
	head.WriteString("\n\n=== DATABASE CONTENT ===\n")
	fmt.Fprintf(&head, "\nSTATS: %d projects, %d assets\n", snap.Stats.TotalProjects, snap.Stats.TotalAssets)

	fmt.Fprintf(&head, "\n--- PROJECTS (%d) ---\n", len(snap.Projects))
	for _, p := range snap.Projects {
		fmt.Fprintf(&head, "- %s (%d)\n", p.Name, p.Year)
	}

	lines := make([]string, len(snap.Assets))
	for i, asset := range snap.Assets {
		content := asset.Content
		if a.opts.MaxAssetChars > 0 {
			content = utils.Truncate(content, a.opts.MaxAssetChars, ContentSuffix)
		}
		lines[i] = fmt.Sprintf("[%s] %s: %s\n", asset.Kind, asset.ProjectName, content)
	}

	included := a.admit(head.String(), lines)
	omitted := len(lines) - included

	var out strings.Builder
	out.WriteString(head.String())
	fmt.Fprintf(&out, "\n--- ALL ASSETS (%d) ---\n", included)
	for _, line := range lines[:included] {
		out.WriteString(line)
	}
	if omitted > 0 {
		out.WriteString(omittedNote(omitted))
	}

	return Rendered{Text: PromptContext(out.String()), Included: included, Omitted: omitted}
}

// admit returns how many asset lines fit in the token budget
func (a *Assembler) admit(head string, lines []string) int {
	budget := a.opts.MaxContextTokens
	if budget <= 0 || a.counter == nil {
		return len(lines)
	}

	used := a.count(head) + a.count(fmt.Sprintf("\n--- ALL ASSETS (%d) ---\n", len(lines)))
	costs := make([]int, len(lines))
	total := used
	for i, line := range lines {
		costs[i] = a.count(line)
		total += costs[i]
	}
	if total <= budget {
		return len(lines)
	}

	// room for the omission note
	used += a.count(omittedNote(len(lines)))

	n := 0
	for _, cost := range costs {
		if used+cost > budget {
			break
		}
		used += cost
		n++
	}
	return n
}

func (a *Assembler) count(text string) int {
	return a.counter.CountText(a.opts.Model, text)
}

func omittedNote(n int) string {
	return fmt.Sprintf("(%d older assets omitted to fit the context budget)\n", n)
}
