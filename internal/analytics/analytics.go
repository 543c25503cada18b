// Package analytics aggregates the usage log into time-bucketed and
// categorical statistics.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/snippet"
)

const (
	dailyBuckets   = 30
	weeklyBuckets  = 12
	monthlyBuckets = 12
	monthSpan      = 30 * 24 * time.Hour
	recentSpan     = 7 * 24 * time.Hour
	topLimit       = 10

	uncategorized = "uncategorized"
)

// DailyCount is the number of uses on one calendar day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// WeeklyCount is the number of uses in one ISO week.
type WeeklyCount struct {
	Week  string `json:"week"`
	Count int    `json:"count"`
}

// MonthlyCount is the number of uses in one 30-day bucket, labelled with
// the month the bucket ends in.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type TopSnippet struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	UsageCount   int64  `json:"usage_count"`
	Category     string `json:"category"`
}

type VersionStats struct {
	TotalVersions         int64   `json:"total_versions"`
	AvgVersionsPerSnippet float64 `json:"avg_versions_per_snippet"`
}

type Productivity struct {
	AvgDailyUses   float64 `json:"avg_daily_uses"`
	MostActiveHour int     `json:"most_active_hour"`
	MostActiveDay  string  `json:"most_active_day"`
}

// Report is the result of Compute. TopSnippets, CategoryStats and
// VersionStats are only set for global reports; Productivity only when the
// scoped log is not empty.
type Report struct {
	TotalUses       int   `json:"total_uses"`
	TotalSnippets   int64 `json:"total_snippets"`
	EnabledSnippets int64 `json:"enabled_snippets"`

	BySource map[string]int `json:"by_source"`
	ByApp    map[string]int `json:"by_app"`
	ByDomain map[string]int `json:"by_domain"`
	ByHour   map[int]int    `json:"by_hour"`
	ByDay    map[string]int `json:"by_day"`
	ByMonth  map[string]int `json:"by_month"`

	DailyUsage     []DailyCount   `json:"daily_usage"`
	WeeklyUsage    []WeeklyCount  `json:"weekly_usage"`
	MonthlyUsage   []MonthlyCount `json:"monthly_usage"`
	RecentActivity int            `json:"recent_activity"`

	TopSnippets   []TopSnippet   `json:"top_snippets,omitempty"`
	CategoryStats map[string]int `json:"category_stats,omitempty"`
	VersionStats  *VersionStats  `json:"version_stats,omitempty"`
	Productivity  *Productivity  `json:"productivity_metrics,omitempty"`
}

// Analyzer computes reports from the store.
type Analyzer struct {
	snippets *database.SnippetRepository
	versions *database.VersionRepository
	usage    *database.UsageRepository
	now      func() time.Time
}

type Option func(*Analyzer)

// WithClock overrides the reference time for the time series.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

func NewAnalyzer(dbCtx *database.Context, opts ...Option) *Analyzer {
	a := &Analyzer{
		snippets: database.NewSnippetRepository(dbCtx),
		versions: database.NewVersionRepository(dbCtx),
		usage:    database.NewUsageRepository(dbCtx),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compute builds a report over the whole log, or over the entries of one
// snippet when snippetID is not empty. Snippet totals are always global.
func (a *Analyzer) Compute(ctx context.Context, snippetID string) (*Report, error) {
	logs, err := a.usage.List(ctx, snippetID)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage log: %w", err)
	}
	total, enabled, err := a.snippets.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count snippets: %w", err)
	}

	report := Summarize(logs, a.now().UTC())
	report.TotalSnippets = total
	report.EnabledSnippets = enabled

	if snippetID != "" {
		return report, nil
	}

	top, err := a.usage.Top(ctx, topLimit)
	if err != nil {
		return nil, err
	}
	report.TopSnippets = make([]TopSnippet, 0, len(top))
	for _, t := range top {
		report.TopSnippets = append(report.TopSnippets, TopSnippet{
			ID:           t.ID,
			Name:         t.Name,
			Abbreviation: t.Abbreviation,
			UsageCount:   t.Uses,
			Category:     t.Category,
		})
	}

	categories, err := a.snippets.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}
	report.CategoryStats = make(map[string]int, len(categories))
	for _, c := range categories {
		name := c.Category
		if name == "" {
			name = uncategorized
		}
		report.CategoryStats[name] += int(c.Count)
	}

	totalVersions, err := a.versions.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	report.VersionStats = &VersionStats{
		TotalVersions:         totalVersions,
		AvgVersionsPerSnippet: float64(totalVersions) / float64(max(total, 1)),
	}
	return report, nil
}

// Summarize computes the log-derived part of a report relative to now.
func Summarize(logs []snippet.UsageLogEntry, now time.Time) *Report {
	now = now.UTC()
	bySource := newCounter[string]()
	byApp := newCounter[string]()
	byDomain := newCounter[string]()
	byHour := newCounter[int]()
	byDay := newCounter[string]()
	byMonth := newCounter[string]()

	for _, entry := range logs {
		ts := entry.Timestamp.UTC()
		if entry.Source != "" {
			bySource.add(string(entry.Source))
		}
		if entry.TargetApp != "" {
			byApp.add(entry.TargetApp)
		}
		if entry.TargetDomain != "" {
			byDomain.add(entry.TargetDomain)
		}
		byHour.add(ts.Hour())
		byDay.add(ts.Weekday().String())
		byMonth.add(ts.Format("2006-01"))
	}

	report := &Report{
		TotalUses:    len(logs),
		BySource:     bySource.counts,
		ByApp:        byApp.counts,
		ByDomain:     byDomain.counts,
		ByHour:       byHour.counts,
		ByDay:        byDay.counts,
		ByMonth:      byMonth.counts,
		DailyUsage:   dailySeries(logs, now),
		WeeklyUsage:  weeklySeries(logs, now),
		MonthlyUsage: monthlySeries(logs, now),
	}

	recentSince := now.Add(-recentSpan)
	for _, entry := range logs {
		if !entry.Timestamp.Before(recentSince) {
			report.RecentActivity++
		}
	}

	if len(logs) > 0 {
		hour, _ := byHour.argmax()
		day, _ := byDay.argmax()
		report.Productivity = &Productivity{
			AvgDailyUses:   float64(len(logs)) / float64(max(spanDays(logs), 1)),
			MostActiveHour: hour,
			MostActiveDay:  day,
		}
	}
	return report
}

func dailySeries(logs []snippet.UsageLogEntry, now time.Time) []DailyCount {
	perDay := make(map[string]int, len(logs))
	for _, entry := range logs {
		perDay[entry.Timestamp.UTC().Format(time.DateOnly)]++
	}

	series := make([]DailyCount, 0, dailyBuckets)
	for i := dailyBuckets - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format(time.DateOnly)
		series = append(series, DailyCount{Date: day, Count: perDay[day]})
	}
	return series
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-%02d", year, week)
}

func weeklySeries(logs []snippet.UsageLogEntry, now time.Time) []WeeklyCount {
	perWeek := make(map[string]int, len(logs))
	for _, entry := range logs {
		perWeek[weekKey(entry.Timestamp.UTC())]++
	}

	series := make([]WeeklyCount, 0, weeklyBuckets)
	for i := weeklyBuckets - 1; i >= 0; i-- {
		week := weekKey(now.AddDate(0, 0, -7*i))
		series = append(series, WeeklyCount{Week: week, Count: perWeek[week]})
	}
	return series
}

// monthlySeries counts entries in consecutive 30-day windows ending at now.
// Windows are half-open at the start: (end-30d, end].
func monthlySeries(logs []snippet.UsageLogEntry, now time.Time) []MonthlyCount {
	series := make([]MonthlyCount, 0, monthlyBuckets)
	for i := monthlyBuckets - 1; i >= 0; i-- {
		end := now.Add(-time.Duration(i) * monthSpan)
		start := end.Add(-monthSpan)
		count := 0
		for _, entry := range logs {
			ts := entry.Timestamp
			if ts.After(start) && !ts.After(end) {
				count++
			}
		}
		series = append(series, MonthlyCount{Month: end.Format("2006-01"), Count: count})
	}
	return series
}

// spanDays is the number of whole days between the earliest and latest entry.
func spanDays(logs []snippet.UsageLogEntry) int {
	earliest, latest := logs[0].Timestamp, logs[0].Timestamp
	for _, entry := range logs[1:] {
		if entry.Timestamp.Before(earliest) {
			earliest = entry.Timestamp
		}
		if entry.Timestamp.After(latest) {
			latest = entry.Timestamp
		}
	}
	return int(latest.Sub(earliest) / (24 * time.Hour))
}

// counter keeps insertion order so argmax ties go to the first key seen.
type counter[K comparable] struct {
	counts map[K]int
	order  []K
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{counts: map[K]int{}}
}

func (c *counter[K]) add(key K) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter[K]) argmax() (K, bool) {
	var best K
	found := false
	for _, key := range c.order {
		if !found || c.counts[key] > c.counts[best] {
			best = key
			found = true
		}
	}
	return best, found
}
