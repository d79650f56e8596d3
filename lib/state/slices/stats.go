package slices

import (
	"fmt"
	"github.com/ValentinKolb/stash/lib/state"
)

const (
	ActionStatsChartCountsRequest state.ActionType = "STATS_CHART_COUNTS_REQUEST"
	ActionStatsChartCountsReceive state.ActionType = "STATS_CHART_COUNTS_RECEIVE"
)

// QueryFields are the stat fields a chart counts query can load.
var QueryFields = []string{"views", "visitors", "likes", "comments", "post_titles"}

// ChartCount is one period of chart data.
type ChartCount struct {
	Period     string   `mapstructure:"period"`
	Views      int64    `mapstructure:"views"`
	Visitors   int64    `mapstructure:"visitors"`
	Likes      int64    `mapstructure:"likes"`
	Comments   int64    `mapstructure:"comments"`
	PostTitles []string `mapstructure:"post_titles,omitempty"`
}

// ChartCounts maps site id -> period unit (day, week, ...) -> counts.
type ChartCounts map[string]map[string][]ChartCount

// LoadingFlags maps site id -> stat field -> period -> loading.
type LoadingFlags map[string]map[string]map[string]bool

// NewStats returns the stats slice: stats.chart.counts is persisted,
// stats.chart.isLoading is transient.
func NewStats() state.Slice {
	return state.Combine("stats",
		state.Combine("chart",
			chartCountsSlice{},
			chartLoadingSlice{},
		),
	)
}

// --------------------------------------------------------------------------
// stats.chart.counts
// --------------------------------------------------------------------------

type chartCountsSlice struct{}

func (chartCountsSlice) Name() string { return "counts" }

func (chartCountsSlice) Initial() any { return ChartCounts{} }

func (chartCountsSlice) Reduce(current any, action state.Action) any {
	if action.Type != ActionStatsChartCountsReceive {
		return current
	}
	counts, ok := current.(ChartCounts)
	if !ok {
		counts = ChartCounts{}
	}

	var payload struct {
		SiteID string           `mapstructure:"siteId"`
		Data   []map[string]any `mapstructure:"data"`
	}
	if err := decodePayload(action.Payload, &payload); err != nil || payload.SiteID == "" || len(payload.Data) == 0 {
		state.Logger.Warningf("ignoring malformed %s", action.Type)
		return current
	}
	unit, _ := payload.Data[0]["unit"].(string)

	existing := counts[payload.SiteID][unit]
	merged := make([]ChartCount, len(existing))
	copy(merged, existing)

	for _, fromAPI := range payload.Data {
		row := make(map[string]any, len(fromAPI))
		for k, v := range fromAPI {
			if k != "unit" {
				row[k] = v
			}
		}
		period := fmt.Sprint(row["period"])

		idx := -1
		for i := range merged {
			if merged[i].Period == period {
				idx = i
				break
			}
		}

		var count ChartCount
		if idx >= 0 {
			count = merged[idx]
			// the decoder reuses slice backing arrays, which belong to the previous state
			if _, ok := row["post_titles"]; ok {
				count.PostTitles = nil
			}
		}
		if err := decodePayload(row, &count); err != nil {
			state.Logger.Warningf("ignoring malformed chart row for period %s: %v", period, err)
			continue
		}
		if idx >= 0 {
			merged[idx] = count
		} else {
			merged = append(merged, count)
		}
	}

	next := make(ChartCounts, len(counts)+1)
	for site, units := range counts {
		next[site] = units
	}
	siteUnits := make(map[string][]ChartCount, len(counts[payload.SiteID])+1)
	for u, rows := range counts[payload.SiteID] {
		siteUnits[u] = rows
	}
	siteUnits[unit] = merged
	next[payload.SiteID] = siteUnits
	return next
}

func (chartCountsSlice) Serialize(current any) (any, error) {
	counts, ok := current.(ChartCounts)
	if !ok {
		return nil, fmt.Errorf("counts: unexpected state %T", current)
	}
	out := make(map[string]any, len(counts))
	for site, units := range counts {
		siteOut := make(map[string]any, len(units))
		for unit, rows := range units {
			rowsOut := make([]any, 0, len(rows))
			for _, row := range rows {
				m, err := toMap(row)
				if err != nil {
					return nil, err
				}
				rowsOut = append(rowsOut, m)
			}
			siteOut[unit] = rowsOut
		}
		out[site] = siteOut
	}
	return out, nil
}

func (chartCountsSlice) Deserialize(raw any) (any, error) {
	var counts ChartCounts
	if err := decodeStored(raw, &counts); err != nil {
		return nil, fmt.Errorf("counts: %w", err)
	}
	for site, units := range counts {
		for unit, rows := range units {
			for _, row := range rows {
				if row.Period == "" {
					return nil, fmt.Errorf("counts: row without period in %s/%s", site, unit)
				}
			}
		}
	}
	if counts == nil {
		counts = ChartCounts{}
	}
	return counts, nil
}

// --------------------------------------------------------------------------
// stats.chart.isLoading
// --------------------------------------------------------------------------

type chartLoadingSlice struct{}

func (chartLoadingSlice) Name() string { return "isLoading" }

func (chartLoadingSlice) Initial() any { return LoadingFlags{} }

func (chartLoadingSlice) Transient() bool { return true }

func (chartLoadingSlice) Reduce(current any, action state.Action) any {
	flags, ok := current.(LoadingFlags)
	if !ok {
		flags = LoadingFlags{}
	}

	switch action.Type {
	case ActionStatsChartCountsRequest:
		var payload struct {
			SiteID     string   `mapstructure:"siteId"`
			StatFields []string `mapstructure:"statFields"`
			Period     string   `mapstructure:"period"`
		}
		if err := decodePayload(action.Payload, &payload); err != nil || payload.SiteID == "" {
			return current
		}
		return flags.with(payload.SiteID, payload.Period, payload.StatFields, true)

	case ActionStatsChartCountsReceive:
		var payload struct {
			SiteID string           `mapstructure:"siteId"`
			Data   []map[string]any `mapstructure:"data"`
		}
		if err := decodePayload(action.Payload, &payload); err != nil || payload.SiteID == "" || len(payload.Data) == 0 {
			return current
		}
		unit, _ := payload.Data[0]["unit"].(string)
		var fields []string
		for _, f := range QueryFields {
			if _, ok := payload.Data[0][f]; ok {
				fields = append(fields, f)
			}
		}
		return flags.with(payload.SiteID, unit, fields, false)
	}
	return current
}

// with returns a copy of f with site/field/period set to value for every field
func (f LoadingFlags) with(site, period string, fields []string, value bool) LoadingFlags {
	next := make(LoadingFlags, len(f)+1)
	for s, v := range f {
		next[s] = v
	}
	siteFlags := make(map[string]map[string]bool, len(f[site])+len(fields))
	for field, periods := range f[site] {
		siteFlags[field] = periods
	}
	for _, field := range fields {
		periods := make(map[string]bool, len(siteFlags[field])+1)
		for p, v := range siteFlags[field] {
			periods[p] = v
		}
		periods[period] = value
		siteFlags[field] = periods
	}
	next[site] = siteFlags
	return next
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// NewReducer returns the reducer over all slices of the application.
func NewReducer() (*state.Reducer, error) {
	return state.NewReducer(
		NewCurrentUser(),
		NewStats(),
		NewPreferences(),
	)
}
