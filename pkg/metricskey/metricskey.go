package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsToolArgsMalformed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_args_malformed",
		Help:         "stats_tool_args_malformed provides total tool calls with malformed arguments",
		RequiredTags: []string{"tool"},
	}

	StatsCatalogLoadFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_catalog_load_failed",
		Help:         "stats_catalog_load_failed provides total failed manual loads",
		RequiredTags: []string{"manual"},
	}

	StatsCatalogCacheHits = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_catalog_cache_hits",
		Help:         "stats_catalog_cache_hits provides total manual loads served from cache",
		RequiredTags: []string{"manual"},
	}
)

// Perf
var (
	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfCatalogLoad = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_catalog_load",
		Help:         "perf_catalog_load provides duration of manual load",
		RequiredTags: []string{"manual"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfCatalogLoad,
	&PerfToolCall,
	&StatsCatalogCacheHits,
	&StatsCatalogLoadFailed,
	&StatsToolArgsMalformed,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
