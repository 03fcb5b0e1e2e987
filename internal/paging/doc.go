// Package paging implements incremental list loading over page-oriented REST endpoints.
//
// A [Fetcher] retrieves one page at a time. [Decode] validates the wire envelope
// `{"data": {"content": [...], "pageInfo": {...}}}` at the boundary so malformed payloads
// surface as [ErrMalformedPage] instead of silently empty lists.
//
// A [Loader] accumulates pages into a single ordered collection and tracks a small state machine:
//
//	Idle -> Loading -> Loaded (more pages) -> Loading -> ... -> Exhausted
//	                 \-> Failed (latched until Reset)
//
// Views drive the loader through a [Sentinel] that fires once each time the last rendered
// item scrolls into view.
package paging
