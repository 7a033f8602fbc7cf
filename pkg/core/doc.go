// Package core defines the shared data contract for the weekly snapshot
// engine: batch parameters, extracted metric rows, aggregation results,
// week-over-week changes, KPI status, anomalies, generated content, the
// persisted snapshot record, and the narrow store interfaces every
// pipeline stage depends on.
//
// All pipeline packages import core; core imports nothing from them.
package core
