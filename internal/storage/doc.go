// Package storage keeps an optional audit trail of pipeline runs and
// Telegram deliveries.
//
// Records are append-only. Nothing here is read back by the pipeline, so an
// offer seen in an earlier run is always notified again.
package storage
