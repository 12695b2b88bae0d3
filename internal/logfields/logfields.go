// Package logfields holds canonical slog attribute constructors so every
// package logs the same keys for the same things.
package logfields

import "log/slog"

const (
	KeyJobID      = "job_id"
	KeyJobStatus  = "job_status"
	KeyProgress   = "progress"
	KeySolutionID = "solution_id"
	KeyCacheKey   = "cache_key"
	KeyScreen     = "screen"
	KeyStoreKey   = "store_key"
	KeyModal      = "modal"
	KeyNamespace  = "namespace"
	KeyError      = "error"
)

func JobID(id int64) slog.Attr      { return slog.Int64(KeyJobID, id) }
func JobStatus(s string) slog.Attr  { return slog.String(KeyJobStatus, s) }
func Progress(p int) slog.Attr      { return slog.Int(KeyProgress, p) }
func SolutionID(id int64) slog.Attr { return slog.Int64(KeySolutionID, id) }
func CacheKey(k string) slog.Attr   { return slog.String(KeyCacheKey, k) }
func Screen(s string) slog.Attr     { return slog.String(KeyScreen, s) }
func StoreKey(k string) slog.Attr   { return slog.String(KeyStoreKey, k) }
func Modal(tag string) slog.Attr    { return slog.String(KeyModal, tag) }
func Namespace(ns string) slog.Attr { return slog.String(KeyNamespace, ns) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
