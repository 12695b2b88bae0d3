// Package logtail reads the dashboard's own log file for the in-app log view.
//
// # Overview
//
// The dashboard logs with slog's JSON handler to a file (the terminal is
// owned by the UI). This package reads the last N lines of that file and
// decodes them into Entry values the settings screen can filter and render.
//
// # Reading
//
// Read keeps a ring buffer of maxLines, so memory stays O(maxLines) however
// large the file grows. A missing file is not an error: it yields no lines,
// which is the normal state before the first log write.
//
// # Decoding
//
// Parse understands the time, level and msg keys slog writes and keeps every
// other attribute as a string field. Lines that are not JSON (a panic trace,
// for example) come back as INFO entries holding the raw text, so nothing in
// the file is hidden from the view.
//
// # Filtering
//
// Filter selects a minimum level and optionally a single job, matched on the
// job_id attribute written by the logfields helpers.
package logtail
