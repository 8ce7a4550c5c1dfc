package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyWorker     = "worker"
	KeyGames      = "games"
	KeyRows       = "rows"
	KeyBatch      = "batch"
	KeyHandSize   = "hand_size"
	KeySets       = "sets"
	KeyDeals      = "deals"
	KeyPolicy     = "policy"
	KeySource     = "rng"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyLine       = "line"
	KeyAddr       = "addr"
	KeySubject    = "subject"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Worker(id int) slog.Attr         { return slog.Int(KeyWorker, id) }
func Games(n uint64) slog.Attr        { return slog.Uint64(KeyGames, n) }
func Rows(n int) slog.Attr            { return slog.Int(KeyRows, n) }
func Batch(n int) slog.Attr           { return slog.Int(KeyBatch, n) }
func HandSize(n int) slog.Attr        { return slog.Int(KeyHandSize, n) }
func Sets(n int) slog.Attr            { return slog.Int(KeySets, n) }
func Deals(n int) slog.Attr           { return slog.Int(KeyDeals, n) }
func Policy(p string) slog.Attr       { return slog.String(KeyPolicy, p) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Line(n int) slog.Attr            { return slog.Int(KeyLine, n) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
