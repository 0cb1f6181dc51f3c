package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID         = "run_id"
	KeyRoot          = "root"
	KeyNode          = "node"
	KeyQualifiedPath = "qualified_path"
	KeyKind          = "kind"
	KeyTemplate      = "template"
	KeyOutputPath    = "output_path"
	KeyStage         = "stage"
	KeyDurationMS    = "duration_ms"
	KeyCount         = "count"
	KeyPath          = "path"
	KeyError         = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr         { return slog.String(KeyRunID, id) }
func Root(name string) slog.Attr        { return slog.String(KeyRoot, name) }
func Node(name string) slog.Attr        { return slog.String(KeyNode, name) }
func QualifiedPath(p string) slog.Attr  { return slog.String(KeyQualifiedPath, p) }
func Kind(k string) slog.Attr           { return slog.String(KeyKind, k) }
func Template(name string) slog.Attr    { return slog.String(KeyTemplate, name) }
func OutputPath(p string) slog.Attr     { return slog.String(KeyOutputPath, p) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr             { return slog.Int(KeyCount, n) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
