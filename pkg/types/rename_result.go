package types

// SkipReason explains why an item was not moved.
type SkipReason string

const (
	SkipNone              SkipReason = ""
	SkipInFlight          SkipReason = "in-flight"
	SkipBlacklistedFolder SkipReason = "blacklisted-folder"
	SkipBlacklistedFile   SkipReason = "blacklisted-file"
	SkipIgnored           SkipReason = "ignored"
	SkipExtension         SkipReason = "extension"
	SkipAlreadyStandard   SkipReason = "already-standard"
	SkipDryRun            SkipReason = "dry-run"
	SkipRoot              SkipReason = "root"
)

// RenameResult holds the outcome of a standardization attempt for one item.
type RenameResult struct {
	SourcePath      string     `json:"source_path"`
	DestinationPath string     `json:"destination_path,omitempty"`
	Kind            ItemKind   `json:"kind"`
	Moved           bool       `json:"moved"`
	Skipped         SkipReason `json:"skipped,omitempty"`
	Error           error      `json:"-"`
}

// Attempted reports whether a move was requested from storage.
func (r RenameResult) Attempted() bool {
	return r.Moved || r.Error != nil
}
