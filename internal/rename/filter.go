package rename

import (
	"strings"

	"vaultnorm/internal/config"
	"vaultnorm/internal/errors"
	"vaultnorm/internal/log"
	"vaultnorm/internal/vault"
	"vaultnorm/pkg/types"

	"github.com/gobwas/glob"
)

// Filter decides which items are eligible for renaming.
type Filter struct {
	folders []string
	files   map[string]struct{}
	allow   map[string]struct{}
	deny    map[string]struct{}
	ignore  []glob.Glob
}

// NewFilter builds a filter from normalized settings. Ignore patterns that
// do not compile are skipped and returned as errors.
func NewFilter(s *config.Settings) (*Filter, []error) {
	f := &Filter{
		folders: append([]string(nil), s.BlacklistedFolders...),
		files:   toSet(s.BlacklistedFiles),
		allow:   toSet(s.TargetExtensions),
		deny:    toSet(s.ExcludedExtensions),
	}
	var errs []error
	for _, pattern := range s.IgnorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			cfgErr := errors.NewConfigError("invalid ignore pattern", pattern, errors.InvalidConfig, err)
			log.LogWithError(cfgErr).Warn("Skipping ignore pattern")
			errs = append(errs, cfgErr)
			continue
		}
		f.ignore = append(f.ignore, g)
	}
	return f, errs
}

// UnderBlacklistedFolder reports whether p is a blacklisted folder or lies
// inside one.
func (f *Filter) UnderBlacklistedFolder(p string) bool {
	p = vault.NormalizePath(p)
	for _, dir := range f.folders {
		if vault.IsWithin(p, dir) {
			return true
		}
	}
	return false
}

// IsBlacklistedFile reports whether p is on the exact-path file blacklist.
func (f *Filter) IsBlacklistedFile(p string) bool {
	_, ok := f.files[vault.NormalizePath(p)]
	return ok
}

// IsIgnored reports whether p matches an ignore pattern.
func (f *Filter) IsIgnored(p string) bool {
	for _, g := range f.ignore {
		if g.Match(p) {
			return true
		}
	}
	return false
}

// AllowsExtension applies the extension lists. The deny-list always wins;
// an empty allow-list allows everything else.
func (f *Filter) AllowsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	if _, denied := f.deny[ext]; denied {
		return false
	}
	if len(f.allow) == 0 {
		return true
	}
	_, ok := f.allow[ext]
	return ok
}

// FileSkipReason returns why file must not be renamed, or SkipNone.
func (f *Filter) FileSkipReason(file *types.Item) types.SkipReason {
	switch {
	case f.UnderBlacklistedFolder(file.Path):
		return types.SkipBlacklistedFolder
	case f.IsBlacklistedFile(file.Path):
		return types.SkipBlacklistedFile
	case f.IsIgnored(file.Path):
		return types.SkipIgnored
	case !f.AllowsExtension(file.Extension()):
		return types.SkipExtension
	}
	return types.SkipNone
}

// FolderSkipReason returns why folder must not be renamed, or SkipNone.
// Folders are not subject to extension filtering.
func (f *Filter) FolderSkipReason(folder *types.Item) types.SkipReason {
	switch {
	case folder.IsRoot():
		return types.SkipRoot
	case f.UnderBlacklistedFolder(folder.Path):
		return types.SkipBlacklistedFolder
	case f.IsIgnored(folder.Path):
		return types.SkipIgnored
	}
	return types.SkipNone
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
