package vault

import (
	"path"
	"strings"
)

// NormalizePath converts p into canonical vault-relative form: forward
// slashes, no duplicate separators, no leading or trailing slash, no "."
// segments. The vault root normalizes to "".
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// Join joins a parent folder path and a child name.
func Join(parent, name string) string {
	if parent == "" {
		return NormalizePath(name)
	}
	return NormalizePath(parent + "/" + name)
}

// IsWithin reports whether p equals dir or lies beneath it. The root ("")
// never contains anything, so an empty entry cannot cover the whole vault.
func IsWithin(p, dir string) bool {
	if dir == "" {
		return false
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}
