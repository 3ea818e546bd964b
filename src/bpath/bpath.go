// Package bpath canonicalizes POSIX-style paths: collapsing "." and ".."
// components and repeated slashes the way fd.Cwd_t.Canonicalpath needs
// before handing a path to the filesystem layer. The teacher's bpath
// module is referenced from fd.go but its body was not retrieved into
// the pack (only its now-removed per-package go.mod survived); rebuilt
// here with the stdlib path package, which is the standard, idiomatic
// tool for exactly this job -- there is no third-party path-canonicalizer
// anywhere in the retrieved stack worth displacing it for.
package bpath

import (
	stdpath "path"

	"sv39kernel/src/ustr"
)

// Canonicalize resolves "." and ".." components in p and collapses
// repeated separators, always returning an absolute, clean path. It does
// not consult the filesystem (no symlink resolution) -- that is the
// vfs layer's job once a canonical path reaches it.
func Canonicalize(p ustr.Ustr) ustr.Ustr {
	clean := stdpath.Clean("/" + string(p))
	return ustr.Ustr(clean)
}
