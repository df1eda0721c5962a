// Package bpath canonicalizes paths before they reach directory lookup:
// collapsing repeated slashes and resolving "." and ".." components
// lexically, the same textual normalization xv6-style kernels do before
// ever touching the directory tree (actual ".." resolution against the
// mounted tree happens in package dir, one component at a time). Grounded
// on the single surviving call site, fd.Cwd_t.Canonicalpath in fd/fd.go
// (`bpath.Canonicalize(p1)`); bpath.go's own source did not survive
// retrieval.
package bpath

import "ustr"

/// Canonicalize rewrites an absolute path into its lexically simplest
/// form: "/a//b/./c/../d" becomes "/a/b/d". A ".." at the root is a no-op,
/// matching how most Unix kernels treat an attempt to ascend past "/".
func Canonicalize(p ustr.Ustr) ustr.Ustr {
	abs := p.IsAbsolute()
	parts := split(p)
	out := make([]ustr.Ustr, 0, len(parts))
	for _, part := range parts {
		switch {
		case len(part) == 0, part.Isdot():
			continue
		case part.Isdotdot():
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	ret := ustr.MkUstr()
	if abs {
		ret = append(ret, '/')
	}
	for i, part := range out {
		if i > 0 {
			ret = append(ret, '/')
		}
		ret = append(ret, part...)
	}
	if len(ret) == 0 {
		ret = ustr.MkUstrRoot()
	}
	return ret
}

// split breaks p into its '/'-delimited components, dropping empty ones
// caused by repeated slashes.
func split(p ustr.Ustr) []ustr.Ustr {
	var parts []ustr.Ustr
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				parts = append(parts, p[start:i])
			}
			start = i + 1
		}
	}
	return parts
}
