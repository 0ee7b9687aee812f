package fs

import (
	"path"
	"strings"
)

// Meta: yep, these *are not* interchangeable.
// It's expected that if you *can* accept an AbsolutePath,
//  then you should normalize to that ASAP;
// and if you can't, then clearly it's correct to use the RelPath,
//  through and through the whole way.
//
// Both types are always lexically clean (as by `path.Clean`).
// Neither type ever touches the filesystem; symlinks are not resolved.

type RelPath struct {
	path      string
	lastSplit int
}

func MustRelPath(p string) RelPath {
	p = path.Clean(p)
	if p[0] == '/' {
		panic("nope")
	}
	if p == "." { // We can't stop people from using the zero value, so, use it.
		return RelPath{}
	}
	return RelPath{p, strings.LastIndexByte(p, '/')}
}
func (p RelPath) String() string {
	if p.path == "" {
		return "."
	} else if p.GoesUp() {
		return p.path
	} else {
		return "./" + p.path
	}
}
func (p RelPath) Dir() RelPath {
	if p.path == "" {
		return p
	} else if p.lastSplit == -1 {
		return RelPath{}
	} else {
		p2 := p.path[0:p.lastSplit]
		return RelPath{p2, strings.LastIndexByte(p2, '/')}
	}
}
func (p RelPath) Last() string {
	if p.path == "" {
		return "."
	} else if p.lastSplit == -1 {
		return p.path
	} else {
		return p.path[p.lastSplit+1:]
	}
}
func (p RelPath) Join(p2 RelPath) RelPath {
	switch {
	case p2.path == "":
		return p
	case p.path == "":
		return p2
	default:
		return MustRelPath(p.path + "/" + p2.path)
	}
}

// True if the path begins by leaving its base (e.g. "../x").
func (p RelPath) GoesUp() bool {
	return p.path == ".." || strings.HasPrefix(p.path, "../")
}

type AbsolutePath struct {
	path      string
	lastSplit int
}

func MustAbsolutePath(p string) AbsolutePath {
	ap, ok := ParseAbsolutePath(p)
	if !ok {
		panic("nope")
	}
	return ap
}

/*
	Clean and wrap a path string, or return false if it is not absolute.

	An empty string is not absolute.
*/
func ParseAbsolutePath(p string) (AbsolutePath, bool) {
	if p == "" || p[0] != '/' {
		return AbsolutePath{}, false
	}
	p = path.Clean(p)
	if p == "/" { // We can't stop people from using the zero value, so, use it.
		return AbsolutePath{}, true
	}
	return AbsolutePath{p, strings.LastIndexByte(p, '/')}, true
}

func (p AbsolutePath) String() string {
	if p.path == "" {
		return "/"
	}
	return p.path
}
func (p AbsolutePath) IsRoot() bool {
	return p.path == ""
}
func (p AbsolutePath) Dir() AbsolutePath {
	if p.path == "" {
		return p
	} else if p.lastSplit == 0 {
		return AbsolutePath{}
	} else {
		p2 := p.path[0:p.lastSplit]
		return AbsolutePath{p2, strings.LastIndexByte(p2, '/')}
	}
}
func (p AbsolutePath) Last() string {
	if p.path == "" {
		return "/"
	} else {
		return p.path[p.lastSplit+1:]
	}
}
func (p AbsolutePath) Join(p2 RelPath) AbsolutePath {
	switch {
	case p2.path == "":
		return p
	default:
		// Cleaning clamps excessive '..' segments at the root.
		return MustAbsolutePath(p.String() + "/" + p2.path)
	}
}

/*
	Count how many directories p sits below ancestor.

	Returns (0, true) when the paths are equal, and false when ancestor
	is not a component-wise prefix of p (so "/ab" is not below "/a").
*/
func (p AbsolutePath) HeightBelow(ancestor AbsolutePath) (int, bool) {
	var rest string
	switch {
	case p.path == ancestor.path:
		return 0, true
	case ancestor.path == "":
		rest = p.path[1:]
	case strings.HasPrefix(p.path, ancestor.path+"/"):
		rest = p.path[len(ancestor.path)+1:]
	default:
		return 0, false
	}
	return strings.Count(rest, "/") + 1, true
}

/*
	Resolve a path string against a working directory, lexically.

	Absolute inputs are simply cleaned.
	Relative inputs are joined to cwd one segment at a time; if a ".."
	segment would climb above the root, false is returned rather than
	silently clamping.
*/
func Absolutize(p string, cwd AbsolutePath) (AbsolutePath, bool) {
	if ap, ok := ParseAbsolutePath(p); ok {
		return ap, true
	}
	resolved := cwd
	for _, segment := range strings.Split(p, "/") {
		switch segment {
		case "", ".":
			continue
		case "..":
			if resolved.IsRoot() {
				return AbsolutePath{}, false
			}
			resolved = resolved.Dir()
		default:
			resolved = resolved.Join(RelPath{segment, -1})
		}
	}
	return resolved, true
}
