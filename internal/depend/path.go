package depend

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Path identifies a suite node relative to a cycle. Offset is the time
// distance from the cycle being evaluated; Name is the dot-separated
// hierarchical name. The zero Path (empty Name) denotes the suite root.
//
// Path is comparable and may be used as a map key.
type Path struct {
	Offset time.Duration
	Name   string
}

// segmentRegex matches a single name segment, e.g. `prep` or `post_f024`.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// NewPath builds a Path from its offset and name segments.
func NewPath(offset time.Duration, names ...string) Path {
	return Path{Offset: offset, Name: strings.Join(names, ".")}
}

// ParsePath parses `a.b.c` or `a.b.c@-6h` into a Path.
func ParsePath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, fmt.Errorf("path cannot be empty")
	}

	name, offsetStr, hasOffset := strings.Cut(raw, "@")
	var offset time.Duration
	if hasOffset {
		d, err := time.ParseDuration(offsetStr)
		if err != nil {
			return Path{}, fmt.Errorf("invalid offset in path %q: %w", raw, err)
		}
		offset = d
	}

	for _, segment := range strings.Split(name, ".") {
		if segment == "" {
			return Path{}, fmt.Errorf("path %q contains empty segment", raw)
		}
		if !segmentRegex.MatchString(segment) {
			return Path{}, fmt.Errorf("invalid path segment %q", segment)
		}
	}
	return Path{Offset: offset, Name: name}, nil
}

// Names returns the individual name segments.
func (p Path) Names() []string {
	if p.Name == "" {
		return nil
	}
	return strings.Split(p.Name, ".")
}

// Depth is the number of name segments.
func (p Path) Depth() int {
	if p.Name == "" {
		return 0
	}
	return strings.Count(p.Name, ".") + 1
}

// Base returns the last name segment.
func (p Path) Base() string {
	if i := strings.LastIndexByte(p.Name, '.'); i >= 0 {
		return p.Name[i+1:]
	}
	return p.Name
}

// Parent returns the enclosing path. ok is false for the root.
func (p Path) Parent() (parent Path, ok bool) {
	if p.Name == "" {
		return Path{}, false
	}
	if i := strings.LastIndexByte(p.Name, '.'); i >= 0 {
		return Path{Offset: p.Offset, Name: p.Name[:i]}, true
	}
	return Path{Offset: p.Offset}, true
}

// Child appends one name segment.
func (p Path) Child(name string) Path {
	if p.Name == "" {
		return Path{Offset: p.Offset, Name: name}
	}
	return Path{Offset: p.Offset, Name: p.Name + "." + name}
}

// Shift moves the path dt further in time.
func (p Path) Shift(dt time.Duration) Path {
	return Path{Offset: p.Offset + dt, Name: p.Name}
}

// Zero returns the same path with no time offset.
func (p Path) Zero() Path {
	return Path{Name: p.Name}
}

// IsRoot reports whether the path names the suite root.
func (p Path) IsRoot() bool {
	return p.Name == ""
}

// HasPrefix reports whether p lies at or below other, ignoring offsets.
func (p Path) HasPrefix(other Path) bool {
	if other.Name == "" {
		return true
	}
	return p.Name == other.Name || strings.HasPrefix(p.Name, other.Name+".")
}

// String renders `a.b` or `a.b@-6h`.
func (p Path) String() string {
	if p.Offset == 0 {
		return p.Name
	}
	return p.Name + "@" + FormatOffset(p.Offset)
}

// FormatOffset renders a duration compactly with an explicit sign, dropping
// zero minute and second components: -6h, +1h30m, +45s.
func FormatOffset(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return sign + s
}
