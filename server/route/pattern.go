package route

import (
	"fmt"
	"net/url"
	"strings"
)

const icsSuffix = ".ics"

type modifier byte

const (
	modNone     modifier = 0
	modOptional modifier = '?'
	modStar     modifier = '*'
)

type segment struct {
	literal string
	name    string
	mod     modifier
}

// Pattern is a compiled path pattern made of literal segments and named captures.
// ":name" captures one segment, ":name?" an optional one and ":name*" every
// remaining segment. Literals match case-insensitively.
type Pattern struct {
	raw      string
	segments []segment
}

// Compile parses pattern. A star capture may only appear last.
func Compile(pattern string) (*Pattern, error) {
	p := &Pattern{raw: pattern}
	seen := make(map[string]bool)
	for _, part := range splitPath(pattern) {
		if !strings.HasPrefix(part, ":") {
			p.segments = append(p.segments, segment{literal: part})
			continue
		}
		name := part[1:]
		mod := modNone
		if n := len(name); n > 0 && (name[n-1] == '?' || name[n-1] == '*') {
			mod = modifier(name[n-1])
			name = name[:n-1]
		}
		if name == "" {
			return nil, fmt.Errorf("pattern %q: empty capture name", pattern)
		}
		if seen[name] {
			return nil, fmt.Errorf("pattern %q: duplicate capture %q", pattern, name)
		}
		seen[name] = true
		p.segments = append(p.segments, segment{name: name, mod: mod})
	}
	for i, s := range p.segments {
		if s.mod == modStar && i != len(p.segments)-1 {
			return nil, fmt.Errorf("pattern %q: %q must be the last segment", pattern, s.name)
		}
	}
	return p, nil
}

func (p *Pattern) String() string {
	return p.raw
}

// Match matches an escaped request path. Captured values are percent-decoded once
// and lose a trailing ".ics". Optional captures that did not participate are
// absent from the result.
func (p *Pattern) Match(escapedPath string) (map[string]string, bool) {
	parts := splitPath(escapedPath)
	if strings.Contains(strings.Trim(escapedPath, "/"), "//") {
		return nil, false
	}
	raw := make(map[string]string)
	if !p.match(0, parts, raw) {
		return nil, false
	}

	params := make(map[string]string, len(raw))
	for name, value := range raw {
		decoded, err := url.PathUnescape(value)
		if err != nil {
			return nil, false
		}
		params[name] = strings.TrimSuffix(decoded, icsSuffix)
	}
	return params, true
}

func (p *Pattern) match(i int, parts []string, out map[string]string) bool {
	if i == len(p.segments) {
		return len(parts) == 0
	}
	s := p.segments[i]
	switch {
	case s.name == "":
		if len(parts) == 0 || !strings.EqualFold(parts[0], s.literal) {
			return false
		}
		return p.match(i+1, parts[1:], out)
	case s.mod == modStar:
		if len(parts) > 0 {
			out[s.name] = strings.Join(parts, "/")
		}
		return true
	case s.mod == modOptional:
		if len(parts) > 0 {
			out[s.name] = parts[0]
			if p.match(i+1, parts[1:], out) {
				return true
			}
			delete(out, s.name)
		}
		return p.match(i+1, parts, out)
	default:
		if len(parts) == 0 {
			return false
		}
		out[s.name] = parts[0]
		return p.match(i+1, parts[1:], out)
	}
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
