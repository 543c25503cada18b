package scope

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ScopeType restricts where a snippet's abbreviation is active.
type ScopeType string

const (
	ScopeGlobal  ScopeType = "global"
	ScopeApps    ScopeType = "apps"
	ScopeDomains ScopeType = "domains"
)

type Scope struct {
	Type   ScopeType
	Values []string
}

var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)

func NewGlobal() Scope {
	return Scope{Type: ScopeGlobal}
}

func NewApps(apps ...string) Scope {
	return Scope{Type: ScopeApps, Values: apps}
}

func NewDomains(domains ...string) Scope {
	return Scope{Type: ScopeDomains, Values: domains}
}

// ParseType accepts a scope type name. An empty name means global.
func ParseType(name string) (ScopeType, error) {
	switch t := ScopeType(strings.ToLower(strings.TrimSpace(name))); t {
	case "":
		return ScopeGlobal, nil
	case ScopeGlobal, ScopeApps, ScopeDomains:
		return t, nil
	default:
		return "", fmt.Errorf("invalid scope type: %s (valid values: global, apps, domains)", name)
	}
}

func Validate(s Scope) error {
	switch s.Type {
	case ScopeGlobal:
		return nil
	case ScopeApps:
		for _, app := range s.Values {
			if err := ensureNonEmpty("App names cannot be empty", app); err != nil {
				return err
			}
		}
		return nil
	case ScopeDomains:
		for _, domain := range s.Values {
			if !domainPattern.MatchString(domain) {
				return fmt.Errorf("Invalid domain format: %s", domain)
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid scope type: %s", s.Type)
	}
}

// Allows reports whether a snippet with scope s may expand in the given
// target. An empty target app or domain is not used to exclude anything.
// Apps match case-insensitively; domains match exactly or as a parent domain.
func Allows(s Scope, app, domain string) bool {
	switch s.Type {
	case ScopeApps:
		if app == "" {
			return true
		}
		for _, v := range s.Values {
			if strings.EqualFold(strings.TrimSpace(v), app) {
				return true
			}
		}
		return false
	case ScopeDomains:
		if domain == "" {
			return true
		}
		host := strings.ToLower(strings.TrimSuffix(domain, "."))
		for _, v := range s.Values {
			v = strings.ToLower(v)
			if host == v || strings.HasSuffix(host, "."+v) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func FormatScope(s Scope) string {
	switch s.Type {
	case ScopeGlobal:
		return "global"
	case ScopeApps, ScopeDomains:
		if len(s.Values) == 0 {
			return string(s.Type)
		}
		return string(s.Type) + ":" + strings.Join(s.Values, ",")
	default:
		return ""
	}
}

func ensureNonEmpty(msg, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(msg)
	}
	return nil
}
