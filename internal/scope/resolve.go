package scope

import (
	"fmt"
	"strings"
)

// ScopeOptions contains options for resolving a scope from CLI/MCP input
//
//nolint:revive // ScopeOptions is intentionally prefixed for clarity in external contexts
type ScopeOptions struct {
	Type    string
	Apps    []string
	Domains []string
}

// ResolveScope converts CLI/MCP-level scope options into a validated Scope.
// If no scope type is specified it is inferred from which value list is set,
// falling back to global.
func ResolveScope(opts ScopeOptions) (Scope, error) {
	apps := splitValues(opts.Apps)
	domains := splitValues(opts.Domains)

	scopeType, err := ParseType(opts.Type)
	if err != nil {
		return Scope{}, err
	}
	if strings.TrimSpace(opts.Type) == "" {
		switch {
		case len(apps) > 0 && len(domains) > 0:
			return Scope{}, fmt.Errorf("--app and --domain cannot be combined")
		case len(apps) > 0:
			scopeType = ScopeApps
		case len(domains) > 0:
			scopeType = ScopeDomains
		}
	}

	switch scopeType {
	case ScopeGlobal:
		if len(apps) > 0 || len(domains) > 0 {
			return Scope{}, fmt.Errorf("--app and --domain require --scope apps or --scope domains")
		}
		s := NewGlobal()
		return s, Validate(s)

	case ScopeApps:
		if len(domains) > 0 {
			return Scope{}, fmt.Errorf("--scope apps does not accept --domain")
		}
		if len(apps) == 0 {
			return Scope{}, fmt.Errorf("--scope apps requires at least one --app")
		}
		s := NewApps(apps...)
		return s, Validate(s)

	case ScopeDomains:
		if len(apps) > 0 {
			return Scope{}, fmt.Errorf("--scope domains does not accept --app")
		}
		if len(domains) == 0 {
			return Scope{}, fmt.Errorf("--scope domains requires at least one --domain")
		}
		s := NewDomains(domains...)
		return s, Validate(s)

	default:
		return Scope{}, fmt.Errorf("invalid scope: %s (valid values: global, apps, domains)", opts.Type)
	}
}

// splitValues flattens repeated and comma-separated flag values.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
