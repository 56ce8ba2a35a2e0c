package roles

import (
	"fmt"
	"strings"
)

// Role pairs a whitelist type code with its operator-facing description.
type Role struct {
	Code        string
	Description string
}

// Registry is the closed set of whitelist roles. The set comes from
// configuration, never from whatever codes happen to appear in a file.
type Registry struct {
	order  []string
	byCode map[string]Role
}

// Defaults returns the standard role set used by the unit's servers.
// Staff roles are conventionally mirrored into ALL by the operators;
// the registry does not enforce that.
func Defaults() []Role {
	return []Role{
		{Code: "S3", Description: "S3 operations staff slot"},
		{Code: "CAS", Description: "Close air support pilot slot"},
		{Code: "S1", Description: "S1 personnel staff slot"},
		{Code: "OPFOR", Description: "Opposing force slot"},
		{Code: "ALL", Description: "Baseline server access"},
		{Code: "ADMIN", Description: "Server administrator"},
		{Code: "MODERATOR", Description: "Chat and lobby moderator"},
		{Code: "TRUSTED", Description: "Trusted community member"},
		{Code: "MEDIA", Description: "Media and streaming slot"},
		{Code: "CURATOR", Description: "Zeus curator access"},
		{Code: "DEVELOPER", Description: "Mission developer"},
	}
}

// NewRegistry builds a registry preserving the given order. Codes are
// normalized to upper case and must be unique.
func NewRegistry(list []Role) (*Registry, error) {
	r := &Registry{byCode: make(map[string]Role, len(list))}
	for _, role := range list {
		code := Normalize(role.Code)
		if code == "" {
			return nil, fmt.Errorf("roles: empty role code")
		}
		if _, dup := r.byCode[code]; dup {
			return nil, fmt.Errorf("roles: duplicate role code %s", code)
		}
		role.Code = code
		r.byCode[code] = role
		r.order = append(r.order, code)
	}
	return r, nil
}

// ParseSpec parses a "CODE:Description,CODE:Description" config string.
// An empty spec yields the default set.
func ParseSpec(spec string) (*Registry, error) {
	if strings.TrimSpace(spec) == "" {
		return NewRegistry(Defaults())
	}
	var list []Role
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, desc, _ := strings.Cut(part, ":")
		list = append(list, Role{Code: strings.TrimSpace(code), Description: strings.TrimSpace(desc)})
	}
	return NewRegistry(list)
}

// Normalize maps any case variant onto the canonical upper-case code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code names a configured role, case-insensitively.
func (r *Registry) Valid(code string) bool {
	_, ok := r.byCode[Normalize(code)]
	return ok
}

// Lookup resolves a code to its role definition.
func (r *Registry) Lookup(code string) (Role, bool) {
	role, ok := r.byCode[Normalize(code)]
	return role, ok
}

// Codes returns the configured codes in declaration order.
func (r *Registry) Codes() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Roles returns the full definitions in declaration order.
func (r *Registry) Roles() []Role {
	out := make([]Role, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.byCode[code])
	}
	return out
}
