// Package alias resolves raw file headers to canonical fields. Proposals are computed
// deterministically; mappings are applied only when the operator confirms them.
package alias

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"intakegate/domain/core"
	"intakegate/domain/intake"
)

// Source is one student information system's header vocabulary
type Source struct {
	Name     string
	Variants map[intake.Field][]string
}

// Library is the folded variant index built from every source
type Library struct {
	variants   map[string]intake.Field
	configured map[string]intake.Field
	byField    map[intake.Field][]string
	origin     map[string]string
}

// Fold lowercases and drops whitespace and underscores, so "Incident_Number",
// "incident number" and "IncidentNumber" compare equal
func Fold(header string) string {
	var b strings.Builder
	for _, r := range header {
		if unicode.IsSpace(r) || r == '_' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// NewLibrary indexes the given sources plus operator-configured aliases. A folded variant
// claimed by two different fields is a conflict and fails the build.
func NewLibrary(configured map[intake.Field][]string, sources ...Source) (*Library, error) {
	lib := &Library{
		variants:   map[string]intake.Field{},
		configured: map[string]intake.Field{},
		byField:    map[intake.Field][]string{},
		origin:     map[string]string{},
	}

	for _, src := range sources {
		for _, field := range sortedFields(src.Variants) {
			for _, v := range src.Variants[field] {
				if err := lib.add(lib.variants, Fold(v), field, src.Name); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, field := range sortedFields(configured) {
		if !isCanonical(field) {
			return nil, fmt.Errorf("%w: %q in configured aliases", core.ErrUnknownField, field)
		}
		for _, v := range configured[field] {
			folded := Fold(v)
			if existing, ok := lib.variants[folded]; ok {
				if existing != field {
					return nil, fmt.Errorf("%w: configured alias %q for %s is already a %s variant (%s)",
						core.ErrAliasLibraryConflict, v, field, existing, lib.origin[folded])
				}
				continue
			}
			if err := lib.add(lib.configured, folded, field, "configured"); err != nil {
				return nil, err
			}
		}
	}

	for field := range lib.byField {
		sort.Strings(lib.byField[field])
	}
	return lib, nil
}

func (l *Library) add(index map[string]intake.Field, folded string, field intake.Field, origin string) error {
	if folded == "" {
		return nil
	}
	if existing, ok := index[folded]; ok {
		if existing != field {
			return fmt.Errorf("%w: %q maps to %s (%s) and %s (%s)",
				core.ErrAliasLibraryConflict, folded, existing, l.origin[folded], field, origin)
		}
		return nil
	}
	index[folded] = field
	l.origin[folded] = origin
	l.byField[field] = append(l.byField[field], folded)
	return nil
}

// Lookup returns the field an exact folded variant belongs to and how it is known
func (l *Library) Lookup(header string) (intake.Field, intake.AliasMethod, bool) {
	folded := Fold(header)
	if f, ok := l.variants[folded]; ok {
		return f, intake.MethodVariant, true
	}
	if f, ok := l.configured[folded]; ok {
		return f, intake.MethodConfigured, true
	}
	return "", "", false
}

// Variants returns the folded variants known for f, sorted
func (l *Library) Variants(f intake.Field) []string {
	return append([]string(nil), l.byField[f]...)
}

// DefaultLibrary builds the built-in SIS vocabulary with extra operator aliases
func DefaultLibrary(configured map[intake.Field][]string) (*Library, error) {
	return NewLibrary(configured, BuiltinSources()...)
}

func sortedFields(m map[intake.Field][]string) []intake.Field {
	fields := make([]intake.Field, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

func isCanonical(f intake.Field) bool {
	return intake.SchemaFor(intake.RoleIncident).Contains(f) || intake.SchemaFor(intake.RoleConsequence).Contains(f)
}

// ParseConfigured converts config keys (field names) into canonical fields
func ParseConfigured(raw map[string][]string) map[intake.Field][]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[intake.Field][]string, len(raw))
	for k, v := range raw {
		out[intake.Field(strings.ToLower(strings.TrimSpace(k)))] = v
	}
	return out
}
