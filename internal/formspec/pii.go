package formspec

import (
	"fmt"
	"regexp"
)

var piiLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ssn`),
	regexp.MustCompile(`(?i)social\s*security`),
	regexp.MustCompile(`(?i)bank`),
	regexp.MustCompile(`(?i)routing`),
}

// IsPIILabel reports whether a field label asks for sensitive identifiers.
func IsPIILabel(label string) bool {
	for _, re := range piiLabelPatterns {
		if re.MatchString(label) {
			return true
		}
	}
	return false
}

// FilterPII drops every field whose label matches the PII denylist and returns the
// ids it removed. Only labels are inspected. A kept field whose showIf names a removed
// field becomes unconditional, so the result still validates. The input is not modified.
func FilterPII(spec Spec) (Spec, []string) {
	var removed []string
	gone := make(map[string]bool)
	kept := make([]Field, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		if IsPIILabel(f.Label) {
			removed = append(removed, f.ID)
			gone[f.ID] = true
			continue
		}
		kept = append(kept, f)
	}
	if len(removed) == 0 {
		return spec, nil
	}

	warnings := append([]string(nil), spec.Warnings...)
	for i := range kept {
		if p := kept[i].ShowIf; p != nil && gone[p.Field] {
			kept[i].ShowIf = nil
			warnings = append(warnings, fmt.Sprintf("field %q: showIf referenced removed field %q and was dropped", kept[i].ID, p.Field))
		}
	}
	spec.Fields = kept
	spec.Warnings = warnings
	return spec, removed
}
