package search

import (
	"sort"
	"strings"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// MaxIndexedAttributes caps the attributes stored per catalog document
const MaxIndexedAttributes = 100

// buildAttributes flattens non-empty fields into sorted, lower-cased "name=value"
// terms so catalog search can match on any curated property.
func buildAttributes(fields entities.Fields) []string {
	set := make(map[string]struct{}, len(fields))
	for _, name := range fields.Names() {
		v := fields.Get(name)
		if v.IsEmpty() {
			continue
		}
		add(set, name+"="+strings.TrimSpace(v.String()))
	}
	return toSlice(set, MaxIndexedAttributes)
}

func add(set map[string]struct{}, terms ...string) {
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
}

func toSlice(set map[string]struct{}, limit int) []string {
	result := make([]string, 0, len(set))
	for k := range set {
		result = append(result, k)
	}
	sort.Strings(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
