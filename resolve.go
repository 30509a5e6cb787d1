package decisions

import (
	"fmt"

	"github.com/goliatone/go-decisions/layering"
)

// ResolveEffective deep copies baseline and merges each override's changes
// onto it in order. It is pure: the same inputs always yield structurally
// equal output and neither argument is modified.
func ResolveEffective(baseline Mapping, overrides []Override) (Mapping, error) {
	return resolveEffective(baseline, overrides, layering.DefaultMaxDepth)
}

func resolveEffective(baseline Mapping, overrides []Override, maxDepth int) (Mapping, error) {
	patches := make([]map[string]any, 0, len(overrides))
	for _, o := range overrides {
		patches = append(patches, o.Changes)
	}
	effective, err := layering.Resolve(baseline, maxDepth, patches...)
	if err != nil {
		return nil, fmt.Errorf("decisions: resolve effective: %w", err)
	}
	return effective, nil
}
