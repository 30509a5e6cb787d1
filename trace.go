package decisions

import (
	"github.com/goliatone/go-decisions/layering"
)

// Trace reports how each layer of a context contributed to one path.
type Trace struct {
	Path      string       `json:"path"`
	Effective any          `json:"effective,omitempty"`
	Found     bool         `json:"found"`
	Layers    []Provenance `json:"layers"`
}

// Provenance is one layer's contribution to a traced path. Source is
// "baseline" or the override id.
type Provenance struct {
	Source string       `json:"source"`
	Type   OverrideType `json:"type,omitempty"`
	Label  string       `json:"label,omitempty"`
	Value  any          `json:"value,omitempty"`
	Found  bool         `json:"found"`
}

// TraceSourceBaseline names the baseline layer in a Trace.
const TraceSourceBaseline = "baseline"

// Trace looks up the dotted path in the baseline, every override in
// application order, and the effective view. Values are copies.
func (c *Context) Trace(path string) Trace {
	trace := Trace{Path: path, Layers: []Provenance{}}
	if c == nil {
		return trace
	}
	segments := splitPath(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	value, found := lookupPath(c.baseline, segments)
	trace.Layers = append(trace.Layers, Provenance{
		Source: TraceSourceBaseline,
		Value:  layering.Clone(value),
		Found:  found,
	})
	for _, o := range c.overrides {
		value, found := lookupPath(o.Changes, segments)
		trace.Layers = append(trace.Layers, Provenance{
			Source: o.ID,
			Type:   o.Type,
			Label:  o.Label,
			Value:  layering.Clone(value),
			Found:  found,
		})
	}
	value, found = lookupPath(c.effective, segments)
	trace.Effective = layering.Clone(value)
	trace.Found = found
	return trace
}

// Lookup returns the value at the dotted path in m.
func Lookup(m Mapping, path string) (any, bool) {
	return lookupPath(m, splitPath(path))
}

func lookupPath(m Mapping, segments []string) (any, bool) {
	if len(segments) == 0 {
		return m, m != nil
	}
	var current any = m
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
