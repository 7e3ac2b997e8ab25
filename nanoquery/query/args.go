package query

import (
	"reflect"
	"sort"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/types"
)

// ArgsFilter builds equality constraints from request arguments keyed by field
// name. A slice value means any of its elements (all of them for array
// fields). Keys are processed in sorted order so the result is deterministic.
// Values that cannot be coerced to the field type are dropped; unknown or
// non-filterable fields are an error.
func ArgsFilter(schema *types.Schema, args map[string]any, opts Options) (filter.Node, error) {
	if len(args) == 0 {
		return nil, nil
	}
	log := opts.logger()
	v := &visitor{schema: schema, log: log}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	nodes := make([]filter.Node, 0, len(keys))
	for _, name := range keys {
		field, err := schema.Filterable(name)
		if err != nil {
			return nil, err
		}

		raw, multi := listValues(args[name])
		values := make([]any, 0, len(raw))
		for _, r := range raw {
			value, ok := Coerce(field.Type, r)
			if !ok {
				log.Debug().
					Str("field", name).
					Str("type", field.Type.String()).
					Str("value", describe(r)).
					Msg("dropping argument: value does not match field type")
				continue
			}
			values = append(values, value)
		}
		if len(values) == 0 {
			continue
		}

		var n filter.Node
		switch {
		case field.Array:
			n = v.predicate(field, filter.OpContains, values, multi)
		case multi:
			n = v.predicate(field, filter.OpIn, values, true)
		default:
			n = v.predicate(field, filter.OpEq, values, false)
		}
		nodes = append(nodes, n)
	}
	return filter.AllOf(nodes...), nil
}

func listValues(value any) ([]any, bool) {
	switch v := value.(type) {
	case nil, string, []byte:
		return []any{value}, false
	case []any:
		return v, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
