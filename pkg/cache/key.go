package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Param is a named key component. Params are sorted alphabetically by name
// before they are joined into the key, so equivalent logical queries produce
// the same key regardless of argument order at the call site.
type Param struct {
	Name  string
	Value any
}

// Key builds a deterministic cache key from a logical prefix and an ordered
// list of components. Positional components keep their order; Param
// components are collected, sorted by name and appended as "name:value".
//
//	Key("items_list", Param{"category", 5}, Param{"q", "foo"})
//	Key("items_list", Param{"q", "foo"}, Param{"category", 5})
//
// both produce "items_list:category:5:q:foo".
func Key(prefix string, components ...any) string {
	parts := []string{prefix}

	var params []Param
	for _, c := range components {
		if p, ok := c.(Param); ok {
			params = append(params, p)
			continue
		}
		parts = append(parts, formatComponent(c))
	}

	sort.Slice(params, func(i, j int) bool {
		return params[i].Name < params[j].Name
	})
	for _, p := range params {
		parts = append(parts, p.Name, formatComponent(p.Value))
	}

	return strings.Join(parts, ":")
}

// formatComponent stringifies a key component.
func formatComponent(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
