package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		components []any
		want       string
	}{
		{
			name:   "prefix only",
			prefix: "site_settings",
			want:   "site_settings",
		},
		{
			name:       "positional components keep order",
			prefix:     "item",
			components: []any{42, "detail"},
			want:       "item:42:detail",
		},
		{
			name:       "params sorted by name",
			prefix:     "items_list",
			components: []any{Param{Name: "q", Value: "foo"}, Param{Name: "category", Value: 5}},
			want:       "items_list:category:5:q:foo",
		},
		{
			name:       "mixed positional and params",
			prefix:     "items_list",
			components: []any{7, Param{Name: "sort", Value: "new"}},
			want:       "items_list:7:sort:new",
		},
		{
			name:       "scalar types",
			prefix:     "k",
			components: []any{int64(9), true, 1.5},
			want:       "k:9:true:1.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.prefix, tt.components...))
		})
	}
}

func TestKeyDeterministicAcrossParamOrder(t *testing.T) {
	a := Key("items_list", Param{Name: "category", Value: 5}, Param{Name: "q", Value: "foo"})
	b := Key("items_list", Param{Name: "q", Value: "foo"}, Param{Name: "category", Value: 5})
	assert.Equal(t, a, b)
}
