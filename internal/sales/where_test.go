package sales

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

func TestBuildWhereClause(t *testing.T) {
	tests := []struct {
		name    string
		filters ilsetl.Filters
		want    string
	}{
		{
			name:    "empty",
			filters: nil,
			want:    "",
		},
		{
			name:    "single field",
			filters: ilsetl.Filters{{Field: "city", Values: []string{"Adair"}}},
			want:    "city IN ('Adair')",
		},
		{
			name: "several fields keep their order",
			filters: ilsetl.Filters{
				{Field: "date", Values: []string{"2022-01-01", "2022-01-02"}},
				{Field: "city", Values: []string{"Adair"}},
			},
			want: "date IN ('2022-01-01','2022-01-02') AND city IN ('Adair')",
		},
		{
			name:    "quotes are doubled",
			filters: ilsetl.Filters{{Field: "name", Values: []string{"O'Brien's"}}},
			want:    "name IN ('O''Brien''s')",
		},
		{
			name: "empty value lists are skipped",
			filters: ilsetl.Filters{
				{Field: "store", Values: nil},
				{Field: "city", Values: []string{"Ames"}},
				{Field: "zipcode", Values: []string{}},
			},
			want: "city IN ('Ames')",
		},
		{
			name: "raw query overrides everything",
			filters: ilsetl.Filters{
				{Field: "city", Values: []string{"Ames"}},
				{Field: "query", Values: []string{"sale_dollars > 100"}},
			},
			want: "sale_dollars > 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildWhereClause(tt.filters)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.HasSuffix(got, "AND"))
			assert.False(t, strings.HasSuffix(got, "AND "))
		})
	}
}

func TestBuildWhereClause_FromMapIsDeterministic(t *testing.T) {
	filters := ilsetl.FiltersFromMap(map[string][]string{
		"store":  {"2633"},
		"county": {"POLK", "STORY"},
		"city":   {"AMES"},
	})

	for i := 0; i < 10; i++ {
		assert.Equal(t,
			"city IN ('AMES') AND county IN ('POLK','STORY') AND store IN ('2633')",
			BuildWhereClause(filters))
	}
}
