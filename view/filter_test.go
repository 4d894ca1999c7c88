package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_CaseInsensitive(t *testing.T) {
	rows := []string{"Alpha", "beta", "ALPHABET", "gamma"}

	assert.Equal(t, []string{"Alpha", "ALPHABET"}, Filter(rows, "alpha"))
	assert.Equal(t, rows, Filter(rows, ""))
	assert.Empty(t, Filter(rows, "delta"))
}

func TestFilter_FoldsBeyondASCII(t *testing.T) {
	assert.Equal(t, []string{"STRASSE"}, Filter([]string{"STRASSE", "weg"}, "strasse"))
	assert.Equal(t, []string{"Ωmega"}, Filter([]string{"Ωmega", "alpha"}, "ωMEGA"))
}

func TestFilterTables_KeepsEmptyTables(t *testing.T) {
	tables := []Table{
		{Key: "a", Rows: []string{"x1", "y1"}},
		{Key: "b", Rows: []string{"z"}},
	}

	got := FilterTables(tables, "x")
	assert.Equal(t, []Table{
		{Key: "a", Rows: []string{"x1"}},
		{Key: "b", Rows: []string{}},
	}, got)
}
