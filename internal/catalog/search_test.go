package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchQueryNoFilters(t *testing.T) {
	q, args, err := buildSearchQuery(SearchFilter{})
	require.NoError(t, err)
	assert.NotContains(t, q, "WHERE")
	assert.Contains(t, q, "FROM `books`")
	assert.Contains(t, q, "ORDER BY `title` ASC")
	assert.Empty(t, args)
}

func TestBuildSearchQueryAllFilters(t *testing.T) {
	cat := int64(3)
	q, args, err := buildSearchQuery(SearchFilter{Title: " Dune ", Author: "Herbert", CategoryID: &cat})
	require.NoError(t, err)

	assert.Contains(t, q, "LOWER(`title`) LIKE ?")
	assert.Contains(t, q, "LOWER(`author`) LIKE ?")
	assert.Contains(t, q, "`category_id` = ?")
	assert.NotContains(t, q, "Dune", "values must be bound, not inlined")
	assert.Equal(t, []any{"%dune%", "%herbert%", int64(3)}, args)
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\%%`, containsPattern("100%"))
	assert.Equal(t, `%a\_b%`, containsPattern("A_B"))
	assert.Equal(t, `%c:\\%`, containsPattern(`c:\`))
}

func TestContainsPatternNormalizes(t *testing.T) {
	// "e" followed by a combining acute accent composes to "é".
	assert.Equal(t, "%café%", containsPattern("CAFE\u0301"))
}
