package ingest

import (
	"strings"
	"testing"

	"github.com/smallbiznis/dormmenu/internal/ingest/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatch_YAML(t *testing.T) {
	doc := `
city: Tashkent
year: 2025
month: 3
days:
  - day: 1
    breakfast:
      dishes: [Tea, Bread]
      calories: 300
    dinner:
      dishes: [Soup]
      calories: 200
  - day: 2
    dinner:
      dishes: [Plov]
      calories: 800
`
	batch, err := ParseBatch(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "Tashkent", batch.City)
	assert.Equal(t, 2025, batch.Year)
	assert.Equal(t, 3, batch.Month)
	require.Len(t, batch.Days, 2)
	require.NotNil(t, batch.Days[0].Breakfast)
	assert.Equal(t, []string{"Tea", "Bread"}, batch.Days[0].Breakfast.Dishes)
	assert.Nil(t, batch.Days[1].Breakfast)
	assert.Equal(t, 800, batch.Days[1].Dinner.Calories)
	assert.Equal(t, []string{"Tea", "Bread", "Soup", "Plov"}, batch.DishNames())
}

func TestParseBatch_JSON(t *testing.T) {
	doc := `{"city":"Samarkand","year":2025,"month":4,"days":[{"day":3,"dinner":{"dishes":["Lagman"],"calories":650}}]}`

	batch, err := ParseBatch(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Samarkand", batch.City)
	require.Len(t, batch.Days, 1)
	assert.Equal(t, []string{"Lagman"}, batch.Days[0].Dinner.Dishes)
}

func TestParseBatch_Rejects(t *testing.T) {
	_, err := ParseBatch(strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrInvalidBatch)

	_, err = ParseBatch(strings.NewReader("city: X\nlunch: []\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidBatch)

	_, err = ParseBatch(strings.NewReader("city: [unterminated"))
	assert.ErrorIs(t, err, domain.ErrInvalidBatch)
}
