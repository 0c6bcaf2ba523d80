package models

// Recipe is one row of the recipe dataset. Its identity is its position in
// the dataset, which is also its row in the embedding matrix.
type Recipe struct {
	Title       string   `json:"title" db:"title"`
	Ingredients []string `json:"ingredients" db:"ingredients"`
	Directions  string   `json:"directions" db:"directions"`
}

// TableName returns the table name for the model
func (Recipe) TableName() string {
	return "recipes"
}

// ContextLine renders the recipe as a single "{title}: {directions}" line,
// the unit used to build generation context.
func (r Recipe) ContextLine() string {
	return r.Title + ": " + r.Directions
}

// RankedResult is a dataset position paired with its cosine similarity to a
// query. Score is in [-1, 1].
type RankedResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// ScoredRecipe couples a recipe with the score that ranked it.
type ScoredRecipe struct {
	Recipe
	Index int     `json:"index"`
	Score float64 `json:"score"`
}
