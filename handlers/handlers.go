// Package handlers contains the thin HTTP handlers of the recipe API. They
// decode and validate requests, call a service and map its errors.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/upb/recipe-api/models"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// RecipeResponse is one recommended recipe as returned to clients
type RecipeResponse struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	Directions  string   `json:"directions"`
}

// AIRecipeResponse is the body of a successful generation
type AIRecipeResponse struct {
	AIRecipe string `json:"ai_recipe"`
}

// MessageResponse is a plain informational body
type MessageResponse struct {
	Message string `json:"message"`
}

func toRecipeResponses(scored []models.ScoredRecipe) []RecipeResponse {
	out := make([]RecipeResponse, len(scored))
	for i, s := range scored {
		ingredients := s.Ingredients
		if ingredients == nil {
			ingredients = []string{}
		}
		out[i] = RecipeResponse{
			Title:       s.Title,
			Ingredients: ingredients,
			Directions:  s.Directions,
		}
	}
	return out
}

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a single JSON document from the request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
