package profile

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/TobiSchelling/antirec/internal/movie"
)

const preferenceSystem = "You are a movie expert who specializes in finding contrasting movie recommendations and responds in JSON format."

const preferencePrompt = `Based on these selected movies:
%s

Analyze their preferences and create a JSON object of anti-preferences that would help find movies they'd hate.
Consider the genres, themes, styles, and quality of the movies they like and generate the opposite.

Create a JSON object with:
1. genres_to_include: list of TMDB genre IDs they would hate (use actual TMDB genre IDs)
2. min_year and max_year: time period they would dislike, as 4-digit years
3. keywords: list of themes/elements they would hate (in plain English)
4. vote_average_lte: maximum rating to consider (0-10)
5. sort_preference: one of "vote_average.asc", "popularity.asc" or "popularity.desc"

Use these TMDB genre IDs:
%s

Return only the JSON object, no explanation.`

const tasteSystem = "You are a witty movie critic who specializes in analyzing viewer preferences."

const tastePrompt = `Based on these selected movies:
%s

Create a JSON object with two sections:
1. "taste_profile": A brief, engaging description of what this person loves in movies (tone, genres, themes they gravitate toward)
2. "anti_preferences": A fun, dramatic description of what movies would be their worst nightmare

Make it entertaining but insightful. Keep each description under 50 words.

Return as JSON with these two fields only.`

func renderPreferencePrompt(details []movie.Detail) (string, error) {
	block, err := detailsJSON(details)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(preferencePrompt, block, movie.GenreLegend()), nil
}

func renderTastePrompt(details []movie.Detail) (string, error) {
	block, err := detailsJSON(details)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(tastePrompt, block), nil
}

func detailsJSON(details []movie.Detail) (string, error) {
	if details == nil {
		details = []movie.Detail{}
	}
	data, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding movie details: %w", err)
	}
	return string(data), nil
}
