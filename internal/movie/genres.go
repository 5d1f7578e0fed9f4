package movie

import (
	"fmt"
	"strings"
)

// Genre is one entry of the catalog's genre taxonomy.
type Genre struct {
	Name string
	ID   int
}

// Genres is the fixed legend embedded in prompts. Model output is only
// interpretable by the selector if these ids match the catalog's.
var Genres = []Genre{
	{"Action", 28},
	{"Adventure", 12},
	{"Animation", 16},
	{"Comedy", 35},
	{"Crime", 80},
	{"Documentary", 99},
	{"Drama", 18},
	{"Family", 10751},
	{"Fantasy", 14},
	{"History", 36},
	{"Horror", 27},
	{"Music", 10402},
	{"Mystery", 9648},
	{"Romance", 10749},
	{"Science Fiction", 878},
	{"TV Movie", 10770},
	{"Thriller", 53},
	{"War", 10752},
	{"Western", 37},
}

var genreByID = func() map[int]string {
	m := make(map[int]string, len(Genres))
	for _, g := range Genres {
		m[g.ID] = g.Name
	}
	return m
}()

// KnownGenre reports whether id is in the legend.
func KnownGenre(id int) bool {
	_, ok := genreByID[id]
	return ok
}

// GenreName returns the legend name for id, or "" if unknown.
func GenreName(id int) string {
	return genreByID[id]
}

// GenreLegend renders the legend as "Name: id" lines.
func GenreLegend() string {
	lines := make([]string, len(Genres))
	for i, g := range Genres {
		lines[i] = fmt.Sprintf("%s: %d", g.Name, g.ID)
	}
	return strings.Join(lines, "\n")
}
