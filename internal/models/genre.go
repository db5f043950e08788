package models

// Genres is the fixed set of genres a Book may carry.
var Genres = []string{
	"Fiction",
	"Non-Fiction",
	"Mystery",
	"Thriller",
	"Romance",
	"Science Fiction",
	"Fantasy",
	"Biography",
	"History",
	"Self-Help",
	"Poetry",
	"Horror",
	"Adventure",
	"Other",
}

var genreSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Genres))
	for _, g := range Genres {
		m[g] = struct{}{}
	}
	return m
}()

// IsGenre reports whether g is one of Genres (exact, case-sensitive match).
func IsGenre(g string) bool {
	_, ok := genreSet[g]
	return ok
}
