package models

import (
	"fmt"
	"strings"
)

// ArtifactExt is the file extension of generated artifacts
const ArtifactExt = ".mid"

// DefaultGenres are the genre labels of the dataset
var DefaultGenres = []string{
	"Pop", "Rock", "Jazz", "Classical", "Electronic", "Hip-Hop", "Country",
	"Blues", "Folk", "Reggae", "Metal", "Punk", "Ambient",
}

// DefaultStyles are the style labels of the dataset
var DefaultStyles = []string{
	"Baroque", "Romantic", "Modernist", "Minimalist", "Funky", "Groovy", "Swing",
	"Bossa Nova", "Waltz", "March", "Ballad", "Upbeat", "Chill", "Dark", "Bright",
	"Melodic", "Rhythmic", "Syncopated", "Bluesy", "Folky", "Reggaeton", "Grunge",
	"Industrial", "Trance", "Drone",
}

// Category is one (genre, style) pair
type Category struct {
	Genre string `json:"genre"`
	Style string `json:"style"`
}

// Dir returns the output subdirectory name, e.g. "jazz_bossanova"
func (c Category) Dir() string {
	name := strings.ToLower(c.Genre) + "_" + strings.ToLower(c.Style)
	return strings.Join(strings.Fields(name), "")
}

// Prompt returns the textual description sent to the oracle
func (c Category) Prompt() string {
	return fmt.Sprintf("%s song in %s style", c.Genre, c.Style)
}

func (c Category) String() string {
	return c.Genre + "/" + c.Style
}

// Categories builds the genre x style cross-product, genre-major
func Categories(genres, styles []string) []Category {
	result := make([]Category, 0, len(genres)*len(styles))
	for _, genre := range genres {
		for _, style := range styles {
			result = append(result, Category{Genre: genre, Style: style})
		}
	}
	return result
}

// ArtifactName returns the file name for a 0-based item index ("001.mid" for 0)
func ArtifactName(index int) string {
	return fmt.Sprintf("%03d%s", index+1, ArtifactExt)
}
