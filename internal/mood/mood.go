// Package mood derives weighted music prompts and generation parameters
// from book metadata. It is a pure keyword-table lookup with no state
// and no failure modes; unknown input falls back to ambient defaults.
package mood

import (
	"strings"

	"github.com/readtone/backend/internal/lyria"
)

const maxPrompts = 5

// Params are the continuous generation parameters read out of a book
// description. Both values are in [0, 1].
type Params struct {
	Brightness float64
	Density    float64
}

type genreEntry struct {
	name    string
	prompts []string
}

// genreTable maps book genres/subjects to musical textures. Order
// matters: the first matching entry wins for each subject.
var genreTable = []genreEntry{
	// Horror & Thriller
	{"horror", []string{"Dark Ambient", "Ominous Drone", "Unsettling", "Eerie"}},
	{"thriller", []string{"Tense", "Suspenseful", "Dark Ambient", "Minimal"}},
	{"suspense", []string{"Atmospheric", "Tension", "Minimal Techno", "Dark"}},
	{"gothic", []string{"Dark Ambient", "Orchestral Score", "Haunting", "Melancholic"}},

	// Romance & Drama
	{"romance", []string{"Piano Ballad", "Emotional", "Dreamy", "Warm"}},
	{"love", []string{"Romantic", "Piano", "Soft", "Emotional"}},
	{"drama", []string{"Emotional", "Orchestral", "Cinematic", "Rich Orchestration"}},

	// Science Fiction
	{"science fiction", []string{"Synthpop", "Ethereal Ambience", "Experimental", "Electronic"}},
	{"sci-fi", []string{"Synthpop", "Futuristic", "Ambient Electronic", "Spacey"}},
	{"dystopia", []string{"Dark Synth", "Industrial", "Ominous", "Electronic"}},
	{"space", []string{"Ambient", "Ethereal", "Cosmic", "Dreamy"}},
	{"cyberpunk", []string{"Synthwave", "Dark Electronic", "Industrial", "Glitchy Effects"}},

	// Fantasy & Adventure
	{"fantasy", []string{"Orchestral Score", "Ethereal", "Rich Orchestration", "Epic"}},
	{"magic", []string{"Mystical", "Ethereal Ambience", "Orchestral", "Enchanting"}},
	{"adventure", []string{"Epic", "Orchestral", "Upbeat", "Cinematic"}},
	{"mythology", []string{"Ancient", "Orchestral", "Mystical", "World Music"}},

	// Mystery & Crime
	{"mystery", []string{"Jazz Fusion", "Subdued Melody", "Atmospheric", "Noir"}},
	{"detective", []string{"Jazz", "Smooth", "Mysterious", "Film Noir"}},
	{"crime", []string{"Dark Jazz", "Tense", "Urban", "Atmospheric"}},
	{"noir", []string{"Jazz", "Smoky", "Melancholic", "Vintage"}},

	// History & Non-fiction
	{"history", []string{"Classical", "Ambient", "Sustained Chords", "Timeless"}},
	{"biography", []string{"Classical", "Reflective", "Ambient", "Thoughtful"}},
	{"war", []string{"Orchestral", "Epic", "Dramatic", "Somber"}},
	{"historical fiction", []string{"Period", "Classical", "Orchestral", "Elegant"}},

	// Poetry & Literature
	{"poetry", []string{"Indie Folk", "Acoustic Instruments", "Chill", "Intimate"}},
	{"literary fiction", []string{"Ambient", "Thoughtful", "Piano", "Contemplative"}},
	{"classics", []string{"Classical", "Timeless", "Orchestral", "Elegant"}},

	// Philosophy & Spirituality
	{"philosophy", []string{"Ambient", "Meditation", "Contemplative", "Minimal"}},
	{"spirituality", []string{"Meditation", "Ethereal", "Peaceful", "Ambient"}},
	{"religion", []string{"Sacred", "Choral", "Contemplative", "Peaceful"}},

	// Action & Excitement
	{"action", []string{"Energetic", "Driving Beat", "Intense", "Powerful"}},
	{"sports", []string{"Upbeat", "Energetic", "Motivating", "Dynamic"}},

	// Children & Young Adult
	{"children", []string{"Playful", "Bright Tones", "Whimsical", "Light"}},
	{"young adult", []string{"Pop", "Upbeat", "Emotional", "Contemporary"}},

	// Comedy & Humor
	{"comedy", []string{"Light", "Playful", "Jazzy", "Upbeat"}},
	{"humor", []string{"Quirky", "Playful", "Light", "Fun"}},

	// Nature & Environment
	{"nature", []string{"Acoustic", "Peaceful", "Ambient", "Organic"}},
	{"environment", []string{"Ambient", "Natural", "Peaceful", "Flowing"}},

	// Default fallback
	{"fiction", []string{"Ambient", "Atmospheric", "Cinematic", "Emotional"}},
	{"non-fiction", []string{"Classical", "Ambient", "Thoughtful", "Clean"}},
}

// moodKeywords adjusts brightness/density when found in a description.
var moodKeywords = map[string]Params{
	// Dark/Intense moods
	"dark":     {Brightness: 0.2, Density: 0.4},
	"haunting": {Brightness: 0.3, Density: 0.3},
	"intense":  {Brightness: 0.5, Density: 0.8},
	"violent":  {Brightness: 0.3, Density: 0.7},
	"tragic":   {Brightness: 0.3, Density: 0.5},

	// Light/Uplifting moods
	"hopeful":   {Brightness: 0.8, Density: 0.5},
	"joyful":    {Brightness: 0.9, Density: 0.7},
	"light":     {Brightness: 0.8, Density: 0.4},
	"peaceful":  {Brightness: 0.7, Density: 0.3},
	"beautiful": {Brightness: 0.7, Density: 0.5},

	// Energetic moods
	"exciting":   {Brightness: 0.7, Density: 0.8},
	"fast-paced": {Brightness: 0.6, Density: 0.9},
	"action":     {Brightness: 0.6, Density: 0.8},

	// Calm moods
	"contemplative": {Brightness: 0.5, Density: 0.3},
	"meditative":    {Brightness: 0.6, Density: 0.2},
	"quiet":         {Brightness: 0.5, Density: 0.2},
	"subtle":        {Brightness: 0.5, Density: 0.3},
}

var fastKeywords = []string{"action", "thriller", "adventure", "sports", "exciting"}

var slowKeywords = []string{"meditation", "philosophy", "poetry", "peaceful", "spiritual"}

type genreMatch struct {
	name    string
	prompts []string
}

func normalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}

// matchGenres pairs each subject with the first genre entry whose name
// contains it or vice versa.
func matchGenres(subjects []string) []genreMatch {
	var matches []genreMatch
	for _, subject := range subjects {
		normalized := normalizeSubject(subject)
		for _, entry := range genreTable {
			if strings.Contains(normalized, entry.name) || strings.Contains(entry.name, normalized) {
				matches = append(matches, genreMatch{name: entry.name, prompts: entry.prompts})
				break
			}
		}
	}
	return matches
}

func analyzeDescription(description string) Params {
	if description == "" {
		return Params{Brightness: 0.5, Density: 0.5}
	}

	desc := strings.ToLower(description)
	var brightnessSum, densitySum float64
	count := 0

	for keyword, params := range moodKeywords {
		if strings.Contains(desc, keyword) {
			brightnessSum += params.Brightness
			densitySum += params.Density
			count++
		}
	}

	if count == 0 {
		return Params{Brightness: 0.5, Density: 0.5}
	}

	return Params{
		Brightness: brightnessSum / float64(count),
		Density:    densitySum / float64(count),
	}
}

// Derive maps book metadata to at most five weighted prompts plus mood
// parameters. Subjects select genres, the description tunes the mood;
// title and authors are accepted for API completeness but do not affect
// the result today.
func Derive(title string, subjects []string, description string, authors []string) ([]lyria.WeightedPrompt, Params) {
	var prompts []lyria.WeightedPrompt

	matches := matchGenres(subjects)
	if len(matches) > 0 {
		// First three matched genres with decreasing weights,
		// top two textures from each
		seen := make(map[string]bool)
		for i, match := range matches {
			if i >= 3 {
				break
			}
			weight := 1.0 - float64(i)*0.2
			top := match.prompts
			if len(top) > 2 {
				top = top[:2]
			}
			for _, text := range top {
				if seen[text] {
					continue
				}
				seen[text] = true
				prompts = append(prompts, lyria.WeightedPrompt{Text: text, Weight: weight})
			}
		}
	} else {
		prompts = []lyria.WeightedPrompt{
			{Text: "Ambient", Weight: 1.0},
			{Text: "Atmospheric", Weight: 0.8},
			{Text: "Cinematic", Weight: 0.6},
		}
	}

	// Base ambient prompt keeps the mix cohesive
	hasAmbient := false
	for _, p := range prompts {
		if strings.EqualFold(p.Text, "Ambient") {
			hasAmbient = true
			break
		}
	}
	if !hasAmbient {
		prompts = append(prompts, lyria.WeightedPrompt{Text: "Ambient", Weight: 0.5})
	}

	// The cap is applied after the ambient guarantee, so the appended
	// prompt can be cut when three genres already filled the list.
	if len(prompts) > maxPrompts {
		prompts = prompts[:maxPrompts]
	}

	return prompts, analyzeDescription(description)
}

// RecommendedBPM picks a tempo for reading music from the subjects.
// Energetic genres win over contemplative ones.
func RecommendedBPM(subjects []string) int {
	if len(subjects) == 0 {
		return 80
	}

	joined := strings.ToLower(strings.Join(subjects, " "))

	for _, kw := range fastKeywords {
		if strings.Contains(joined, kw) {
			return 100
		}
	}
	for _, kw := range slowKeywords {
		if strings.Contains(joined, kw) {
			return 65
		}
	}
	return 80
}
