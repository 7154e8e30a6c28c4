package ingestion

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/wayfarer/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	disallowedPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Z}\x{0085}\-.,!?()&%$#@:;]`)
	// \s is ASCII-only in RE2, so Unicode separators are listed explicitly.
	whitespacePattern = regexp.MustCompile(`[\s\p{Z}\x{0085}]+`)
	ratingPattern     = regexp.MustCompile(`\d+\.?\d*`)
)

// CleanText strips markup and disallowed characters, then collapses whitespace.
// CleanText(CleanText(s)) == CleanText(s).
func CleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = disallowedPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// transport and transportation map to each other; each token is mapped once.
var categorySynonyms = map[string]string{
	"lodging":        "hotel",
	"accommodation":  "hotel",
	"dining":         "restaurant",
	"food":           "restaurant",
	"sightseeing":    "attraction",
	"tour":           "activity",
	"entertainment":  "activity",
	"transport":      "transportation",
	"transportation": "transport",
}

// lower folds case with Unicode rules. A Caser is stateful, so each call gets its own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// NormalizeCategories lowercases and maps category tokens onto the canonical
// vocabulary, keeping the first occurrence of each. Values that are not lists
// yield an empty list; non-string elements are skipped.
func NormalizeCategories(v any) []string {
	var items []any
	switch list := v.(type) {
	case []string:
		items = make([]any, len(list))
		for i, s := range list {
			items[i] = s
		}
	case []any:
		items = list
	default:
		return []string{}
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		token := strings.TrimSpace(lower(s))
		if canonical, ok := categorySynonyms[token]; ok {
			token = canonical
		}
		if seen[token] {
			continue
		}
		seen[token] = true
		out = append(out, token)
	}
	return out
}

// NormalizeRating maps a rating on a 5, 10 or 100 point scale onto [0, 5]
// with one decimal. Text is searched for its first number. The second
// return is false when no rating can be read.
func NormalizeRating(v any) (float64, bool) {
	var f float64
	switch r := v.(type) {
	case bool, nil:
		return 0, false
	case string:
		m := ratingPattern.FindString(r)
		if m == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		parsed, ok := core.AsFloat(v)
		if !ok {
			return 0, false
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	switch {
	case f > 10:
		f /= 20
	case f > 5:
		f /= 2
	}
	f = max(0, min(5, f))

	rounded, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 1, 64), 64)
	if err != nil {
		return 0, false
	}
	return rounded, true
}

var (
	budgetWords = []string{"budget", "cheap", "low", "inexpensive"}
	luxuryWords = []string{"luxury", "expensive", "high-end", "premium"}
)

// NormalizePriceRange maps free-form price text onto one of the three tiers.
// Anything unrecognized, including non-text values, is moderate.
func NormalizePriceRange(v any) core.PriceRange {
	var s string
	switch p := v.(type) {
	case string:
		s = p
	case core.PriceRange:
		s = string(p)
	default:
		return core.PriceModerate
	}
	s = strings.TrimSpace(lower(s))

	switch {
	case containsAny(s, budgetWords):
		return core.PriceBudget
	case containsAny(s, luxuryWords):
		return core.PriceLuxury
	case strings.Contains(s, "$"):
		n := max(1, min(3, strings.Count(s, "$")))
		return core.PriceRange(strings.Repeat("$", n))
	}
	return core.PriceModerate
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var fieldAliases = map[string]string{
	"name":         core.FieldTitle,
	"summary":      core.FieldDescription,
	"location_lat": core.FieldLatitude,
	"location_lng": core.FieldLongitude,
	"location_lon": core.FieldLongitude,
	"img_url":      core.FieldImageURL,
	"image":        core.FieldImageURL,
	"url":          core.FieldSourceURL,
	"link":         core.FieldSourceURL,
}

// ApplyAliases renames source-specific keys to their canonical names.
// A canonical key already present wins over its alias; when several aliases
// target the same absent key, the first in sorted alias order wins.
func ApplyAliases(raw core.RawRecord) core.RawRecord {
	out := make(core.RawRecord, len(raw))
	for k, v := range raw {
		if _, isAlias := fieldAliases[k]; !isAlias {
			out[k] = v
		}
	}
	for _, alias := range sortedAliases {
		v, ok := raw[alias]
		if !ok {
			continue
		}
		target := fieldAliases[alias]
		if _, taken := out[target]; taken {
			continue
		}
		out[target] = v
	}
	return out
}

var sortedAliases = func() []string {
	keys := make([]string, 0, len(fieldAliases))
	for k := range fieldAliases {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}()

// textFields lists the cleaned text keys, including aliases of title and description.
var textFields = []string{core.FieldTitle, core.FieldDescription, core.FieldAddress, "name", "summary"}

// cleanRecord returns a cleaned, aliased copy of raw. raw is not modified.
func cleanRecord(raw core.RawRecord) core.RawRecord {
	cleaned := raw.Clone()

	for _, field := range textFields {
		if !cleaned.Has(field) {
			continue
		}
		cleaned[field] = CleanText(cleaned.String(field))
	}

	if cleaned.Has(core.FieldCategories) {
		cleaned[core.FieldCategories] = NormalizeCategories(cleaned[core.FieldCategories])
	}

	if cleaned.Has(core.FieldRating) {
		if rating, ok := NormalizeRating(cleaned[core.FieldRating]); ok {
			cleaned[core.FieldRating] = rating
		} else {
			delete(cleaned, core.FieldRating)
		}
	}

	if cleaned.Has(core.FieldPriceRange) {
		cleaned[core.FieldPriceRange] = NormalizePriceRange(cleaned[core.FieldPriceRange])
	}

	return ApplyAliases(cleaned)
}
