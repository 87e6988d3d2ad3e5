// Package normalize converts raw source records into normalized records
// with a common schema, rejecting rows that are missing mandatory
// fields.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	parenRe      = regexp.MustCompile(`\s*\([^)]*\)?`)

	// Spellings that must land on one canonical form before matching,
	// or the hyphen variants survive as separate entities.
	alkenMaesRe = regexp.MustCompile(`(?i)\balken[- ]maes\b`)
	abInbevRe   = regexp.MustCompile(`(?i)\b(ab-?inbev|inbev)\b`)

	// Annotation phrases that introduce trailing noise in scraped
	// brewery names ("Brouwerij X, gebrouwen bij Y", "X brewed for Z").
	annotationRe = regexp.MustCompile(`(?i)\s*\(?vroeger|\s*inopdracht van|\s+in opdracht van|\s+brewed for|\s+gebrouwen|\s+voor\b|\s+bij\b|\s+nu\b|\s+later\b|\s+door\b`)
)

// stripMarks removes combining diacritical marks after NFD
// decomposition, so "Hoegaarden Spéciale" and "Hoegaarden Speciale"
// share a key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key folds a display name into its comparison key: diacritics
// stripped, lowercased, whitespace collapsed.
func Key(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	folded = multiSpaceRe.ReplaceAllString(folded, " ")
	return folded
}

// CleanName trims a scraped name to its display form: quotes and
// whitespace stripped, internal whitespace collapsed.
func CleanName(name string) string {
	n := strings.TrimSpace(name)
	n = strings.Trim(n, `"`)
	n = multiSpaceRe.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// CleanBreweryName applies the brewery-specific content rules on top of
// CleanName. Rule order matters: list splitting runs before annotation
// cutting so "X, gebrouwen bij Y" keeps X, and parenthesis removal runs
// last to catch remnants the earlier cuts expose.
func CleanBreweryName(name string) string {
	n := CleanName(name)
	if n == "" {
		return ""
	}

	// Collaboration brews list the contract brewery first; the actual
	// producer is the second segment. Plain comma lists keep the first.
	if strings.Contains(strings.ToLower(n), "collaboration brew") {
		if parts := strings.Split(n, ","); len(parts) > 1 {
			n = parts[1]
		}
	} else if i := strings.IndexByte(n, ','); i >= 0 {
		n = n[:i]
	}

	if loc := annotationRe.FindStringIndex(n); loc != nil {
		n = n[:loc[0]]
	}

	n = parenRe.ReplaceAllString(n, "")

	n = alkenMaesRe.ReplaceAllString(n, "Alken-Maes")
	n = abInbevRe.ReplaceAllString(n, "AB InBev")

	n = collapseDupWords(n)

	n = strings.TrimSpace(n)
	n = strings.TrimRight(n, ")-.,")

	// Drop the leading Dutch article marker ("'t Hofbrouwerijke",
	// curly-quote variant included).
	lower := strings.ToLower(n)
	if strings.HasPrefix(lower, "'t ") || strings.HasPrefix(lower, "‘t ") {
		_, size := utf8.DecodeRuneInString(n)
		n = n[size:]
	}

	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(n, " "))
}

// collapseDupWords drops a word that immediately repeats its
// predecessor ("Brouwerij Brouwerij Het Anker"), case-insensitively.
func collapseDupWords(s string) string {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return s
	}
	out := fields[:1]
	for _, f := range fields[1:] {
		if strings.EqualFold(f, out[len(out)-1]) {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// SplitList parses a multi-value field ("Tripel; Abbey" or
// "Tripel/Abbey") into an ordered list with empties discarded.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	sep := ";"
	if !strings.Contains(raw, ";") {
		sep = "/"
	}
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if p := CleanName(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
