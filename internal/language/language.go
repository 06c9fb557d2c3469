// Package language holds small helpers for project metadata: deriving a
// display title from a media path and resolving transcription language codes
// to human-readable names.
package language

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DeriveTitle builds a presentable project title from a media file path.
// Separators collapse to spaces and the result is title-cased.
func DeriveTitle(sourcePath string) string {
	if sourcePath == "" {
		return "Untitled Project"
	}
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		title = "Untitled Project"
	}
	return cases.Title(language.Und).String(title)
}

var displayNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"ru": "Russian",
	"ar": "Arabic",
	"hi": "Hindi",
	"nl": "Dutch",
	"pl": "Polish",
	"sv": "Swedish",
	"da": "Danish",
	"no": "Norwegian",
	"fi": "Finnish",
}

// Display resolves a two-letter transcription language code to a readable
// name, falling back to the code itself.
func Display(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "Unknown"
	}
	if name, ok := displayNames[code]; ok {
		return name
	}
	return code
}
