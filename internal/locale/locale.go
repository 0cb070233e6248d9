// Package locale resolves the language a user writes and is coached in.
package locale

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/aimd54/penpath/internal/apperrors"
)

// Default is used when nothing else is configured.
var Default = language.English

// Parse parses a BCP 47 tag. An empty string yields fallback.
func Parse(s string, fallback language.Tag) (language.Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, apperrors.Wrap(apperrors.KindValidation, err, fmt.Sprintf("invalid language %q", s))
	}
	return tag, nil
}

// FromAcceptLanguage picks the preferred tag from an Accept-Language header,
// or fallback when the header is empty or unparsable.
func FromAcceptLanguage(header string, fallback language.Tag) language.Tag {
	if strings.TrimSpace(header) == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	return tags[0]
}

// Name returns the English name of the tag's language, for prompts.
func Name(tag language.Tag) string {
	base, _ := tag.Base()
	if name := display.English.Languages().Name(base); name != "" {
		return name
	}
	return tag.String()
}
