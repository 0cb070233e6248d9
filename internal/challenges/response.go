package challenges

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aimd54/penpath/internal/apperrors"
)

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.FieldsFunc(text, unicode.IsSpace))
}

// ValidateResponse rejects blank responses and responses longer than wordLimit words.
// A non-positive wordLimit disables the length check.
func ValidateResponse(text string, wordLimit int) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.New(apperrors.KindValidation, "response is empty")
	}
	if wordLimit > 0 {
		if words := CountWords(text); words > wordLimit {
			return apperrors.New(apperrors.KindValidation,
				fmt.Sprintf("response has %d words, limit is %d", words, wordLimit))
		}
	}
	return nil
}
