package challenges

import (
	"strings"
	"testing"

	"github.com/aimd54/penpath/internal/apperrors"
)

func TestCountWords(t *testing.T) {
	tests := map[string]int{
		"":                          0,
		"   ":                       0,
		"one":                       1,
		"two  words":                2,
		"tabs\tand\nnewlines here ": 4,
	}
	for text, want := range tests {
		if got := CountWords(text); got != want {
			t.Errorf("CountWords(%q) = %d, want %d", text, got, want)
		}
	}
}

func TestValidateResponse(t *testing.T) {
	if err := ValidateResponse("Fresh coffee, zero excuses.", 10); err != nil {
		t.Errorf("Expected valid response, got %v", err)
	}

	if err := ValidateResponse(" \n\t", 10); !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Errorf("Expected validation error for blank response, got %v", err)
	}

	long := strings.Repeat("word ", 11)
	if err := ValidateResponse(long, 10); !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Errorf("Expected validation error for word limit, got %v", err)
	}

	if err := ValidateResponse(long, 0); err != nil {
		t.Errorf("Expected no limit check when limit is 0, got %v", err)
	}
}
