package tutoring

import (
	"github.com/chatling/v2/internal/domain/tutoring"
)

// Classify decides which language dominates an utterance by counting
// characters: CJK ideographs on one side, ASCII letters on the other.
// Punctuation, whitespace and symbols are ignored; digits count toward the
// total without favoring either side. The verdict is deterministic and
// depends on nothing but the text itself.
func Classify(text string) tutoring.LanguageClass {
	var cjk, latin, countable int
	for _, r := range text {
		switch {
		case r >= 0x4E00 && r <= 0x9FFF:
			cjk++
			countable++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
			countable++
		case r >= '0' && r <= '9':
			countable++
		}
	}
	if countable == 0 {
		return tutoring.LanguageAmbiguous
	}
	// Ties go to English: only a strict CJK majority flips the verdict.
	if cjk > latin {
		return tutoring.LanguageChineseDominant
	}
	return tutoring.LanguageEnglish
}
