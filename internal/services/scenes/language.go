package scenes

import (
	"golang.org/x/text/language"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
)

// PickTranslation selects the translation best matching an Accept-Language
// header. English is preferred when nothing matches; otherwise the first
// translation is used.
func PickTranslation(translations []model.Translation, acceptLanguage string) *model.Translation {
	if len(translations) == 0 {
		return nil
	}

	fallback := 0
	tags := make([]language.Tag, 0, len(translations))
	for i, tr := range translations {
		if tr.Language == enums.LanguageEnglish {
			fallback = i
		}
		tags = append(tags, language.Make(string(tr.Language)))
	}

	// The fallback must be the first supported tag for the matcher to return it
	// on no match.
	tags[0], tags[fallback] = tags[fallback], tags[0]
	order := make([]int, len(translations))
	for i := range order {
		order[i] = i
	}
	order[0], order[fallback] = order[fallback], order[0]

	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return &translations[order[0]]
	}

	_, index, confidence := language.NewMatcher(tags).Match(desired...)
	if confidence == language.No {
		return &translations[order[0]]
	}
	return &translations[order[index]]
}
