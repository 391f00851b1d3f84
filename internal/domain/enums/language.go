package enums

type Language string

const (
	LanguageEnglish   Language = "en"
	LanguageJapanese  Language = "ja"
	LanguageUkrainian Language = "uk"
)

var SupportedLanguages = []Language{LanguageEnglish, LanguageJapanese, LanguageUkrainian}

func (l Language) Valid() bool {
	for _, supported := range SupportedLanguages {
		if l == supported {
			return true
		}
	}
	return false
}
