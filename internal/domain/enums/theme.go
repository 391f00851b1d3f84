package enums

type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeWinter  Theme = "winter"
	ThemeFestive Theme = "festive"
	ThemeCozy    Theme = "cozy"
	ThemeElegant Theme = "elegant"
	ThemeGalaxy  Theme = "galaxy"
)

var Themes = []Theme{ThemeDefault, ThemeWinter, ThemeFestive, ThemeCozy, ThemeElegant, ThemeGalaxy}

func (t Theme) Valid() bool {
	for _, known := range Themes {
		if t == known {
			return true
		}
	}
	return false
}
