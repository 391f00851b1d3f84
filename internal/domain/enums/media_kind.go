package enums

type MediaKind string

const (
	MediaKindDayImage   MediaKind = "day_image"
	MediaKindBackground MediaKind = "background"
	MediaKindScene      MediaKind = "scene"
	MediaKindAvatar     MediaKind = "avatar"
)

func (k MediaKind) Valid() bool {
	switch k {
	case MediaKindDayImage, MediaKindBackground, MediaKindScene, MediaKindAvatar:
		return true
	default:
		return false
	}
}
