package giftcard

// ThemeName maps a card's opaque theme id to the template name used by
// notifications. Unknown ids fall back to the classic theme.
func ThemeName(themeID uint32) string {
	switch themeID {
	case 1:
		return "ocean"
	case 2:
		return "forest"
	case 3:
		return "sunset"
	case 10:
		return "birthday"
	case 11:
		return "congratulations"
	case 12:
		return "thank_you"
	case 13:
		return "holidays"
	default:
		return "classic"
	}
}
