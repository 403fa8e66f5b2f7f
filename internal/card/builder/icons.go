package builder

import "strings"

// ============================================================
// Icon sources
// ============================================================

const (
	PhoneIconURL   = "https://img.icons8.com/?size=100&id=9659&format=png&color=000000"
	EmailIconURL   = "https://cdn-icons-png.flaticon.com/512/561/561127.png"
	AddressIconURL = "https://img.icons8.com/?size=100&id=53383&format=png&color=000000"

	FallbackSocialIconURL = "https://cdn.jsdelivr.net/npm/simple-icons@v10/icons/facebook.svg"
)

var socialIcons = map[string]string{
	"facebook":  "https://img.icons8.com/?size=100&id=118466&format=png&color=000000",
	"instagram": "https://img.icons8.com/?size=100&id=32292&format=png&color=000000",
	"twitter":   "https://img.icons8.com/?size=100&id=6Fsj3rv2DCmG&format=png&color=000000",
}

// SocialIconURL возвращает иконку платформы или запасную.
func SocialIconURL(platform string) string {
	if url, ok := socialIcons[strings.ToLower(strings.TrimSpace(platform))]; ok {
		return url
	}
	return FallbackSocialIconURL
}
