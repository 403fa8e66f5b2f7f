package vcard

import (
	"strings"

	"card-studio/internal/card/models"
)

const (
	// MIMEType отдаётся при скачивании карточки.
	MIMEType = "text/vcard;charset=utf-8"
	// FileName: имя скачиваемого файла.
	FileName = "contact.vcf"

	foldWidth = 75
)

// Contact: данные, из которых собирается vCard.
type Contact struct {
	Name        string
	Profession  string
	CompanyName string
	Phone       string
	Email       string
	Address     string
	Website     string
	SocialLinks []models.SocialLinkRef
	// Photo: data URI фото профиля, пустая строка, если фото нет.
	Photo string
}

// FromProfile собирает Contact из профиля редактора.
func FromProfile(p models.CardProfile) Contact {
	return Contact{
		Name:        p.UserInfo.Name,
		Profession:  p.UserInfo.Profession,
		CompanyName: p.UserInfo.CompanyName,
		Phone:       p.UserInfo.Phone,
		Email:       p.UserInfo.Email,
		Address:     p.UserInfo.Address,
		Website:     p.UserInfo.Website,
		SocialLinks: p.LinkRefs(),
		Photo:       p.ProfileImage,
	}
}

// Generate формирует vCard 3.0, строки разделены CRLF.
func Generate(c Contact) string {
	first, last := splitName(c.Name)

	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:" + escape(strings.TrimSpace(c.Name)),
		"N:" + escape(last) + ";" + escape(first) + ";;;",
		"TITLE:" + escape(c.Profession),
	}
	if c.CompanyName != "" {
		lines = append(lines, "ORG:"+escape(c.CompanyName))
	}
	lines = append(lines, "TEL:"+c.Phone, "EMAIL:"+c.Email)
	if c.Address != "" {
		lines = append(lines, "ADR:;;"+escape(c.Address)+";;;")
	}
	if c.Website != "" {
		lines = append(lines, "URL:"+c.Website)
	}
	for _, link := range c.SocialLinks {
		if strings.TrimSpace(link.URL) == "" {
			continue
		}
		lines = append(lines, "X-SOCIALPROFILE;TYPE="+link.Platform+":"+link.URL)
	}
	if photo, ok := photoOf(c.Photo); ok {
		lines = append(lines, "PHOTO;ENCODING=b;TYPE="+strings.ToUpper(photo.MIME)+":"+fold(photo.Payload))
	}
	lines = append(lines, "END:VCARD")

	return strings.Join(lines, "\r\n")
}

// photoOf возвращает фото, только если это корректный непустой data URI картинки.
func photoOf(s string) (models.DataURI, bool) {
	if s == "" {
		return models.DataURI{}, false
	}
	d, err := models.ParseDataURI(s)
	if err != nil || !strings.HasPrefix(d.MIME, "image/") {
		return models.DataURI{}, false
	}
	raw, err := d.Bytes()
	if err != nil || len(raw) == 0 {
		return models.DataURI{}, false
	}
	return d, true
}

// splitName: первое слово имя, остальное фамилия.
func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	first, last, _ = strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}

// fold режет base64 на строки по 75 символов с продолжением через пробел.
func fold(s string) string {
	if len(s) <= foldWidth {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i += foldWidth {
		if i > 0 {
			b.WriteString("\r\n ")
		}
		b.WriteString(s[i:min(i+foldWidth, len(s))])
	}
	return b.String()
}

var escaper = strings.NewReplacer(`\`, `\\`, "\r\n", `\n`, "\n", `\n`, ",", `\,`, ";", `\;`)

func escape(s string) string {
	return escaper.Replace(s)
}
