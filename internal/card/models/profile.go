package models

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ============================================================
// Card profile (editor input)
// ============================================================

const (
	MaxSocialLinks   = 6
	FixedSocialLinks = 3

	DefaultBackgroundColor = "#49c088"
	DefaultAccentColor     = "#b1f7f7"
)

type UserInfo struct {
	Name        string `json:"name"`
	Profession  string `json:"profession"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address,omitempty"`
	Website     string `json:"website,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Handle   string `json:"handle,omitempty"`
}

// SocialLinkRef: урезанная ссылка для хранимого документа.
type SocialLinkRef struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

type CardProfile struct {
	UserInfo        UserInfo     `json:"userInfo"`
	SocialLinks     []SocialLink `json:"socialLinks"`
	BackgroundColor string       `json:"backgroundColor"`
	AccentColor     string       `json:"accentColor"`
	ProfileImage    string       `json:"profileImage,omitempty"`
}

// WithDefaults подставляет цвета по умолчанию.
func (p CardProfile) WithDefaults() CardProfile {
	if p.BackgroundColor == "" {
		p.BackgroundColor = DefaultBackgroundColor
	}
	if p.AccentColor == "" {
		p.AccentColor = DefaultAccentColor
	}
	return p
}

// Validate проверяет ограничения редактора.
func (p CardProfile) Validate() error {
	if len(p.SocialLinks) > MaxSocialLinks {
		return fmt.Errorf("at most %d social links allowed", MaxSocialLinks)
	}
	for _, c := range []string{p.BackgroundColor, p.AccentColor} {
		if c != "" && !hexColor.MatchString(c) {
			return fmt.Errorf("invalid color %q", c)
		}
	}
	if p.ProfileImage != "" {
		if _, err := ParseDataURI(p.ProfileImage); err != nil {
			return fmt.Errorf("profile image: %w", err)
		}
	}
	return nil
}

// Handle возвращает первый непустой ник из соцсетей.
func (p CardProfile) Handle() string {
	for _, l := range p.SocialLinks {
		if h := strings.TrimSpace(l.Handle); h != "" {
			return strings.TrimPrefix(h, "@")
		}
	}
	return ""
}

// LinkRefs отбрасывает ники для хранения.
func (p CardProfile) LinkRefs() []SocialLinkRef {
	out := make([]SocialLinkRef, 0, len(p.SocialLinks))
	for _, l := range p.SocialLinks {
		out = append(out, SocialLinkRef{Platform: l.Platform, URL: l.URL})
	}
	return out
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// IsHexColor проверяет цвет вида #rgb, #rrggbb или #rrggbbaa.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// ============================================================
// Data URI
// ============================================================

type DataURI struct {
	MIME    string
	Payload string
}

// Bytes декодирует base64-содержимое.
func (d DataURI) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(d.Payload)
}

var dataURIPattern = regexp.MustCompile(`^data:([a-zA-Z0-9.+-]+/[a-zA-Z0-9.+-]+)(?:;[^,;]+)*;base64,(.+)$`)

// ParseDataURI разбирает data:<mime>;base64,<payload>.
func ParseDataURI(s string) (DataURI, error) {
	m := dataURIPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return DataURI{}, fmt.Errorf("not a base64 data uri")
	}
	d := DataURI{MIME: strings.ToLower(m[1]), Payload: strings.TrimSpace(m[2])}
	if _, err := d.Bytes(); err != nil {
		return DataURI{}, fmt.Errorf("decode base64: %w", err)
	}
	return d, nil
}

// ============================================================
// Stored documents
// ============================================================

// CardDocument: сохранённый веб-дизайн карты (card_web / card_public).
type CardDocument struct {
	ID                 string          `json:"id,omitempty"`
	UserID             string          `json:"userId"`
	Timestamp          time.Time       `json:"timestamp"`
	UserInfo           UserInfo        `json:"userInfo"`
	SocialLinks        []SocialLinkRef `json:"socialLinks"`
	CanvasData         string          `json:"canvasData"`
	PreviewImage       string          `json:"previewImage"`
	BackgroundColorHex string          `json:"backgroundColorHex"`
	AccentColorHex     string          `json:"accentColorHex"`
	ProfileImage       string          `json:"profileImage,omitempty"`
}

// CardViewDocument: дизайн физической карты.
type CardViewDocument struct {
	ID           string    `json:"id,omitempty"`
	UserID       string    `json:"userId"`
	Timestamp    time.Time `json:"timestamp"`
	CardBase     string    `json:"cardBase"`
	PreviewImage string    `json:"previewImage"`
}

type Template struct {
	ID                 string    `json:"id,omitempty"`
	Name               string    `json:"name"`
	Section            string    `json:"section"`
	CanvasData         string    `json:"canvasData"`
	PreviewImage       string    `json:"previewImage,omitempty"`
	BackgroundColorHex string    `json:"backgroundColorHex,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// OrderContact: данные доставки из формы заказа.
type OrderContact struct {
	FullName        string `json:"fullName"`
	Phone           string `json:"phone"`
	AdditionalPhone string `json:"additionalPhone,omitempty"`
	Address         string `json:"address"`
	Email           string `json:"email"`
	Notes           string `json:"notes,omitempty"`
}

// Validate требует обязательные поля формы.
func (c OrderContact) Validate() error {
	required := []struct{ field, value string }{
		{"fullName", c.FullName},
		{"phone", c.Phone},
		{"address", c.Address},
		{"email", c.Email},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.field)
		}
	}
	return nil
}

type Order struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"userId"`
	OrderContact
	CardViewData    string    `json:"cardViewData"`
	CardViewPreview string    `json:"cardViewPreview"`
	CardWebData     string    `json:"cardWebData"`
	CardWebPreview  string    `json:"cardWebPreview"`
	IPhoneURL       string    `json:"iphone_url"`
	OrderStatus     bool      `json:"order_status"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (d *CardDocument) SetID(id string)     { d.ID = id }
func (d *CardViewDocument) SetID(id string) { d.ID = id }
func (t *Template) SetID(id string)         { t.ID = id }
func (o *Order) SetID(id string)            { o.ID = id }
