package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ============================================================
// Canvas constants
// ============================================================

const (
	CardWidth  = 250.0
	CardHeight = 600.0

	// DocumentVersion пишется в поле version сериализованной сцены.
	DocumentVersion = "6.4.3"
)

// ============================================================
// Primitive kinds & roles
// ============================================================

type Kind string

const (
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
	KindCircle  Kind = "circle"
	KindTextbox Kind = "textbox"
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindLine    Kind = "line"
)

// UnmarshalJSON принимает и "Textbox", и "textbox" (старые документы).
func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*k = Kind(strings.ToLower(raw))
	return nil
}

// IsText сообщает, что примитив несёт текст.
func (k Kind) IsText() bool {
	return k == KindTextbox || k == KindText
}

// Role говорит, каким элементом карты является примитив.
type Role string

const (
	RoleNone         Role = ""
	RoleBackground   Role = "background"
	RoleCardBase     Role = "cardBase"
	RoleHeader       Role = "header"
	RoleProfileFrame Role = "profileFrame"
	RolePhoto        Role = "photo"
	RoleName         Role = "name"
	RoleProfession   Role = "profession"
	RoleCompanyRule  Role = "companyRule"
	RoleCompany      Role = "company"
	RolePhoneIcon    Role = "phoneIcon"
	RolePhone        Role = "phone"
	RoleEmailIcon    Role = "emailIcon"
	RoleEmail        Role = "email"
	RoleAddressIcon  Role = "addressIcon"
	RoleAddress      Role = "address"
	RoleSocialBadge  Role = "socialBadge"
	RoleSocialIcon   Role = "socialIcon"
	RoleWebsite      Role = "website"
	RoleHandle       Role = "handle"
	RoleSaveButton   Role = "saveButton"
	RoleSaveLabel    Role = "saveLabel"
	RoleImage        Role = "image"
)

const (
	OriginLeft   = "left"
	OriginTop    = "top"
	OriginCenter = "center"
)

// ============================================================
// Interaction metadata
// ============================================================

// Metadata: действия, привязанные к примитиву. Пустые поля не сериализуются.
type Metadata struct {
	URL     string `json:"url,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Website string `json:"website,omitempty"`
	VCard   string `json:"vcard,omitempty"`
}

func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// ============================================================
// Primitive
// ============================================================

// Base: поля, общие для всех примитивов.
// Hidden помечает примитивы пустого блока: они не рисуются и не принимают нажатия.
type Base struct {
	ID                string  `json:"id,omitempty"`
	Role              Role    `json:"role,omitempty"`
	Left              float64 `json:"left"`
	Top               float64 `json:"top"`
	OriginX           string  `json:"originX,omitempty"`
	OriginY           string  `json:"originY,omitempty"`
	Fill              string  `json:"fill,omitempty"`
	Stroke            string  `json:"stroke,omitempty"`
	StrokeWidth       float64 `json:"strokeWidth,omitempty"`
	ScaleX            float64 `json:"scaleX,omitempty"`
	ScaleY            float64 `json:"scaleY,omitempty"`
	Selectable        bool    `json:"selectable"`
	Evented           bool    `json:"evented"`
	ExcludeFromExport bool    `json:"excludeFromExport,omitempty"`
	IsBackground      bool    `json:"isBackground,omitempty"`
	Hidden            bool    `json:"hidden,omitempty"`
}

// ClipShape: круглая маска для фото профиля.
type ClipShape struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Radius float64 `json:"radius"`
}

type Primitive struct {
	Type Kind `json:"type"`
	Base
	Metadata

	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	RX     float64 `json:"rx,omitempty"`
	RY     float64 `json:"ry,omitempty"`
	Radius float64 `json:"radius,omitempty"`

	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"`
	TextAlign  string  `json:"textAlign,omitempty"`

	Src      string     `json:"src,omitempty"`
	ClipPath *ClipShape `json:"clipPath,omitempty"`

	X1 float64 `json:"x1,omitempty"`
	Y1 float64 `json:"y1,omitempty"`
	X2 float64 `json:"x2,omitempty"`
	Y2 float64 `json:"y2,omitempty"`
}

// Meta возвращает копию метаданных примитива.
func (p *Primitive) Meta() Metadata {
	return p.Metadata
}

// SetMeta заменяет метаданные целиком.
func (p *Primitive) SetMeta(m Metadata) {
	p.Metadata = m
}

// Attach выставляет одно поле метаданных по имени ключа JSON.
func (p *Primitive) Attach(field, value string) error {
	switch field {
	case "url":
		p.URL = value
	case "phone":
		p.Phone = value
	case "email":
		p.Email = value
	case "address":
		p.Address = value
	case "website":
		p.Website = value
	case "vcard":
		p.VCard = value
	default:
		return fmt.Errorf("unknown metadata field %q", field)
	}
	return nil
}

// Clone возвращает глубокую копию.
func (p *Primitive) Clone() *Primitive {
	cp := *p
	if p.ClipPath != nil {
		clip := *p.ClipPath
		cp.ClipPath = &clip
	}
	return &cp
}

// ============================================================
// Geometry
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Bottom() float64 { return r.Y + r.Height }

func (r Rect) Contains(pt Point) bool {
	return pt.X >= r.X && pt.X <= r.X+r.Width && pt.Y >= r.Y && pt.Y <= r.Y+r.Height
}

// Viewport: размер области устройства в пикселях.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Transform переводит координаты дизайна в координаты устройства: device = design*Scale + Pan.
type Transform struct {
	Scale float64 `json:"scale"`
	PanX  float64 `json:"panX"`
	PanY  float64 `json:"panY"`
}

// IdentityTransform возвращает масштаб 1 без сдвига.
func IdentityTransform() Transform {
	return Transform{Scale: 1}
}

// ToDesign переводит точку устройства в координаты дизайна.
func (t Transform) ToDesign(pt Point) Point {
	return Point{X: (pt.X - t.PanX) / t.Scale, Y: (pt.Y - t.PanY) / t.Scale}
}

// Size возвращает отрисованные ширину и высоту с учетом масштаба.
func (p *Primitive) Size() (float64, float64) {
	sx, sy := scaleOrOne(p.ScaleX), scaleOrOne(p.ScaleY)

	switch p.Type {
	case KindCircle:
		return 2 * p.Radius * sx, 2 * p.Radius * sy
	case KindEllipse:
		return 2 * p.RX * sx, 2 * p.RY * sy
	case KindLine:
		return math.Abs(p.X2 - p.X1), math.Abs(p.Y2 - p.Y1)
	default:
		return p.Width * sx, p.Height * sy
	}
}

// Bounds возвращает прямоугольник примитива в координатах сцены.
func (p *Primitive) Bounds() Rect {
	if p.Type == KindLine {
		half := p.StrokeWidth / 2
		return Rect{
			X:      math.Min(p.X1, p.X2) - half,
			Y:      math.Min(p.Y1, p.Y2) - half,
			Width:  math.Abs(p.X2-p.X1) + p.StrokeWidth,
			Height: math.Abs(p.Y2-p.Y1) + p.StrokeWidth,
		}
	}

	w, h := p.Size()
	x, y := p.Left, p.Top
	if p.OriginX == OriginCenter {
		x -= w / 2
	}
	if p.OriginY == OriginCenter {
		y -= h / 2
	}
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// Contains проверяет попадание точки. Круг и эллипс проверяются по уравнению эллипса.
func (p *Primitive) Contains(pt Point) bool {
	b := p.Bounds()
	if !b.Contains(pt) {
		return false
	}
	if p.Type != KindCircle && p.Type != KindEllipse {
		return true
	}
	rx, ry := b.Width/2, b.Height/2
	if rx == 0 || ry == 0 {
		return false
	}
	dx := (pt.X - (b.X + rx)) / rx
	dy := (pt.Y - (b.Y + ry)) / ry
	return dx*dx+dy*dy <= 1
}

// MoveTop сдвигает примитив так, чтобы верх его рамки оказался в y.
func (p *Primitive) MoveTop(y float64) {
	b := p.Bounds()
	dy := y - b.Y
	if p.Type == KindLine {
		p.Y1 += dy
		p.Y2 += dy
		p.Top += dy
		return
	}
	p.Top += dy
	if p.ClipPath != nil {
		p.ClipPath.Top += dy
	}
}

func scaleOrOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
