package models

import (
	"github.com/google/uuid"
)

// ============================================================
// Constructors
// ============================================================

func newPrimitive(kind Kind, base Base, meta []Metadata) *Primitive {
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	if base.ScaleX == 0 {
		base.ScaleX = 1
	}
	if base.ScaleY == 0 {
		base.ScaleY = 1
	}
	p := &Primitive{Type: kind, Base: base}
	if len(meta) > 0 {
		p.Metadata = meta[0]
	}
	return p
}

// NewRect создаёт прямоугольник; cornerRadius идёт в rx/ry.
func NewRect(base Base, width, height, cornerRadius float64, meta ...Metadata) *Primitive {
	p := newPrimitive(KindRect, base, meta)
	p.Width = width
	p.Height = height
	p.RX = cornerRadius
	p.RY = cornerRadius
	return p
}

func NewEllipse(base Base, rx, ry float64, meta ...Metadata) *Primitive {
	p := newPrimitive(KindEllipse, base, meta)
	p.RX = rx
	p.RY = ry
	return p
}

func NewCircle(base Base, radius float64, meta ...Metadata) *Primitive {
	p := newPrimitive(KindCircle, base, meta)
	p.Radius = radius
	return p
}

// TextStyle: шрифтовые параметры текстовых примитивов.
type TextStyle struct {
	FontSize   float64
	FontFamily string
	FontWeight string
	TextAlign  string
	Width      float64
}

// NewTextbox создаёт переносимый текст фиксированной ширины. Высоту выставляет layout.
func NewTextbox(base Base, text string, style TextStyle, meta ...Metadata) *Primitive {
	p := newPrimitive(KindTextbox, base, meta)
	p.Text = text
	p.FontSize = style.FontSize
	p.FontFamily = style.FontFamily
	p.FontWeight = style.FontWeight
	p.TextAlign = style.TextAlign
	p.Width = style.Width
	return p
}

// NewText создаёт однострочный текст (ширина = измеренная ширина строки).
func NewText(base Base, text string, style TextStyle, meta ...Metadata) *Primitive {
	p := NewTextbox(base, text, style, meta...)
	p.Type = KindText
	return p
}

func NewImage(base Base, src string, width, height float64, clip *ClipShape, meta ...Metadata) *Primitive {
	p := newPrimitive(KindImage, base, meta)
	p.Src = src
	p.Width = width
	p.Height = height
	p.ClipPath = clip
	return p
}

func NewLine(base Base, x1, y1, x2, y2 float64, meta ...Metadata) *Primitive {
	p := newPrimitive(KindLine, base, meta)
	p.X1, p.Y1, p.X2, p.Y2 = x1, y1, x2, y2
	p.Left = min(x1, x2)
	p.Top = min(y1, y2)
	return p
}

// Style возвращает шрифтовые параметры текстового примитива.
// Text не переносится: его ширина получается из измерения, а не ограничивает строку.
func (p *Primitive) Style() TextStyle {
	width := p.Width
	if p.Type == KindText {
		width = 0
	}
	return TextStyle{
		FontSize:   p.FontSize,
		FontFamily: p.FontFamily,
		FontWeight: p.FontWeight,
		TextAlign:  p.TextAlign,
		Width:      width,
	}
}

// ============================================================
// Scene
// ============================================================

// Scene хранит упорядоченный (back-to-front) список примитивов одной карты.
type Scene struct {
	Width           float64      `json:"width"`
	Height          float64      `json:"height"`
	BackgroundColor string       `json:"backgroundColor"`
	Objects         []*Primitive `json:"objects"`
}

func NewScene(backgroundColor string) *Scene {
	return &Scene{
		Width:           CardWidth,
		Height:          CardHeight,
		BackgroundColor: backgroundColor,
	}
}

// Add добавляет примитивы поверх существующих.
func (s *Scene) Add(items ...*Primitive) {
	for _, p := range items {
		if p == nil {
			continue
		}
		if p.IsBackground {
			s.SetBackground(p)
			continue
		}
		s.Objects = append(s.Objects, p)
	}
	s.normalize()
}

// Insert вставляет примитив на позицию idx (z-order).
func (s *Scene) Insert(idx int, p *Primitive) {
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.Objects) {
		idx = len(s.Objects)
	}
	s.Objects = append(s.Objects, nil)
	copy(s.Objects[idx+1:], s.Objects[idx:])
	s.Objects[idx] = p
	s.normalize()
}

// Remove убирает примитив по id. Возвращает false, если его нет.
func (s *Scene) Remove(id string) bool {
	for i, p := range s.Objects {
		if p.ID == id {
			s.Objects = append(s.Objects[:i], s.Objects[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveRole убирает все примитивы с ролью role.
func (s *Scene) RemoveRole(role Role) int {
	kept := s.Objects[:0]
	removed := 0
	for _, p := range s.Objects {
		if p.Role == role {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(s.Objects); i++ {
		s.Objects[i] = nil
	}
	s.Objects = kept
	return removed
}

func (s *Scene) Find(id string) *Primitive {
	for _, p := range s.Objects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ByRole возвращает первый примитив с ролью role.
func (s *Scene) ByRole(role Role) *Primitive {
	for _, p := range s.Objects {
		if p.Role == role {
			return p
		}
	}
	return nil
}

func (s *Scene) AllByRole(role Role) []*Primitive {
	var out []*Primitive
	for _, p := range s.Objects {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

func (s *Scene) IndexOf(id string) int {
	for i, p := range s.Objects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// BringToFront переносит примитив в конец списка.
func (s *Scene) BringToFront(id string) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return
	}
	p := s.Objects[idx]
	s.Objects = append(s.Objects[:idx], s.Objects[idx+1:]...)
	s.Objects = append(s.Objects, p)
	s.normalize()
}

// SendToBack переносит примитив в начало списка (за фоном, если это не фон).
func (s *Scene) SendToBack(id string) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return
	}
	p := s.Objects[idx]
	s.Objects = append(s.Objects[:idx], s.Objects[idx+1:]...)
	s.Objects = append([]*Primitive{p}, s.Objects...)
	s.normalize()
}

// Background возвращает единственный фоновый примитив.
func (s *Scene) Background() *Primitive {
	for _, p := range s.Objects {
		if p.IsBackground {
			return p
		}
	}
	return nil
}

// SetBackground ставит p фоном: прочие фоны удаляются, p уходит на индекс 0.
func (s *Scene) SetBackground(p *Primitive) {
	kept := make([]*Primitive, 0, len(s.Objects)+1)
	kept = append(kept, p)
	for _, o := range s.Objects {
		if o.IsBackground || o == p {
			continue
		}
		kept = append(kept, o)
	}
	p.IsBackground = true
	s.Objects = kept
}

// SetBackgroundColor перекрашивает фон, создавая его при отсутствии.
func (s *Scene) SetBackgroundColor(color string) *Primitive {
	s.BackgroundColor = color
	bg := s.Background()
	if bg == nil {
		bg = NewRect(Base{
			Role:              RoleBackground,
			Fill:              color,
			ExcludeFromExport: true,
			IsBackground:      true,
		}, s.Width, s.Height, 0)
	}
	bg.Fill = color
	s.SetBackground(bg)
	return bg
}

// Clone делает глубокую копию сцены.
func (s *Scene) Clone() *Scene {
	cp := *s
	cp.Objects = make([]*Primitive, len(s.Objects))
	for i, p := range s.Objects {
		cp.Objects[i] = p.Clone()
	}
	return &cp
}

// Replace подменяет содержимое сцены содержимым other, сохраняя указатель на s.
func (s *Scene) Replace(other *Scene) {
	*s = *other
}

// normalize держит фоновый примитив на индексе 0.
func (s *Scene) normalize() {
	for i, p := range s.Objects {
		if p.IsBackground {
			if i != 0 {
				copy(s.Objects[1:i+1], s.Objects[0:i])
				s.Objects[0] = p
			}
			return
		}
	}
}
