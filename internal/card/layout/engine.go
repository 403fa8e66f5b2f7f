package layout

import (
	"errors"
	"fmt"
	"strings"

	"card-studio/internal/card/models"
)

var (
	ErrMissingBlock = errors.New("layout: required block missing")
	ErrUnknownID    = errors.New("layout: primitive not found")
)

// ============================================================
// Config
// ============================================================

// Config: вертикальный ритм и размеры блоков карты.
type Config struct {
	CardWidth float64
	TextWidth float64

	NameTop         float64
	NameGap         float64
	CompanyGap      float64
	CompanyLabelGap float64
	RuleLeft        float64
	RuleRight       float64

	ContactGap      float64
	RowGap          float64
	ContactLeft     float64
	ContactIconSize float64
	ContactTextLeft float64

	SocialGap          float64
	SocialIconSize     float64
	SocialSpacing      float64
	SocialBadgePadding float64

	WebsiteGap float64
	HandleGap  float64

	ButtonGap    float64
	ButtonWidth  float64
	ButtonHeight float64
}

func DefaultConfig() Config {
	return Config{
		CardWidth: models.CardWidth,
		TextWidth: 200,

		NameTop:         200,
		NameGap:         10,
		CompanyGap:      10,
		CompanyLabelGap: 8,
		RuleLeft:        30,
		RuleRight:       220,

		ContactGap:      20,
		RowGap:          10,
		ContactLeft:     20,
		ContactIconSize: 20,
		ContactTextLeft: 50,

		SocialGap:          20,
		SocialIconSize:     30,
		SocialSpacing:      30,
		SocialBadgePadding: 5,

		WebsiteGap: 20,
		HandleGap:  5,

		ButtonGap:    30,
		ButtonWidth:  160,
		ButtonHeight: 40,
	}
}

// ContactTextWidth: ширина текста строки контакта до правого поля.
func (c Config) ContactTextWidth() float64 {
	return c.CardWidth - c.ContactTextLeft - c.ContactLeft
}

// BadgeRadius: радиус круглой подложки соц. иконки.
func (c Config) BadgeRadius() float64 {
	return c.SocialIconSize/2 + c.SocialBadgePadding
}

// ============================================================
// Position cursor
// ============================================================

// PositionCursor хранит нижние границы уже размещённых блоков.
// Отсутствующий блок имеет нулевую высоту: его bottom равен bottom предыдущего.
type PositionCursor struct {
	NameBottom        float64 `json:"nameBottom"`
	ProfessionBottom  float64 `json:"professionBottom"`
	CompanyBottom     float64 `json:"companyBottom"`
	ContactInfoBottom float64 `json:"contactInfoBottom"`
	SocialIconsBottom float64 `json:"socialIconsBottom"`
	WebsiteInfoBottom float64 `json:"websiteInfoBottom"`
	ButtonBottom      float64 `json:"buttonBottom"`
}

type block int

const (
	blockName block = iota
	blockProfession
	blockCompany
	blockContacts
	blockSocial
	blockWebsite
	blockButton
	blockCount
)

func blockOf(role models.Role) block {
	switch role {
	case models.RoleProfession:
		return blockProfession
	case models.RoleCompanyRule, models.RoleCompany:
		return blockCompany
	case models.RolePhone, models.RolePhoneIcon,
		models.RoleEmail, models.RoleEmailIcon,
		models.RoleAddress, models.RoleAddressIcon:
		return blockContacts
	case models.RoleSocialBadge, models.RoleSocialIcon:
		return blockSocial
	case models.RoleWebsite, models.RoleHandle:
		return blockWebsite
	case models.RoleSaveButton, models.RoleSaveLabel:
		return blockButton
	default:
		return blockName
	}
}

// ============================================================
// Engine
// ============================================================

// Engine раскладывает блоки карты сверху вниз по измеренным высотам.
type Engine struct {
	cfg      Config
	measurer Measurer
}

func NewEngine(cfg Config, measurer Measurer) *Engine {
	return &Engine{cfg: cfg, measurer: measurer}
}

func (e *Engine) Config() Config { return e.cfg }

// Measure выставляет высоту (и ширину для однострочного текста) текстового примитива.
func (e *Engine) Measure(p *models.Primitive) Metrics {
	m := e.measurer.Measure(p.Text, p.Style())
	p.Height = m.Height
	if p.Type == models.KindText {
		p.Width = m.Width
	}
	return m
}

// Place выполняет полный проход раскладки.
func (e *Engine) Place(s *models.Scene) (PositionCursor, error) {
	return e.run(s, blockName, PositionCursor{})
}

// Reflow перемеряет изменённый примитив и сдвигает всё ниже него.
// Блоки выше берутся из текущей геометрии. При ошибке сцена не меняется.
func (e *Engine) Reflow(s *models.Scene, editedID string) (PositionCursor, error) {
	edited := s.Find(editedID)
	if edited == nil {
		return PositionCursor{}, fmt.Errorf("%w: %s", ErrUnknownID, editedID)
	}
	start := blockOf(edited.Role)
	return e.run(s, start, e.derive(s, start))
}

// run раскладывает копию сцены и только при успехе переносит геометрию в оригинал.
func (e *Engine) run(s *models.Scene, start block, cur PositionCursor) (PositionCursor, error) {
	work := s.Clone()

	steps := [blockCount]func(*models.Scene, *PositionCursor) error{
		blockName:       e.placeName,
		blockProfession: e.placeProfession,
		blockCompany:    e.placeCompany,
		blockContacts:   e.placeContacts,
		blockSocial:     e.placeSocial,
		blockWebsite:    e.placeWebsite,
		blockButton:     e.placeButton,
	}
	for b := start; b < blockCount; b++ {
		if err := steps[b](work, &cur); err != nil {
			return PositionCursor{}, err
		}
	}

	for i, p := range s.Objects {
		*p = *work.Objects[i]
	}
	return cur, nil
}

// derive восстанавливает курсор для блоков выше start по текущим позициям.
func (e *Engine) derive(s *models.Scene, start block) PositionCursor {
	var cur PositionCursor
	bottom := func(prev float64, roles ...models.Role) float64 {
		found := false
		var b float64
		for _, role := range roles {
			for _, p := range s.AllByRole(role) {
				if p.Hidden || (p.Type.IsText() && !present(p)) {
					continue
				}
				found = true
				b = max(b, p.Bounds().Bottom())
			}
		}
		if !found {
			return prev
		}
		return b
	}

	if start > blockName {
		cur.NameBottom = bottom(e.cfg.NameTop, models.RoleName)
	}
	if start > blockProfession {
		cur.ProfessionBottom = bottom(cur.NameBottom, models.RoleProfession)
	}
	if start > blockCompany {
		cur.CompanyBottom = bottom(cur.ProfessionBottom, models.RoleCompany)
	}
	if start > blockContacts {
		cur.ContactInfoBottom = bottom(cur.CompanyBottom,
			models.RolePhone, models.RolePhoneIcon,
			models.RoleEmail, models.RoleEmailIcon,
			models.RoleAddress, models.RoleAddressIcon)
	}
	if start > blockSocial {
		cur.SocialIconsBottom = bottom(cur.ContactInfoBottom, models.RoleSocialBadge)
	}
	if start > blockWebsite {
		cur.WebsiteInfoBottom = bottom(cur.SocialIconsBottom, models.RoleWebsite, models.RoleHandle)
	}
	return cur
}

// ============================================================
// Blocks
// ============================================================

func (e *Engine) placeName(s *models.Scene, cur *PositionCursor) error {
	name := s.ByRole(models.RoleName)
	if name == nil {
		return fmt.Errorf("%w: name", ErrMissingBlock)
	}
	name.Top = e.cfg.NameTop
	e.Measure(name)
	cur.NameBottom = name.Bounds().Bottom()
	return nil
}

func (e *Engine) placeProfession(s *models.Scene, cur *PositionCursor) error {
	cur.ProfessionBottom = cur.NameBottom
	prof := s.ByRole(models.RoleProfession)
	if !present(prof) {
		setHidden(true, prof)
		return nil
	}
	setHidden(false, prof)
	e.Measure(prof)
	prof.MoveTop(cur.NameBottom + e.cfg.NameGap)
	cur.ProfessionBottom = prof.Bounds().Bottom()
	return nil
}

func (e *Engine) placeCompany(s *models.Scene, cur *PositionCursor) error {
	cur.CompanyBottom = cur.ProfessionBottom
	label := s.ByRole(models.RoleCompany)
	rule := s.ByRole(models.RoleCompanyRule)
	if !present(label) {
		setHidden(true, label, rule)
		return nil
	}
	setHidden(false, label, rule)

	ruleY := cur.ProfessionBottom + e.cfg.CompanyGap
	if rule != nil {
		rule.X1, rule.X2 = e.cfg.RuleLeft, e.cfg.RuleRight
		rule.Y1, rule.Y2 = ruleY, ruleY
		rule.Left, rule.Top = e.cfg.RuleLeft, ruleY
	}

	e.Measure(label)
	label.MoveTop(ruleY + e.cfg.CompanyLabelGap)
	cur.CompanyBottom = label.Bounds().Bottom()
	return nil
}

type contactRow struct {
	icon models.Role
	text models.Role
}

var contactRows = []contactRow{
	{icon: models.RolePhoneIcon, text: models.RolePhone},
	{icon: models.RoleEmailIcon, text: models.RoleEmail},
	{icon: models.RoleAddressIcon, text: models.RoleAddress},
}

func (e *Engine) placeContacts(s *models.Scene, cur *PositionCursor) error {
	cur.ContactInfoBottom = cur.CompanyBottom
	y := cur.CompanyBottom + e.cfg.ContactGap
	placed := false

	for _, row := range contactRows {
		text := s.ByRole(row.text)
		icon := s.ByRole(row.icon)
		if !present(text) {
			setHidden(true, text, icon)
			continue
		}
		setHidden(false, text, icon)
		if placed {
			y += e.cfg.RowGap
		}

		e.Measure(text)
		rowHeight := text.Bounds().Height
		if icon != nil {
			rowHeight = max(rowHeight, icon.Bounds().Height)
			icon.MoveTop(y + (rowHeight-icon.Bounds().Height)/2)
		}
		text.MoveTop(y + (rowHeight-text.Bounds().Height)/2)

		y += rowHeight
		cur.ContactInfoBottom = y
		placed = true
	}
	return nil
}

func (e *Engine) placeSocial(s *models.Scene, cur *PositionCursor) error {
	cur.SocialIconsBottom = cur.ContactInfoBottom
	icons := s.AllByRole(models.RoleSocialIcon)
	badges := s.AllByRole(models.RoleSocialBadge)
	if len(icons) == 0 && len(badges) == 0 {
		return nil
	}

	n := max(len(icons), len(badges))
	size, spacing := e.cfg.SocialIconSize, e.cfg.SocialSpacing
	total := float64(n)*(size+spacing) - spacing
	startX := (e.cfg.CardWidth - total) / 2
	radius := e.cfg.BadgeRadius()
	top := cur.ContactInfoBottom + e.cfg.SocialGap
	centerY := top + radius

	for i := 0; i < n; i++ {
		cx := startX + float64(i)*(size+spacing) + size/2
		if i < len(badges) {
			centerAt(badges[i], cx, centerY)
		}
		if i < len(icons) {
			centerAt(icons[i], cx, centerY)
		}
	}

	cur.SocialIconsBottom = top + 2*radius
	return nil
}

func centerAt(p *models.Primitive, cx, cy float64) {
	p.OriginX, p.OriginY = models.OriginCenter, models.OriginCenter
	p.Left, p.Top = cx, cy
	if p.ClipPath != nil {
		p.ClipPath.Left, p.ClipPath.Top = cx, cy
	}
}

func (e *Engine) placeWebsite(s *models.Scene, cur *PositionCursor) error {
	cur.WebsiteInfoBottom = cur.SocialIconsBottom
	website := s.ByRole(models.RoleWebsite)
	handle := s.ByRole(models.RoleHandle)
	y := cur.SocialIconsBottom + e.cfg.WebsiteGap

	if present(website) {
		setHidden(false, website)
		e.Measure(website)
		website.MoveTop(y)
		y = website.Bounds().Bottom()
		cur.WebsiteInfoBottom = y
		y += e.cfg.HandleGap
	} else {
		setHidden(true, website)
	}
	if present(handle) {
		setHidden(false, handle)
		e.Measure(handle)
		handle.MoveTop(y)
		cur.WebsiteInfoBottom = handle.Bounds().Bottom()
	} else {
		setHidden(true, handle)
	}
	return nil
}

func (e *Engine) placeButton(s *models.Scene, cur *PositionCursor) error {
	cur.ButtonBottom = cur.WebsiteInfoBottom
	button := s.ByRole(models.RoleSaveButton)
	if button == nil {
		return nil
	}
	top := cur.WebsiteInfoBottom + e.cfg.ButtonGap
	button.MoveTop(top)
	cur.ButtonBottom = button.Bounds().Bottom()

	if label := s.ByRole(models.RoleSaveLabel); label != nil {
		e.Measure(label)
		label.OriginY = models.OriginCenter
		label.Top = top + button.Bounds().Height/2
	}
	return nil
}

// present: текстовый блок участвует в раскладке, только если в нём есть текст.
func present(p *models.Primitive) bool {
	return p != nil && strings.TrimSpace(p.Text) != ""
}

// setHidden прячет примитивы пустого блока или возвращает их обратно.
func setHidden(hidden bool, items ...*models.Primitive) {
	for _, p := range items {
		if p != nil {
			p.Hidden = hidden
		}
	}
}
