package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"card-studio/internal/card/assets"
	"card-studio/internal/card/layout"
	"card-studio/internal/card/mapper"
	"card-studio/internal/card/models"
	"card-studio/internal/card/vcard"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSuperseded    = errors.New("superseded by a newer rebuild")
	ErrUnknownObject = errors.New("object not found")
	ErrNotText       = errors.New("object is not text")
)

const (
	ProfileRadius  = 50.0
	ProfileCenterY = 100.0

	SaveLabel = "Контакт хадгалах"

	textColor   = "#333333"
	contactText = "#000000"
	handleColor = "#dddddd"
)

// ============================================================
// Builder
// ============================================================

// Builder собирает сцену карты из профиля.
type Builder struct {
	engine *layout.Engine
	images assets.Source
	logger *zap.Logger
}

func New(engine *layout.Engine, images assets.Source, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		engine: engine,
		images: images,
		logger: logger.With(zap.String("component", "builder")),
	}
}

func (b *Builder) Engine() *layout.Engine { return b.engine }

// Build пересобирает scene по профилю. При ошибке или отмене ctx сцена не меняется.
func (b *Builder) Build(ctx context.Context, scene *models.Scene, profile models.CardProfile) error {
	fresh, err := b.BuildScene(ctx, profile)
	if err != nil {
		return err
	}
	scene.Replace(fresh)
	return nil
}

// BuildScene собирает новую сцену: иконки грузятся параллельно, неудачные пропускаются.
func (b *Builder) BuildScene(ctx context.Context, profile models.CardProfile) (*models.Scene, error) {
	profile = profile.WithDefaults()
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	icons, err := b.loadIcons(ctx, profile)
	if err != nil {
		return nil, err
	}

	var photo *models.Primitive
	if profile.ProfileImage != "" {
		photo, err = b.PhotoPrimitive(ctx, profile.ProfileImage)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			b.logger.Warn("profile photo skipped", zap.Error(err))
			profile.ProfileImage = ""
		}
	}

	s := models.NewScene(profile.BackgroundColor)
	mapper.InsertHelpers(s, mapper.HelperStyle{BackgroundColor: profile.BackgroundColor})

	b.addHeader(s, profile)
	b.addPersonalInfo(s, profile)
	b.addContacts(s, profile, icons)
	b.addSocial(s, profile, icons)
	b.addWebsite(s, profile)
	b.addSaveButton(s, profile)

	if _, err := b.engine.Place(s); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	if photo != nil {
		placePhoto(s, photo)
	}
	ApplyVCard(s, profile)
	return s, nil
}

// ============================================================
// Icons
// ============================================================

type iconSet struct {
	mu     sync.Mutex
	assets map[string]*assets.Asset
}

func (i *iconSet) get(ref string) *assets.Asset {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.assets[ref]
}

func (b *Builder) loadIcons(ctx context.Context, profile models.CardProfile) (*iconSet, error) {
	refs := map[string]struct{}{}
	if profile.UserInfo.Phone != "" {
		refs[PhoneIconURL] = struct{}{}
	}
	if profile.UserInfo.Email != "" {
		refs[EmailIconURL] = struct{}{}
	}
	if profile.UserInfo.Address != "" {
		refs[AddressIconURL] = struct{}{}
	}
	for _, link := range profile.SocialLinks {
		if strings.TrimSpace(link.URL) != "" {
			refs[SocialIconURL(link.Platform)] = struct{}{}
		}
	}

	set := &iconSet{assets: make(map[string]*assets.Asset, len(refs))}
	g, gctx := errgroup.WithContext(ctx)
	for ref := range refs {
		g.Go(func() error {
			a, err := b.images.Load(gctx, ref)
			if err != nil {
				b.logger.Warn("icon load failed", zap.String("ref", ref), zap.Error(err))
				return nil
			}
			set.mu.Lock()
			set.assets[ref] = a
			set.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// iconPrimitive масштабирует иконку до size по высоте, как scaleToHeight.
func iconPrimitive(base models.Base, ref string, a *assets.Asset, size float64, meta ...models.Metadata) *models.Primitive {
	scale := size / a.Height
	base.ScaleX, base.ScaleY = scale, scale
	return models.NewImage(base, ref, a.Width, a.Height, nil, meta...)
}

// ============================================================
// Blocks
// ============================================================

func (b *Builder) addHeader(s *models.Scene, profile models.CardProfile) {
	s.Add(
		models.NewEllipse(models.Base{
			Role:    models.RoleHeader,
			Left:    models.CardWidth / 2,
			Top:     -190,
			OriginX: models.OriginCenter,
			OriginY: models.OriginTop,
			Fill:    profile.BackgroundColor,
		}, models.CardWidth, 150),
		models.NewCircle(models.Base{
			Role:        models.RoleProfileFrame,
			Left:        models.CardWidth / 2,
			Top:         ProfileCenterY,
			OriginX:     models.OriginCenter,
			OriginY:     models.OriginCenter,
			Fill:        "#ffffff",
			Stroke:      "#000000",
			StrokeWidth: 1,
		}, ProfileRadius+3),
	)
}

func centered(role models.Role, fill string) models.Base {
	return models.Base{
		Role:    role,
		Left:    models.CardWidth / 2,
		OriginX: models.OriginCenter,
		Fill:    fill,
	}
}

func (b *Builder) addPersonalInfo(s *models.Scene, profile models.CardProfile) {
	cfg := b.engine.Config()
	info := profile.UserInfo

	name := centered(models.RoleName, textColor)
	name.Selectable, name.Evented = true, true
	s.Add(models.NewTextbox(name, strings.ToUpper(info.Name), models.TextStyle{
		FontSize: 18, FontFamily: "Times New Roman", FontWeight: "bold", TextAlign: "center", Width: cfg.TextWidth,
	}))

	if info.Profession != "" {
		prof := centered(models.RoleProfession, textColor)
		prof.Selectable, prof.Evented = true, true
		s.Add(models.NewTextbox(prof, strings.ToUpper(info.Profession), models.TextStyle{
			FontSize: 14, FontFamily: "Arial", TextAlign: "center", Width: cfg.TextWidth,
		}))
	}

	if info.CompanyName != "" {
		s.Add(
			models.NewLine(models.Base{
				Role:        models.RoleCompanyRule,
				Stroke:      profile.AccentColor,
				StrokeWidth: 2,
			}, cfg.RuleLeft, 0, cfg.RuleRight, 0),
			models.NewTextbox(centered(models.RoleCompany, textColor), info.CompanyName, models.TextStyle{
				FontSize: 14, FontFamily: "Arial", TextAlign: "center", Width: cfg.TextWidth,
			}),
		)
	}
}

type contactSpec struct {
	iconRole models.Role
	textRole models.Role
	iconURL  string
	value    string
	evented  bool
	meta     models.Metadata
}

func (b *Builder) addContacts(s *models.Scene, profile models.CardProfile, icons *iconSet) {
	cfg := b.engine.Config()
	info := profile.UserInfo

	rows := []contactSpec{
		{models.RolePhoneIcon, models.RolePhone, PhoneIconURL, info.Phone, true, models.Metadata{Phone: info.Phone}},
		{models.RoleEmailIcon, models.RoleEmail, EmailIconURL, info.Email, true, models.Metadata{Email: info.Email}},
		{models.RoleAddressIcon, models.RoleAddress, AddressIconURL, info.Address, false, models.Metadata{Address: info.Address}},
	}

	for _, row := range rows {
		if row.value == "" {
			continue
		}
		if a := icons.get(row.iconURL); a != nil {
			s.Add(iconPrimitive(models.Base{Role: row.iconRole, Left: cfg.ContactLeft}, row.iconURL, a, cfg.ContactIconSize))
		}
		s.Add(models.NewTextbox(models.Base{
			Role:    row.textRole,
			Left:    cfg.ContactTextLeft,
			Fill:    contactText,
			Evented: row.evented,
		}, row.value, models.TextStyle{
			FontSize: 17, FontFamily: "Arial", Width: cfg.ContactTextWidth(),
		}, row.meta))
	}
}

func (b *Builder) addSocial(s *models.Scene, profile models.CardProfile, icons *iconSet) {
	cfg := b.engine.Config()
	for _, link := range profile.SocialLinks {
		url := strings.TrimSpace(link.URL)
		if url == "" {
			continue
		}
		ref := SocialIconURL(link.Platform)
		a := icons.get(ref)
		if a == nil {
			continue
		}
		s.Add(
			models.NewCircle(models.Base{
				Role:    models.RoleSocialBadge,
				OriginX: models.OriginCenter,
				OriginY: models.OriginCenter,
				Fill:    profile.AccentColor,
			}, cfg.BadgeRadius()),
			iconPrimitive(models.Base{
				Role:    models.RoleSocialIcon,
				OriginX: models.OriginCenter,
				OriginY: models.OriginCenter,
				Evented: true,
			}, ref, a, cfg.SocialIconSize, models.Metadata{URL: url}),
		)
	}
}

func (b *Builder) addWebsite(s *models.Scene, profile models.CardProfile) {
	cfg := b.engine.Config()
	if website := profile.UserInfo.Website; website != "" {
		base := centered(models.RoleWebsite, contactText)
		base.Evented = true
		s.Add(models.NewTextbox(base, website, models.TextStyle{
			FontSize: 16, FontFamily: "Arial", TextAlign: "center", Width: cfg.TextWidth,
		}, models.Metadata{Website: website}))
	}
	if handle := profile.Handle(); handle != "" {
		s.Add(models.NewTextbox(centered(models.RoleHandle, handleColor), "@"+handle, models.TextStyle{
			FontSize: 14, FontFamily: "Arial", TextAlign: "center", Width: cfg.TextWidth,
		}))
	}
}

func (b *Builder) addSaveButton(s *models.Scene, profile models.CardProfile) {
	cfg := b.engine.Config()
	button := centered(models.RoleSaveButton, profile.BackgroundColor)
	button.Evented = true
	s.Add(
		models.NewRect(button, cfg.ButtonWidth, cfg.ButtonHeight, cfg.ButtonHeight/2),
		models.NewText(centered(models.RoleSaveLabel, contactText), SaveLabel, models.TextStyle{
			FontSize: 16, FontFamily: "Arial", FontWeight: "bold",
		}),
	)
}

// ApplyVCard пересчитывает vCard кнопки сохранения по текущему профилю.
func ApplyVCard(s *models.Scene, profile models.CardProfile) {
	button := s.ByRole(models.RoleSaveButton)
	if button == nil {
		return
	}
	button.VCard = vcard.Generate(vcard.FromProfile(profile))
}
