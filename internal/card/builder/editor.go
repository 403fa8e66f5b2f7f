package builder

import (
	"context"
	"fmt"
	"sync"

	"card-studio/internal/card/layout"
	"card-studio/internal/card/mapper"
	"card-studio/internal/card/models"
)

// ============================================================
// Editor
// ============================================================

// Editor владеет одной живой сценой редактора. Все мутации идут под mu.
type Editor struct {
	mu      sync.Mutex
	builder *Builder
	scene   *models.Scene
	profile models.CardProfile

	// generation растёт при каждой применённой пересборке.
	generation uint64
	requested  uint64
	applied    uint64
}

func NewEditor(b *Builder) *Editor {
	profile := models.CardProfile{}.WithDefaults()
	scene := models.NewScene(profile.BackgroundColor)
	mapper.InsertHelpers(scene, mapper.HelperStyle{BackgroundColor: profile.BackgroundColor})
	return &Editor{builder: b, scene: scene, profile: profile}
}

// Rebuild пересобирает сцену по профилю. Сборка идёт без блокировки;
// если за это время применилась более поздняя пересборка, результат отбрасывается.
func (e *Editor) Rebuild(ctx context.Context, profile models.CardProfile) error {
	e.mu.Lock()
	e.requested++
	seq := e.requested
	e.mu.Unlock()

	fresh, err := e.builder.BuildScene(ctx, profile)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq < e.applied {
		return ErrSuperseded
	}
	e.applied = seq
	e.generation++
	e.scene.Replace(fresh)
	e.profile = profile.WithDefaults()
	e.profile.SocialLinks = append([]models.SocialLink(nil), profile.SocialLinks...)
	return nil
}

// EditText меняет текст примитива и перекладывает блоки ниже него.
// При ошибке раскладки текст возвращается к прежнему.
func (e *Editor) EditText(id, text string) (layout.PositionCursor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.scene.Find(id)
	if p == nil {
		return layout.PositionCursor{}, fmt.Errorf("%w: %s", ErrUnknownObject, id)
	}
	if !p.Type.IsText() {
		return layout.PositionCursor{}, fmt.Errorf("%w: %s", ErrNotText, id)
	}

	old := p.Text
	p.Text = text
	cur, err := e.builder.engine.Reflow(e.scene, id)
	if err != nil {
		p.Text = old
		return layout.PositionCursor{}, err
	}

	if e.syncProfile(p) {
		ApplyVCard(e.scene, e.profile)
	}
	return cur, nil
}

// syncProfile переносит правку текста в профиль и метаданные. true значит, что vCard устарел.
func (e *Editor) syncProfile(p *models.Primitive) bool {
	info := &e.profile.UserInfo
	switch p.Role {
	case models.RoleName:
		info.Name = p.Text
	case models.RoleProfession:
		info.Profession = p.Text
	case models.RoleCompany:
		info.CompanyName = p.Text
	case models.RolePhone:
		info.Phone = p.Text
		p.Phone = p.Text
	case models.RoleEmail:
		info.Email = p.Text
		p.Email = p.Text
	case models.RoleAddress:
		info.Address = p.Text
		p.Address = p.Text
	case models.RoleWebsite:
		info.Website = p.Text
		p.Website = p.Text
	default:
		return false
	}
	return true
}

// PendingReflow: отложенная раскладка, привязанная к поколению сцены.
type PendingReflow struct {
	editor     *Editor
	id         string
	generation uint64
}

// ScheduleReflow запоминает текущее поколение; Apply после пересборки вернёт ErrSuperseded.
func (e *Editor) ScheduleReflow(id string) *PendingReflow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &PendingReflow{editor: e, id: id, generation: e.generation}
}

func (r *PendingReflow) Apply() (layout.PositionCursor, error) {
	e := r.editor
	e.mu.Lock()
	defer e.mu.Unlock()

	if r.generation != e.generation {
		return layout.PositionCursor{}, ErrSuperseded
	}
	if e.scene.Find(r.id) == nil {
		return layout.PositionCursor{}, fmt.Errorf("%w: %s", ErrUnknownObject, r.id)
	}
	return e.builder.engine.Reflow(e.scene, r.id)
}

// SetBackground перекрашивает фон, шапку и кнопку сохранения.
func (e *Editor) SetBackground(color string) error {
	if color == "" {
		return fmt.Errorf("empty color")
	}
	if err := (models.CardProfile{BackgroundColor: color}).Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.profile.BackgroundColor = color
	e.scene.SetBackgroundColor(color)
	for _, role := range []models.Role{models.RoleHeader, models.RoleSaveButton} {
		if p := e.scene.ByRole(role); p != nil {
			p.Fill = color
		}
	}
	return nil
}

// SetPhoto декодирует фото вне блокировки и ставит его в сцену.
func (e *Editor) SetPhoto(ctx context.Context, dataURI string) error {
	photo, err := e.builder.PhotoPrimitive(ctx, dataURI)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	placePhoto(e.scene, photo)
	e.profile.ProfileImage = dataURI
	ApplyVCard(e.scene, e.profile)
	return nil
}

func (e *Editor) RemovePhoto() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := e.builder.RemovePhoto(e.scene, e.profile)
	e.profile.ProfileImage = ""
	return removed
}

// Snapshot возвращает копию сцены и профиля.
func (e *Editor) Snapshot() (*models.Scene, models.CardProfile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	profile := e.profile
	profile.SocialLinks = append([]models.SocialLink(nil), e.profile.SocialLinks...)
	return e.scene.Clone(), profile
}

// Serialize отдаёт JSON сцены без вспомогательных примитивов.
func (e *Editor) Serialize() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return mapper.Serialize(e.scene)
}
