package builder

import (
	"context"
	"fmt"

	"card-studio/internal/card/models"
)

// ============================================================
// Profile photo
// ============================================================

// PhotoPrimitive загружает фото и вписывает его в круг профиля по высоте.
func (b *Builder) PhotoPrimitive(ctx context.Context, dataURI string) (*models.Primitive, error) {
	if _, err := models.ParseDataURI(dataURI); err != nil {
		return nil, fmt.Errorf("profile image: %w", err)
	}
	a, err := b.images.Load(ctx, dataURI)
	if err != nil {
		return nil, fmt.Errorf("profile image: %w", err)
	}
	if a.Height <= 0 {
		return nil, fmt.Errorf("profile image: empty size")
	}

	scale := 2 * ProfileRadius / a.Height
	return models.NewImage(models.Base{
		Role:    models.RolePhoto,
		Left:    models.CardWidth / 2,
		Top:     ProfileCenterY,
		OriginX: models.OriginCenter,
		OriginY: models.OriginCenter,
		ScaleX:  scale,
		ScaleY:  scale,
	}, dataURI, a.Width, a.Height, &models.ClipShape{
		Left:   models.CardWidth / 2,
		Top:    ProfileCenterY,
		Radius: ProfileRadius,
	}), nil
}

// SetPhoto ставит фото профиля и пересчитывает vCard кнопки сохранения.
func (b *Builder) SetPhoto(ctx context.Context, s *models.Scene, profile models.CardProfile, dataURI string) error {
	photo, err := b.PhotoPrimitive(ctx, dataURI)
	if err != nil {
		return err
	}
	placePhoto(s, photo)
	profile.ProfileImage = dataURI
	ApplyVCard(s, profile.WithDefaults())
	return nil
}

// RemovePhoto убирает фото и PHOTO из vCard. Возвращает false, если фото не было.
func (b *Builder) RemovePhoto(s *models.Scene, profile models.CardProfile) bool {
	removed := s.RemoveRole(models.RolePhoto) > 0
	profile.ProfileImage = ""
	ApplyVCard(s, profile.WithDefaults())
	return removed
}

func placePhoto(s *models.Scene, photo *models.Primitive) {
	s.RemoveRole(models.RolePhoto)
	s.Add(photo)
	s.BringToFront(photo.ID)
}
