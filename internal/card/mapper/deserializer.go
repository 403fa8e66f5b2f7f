package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"card-studio/internal/card/models"

	"github.com/google/uuid"
)

var ErrMalformedScene = errors.New("malformed scene")

// LegacyImageSize: естественный размер растровой карточки старого формата.
// Если он неизвестен, картинка считается размером с карту.
type LegacyImageSize func(dataURI string) (float64, float64, bool)

// Deserialize восстанавливает сцену из canvasData и заново вставляет вспомогательные примитивы.
// Старые документы хранят вместо JSON data URI картинки: она вписывается в карту целиком.
func Deserialize(canvasData string, style HelperStyle, legacySize LegacyImageSize) (*models.Scene, error) {
	trimmed := strings.TrimSpace(canvasData)

	var doc Document
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		if strings.HasPrefix(trimmed, "data:image/") {
			return legacyScene(trimmed, style, legacySize)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedScene, err)
	}

	s := models.NewScene(style.BackgroundColor)
	for i, p := range doc.Objects {
		if p == nil {
			continue
		}
		if !known(p.Type) {
			return nil, fmt.Errorf("%w: object %d has unknown type %q", ErrMalformedScene, i, p.Type)
		}
		if p.IsBackground || p.Role == models.RoleCardBase {
			continue
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.ScaleX == 0 {
			p.ScaleX = 1
		}
		if p.ScaleY == 0 {
			p.ScaleY = 1
		}
		s.Objects = append(s.Objects, p)
	}

	InsertHelpers(s, style)
	return s, nil
}

func known(k models.Kind) bool {
	switch k {
	case models.KindRect, models.KindEllipse, models.KindCircle,
		models.KindTextbox, models.KindText, models.KindImage, models.KindLine:
		return true
	}
	return false
}

func legacyScene(dataURI string, style HelperStyle, legacySize LegacyImageSize) (*models.Scene, error) {
	if _, err := models.ParseDataURI(dataURI); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedScene, err)
	}

	w, h := models.CardWidth, models.CardHeight
	if legacySize != nil {
		if iw, ih, ok := legacySize(dataURI); ok && iw > 0 && ih > 0 {
			w, h = iw, ih
		}
	}

	scale := min(models.CardWidth/w, models.CardHeight/h)
	img := models.NewImage(models.Base{
		Role:    models.RoleImage,
		Left:    models.CardWidth / 2,
		Top:     models.CardHeight / 2,
		OriginX: models.OriginCenter,
		OriginY: models.OriginCenter,
		ScaleX:  scale,
		ScaleY:  scale,
	}, dataURI, w, h, nil)

	s := models.NewScene(style.BackgroundColor)
	s.Add(img)
	InsertHelpers(s, style)
	return s, nil
}
