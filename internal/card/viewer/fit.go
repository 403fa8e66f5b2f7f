package viewer

import (
	"card-studio/internal/card/mapper"
	"card-studio/internal/card/models"
)

// BackgroundMargin: запас фона за краями экрана в единицах дизайна.
const BackgroundMargin = 50.0

// DefaultDamping уменьшает карту, чтобы вокруг оставались поля.
const DefaultDamping = 0.7

// Fit вписывает карту 250x600 в экран: масштаб по большей стороне с затуханием,
// по горизонтали по центру, сверху без отступа.
func Fit(vp models.Viewport, damping float64) models.Transform {
	if damping <= 0 {
		damping = DefaultDamping
	}
	scale := max(vp.Width/models.CardWidth, vp.Height/models.CardHeight) * damping
	if scale <= 0 {
		return models.IdentityTransform()
	}
	return models.Transform{
		Scale: scale,
		PanX:  (vp.Width - models.CardWidth*scale) / 2,
	}
}

// fullBleed растягивает фон на весь экран с запасом; координаты в единицах дизайна.
func fullBleed(s *models.Scene, t models.Transform, vp models.Viewport) {
	left := -t.PanX/t.Scale - BackgroundMargin
	top := -t.PanY/t.Scale - BackgroundMargin
	width := vp.Width/t.Scale + 2*BackgroundMargin
	height := vp.Height/t.Scale + 2*BackgroundMargin

	if bg := s.Background(); bg != nil {
		bg.Left, bg.Top, bg.Width, bg.Height = left, top, width, height
		return
	}
	s.SetBackground(mapper.BackgroundRect(s.BackgroundColor, left, top, width, height))
}
