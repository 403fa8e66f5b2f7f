package mapper

import (
	"card-studio/internal/card/models"
)

// ============================================================
// Helper primitives
// ============================================================

// CardBaseColor: цвет белой подложки карты.
const CardBaseColor = "#ffffff"

// HelperStyle задаёт вспомогательные примитивы, которые не попадают в JSON.
type HelperStyle struct {
	BackgroundColor string
}

// BackgroundRect строит фоновый прямоугольник сцены (всегда индекс 0, не экспортируется).
func BackgroundRect(color string, left, top, width, height float64) *models.Primitive {
	return models.NewRect(models.Base{
		Role:              models.RoleBackground,
		Left:              left,
		Top:               top,
		Fill:              color,
		ExcludeFromExport: true,
		IsBackground:      true,
	}, width, height, 0)
}

// CardBase строит белый силуэт карты под всеми элементами.
func CardBase() *models.Primitive {
	return models.NewRect(models.Base{
		Role:              models.RoleCardBase,
		Fill:              CardBaseColor,
		ExcludeFromExport: true,
	}, models.CardWidth, models.CardHeight, 0)
}

// InsertHelpers ставит фон на индекс 0 и силуэт сразу над ним, заменяя прежние.
func InsertHelpers(s *models.Scene, style HelperStyle) {
	s.RemoveRole(models.RoleCardBase)
	s.BackgroundColor = style.BackgroundColor
	s.SetBackground(BackgroundRect(style.BackgroundColor, 0, 0, s.Width, s.Height))
	s.Insert(1, CardBase())
}
