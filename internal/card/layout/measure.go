package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"card-studio/internal/card/models"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// LineHeight: множитель межстрочного интервала для всех строк, кроме последней.
const LineHeight = 1.16

// ============================================================
// Measurer
// ============================================================

// Metrics: результат измерения текста.
type Metrics struct {
	Lines  []string
	Width  float64
	Height float64
}

// Measurer измеряет отрисованный текст с учётом шрифта, размера и ширины переноса.
type Measurer interface {
	Measure(text string, style models.TextStyle) Metrics
}

// FaceSource отдаёт font.Face для семейства, начертания и размера.
type FaceSource interface {
	Face(family, weight string, size float64) font.Face
}

// ============================================================
// Font measurer (gg + truetype)
// ============================================================

type faceKey struct {
	family string
	bold   bool
	size   float64
}

// FontMeasurer измеряет текст реальными метриками TrueType-шрифтов.
// Встроенные Go-шрифты используются для всех семейств, если в fontDir нет своих.
type FontMeasurer struct {
	mu       sync.Mutex
	regular  *truetype.Font
	bold     *truetype.Font
	families map[string]*truetype.Font
	faces    map[faceKey]font.Face
	dc       *gg.Context
}

// NewFontMeasurer загружает встроенные шрифты и, если задан, *.ttf из fontDir.
// Файл "Arial.ttf" регистрирует семейство "arial", а "Arial-Bold.ttf" его жирное начертание.
func NewFontMeasurer(fontDir string) (*FontMeasurer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse go regular: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse go bold: %w", err)
	}

	m := &FontMeasurer{
		regular:  regular,
		bold:     bold,
		families: make(map[string]*truetype.Font),
		faces:    make(map[faceKey]font.Face),
		dc:       gg.NewContext(1, 1),
	}

	if fontDir != "" {
		if err := m.loadDir(fontDir); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *FontMeasurer) loadDir(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.ttf"))
	if err != nil {
		return fmt.Errorf("glob fonts: %w", err)
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read font %s: %w", path, err)
		}
		f, err := truetype.Parse(data)
		if err != nil {
			return fmt.Errorf("parse font %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		m.families[strings.ToLower(name)] = f
	}
	return nil
}

func isBold(weight string) bool {
	switch strings.ToLower(weight) {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	}
	return false
}

// Face реализует FaceSource.
func (m *FontMeasurer) Face(family, weight string, size float64) font.Face {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.face(family, weight, size)
}

func (m *FontMeasurer) face(family, weight string, size float64) font.Face {
	if size <= 0 {
		size = 16
	}
	key := faceKey{family: strings.ToLower(family), bold: isBold(weight), size: size}
	if face, ok := m.faces[key]; ok {
		return face
	}

	f := m.regular
	if key.bold {
		f = m.bold
	}
	if custom, ok := m.families[key.family]; ok && !key.bold {
		f = custom
	}
	if custom, ok := m.families[key.family+"-bold"]; ok && key.bold {
		f = custom
	}

	face := truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	m.faces[key] = face
	return face
}

// Measure переносит текст по графемам в пределах style.Width (при 0 без переноса)
// и возвращает строки и габариты блока.
func (m *FontMeasurer) Measure(text string, style models.TextStyle) Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	face := m.face(style.FontFamily, style.FontWeight, style.FontSize)
	m.dc.SetFontFace(face)

	measure := func(s string) float64 {
		w, _ := m.dc.MeasureString(s)
		return w
	}

	lines := wrapLines(text, style.Width, measure)

	var width float64
	for _, line := range lines {
		width = max(width, measure(line))
	}

	met := face.Metrics()
	box := float64(met.Ascent+met.Descent) / 64

	return Metrics{
		Lines:  lines,
		Width:  width,
		Height: blockHeight(box, len(lines)),
	}
}

// blockHeight: все строки, кроме последней, занимают box*LineHeight.
func blockHeight(box float64, lines int) float64 {
	if lines < 1 {
		lines = 1
	}
	return box * (1 + float64(lines-1)*LineHeight)
}
