package mapper

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"math"
	"strconv"
	"regexp"
	"strings"

	"card-studio/internal/card/layout"
	"card-studio/internal/card/models"

	svg "github.com/ajstarks/svgo"
)

// svgo работает в целых координатах: дизайн рисуется в десятых долях единицы.
const svgPrecision = 10

// ============================================================
// SVG Renderer
// ============================================================

type SVGRenderer struct {
	measurer layout.Measurer
}

func NewSVGRenderer(measurer layout.Measurer) *SVGRenderer {
	return &SVGRenderer{measurer: measurer}
}

// Render рисует сцену в SVG размером с viewport с учётом масштаба и сдвига.
func (r *SVGRenderer) Render(w io.Writer, scene *models.Scene, t models.Transform, vp models.Viewport) error {
	if scene == nil {
		return fmt.Errorf("scene is nil")
	}
	if t.Scale <= 0 {
		return fmt.Errorf("invalid scale %v", t.Scale)
	}

	canvas := svg.New(w)
	canvas.Start(int(math.Ceil(vp.Width)), int(math.Ceil(vp.Height)))

	r.renderClips(canvas, scene)

	canvas.Gtransform(fmt.Sprintf("translate(%s %s) scale(%s)",
		formatFloat(t.PanX), formatFloat(t.PanY), formatFloat(t.Scale/svgPrecision)))
	for _, p := range scene.Objects {
		r.renderPrimitive(canvas, p)
	}
	canvas.Gend()

	canvas.End()
	return nil
}

// RenderString рендерит в строку.
func (r *SVGRenderer) RenderString(scene *models.Scene, t models.Transform, vp models.Viewport) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, scene, t, vp); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *SVGRenderer) renderClips(canvas *svg.SVG, scene *models.Scene) {
	var clipped []*models.Primitive
	for _, p := range scene.Objects {
		if p.ClipPath != nil && !p.Hidden {
			clipped = append(clipped, p)
		}
	}
	if len(clipped) == 0 {
		return
	}

	canvas.Def()
	for _, p := range clipped {
		canvas.ClipPath(`id="` + clipID(p) + `"`)
		canvas.Circle(u(p.ClipPath.Left), u(p.ClipPath.Top), u(p.ClipPath.Radius))
		canvas.ClipEnd()
	}
	canvas.DefEnd()
}

func (r *SVGRenderer) renderPrimitive(canvas *svg.SVG, p *models.Primitive) {
	if p.Hidden {
		return
	}
	b := p.Bounds()

	switch p.Type {
	case models.KindRect:
		if p.RX > 0 {
			canvas.Roundrect(u(b.X), u(b.Y), u(b.Width), u(b.Height), u(p.RX), u(p.RY), shapeStyle(p))
			return
		}
		canvas.Rect(u(b.X), u(b.Y), u(b.Width), u(b.Height), shapeStyle(p))
	case models.KindEllipse:
		canvas.Ellipse(u(b.X+b.Width/2), u(b.Y+b.Height/2), u(b.Width/2), u(b.Height/2), shapeStyle(p))
	case models.KindCircle:
		canvas.Circle(u(b.X+b.Width/2), u(b.Y+b.Height/2), u(b.Width/2), shapeStyle(p))
	case models.KindLine:
		canvas.Line(u(p.X1), u(p.Y1), u(p.X2), u(p.Y2),
			fmt.Sprintf("stroke:%s;stroke-width:%s", svgColor(p.Stroke, "#000000"), formatFloat(p.StrokeWidth*svgPrecision)))
	case models.KindImage:
		src := html.EscapeString(p.Src)
		if p.ClipPath != nil {
			canvas.Image(u(b.X), u(b.Y), u(b.Width), u(b.Height), src, `clip-path="url(#`+clipID(p)+`)"`)
			return
		}
		canvas.Image(u(b.X), u(b.Y), u(b.Width), u(b.Height), src)
	case models.KindText, models.KindTextbox:
		r.renderText(canvas, p, b)
	}
}

func (r *SVGRenderer) renderText(canvas *svg.SVG, p *models.Primitive, b models.Rect) {
	m := r.measurer.Measure(p.Text, p.Style())
	if len(m.Lines) == 0 {
		return
	}
	box := m.Height / (1 + float64(len(m.Lines)-1)*layout.LineHeight)

	x, anchor := b.X, "start"
	switch p.TextAlign {
	case "center":
		x, anchor = b.X+b.Width/2, "middle"
	case "right":
		x, anchor = b.X+b.Width, "end"
	}

	weight := p.FontWeight
	if weight == "" {
		weight = "normal"
	}
	if !fontWeight.MatchString(weight) {
		weight = "normal"
	}
	style := fmt.Sprintf("font-family:%s;font-size:%spx;font-weight:%s;fill:%s;text-anchor:%s",
		fontFamily(p.FontFamily), formatFloat(p.FontSize*svgPrecision), weight, svgColor(p.Fill, "#000000"), anchor)

	for i, line := range m.Lines {
		baseline := b.Y + float64(i)*box*layout.LineHeight + box*0.8
		canvas.Text(u(x), u(baseline), line, style)
	}
}

func shapeStyle(p *models.Primitive) string {
	style := "fill:" + svgColor(p.Fill, "none")
	if p.Stroke != "" && p.StrokeWidth > 0 {
		style += fmt.Sprintf(";stroke:%s;stroke-width:%s", svgColor(p.Stroke, "none"), formatFloat(p.StrokeWidth*svgPrecision))
	}
	return style
}

// ============================================================
// Sanitizing
// ============================================================

// svgo пишет style как есть, поэтому в него попадают только проверенные значения.
var (
	fontWeight = regexp.MustCompile(`^(?:normal|bold|bolder|lighter|[1-9]00)$`)
	fontName   = regexp.MustCompile(`^[\p{L}\p{N} ,_-]+$`)
)

// svgColor пропускает #hex и "none", остальное заменяет на fallback.
func svgColor(c, fallback string) string {
	if c == "none" || models.IsHexColor(c) {
		return c
	}
	return fallback
}

func fontFamily(f string) string {
	f = strings.TrimSpace(f)
	if !fontName.MatchString(f) {
		return "sans-serif"
	}
	return f
}

func clipID(p *models.Primitive) string {
	return "clip-" + p.ID
}

// u переводит единицы дизайна в целые десятые доли.
func u(v float64) int {
	return int(math.Round(v * svgPrecision))
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}
