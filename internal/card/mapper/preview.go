package mapper

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"math"
	"sync"

	"card-studio/internal/card/assets"
	"card-studio/internal/card/layout"
	"card-studio/internal/card/models"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// Fonts: измерение текста и шрифты для растеризации.
type Fonts interface {
	layout.Measurer
	layout.FaceSource
}

// ============================================================
// PNG Preview
// ============================================================

// Preview растеризует сцену в PNG (previewImage документа) в масштабе 1:1.
type Preview struct {
	mu     sync.Mutex
	fonts  Fonts
	images assets.Source
	logger *zap.Logger
}

// NewPreview ожидает собственный экземпляр Fonts: faces не разделяются с другими горутинами.
func NewPreview(fonts Fonts, images assets.Source, logger *zap.Logger) *Preview {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preview{fonts: fonts, images: images, logger: logger}
}

// Render возвращает PNG сцены.
func (p *Preview) Render(ctx context.Context, scene *models.Scene) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dc := gg.NewContext(int(scene.Width), int(scene.Height))
	for _, prim := range scene.Objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.draw(ctx, dc, prim)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderDataURI возвращает PNG сцены в виде data URI.
func (p *Preview) RenderDataURI(ctx context.Context, scene *models.Scene) (string, error) {
	data, err := p.Render(ctx, scene)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (p *Preview) draw(ctx context.Context, dc *gg.Context, prim *models.Primitive) {
	if prim.Hidden {
		return
	}
	b := prim.Bounds()

	switch prim.Type {
	case models.KindRect:
		if prim.RX > 0 {
			dc.DrawRoundedRectangle(b.X, b.Y, b.Width, b.Height, prim.RX)
		} else {
			dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
		}
		fillStroke(dc, prim)
	case models.KindEllipse:
		dc.DrawEllipse(b.X+b.Width/2, b.Y+b.Height/2, b.Width/2, b.Height/2)
		fillStroke(dc, prim)
	case models.KindCircle:
		dc.DrawCircle(b.X+b.Width/2, b.Y+b.Height/2, b.Width/2)
		fillStroke(dc, prim)
	case models.KindLine:
		dc.DrawLine(prim.X1, prim.Y1, prim.X2, prim.Y2)
		dc.SetHexColor(prim.Stroke)
		dc.SetLineWidth(prim.StrokeWidth)
		dc.Stroke()
	case models.KindText, models.KindTextbox:
		p.drawText(dc, prim, b)
	case models.KindImage:
		p.drawImage(ctx, dc, prim, b)
	}
}

func fillStroke(dc *gg.Context, prim *models.Primitive) {
	if prim.Fill != "" {
		dc.SetHexColor(prim.Fill)
		if prim.Stroke != "" && prim.StrokeWidth > 0 {
			dc.FillPreserve()
		} else {
			dc.Fill()
		}
	}
	if prim.Stroke != "" && prim.StrokeWidth > 0 {
		dc.SetHexColor(prim.Stroke)
		dc.SetLineWidth(prim.StrokeWidth)
		dc.Stroke()
	}
	dc.ClearPath()
}

func (p *Preview) drawText(dc *gg.Context, prim *models.Primitive, b models.Rect) {
	m := p.fonts.Measure(prim.Text, prim.Style())
	if len(m.Lines) == 0 {
		return
	}
	box := m.Height / (1 + float64(len(m.Lines)-1)*layout.LineHeight)

	dc.SetFontFace(p.fonts.Face(prim.FontFamily, prim.FontWeight, prim.FontSize))
	fill := prim.Fill
	if fill == "" {
		fill = "#000000"
	}
	dc.SetHexColor(fill)

	x, ax := b.X, 0.0
	switch prim.TextAlign {
	case "center":
		x, ax = b.X+b.Width/2, 0.5
	case "right":
		x, ax = b.X+b.Width, 1
	}
	for i, line := range m.Lines {
		y := b.Y + float64(i)*box*layout.LineHeight
		dc.DrawStringAnchored(line, x, y, ax, 0.8)
	}
}

func (p *Preview) drawImage(ctx context.Context, dc *gg.Context, prim *models.Primitive, b models.Rect) {
	if p.images == nil || prim.Src == "" {
		return
	}
	asset, err := p.images.Load(ctx, prim.Src)
	if err != nil {
		p.logger.Warn("preview image skipped", zap.String("id", prim.ID), zap.Error(err))
		return
	}
	src, _, err := image.Decode(bytes.NewReader(asset.Data))
	if err != nil {
		// SVG-иконки не растеризуются.
		p.logger.Debug("preview image not decodable", zap.String("mime", asset.MIME), zap.Error(err))
		return
	}

	w, h := int(math.Round(b.Width)), int(math.Round(b.Height))
	if w <= 0 || h <= 0 {
		return
	}
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Over, nil)

	if prim.ClipPath != nil {
		dc.DrawCircle(prim.ClipPath.Left, prim.ClipPath.Top, prim.ClipPath.Radius)
		dc.Clip()
		defer dc.ResetClip()
	}
	dc.DrawImage(scaled, int(math.Round(b.X)), int(math.Round(b.Y)))
}
