package assets

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// ============================================================
// SVG root
// ============================================================

type svgRoot struct {
	XMLName xml.Name `xml:"svg"`
	Width   string   `xml:"width,attr"`
	Height  string   `xml:"height,attr"`
	ViewBox string   `xml:"viewBox,attr"`
}

// isSVG проверяет, что данные похожи на SVG-документ.
func isSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// svgSize читает габариты из width/height корня, иначе из viewBox.
func svgSize(data []byte) (float64, float64, error) {
	var root svgRoot
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		return 0, 0, fmt.Errorf("decode svg: %w", err)
	}

	w, wok := parseLength(root.Width)
	h, hok := parseLength(root.Height)
	if wok && hok {
		return w, h, nil
	}

	box := strings.FieldsFunc(root.ViewBox, func(r rune) bool { return r == ' ' || r == ',' })
	if len(box) == 4 {
		vw, err1 := strconv.ParseFloat(box[2], 64)
		vh, err2 := strconv.ParseFloat(box[3], 64)
		if err1 == nil && err2 == nil && vw > 0 && vh > 0 {
			return vw, vh, nil
		}
	}
	return 0, 0, fmt.Errorf("svg has no size")
}

// parseLength принимает "24", "24px", "24.5"; проценты и em не поддерживаются.
func parseLength(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
