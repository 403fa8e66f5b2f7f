package mapper

import (
	"encoding/json"
	"fmt"

	"card-studio/internal/card/models"
)

// Document: сохраняемое представление сцены (canvasData).
type Document struct {
	Version string              `json:"version"`
	Objects []*models.Primitive `json:"objects"`
}

// Export собирает документ без примитивов с excludeFromExport.
func Export(s *models.Scene) Document {
	doc := Document{
		Version: models.DocumentVersion,
		Objects: make([]*models.Primitive, 0, len(s.Objects)),
	}
	for _, p := range s.Objects {
		if p.ExcludeFromExport {
			continue
		}
		doc.Objects = append(doc.Objects, p)
	}
	return doc
}

// Serialize возвращает canvasData в виде JSON-строки.
func Serialize(s *models.Scene) (string, error) {
	data, err := json.Marshal(Export(s))
	if err != nil {
		return "", fmt.Errorf("serialize scene: %w", err)
	}
	return string(data), nil
}
