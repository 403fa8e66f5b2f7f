package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"card-studio/internal/card/assets"
	"card-studio/internal/card/builder"
	"card-studio/internal/card/mapper"
	"card-studio/internal/card/models"
	"card-studio/internal/card/repository"

	"go.uber.org/zap"
)

var (
	ErrNotFound    = errors.New("card not found")
	ErrUnknownKind = errors.New("unknown design kind")
)

// Store: коллекционное хранилище документов.
type Store interface {
	Create(ctx context.Context, collection string, doc any) (string, error)
	Get(ctx context.Context, collection, id string, dst any) error
	ListAll(ctx context.Context, collection string) ([]repository.Document, error)
	Delete(ctx context.Context, collection, id string) error
}

// Previewer рисует PNG сцены.
type Previewer interface {
	Render(ctx context.Context, scene *models.Scene) ([]byte, error)
}

// DesignKind: вид сохранённого дизайна пользователя.
type DesignKind string

const (
	DesignWeb  DesignKind = "web"
	DesignView DesignKind = "view"
)

func (k DesignKind) collection(userID string) (string, error) {
	switch k {
	case DesignWeb:
		return repository.UserCollection(userID, repository.CollectionCardWeb), nil
	case DesignView:
		return repository.UserCollection(userID, repository.CollectionCardView), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
}

// ============================================================
// Card Service
// ============================================================

type CardService struct {
	store   Store
	builder *builder.Builder
	preview Previewer
	files   *FileStorage
	origin  string
	legacy  mapper.LegacyImageSize
	logger  *zap.Logger
	now     func() time.Time
}

type Deps struct {
	Store   Store
	Builder *builder.Builder
	Preview Previewer
	Files   *FileStorage
	Images  assets.Source
	Origin  string
	Logger  *zap.Logger
}

func NewCardService(d Deps) *CardService {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &CardService{
		store:   d.Store,
		builder: d.Builder,
		preview: d.Preview,
		files:   d.Files,
		origin:  strings.TrimRight(d.Origin, "/"),
		legacy:  LegacySizeFrom(d.Images),
		logger:  d.Logger.With(zap.String("component", "card-service")),
		now:     time.Now,
	}
}

// LegacySizeFrom узнаёт размер картинки старого формата через загрузчик.
func LegacySizeFrom(src assets.Source) mapper.LegacyImageSize {
	if src == nil {
		return nil
	}
	return func(dataURI string) (float64, float64, bool) {
		a, err := src.Load(context.Background(), dataURI)
		if err != nil || a.Width <= 0 || a.Height <= 0 {
			return 0, 0, false
		}
		return a.Width, a.Height, true
	}
}

// LegacySize отдаёт функцию размера для восстановления старых документов.
func (s *CardService) LegacySize() mapper.LegacyImageSize { return s.legacy }

// ShareURL собирает публичную ссылку на карту.
func (s *CardService) ShareURL(publicID string) string {
	return s.origin + "/card-view/" + publicID
}

type SaveResult struct {
	DocumentID   string `json:"documentId"`
	PublicID     string `json:"publicId"`
	ShareURL     string `json:"shareUrl"`
	PreviewImage string `json:"previewImage"`
}

// SaveWebCard собирает карту по профилю и сохраняет её.
func (s *CardService) SaveWebCard(ctx context.Context, userID string, profile models.CardProfile) (*SaveResult, error) {
	scene, err := s.builder.BuildScene(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.saveScene(ctx, userID, scene, profile.WithDefaults())
}

// SaveScene сохраняет текущее состояние черновика.
func (s *CardService) SaveScene(ctx context.Context, userID string, e *builder.Editor) (*SaveResult, error) {
	scene, profile := e.Snapshot()
	return s.saveScene(ctx, userID, scene, profile)
}

// saveScene всегда создаёт новые документы: в card_web пользователя и в card_public.
func (s *CardService) saveScene(ctx context.Context, userID string, scene *models.Scene, profile models.CardProfile) (*SaveResult, error) {
	canvas, err := mapper.Serialize(scene)
	if err != nil {
		return nil, err
	}
	png, previewURI, err := s.renderPreview(ctx, scene)
	if err != nil {
		return nil, err
	}

	doc := &models.CardDocument{
		UserID:             userID,
		Timestamp:          s.now().UTC(),
		UserInfo:           profile.UserInfo,
		SocialLinks:        profile.LinkRefs(),
		CanvasData:         canvas,
		PreviewImage:       previewURI,
		BackgroundColorHex: profile.BackgroundColor,
		AccentColorHex:     profile.AccentColor,
		ProfileImage:       profile.ProfileImage,
	}

	docID, err := s.store.Create(ctx, repository.UserCollection(userID, repository.CollectionCardWeb), doc)
	if err != nil {
		return nil, err
	}
	s.storePreview(userID, docID, png)

	public := *doc
	public.ID = ""
	publicID, err := s.store.Create(ctx, repository.CollectionPublic, &public)
	if err != nil {
		return nil, err
	}

	s.logger.Info("card saved",
		zap.String("user", userID),
		zap.String("document", docID),
		zap.String("public", publicID),
	)
	return &SaveResult{
		DocumentID:   docID,
		PublicID:     publicID,
		ShareURL:     s.ShareURL(publicID),
		PreviewImage: previewURI,
	}, nil
}

func (s *CardService) renderPreview(ctx context.Context, scene *models.Scene) ([]byte, string, error) {
	png, err := s.preview.Render(ctx, scene)
	if err != nil {
		return nil, "", fmt.Errorf("render preview: %w", err)
	}
	a := assets.Asset{MIME: "image/png", Data: png}
	return png, a.DataURI(), nil
}

// storePreview кладёт PNG на диск. Ошибка только логируется: превью уже есть в документе.
func (s *CardService) storePreview(userID, docID string, png []byte) {
	if s.files == nil {
		return
	}
	if _, err := s.files.SavePreview(userID, docID, png); err != nil {
		s.logger.Warn("preview file not written", zap.String("document", docID), zap.Error(err))
	}
}

// SaveCardView сохраняет дизайн физической карты.
func (s *CardService) SaveCardView(ctx context.Context, userID, canvasData string) (string, error) {
	scene, err := mapper.Deserialize(canvasData, mapper.HelperStyle{BackgroundColor: mapper.CardBaseColor}, s.legacy)
	if err != nil {
		return "", err
	}
	png, previewURI, err := s.renderPreview(ctx, scene)
	if err != nil {
		return "", err
	}

	id, err := s.store.Create(ctx, repository.UserCollection(userID, repository.CollectionCardView), &models.CardViewDocument{
		UserID:       userID,
		Timestamp:    s.now().UTC(),
		CardBase:     canvasData,
		PreviewImage: previewURI,
	})
	if err != nil {
		return "", err
	}
	s.storePreview(userID, id, png)
	return id, nil
}

// GetPublic читает опубликованную карту.
func (s *CardService) GetPublic(ctx context.Context, id string) (*models.CardDocument, error) {
	var doc models.CardDocument
	if err := s.store.Get(ctx, repository.CollectionPublic, id, &doc); err != nil {
		return nil, notFound(err)
	}
	doc.ID = id
	return &doc, nil
}

// ============================================================
// Designs
// ============================================================

// DesignSummary: строка списка дизайнов пользователя.
type DesignSummary struct {
	ID           string     `json:"id"`
	Kind         DesignKind `json:"kind"`
	Timestamp    time.Time  `json:"timestamp"`
	PreviewImage string     `json:"previewImage"`
}

func (s *CardService) ListDesigns(ctx context.Context, userID string, kind DesignKind) ([]DesignSummary, error) {
	coll, err := kind.collection(userID)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.ListAll(ctx, coll)
	if err != nil {
		return nil, err
	}

	out := make([]DesignSummary, 0, len(docs))
	for _, d := range docs {
		var body struct {
			Timestamp    time.Time `json:"timestamp"`
			PreviewImage string    `json:"previewImage"`
		}
		if err := d.Decode(&body); err != nil {
			return nil, err
		}
		out = append(out, DesignSummary{
			ID:           d.ID,
			Kind:         kind,
			Timestamp:    body.Timestamp,
			PreviewImage: body.PreviewImage,
		})
	}
	return out, nil
}

func (s *CardService) DeleteDesign(ctx context.Context, userID string, kind DesignKind, id string) error {
	coll, err := kind.collection(userID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, coll, id); err != nil {
		return notFound(err)
	}
	if s.files != nil {
		if err := s.files.RemovePreview(userID, id); err != nil {
			s.logger.Warn("preview file not removed", zap.String("document", id), zap.Error(err))
		}
	}
	return nil
}

// PreviewFile возвращает путь к PNG-превью дизайна.
func (s *CardService) PreviewFile(userID, docID string) (string, error) {
	if s.files == nil {
		return "", ErrNotFound
	}
	return s.files.PreviewPath(userID, docID)
}

// ============================================================
// Templates & orders
// ============================================================

func (s *CardService) ListTemplates(ctx context.Context) ([]models.Template, error) {
	docs, err := s.store.ListAll(ctx, repository.CollectionTemplates)
	if err != nil {
		return nil, err
	}
	out := make([]models.Template, 0, len(docs))
	for _, d := range docs {
		var t models.Template
		if err := d.Decode(&t); err != nil {
			return nil, err
		}
		t.ID = d.ID
		out = append(out, t)
	}
	return out, nil
}

// CreateTemplate проверяет сцену шаблона и дорисовывает превью, если его нет.
func (s *CardService) CreateTemplate(ctx context.Context, t models.Template) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("template name is required")
	}
	bg := t.BackgroundColorHex
	if bg == "" {
		bg = models.DefaultBackgroundColor
	}
	scene, err := mapper.Deserialize(t.CanvasData, mapper.HelperStyle{BackgroundColor: bg}, s.legacy)
	if err != nil {
		return "", err
	}
	if t.PreviewImage == "" {
		if _, t.PreviewImage, err = s.renderPreview(ctx, scene); err != nil {
			return "", err
		}
	}
	t.ID = ""
	t.CreatedAt = s.now().UTC()
	return s.store.Create(ctx, repository.CollectionTemplates, &t)
}

type OrderRequest struct {
	models.OrderContact
	CardViewID string `json:"cardViewId"`
	CardWebID  string `json:"cardWebId"`
}

type OrderResult struct {
	OrderID  string `json:"orderId"`
	PublicID string `json:"publicId"`
	ShareURL string `json:"shareUrl"`
}

// PlaceOrder публикует выбранный веб-дизайн и создаёт заказ со статусом false.
func (s *CardService) PlaceOrder(ctx context.Context, userID string, req OrderRequest) (*OrderResult, error) {
	if err := req.OrderContact.Validate(); err != nil {
		return nil, err
	}
	if req.CardViewID == "" || req.CardWebID == "" {
		return nil, fmt.Errorf("both card view and card web designs are required")
	}

	var view models.CardViewDocument
	if err := s.store.Get(ctx, repository.UserCollection(userID, repository.CollectionCardView), req.CardViewID, &view); err != nil {
		return nil, notFound(err)
	}
	var web models.CardDocument
	if err := s.store.Get(ctx, repository.UserCollection(userID, repository.CollectionCardWeb), req.CardWebID, &web); err != nil {
		return nil, notFound(err)
	}

	web.ID = ""
	publicID, err := s.store.Create(ctx, repository.CollectionPublic, &web)
	if err != nil {
		return nil, err
	}

	orderID, err := s.store.Create(ctx, repository.CollectionOrders, &models.Order{
		UserID:          userID,
		OrderContact:    req.OrderContact,
		CardViewData:    view.CardBase,
		CardViewPreview: view.PreviewImage,
		CardWebData:     web.CanvasData,
		CardWebPreview:  web.PreviewImage,
		IPhoneURL:       s.ShareURL(publicID),
		OrderStatus:     false,
		CreatedAt:       s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed", zap.String("user", userID), zap.String("order", orderID))
	return &OrderResult{OrderID: orderID, PublicID: publicID, ShareURL: s.ShareURL(publicID)}, nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
