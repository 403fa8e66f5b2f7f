package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"sync"

	"card-studio/internal/card/models"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

const maxAssetBytes = 10 << 20

var (
	ErrUnsupportedRef    = errors.New("unsupported asset reference")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Asset: загруженное изображение с естественными размерами.
type Asset struct {
	MIME   string
	Width  float64
	Height float64
	Data   []byte
}

// DataURI кодирует изображение обратно в data URI.
func (a *Asset) DataURI() string {
	return "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Source отдаёт изображение по ссылке (data URI или http(s) URL).
type Source interface {
	Load(ctx context.Context, ref string) (*Asset, error)
}

// ============================================================
// Loader
// ============================================================

// Loader загружает и кэширует изображения. Параллельные запросы одной ссылки склеиваются.
type Loader struct {
	client *http.Client
	logger *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]*Asset
}

func NewLoader(client *http.Client, logger *zap.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		client: client,
		logger: logger,
		cache:  make(map[string]*Asset),
	}
}

func (l *Loader) Load(ctx context.Context, ref string) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	cached, ok := l.cache[ref]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := l.group.Do(ref, func() (any, error) {
		asset, err := l.load(ctx, ref)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[ref] = asset
		l.mu.Unlock()
		return asset, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Asset), nil
}

func (l *Loader) load(ctx context.Context, ref string) (*Asset, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		d, err := models.ParseDataURI(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedRef, err)
		}
		data, err := d.Bytes()
		if err != nil {
			return nil, err
		}
		return decode(data, d.MIME)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.fetch(ctx, ref)
	default:
		return nil, fmt.Errorf("%w: %.32q", ErrUnsupportedRef, ref)
	}
}

func (l *Loader) fetch(ctx context.Context, url string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(data) > maxAssetBytes {
		return nil, fmt.Errorf("fetch %s: asset larger than %d bytes", url, maxAssetBytes)
	}

	l.logger.Debug("asset fetched", zap.String("url", url), zap.Int("bytes", len(data)))
	return decode(data, resp.Header.Get("Content-Type"))
}

// decode определяет формат и естественный размер изображения.
func decode(data []byte, mime string) (*Asset, error) {
	mime = strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0]))

	if mime == "image/svg+xml" || isSVG(data) {
		w, h, err := svgSize(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return &Asset{MIME: "image/svg+xml", Width: w, Height: h, Data: data}, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return &Asset{
		MIME:   "image/" + format,
		Width:  float64(cfg.Width),
		Height: float64(cfg.Height),
		Data:   data,
	}, nil
}
