package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("document not found")

//go:embed migrations/*.sql
var migrations embed.FS

// ============================================================
// Collections
// ============================================================

const (
	CollectionCardWeb   = "card_web"
	CollectionCardView  = "card_view"
	CollectionPublic    = "card_public"
	CollectionTemplates = "templates"
	CollectionOrders    = "order"
)

// UserCollection возвращает путь вложенной коллекции пользователя: users/{uid}/{name}.
func UserCollection(userID, name string) string {
	return "users/" + userID + "/" + name
}

// Document: сырая запись коллекции.
type Document struct {
	Collection string
	ID         string
	Body       json.RawMessage
	CreatedAt  time.Time
}

// Decode разбирает тело документа в dst.
func (d Document) Decode(dst any) error {
	if err := json.Unmarshal(d.Body, dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

type identifiable interface {
	SetID(id string)
}

// ============================================================
// SQLite Repository
// ============================================================

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Init применяет встроенные миграции по порядку имён.
func (r *Repository) Init(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Create сохраняет документ под новым id. Если doc умеет SetID, id проставляется и в тело.
func (r *Repository) Create(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()
	if d, ok := doc.(identifiable); ok {
		d.SetID(id)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO documents (collection, id, body, created_at)
        VALUES (?, ?, ?, ?)
    `, collection, id, string(body), r.now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	return id, nil
}

// Get читает документ и раскладывает его в dst.
func (r *Repository) Get(ctx context.Context, collection, id string, dst any) error {
	row := r.db.QueryRowContext(ctx, `
        SELECT body FROM documents
        WHERE collection = ? AND id = ?
    `, collection, id)

	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// ListAll возвращает все документы коллекции от старых к новым.
func (r *Repository) ListAll(ctx context.Context, collection string) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, body, created_at FROM documents
        WHERE collection = ?
        ORDER BY created_at, id
    `, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id, body string
			created  int64
		)
		if err := rows.Scan(&id, &body, &created); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, Document{
			Collection: collection,
			ID:         id,
			Body:       json.RawMessage(body),
			CreatedAt:  time.Unix(0, created),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

func (r *Repository) Delete(ctx context.Context, collection, id string) error {
	res, err := r.db.ExecContext(ctx, `
        DELETE FROM documents
        WHERE collection = ? AND id = ?
    `, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
