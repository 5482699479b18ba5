package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"shelfmatch/internal/catalog"
	"shelfmatch/internal/similarity"
	"shelfmatch/internal/storage"
	"shelfmatch/internal/store"
	"shelfmatch/internal/util"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL        string
	Store              store.Store
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioUseSSL        bool
	Objects            storage.ObjectStore
	CatalogPath        string
	CatalogLoadTimeout time.Duration
	AdminPasscode      string
	LocalMinReviews    int
	MaxCoverBytes      int64
}

// App wires the review store, the catalog index and the recommendation
// logic together behind the operations the transport layer calls.
type App struct {
	store         store.Store
	objects       storage.ObjectStore
	catalog       catalog.Catalog
	catalogIndex  *similarity.Index
	passcodeHash  []byte
	localMin      int
	maxCoverBytes int64
	presignExpiry time.Duration

	// corpusVersion moves on every successful submit/delete and marks the
	// cached local index stale. localIdx is swapped whole, never mutated.
	corpusVersion atomic.Int64
	localIdx      atomic.Pointer[localIndex]
}

type localIndex struct {
	version int64
	index   *similarity.Index
	reviews []store.Review
}

// New constructs the application. The catalog is loaded once here; a
// missing or failing dataset degrades to an empty catalog and is logged,
// never fatal.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	objects := cfg.Objects
	if objects == nil {
		var err error
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
	}

	loadTimeout := cfg.CatalogLoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	cat, err := catalog.Load(ctx, cfg.CatalogPath)
	if err != nil {
		slog.Warn("catalog load failed, continuing with empty catalog", "path", cfg.CatalogPath, "err", err)
		cat = catalog.Catalog{}
	}
	var index *similarity.Index
	if cat.Size() > 0 {
		texts := make([]string, cat.Size())
		for i, entry := range cat.Entries {
			texts[i] = entry.Text()
		}
		index = similarity.Build(texts)
	}
	slog.Info("catalog state", "loaded", cat.Loaded, "entries", cat.Size(), "skipped", cat.Skipped)

	var passcodeHash []byte
	if passcode := strings.TrimSpace(cfg.AdminPasscode); passcode != "" {
		passcodeHash, err = bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin passcode: %w", err)
		}
	}

	localMin := cfg.LocalMinReviews
	if localMin <= 0 {
		localMin = 3
	}
	maxCover := cfg.MaxCoverBytes
	if maxCover <= 0 {
		maxCover = 5 * 1024 * 1024
	}
	return &App{
		store:         dataStore,
		objects:       objects,
		catalog:       cat,
		catalogIndex:  index,
		passcodeHash:  passcodeHash,
		localMin:      localMin,
		maxCoverBytes: maxCover,
		presignExpiry: 15 * time.Minute,
	}, nil
}

// SubmitInput carries a review submission. Image is an optional base64
// data URI, as the review form sends it.
type SubmitInput struct {
	Author  string
	Title   string
	Content string
	Score   int
	Image   string
}

// Review is the client-facing review representation.
type Review struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Score     int       `json:"score"`
	CoverURL  *string   `json:"cover_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Status is the read-only readiness snapshot. Booleans and counts only.
type Status struct {
	CatalogLoaded            bool `json:"catalog_loaded"`
	CatalogReady             bool `json:"catalog_ready"`
	CatalogSize              int  `json:"catalog_size"`
	DeletePasscodeConfigured bool `json:"delete_passcode_configured"`
}

// Submit validates and persists a review. Nothing is stored unless every
// field, including the optional cover image, passes validation.
func (a *App) Submit(ctx context.Context, in SubmitInput) (Review, error) {
	in.Author = sanitizeText(in.Author)
	in.Title = sanitizeText(in.Title)
	in.Content = sanitizeText(in.Content)
	if in.Author == "" {
		return Review{}, invalidField("author", "required")
	}
	if in.Title == "" {
		return Review{}, invalidField("title", "required")
	}
	if in.Content == "" {
		return Review{}, invalidField("content", "required")
	}
	if in.Score < 0 || in.Score > 10 {
		return Review{}, invalidField("score", "must be an integer between 0 and 10")
	}

	var cover *store.Cover
	if strings.TrimSpace(in.Image) != "" {
		data, contentType, err := decodeCoverImage(in.Image, a.maxCoverBytes)
		if err != nil {
			return Review{}, err
		}
		key := "covers/" + util.NewID() + extensionFor(contentType)
		if err := a.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
			return Review{}, fmt.Errorf("save cover: %w", err)
		}
		cover = &store.Cover{Key: key, ContentType: contentType, SizeBytes: int64(len(data))}
	}

	saved, err := a.store.CreateReview(store.Review{
		Author:    in.Author,
		Title:     in.Title,
		Content:   in.Content,
		Score:     in.Score,
		Cover:     cover,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if cover != nil {
			_ = a.objects.Delete(ctx, cover.Key)
		}
		return Review{}, fmt.Errorf("save review: %w", err)
	}
	a.corpusVersion.Add(1)
	return a.toView(ctx, saved), nil
}

// List returns all reviews, newest first, with presigned cover URLs.
func (a *App) List(ctx context.Context) ([]Review, error) {
	reviews, err := a.store.ListReviews()
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	out := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, a.toView(ctx, r))
	}
	return out, nil
}

// Delete removes a review after verifying the passcode. With no passcode
// configured, deletion is permanently denied. The passcode is checked
// before the row lookup so auth failures never leak id existence.
func (a *App) Delete(ctx context.Context, id int64, passcode string) error {
	if len(a.passcodeHash) == 0 {
		return ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword(a.passcodeHash, []byte(passcode)) != nil {
		return ErrUnauthorized
	}
	target, ok, err := a.store.GetReview(id)
	if err != nil {
		return fmt.Errorf("load review: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := a.store.DeleteReview(id); err != nil {
		if err == store.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("delete review: %w", err)
	}
	if target.Cover != nil {
		if err := a.objects.Delete(ctx, target.Cover.Key); err != nil {
			slog.Warn("orphaned cover object", "key", target.Cover.Key, "err", err)
		}
	}
	a.corpusVersion.Add(1)
	return nil
}

// Status reports index readiness for operational visibility.
func (a *App) Status() Status {
	return Status{
		CatalogLoaded:            a.catalog.Loaded,
		CatalogReady:             a.catalogIndex.Len() > 0,
		CatalogSize:              a.catalog.Size(),
		DeletePasscodeConfigured: len(a.passcodeHash) > 0,
	}
}

func (a *App) toView(ctx context.Context, r store.Review) Review {
	view := Review{
		ID:        r.ID,
		Author:    r.Author,
		Title:     r.Title,
		Content:   r.Content,
		Score:     r.Score,
		CreatedAt: r.CreatedAt,
	}
	if r.Cover != nil {
		url, err := a.objects.PresignGet(ctx, r.Cover.Key, a.presignExpiry)
		if err != nil {
			slog.Warn("presign cover", "key", r.Cover.Key, "err", err)
		} else {
			view.CoverURL = &url
		}
	}
	return view
}

var allowedCoverTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// decodeCoverImage accepts a "data:image/...;base64,..." URI (or bare
// base64) and returns the raw bytes with the sniffed content type.
func decodeCoverImage(raw string, maxBytes int64) ([]byte, string, error) {
	payload := raw
	if idx := strings.Index(raw, ","); idx >= 0 && strings.HasPrefix(raw, "data:") {
		payload = raw[idx+1:]
	}
	payload = strings.TrimSpace(payload)
	// Base64 expands by 4/3, so this rejects oversized uploads before decoding.
	if int64(len(payload)) > (maxBytes*4)/3+4 {
		return nil, "", invalidField("image", "exceeds maximum size")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", invalidField("image", "invalid base64 encoding")
	}
	if int64(len(data)) > maxBytes {
		return nil, "", invalidField("image", "exceeds maximum size")
	}
	contentType := http.DetectContentType(data)
	if _, ok := allowedCoverTypes[contentType]; !ok {
		return nil, "", invalidField("image", "unsupported content type")
	}
	return data, contentType, nil
}

func extensionFor(contentType string) string {
	if ext, ok := allowedCoverTypes[contentType]; ok {
		return ext
	}
	return ""
}
