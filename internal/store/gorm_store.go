package store

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// GormStore implements Store using GORM + Postgres. Id assignment rides on
// the bigserial sequence, so deleted ids are never handed out again.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&ReviewModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateReview inserts a review and returns it with the assigned id.
func (s *GormStore) CreateReview(r Review) (Review, error) {
	model, err := reviewToModel(r)
	if err != nil {
		return Review{}, err
	}
	if err := s.db.Create(&model).Error; err != nil {
		return Review{}, fmt.Errorf("insert review: %w", err)
	}
	return reviewFromModel(model)
}

// ListReviews returns reviews newest first.
func (s *GormStore) ListReviews() ([]Review, error) {
	var models []ReviewModel
	if err := s.db.Order("created_at DESC, id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]Review, 0, len(models))
	for _, m := range models {
		r, err := reviewFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, nil
}

// GetReview fetches by id.
func (s *GormStore) GetReview(id int64) (Review, bool, error) {
	var model ReviewModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return Review{}, false, nil
		}
		return Review{}, false, err
	}
	r, err := reviewFromModel(model)
	if err != nil {
		return Review{}, false, err
	}
	return r, true, nil
}

// DeleteReview removes exactly one row inside a transaction.
func (s *GormStore) DeleteReview(id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&ReviewModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CountReviews returns the stored review count.
func (s *GormStore) CountReviews() (int, error) {
	var count int64
	if err := s.db.Model(&ReviewModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func reviewToModel(r Review) (ReviewModel, error) {
	model := ReviewModel{
		ID:        r.ID,
		Author:    r.Author,
		Title:     r.Title,
		Content:   r.Content,
		Score:     r.Score,
		CreatedAt: r.CreatedAt,
	}
	if r.Cover != nil {
		raw, err := json.Marshal(r.Cover)
		if err != nil {
			return ReviewModel{}, fmt.Errorf("encode cover: %w", err)
		}
		model.Cover = datatypes.JSON(raw)
	}
	return model, nil
}

func reviewFromModel(m ReviewModel) (Review, error) {
	r := Review{
		ID:        m.ID,
		Author:    m.Author,
		Title:     m.Title,
		Content:   m.Content,
		Score:     m.Score,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Cover) > 0 {
		var cover Cover
		if err := json.Unmarshal(m.Cover, &cover); err != nil {
			return Review{}, fmt.Errorf("decode cover: %w", err)
		}
		r.Cover = &cover
	}
	return r, nil
}
