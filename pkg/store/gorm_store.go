package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bookreview/pkg/domain"
)

const migrateLockID int64 = 52105210

// GormStore implements Store using GORM + Postgres. Each book row holds its
// review sequence in a jsonb column, so a book behaves as a single document
// and review appends stay within one statement.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &BookModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

// SaveUser inserts a new account record.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userModelFromDomain(u)
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// HasUserEmail checks whether an account with the email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count email: %w", err)
	}
	return count > 0, nil
}

// EmailTakenByOther checks whether another account already uses the email.
func (s *GormStore) EmailTakenByOther(email, userID string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).
		Where("email = ? AND id <> ?", email, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("count email: %w", err)
	}
	return count > 0, nil
}

// GetUserByEmail fetches an account by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("email = ?", email).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user by email: %w", err)
	}
	return userModelToDomain(model), true, nil
}

// GetUserByID fetches an account by id.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user by id: %w", err)
	}
	return userModelToDomain(model), true, nil
}

// UpdateUser replaces the stored account record.
func (s *GormStore) UpdateUser(u domain.User) error {
	model := userModelFromDomain(u)
	res := s.db.Model(&UserModel{}).Where("id = ?", u.ID).Updates(map[string]any{
		"name":          model.Name,
		"email":         model.Email,
		"mobile":        model.Mobile,
		"dob":           model.DOB,
		"profile_photo": model.ProfilePhoto,
		"updated_at":    model.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveBook inserts a new book record.
func (s *GormStore) SaveBook(b domain.Book) error {
	model, err := bookModelFromDomain(b)
	if err != nil {
		return err
	}
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("save book: %w", err)
	}
	return nil
}

// ListBooks returns all books, newest first.
func (s *GormStore) ListBooks() ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return bookModelsToDomain(models)
}

// GetBook fetches a book by id.
func (s *GormStore) GetBook(id string) (domain.Book, bool, error) {
	var model BookModel
	err := s.db.Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Book{}, false, nil
	}
	if err != nil {
		return domain.Book{}, false, fmt.Errorf("get book: %w", err)
	}
	book, err := bookModelToDomain(model)
	if err != nil {
		return domain.Book{}, false, err
	}
	return book, true, nil
}

// DeleteBook removes a book record.
func (s *GormStore) DeleteBook(id string) error {
	res := s.db.Where("id = ?", id).Delete(&BookModel{})
	if res.Error != nil {
		return fmt.Errorf("delete book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendReview appends a review to the book's jsonb sequence in a single
// statement, so concurrent appends on the same book cannot lose writes.
func (s *GormStore) AppendReview(bookID string, review domain.Review) error {
	payload, err := json.Marshal([]domain.Review{review})
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}
	res := s.db.Model(&BookModel{}).Where("id = ?", bookID).
		Update("reviews", gorm.Expr("COALESCE(reviews, '[]'::jsonb) || ?::jsonb", string(payload)))
	if res.Error != nil {
		return fmt.Errorf("append review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBooksReviewedBy returns every book containing at least one review by
// the email. Review sequences are returned whole, not filtered.
func (s *GormStore) ListBooksReviewedBy(email string) ([]domain.Book, error) {
	probe, err := json.Marshal([]map[string]string{{"email": email}})
	if err != nil {
		return nil, fmt.Errorf("marshal probe: %w", err)
	}
	var models []BookModel
	if err := s.db.
		Where("reviews @> ?::jsonb", string(probe)).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list books by reviewer: %w", err)
	}
	return bookModelsToDomain(models)
}

func userModelFromDomain(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Mobile:       u.Mobile,
		DOB:          u.DOB,
		ProfilePhoto: u.ProfilePhoto,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userModelToDomain(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Mobile:       m.Mobile,
		DOB:          m.DOB,
		ProfilePhoto: m.ProfilePhoto,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func bookModelFromDomain(b domain.Book) (BookModel, error) {
	reviews := b.Reviews
	if reviews == nil {
		reviews = []domain.Review{}
	}
	payload, err := json.Marshal(reviews)
	if err != nil {
		return BookModel{}, fmt.Errorf("marshal reviews: %w", err)
	}
	return BookModel{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Genre:       b.Genre,
		Description: b.Description,
		Price:       b.Price,
		Image:       b.Image,
		Bestseller:  b.Bestseller,
		Reviews:     payload,
		CreatedAt:   b.CreatedAt,
	}, nil
}

func bookModelToDomain(m BookModel) (domain.Book, error) {
	reviews := []domain.Review{}
	if len(m.Reviews) > 0 {
		if err := json.Unmarshal(m.Reviews, &reviews); err != nil {
			return domain.Book{}, fmt.Errorf("unmarshal reviews: %w", err)
		}
	}
	return domain.Book{
		ID:          m.ID,
		Title:       m.Title,
		Author:      m.Author,
		Genre:       m.Genre,
		Description: m.Description,
		Price:       m.Price,
		Image:       m.Image,
		Bestseller:  m.Bestseller,
		Reviews:     reviews,
		CreatedAt:   m.CreatedAt,
	}, nil
}

func bookModelsToDomain(models []BookModel) ([]domain.Book, error) {
	out := make([]domain.Book, 0, len(models))
	for _, m := range models {
		book, err := bookModelToDomain(m)
		if err != nil {
			return nil, err
		}
		out = append(out, book)
	}
	return out, nil
}
