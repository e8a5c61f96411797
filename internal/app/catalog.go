package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"bookreview/internal/util"
	"bookreview/pkg/domain"
	"bookreview/pkg/store"
)

// BookInput carries raw form values for a new catalog entry.
type BookInput struct {
	Title       string
	Author      string
	Genre       string
	Description string
	Price       string
	Bestseller  string
}

// AddBook validates a catalog entry, uploads its cover, and persists the
// book. A failed cover upload aborts the whole operation; nothing is
// persisted.
func (a *App) AddBook(ctx context.Context, in BookInput, cover *ImageUpload) (domain.Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Genre = strings.TrimSpace(in.Genre)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Author == "" || in.Genre == "" || in.Description == "" || strings.TrimSpace(in.Price) == "" {
		return domain.Book{}, ErrBookFieldsRequired
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(in.Price), 64)
	if err != nil || price < 0 {
		return domain.Book{}, ErrInvalidPrice
	}
	if cover == nil {
		return domain.Book{}, ErrCoverImageRequired
	}

	imageURL, err := a.images.Upload(ctx, bookCoverFolder, cover.Filename, cover.Reader, cover.Size, cover.ContentType)
	if err != nil {
		return domain.Book{}, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	book := domain.Book{
		ID:          util.NewID(),
		Title:       in.Title,
		Author:      in.Author,
		Genre:       in.Genre,
		Description: in.Description,
		Price:       price,
		Image:       imageURL,
		Bestseller:  strings.EqualFold(strings.TrimSpace(in.Bestseller), "true"),
		Reviews:     []domain.Review{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.store.SaveBook(book); err != nil {
		// Compensate: don't leave an orphaned cover behind a failed insert.
		if removeErr := a.images.Remove(context.Background(), imageURL); removeErr != nil {
			slog.Warn("orphaned cover cleanup failed", "url", imageURL, "err", removeErr)
		}
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	return book, nil
}

// ListBooks returns the whole catalog, newest first.
func (a *App) ListBooks() ([]domain.Book, error) {
	return a.store.ListBooks()
}

// GetBook returns one book by id.
func (a *App) GetBook(id string) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// AddReview validates and appends a review to the book. The review
// snapshots the author's id, email, and display name at call time. A user
// may review the same book more than once; no uniqueness constraint exists.
func (a *App) AddReview(bookID string, user domain.User, rating int, text string) (domain.Review, error) {
	if rating == 0 || strings.TrimSpace(text) == "" {
		return domain.Review{}, ErrRatingAndTextRequired
	}
	if rating < 1 || rating > 5 {
		return domain.Review{}, ErrRatingOutOfRange
	}
	review := domain.Review{
		UserID:   user.ID,
		UserName: user.Name,
		Email:    user.Email,
		Rating:   rating,
		Text:     text,
		Date:     time.Now().UTC(),
	}
	if err := a.store.AppendReview(bookID, review); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Review{}, ErrBookNotFound
		}
		return domain.Review{}, fmt.Errorf("append review: %w", err)
	}
	return review, nil
}

// BooksReviewedBy returns every book containing at least one review by the
// email. Books keep their full review sequence; callers filter client-side.
func (a *App) BooksReviewedBy(email string) ([]domain.Book, error) {
	return a.store.ListBooksReviewedBy(email)
}

// DeleteBook removes a catalog entry and its stored cover image. Covers on
// the legacy local path are removed from disk; hosted covers are removed
// from the object store.
func (a *App) DeleteBook(ctx context.Context, id string) error {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return ErrBookNotFound
	}
	if err := a.store.DeleteBook(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrBookNotFound
		}
		return fmt.Errorf("delete book: %w", err)
	}
	if book.Image != "" {
		if isLocalImagePath(book.Image) {
			if a.files != nil {
				if err := a.files.Remove(book.Image); err != nil {
					slog.Warn("legacy cover cleanup failed", "path", book.Image, "err", err)
				}
			}
		} else if err := a.images.Remove(ctx, book.Image); err != nil {
			slog.Warn("cover cleanup failed", "url", book.Image, "err", err)
		}
	}
	return nil
}

func isLocalImagePath(image string) bool {
	return !strings.Contains(image, "://")
}
