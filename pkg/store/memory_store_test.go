package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"bookreview/pkg/domain"
)

func TestMemoryStoreListBooksNewestFirst(t *testing.T) {
	m := NewMemoryStore()
	for i := 0; i < 3; i++ {
		if err := m.SaveBook(domain.Book{ID: fmt.Sprintf("b%d", i), Title: fmt.Sprintf("Book %d", i)}); err != nil {
			t.Fatalf("save book: %v", err)
		}
	}
	books, err := m.ListBooks()
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(books) != 3 {
		t.Fatalf("expected 3 books, got %d", len(books))
	}
	if books[0].ID != "b2" || books[2].ID != "b0" {
		t.Fatalf("expected newest first, got %q..%q", books[0].ID, books[2].ID)
	}
}

func TestMemoryStoreAppendReviewPreservesOrder(t *testing.T) {
	m := NewMemoryStore()
	if err := m.SaveBook(domain.Book{ID: "b1", Title: "One"}); err != nil {
		t.Fatalf("save book: %v", err)
	}
	for i := 1; i <= 5; i++ {
		review := domain.Review{
			UserID: "u1",
			Email:  "a@x.com",
			Rating: i,
			Text:   fmt.Sprintf("review %d", i),
			Date:   time.Now().UTC(),
		}
		if err := m.AppendReview("b1", review); err != nil {
			t.Fatalf("append review %d: %v", i, err)
		}
	}
	book, ok, err := m.GetBook("b1")
	if err != nil || !ok {
		t.Fatalf("get book: ok=%v err=%v", ok, err)
	}
	if len(book.Reviews) != 5 {
		t.Fatalf("expected 5 reviews, got %d", len(book.Reviews))
	}
	for i, r := range book.Reviews {
		if r.Rating != i+1 {
			t.Fatalf("review %d out of order: rating %d", i, r.Rating)
		}
		if r.Rating < 1 || r.Rating > 5 {
			t.Fatalf("review %d rating out of range: %d", i, r.Rating)
		}
	}
}

func TestMemoryStoreAppendReviewUnknownBook(t *testing.T) {
	m := NewMemoryStore()
	err := m.AppendReview("missing", domain.Review{Rating: 5, Text: "x"})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreConcurrentAppendsBothSurvive(t *testing.T) {
	m := NewMemoryStore()
	if err := m.SaveBook(domain.Book{ID: "b1", Title: "One"}); err != nil {
		t.Fatalf("save book: %v", err)
	}
	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			review := domain.Review{
				UserID: fmt.Sprintf("u%d", n),
				Email:  fmt.Sprintf("u%d@x.com", n),
				Rating: 1 + n%5,
				Text:   "concurrent",
				Date:   time.Now().UTC(),
			}
			if err := m.AppendReview("b1", review); err != nil {
				t.Errorf("append review: %v", err)
			}
		}(i)
	}
	wg.Wait()
	book, _, err := m.GetBook("b1")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if len(book.Reviews) != writers {
		t.Fatalf("lost reviews under concurrency: got %d, want %d", len(book.Reviews), writers)
	}
}

func TestMemoryStoreListBooksReviewedBy(t *testing.T) {
	m := NewMemoryStore()
	_ = m.SaveBook(domain.Book{ID: "b1", Title: "Reviewed"})
	_ = m.SaveBook(domain.Book{ID: "b2", Title: "Untouched"})
	_ = m.SaveBook(domain.Book{ID: "b3", Title: "Other reviewer"})
	_ = m.AppendReview("b1", domain.Review{Email: "a@x.com", Rating: 5, Text: "great"})
	_ = m.AppendReview("b1", domain.Review{Email: "b@x.com", Rating: 2, Text: "meh"})
	_ = m.AppendReview("b3", domain.Review{Email: "b@x.com", Rating: 3, Text: "fine"})

	books, err := m.ListBooksReviewedBy("a@x.com")
	if err != nil {
		t.Fatalf("list reviewed: %v", err)
	}
	if len(books) != 1 || books[0].ID != "b1" {
		t.Fatalf("expected only b1, got %+v", books)
	}
	// The returned book keeps its whole review sequence, including reviews
	// by other authors.
	if len(books[0].Reviews) != 2 {
		t.Fatalf("expected unfiltered reviews, got %d", len(books[0].Reviews))
	}
}

func TestMemoryStoreEmailIndex(t *testing.T) {
	m := NewMemoryStore()
	if err := m.SaveUser(domain.User{ID: "u1", Email: "a@x.com"}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	has, err := m.HasUserEmail("a@x.com")
	if err != nil || !has {
		t.Fatalf("expected email present, has=%v err=%v", has, err)
	}
	taken, err := m.EmailTakenByOther("a@x.com", "u1")
	if err != nil || taken {
		t.Fatalf("own email should not count as taken, taken=%v err=%v", taken, err)
	}
	taken, err = m.EmailTakenByOther("a@x.com", "u2")
	if err != nil || !taken {
		t.Fatalf("expected email taken by other, taken=%v err=%v", taken, err)
	}

	updated := domain.User{ID: "u1", Email: "new@x.com"}
	if err := m.UpdateUser(updated); err != nil {
		t.Fatalf("update user: %v", err)
	}
	has, _ = m.HasUserEmail("a@x.com")
	if has {
		t.Fatalf("old email should be unindexed after update")
	}
	u, ok, _ := m.GetUserByEmail("new@x.com")
	if !ok || u.ID != "u1" {
		t.Fatalf("expected user findable by new email")
	}
}

func TestMemoryStoreDeleteBook(t *testing.T) {
	m := NewMemoryStore()
	_ = m.SaveBook(domain.Book{ID: "b1"})
	if err := m.DeleteBook("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
	books, _ := m.ListBooks()
	if len(books) != 1 {
		t.Fatalf("failed delete must leave store unchanged, got %d books", len(books))
	}
	if err := m.DeleteBook("b1"); err != nil {
		t.Fatalf("delete book: %v", err)
	}
	if _, ok, _ := m.GetBook("b1"); ok {
		t.Fatalf("book should be gone")
	}
}
