package store

import (
	"sync"

	"bookreview/pkg/domain"
)

// MemoryStore keeps accounts and books in-process. Used by tests and local
// development without Postgres.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]domain.User // key: user ID
	email  map[string]string      // email -> user ID
	books  map[string]domain.Book
	orders []string // book insertion order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]domain.User),
		email: make(map[string]string),
		books: make(map[string]domain.Book),
	}
}

// SaveUser registers an account.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if an email is registered.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// EmailTakenByOther checks whether another account uses the email.
func (m *MemoryStore) EmailTakenByOther(email, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	return ok && id != userID, nil
}

// GetUserByEmail fetches an account by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByID fetches an account by id.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// UpdateUser replaces the stored account and re-indexes its email.
func (m *MemoryStore) UpdateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	if prev.Email != u.Email {
		delete(m.email, prev.Email)
		m.email[u.Email] = u.ID
	}
	m.users[u.ID] = u
	return nil
}

// SaveBook stores a book record and tracks insertion order.
func (m *MemoryStore) SaveBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.books[b.ID]; !exists {
		m.orders = append(m.orders, b.ID)
	}
	m.books[b.ID] = b
	return nil
}

// ListBooks returns books newest first (reverse insertion order).
func (m *MemoryStore) ListBooks() ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0, len(m.orders))
	for i := len(m.orders) - 1; i >= 0; i-- {
		if b, ok := m.books[m.orders[i]]; ok {
			res = append(res, b)
		}
	}
	return res, nil
}

// GetBook retrieves a book by ID.
func (m *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

// DeleteBook removes a book.
func (m *MemoryStore) DeleteBook(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return ErrNotFound
	}
	delete(m.books, id)
	filtered := m.orders[:0]
	for _, item := range m.orders {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.orders = filtered
	return nil
}

// AppendReview appends a review under the store lock, so concurrent appends
// on the same book both land.
func (m *MemoryStore) AppendReview(bookID string, review domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok {
		return ErrNotFound
	}
	b.Reviews = append(b.Reviews, review)
	m.books[bookID] = b
	return nil
}

// ListBooksReviewedBy returns books containing at least one review by the
// email, newest first, with review sequences unfiltered.
func (m *MemoryStore) ListBooksReviewedBy(email string) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0)
	for i := len(m.orders) - 1; i >= 0; i-- {
		b, ok := m.books[m.orders[i]]
		if !ok {
			continue
		}
		for _, r := range b.Reviews {
			if r.Email == email {
				res = append(res, b)
				break
			}
		}
	}
	return res, nil
}
