package server

import (
	"errors"
	"net/http"
	"strings"

	"bookreview/internal/app"
	"bookreview/internal/util"
	"bookreview/pkg/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type reviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.registerLimiter.Allow(util.ClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	photo, closePhoto, err := imageFromForm(r, "profilePhoto")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile photo")
		return
	}
	defer closePhoto()

	input := app.RegisterInput{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Mobile:   r.FormValue("mobile"),
		DOB:      r.FormValue("dob"),
	}
	user, token, err := s.app.Register(r.Context(), input, photo)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "User created successfully",
		"token":   token,
		"user":    user,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.loginLimiter.Allow(util.ClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "token": token})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.adminLimiter.Allow(util.ClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, err := s.app.AdminLogin(req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "token": token})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		profile, err := s.app.GetProfile(user.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{"success": true, "user": profile})
	case http.MethodPut:
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form data")
			return
		}
		photo, closePhoto, err := imageFromForm(r, "profilePhoto")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid profile photo")
			return
		}
		defer closePhoto()

		input := app.ProfileUpdateInput{
			Name:   r.FormValue("name"),
			Email:  r.FormValue("email"),
			Mobile: r.FormValue("mobile"),
			DOB:    r.FormValue("dob"),
		}
		updated, err := s.app.UpdateProfile(r.Context(), user.ID, input, photo)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{
			"success": true,
			"message": "Profile updated successfully",
			"user":    updated,
		})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	cover, closeCover, err := imageFromForm(r, "bookImage")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book image")
		return
	}
	defer closeCover()

	input := app.BookInput{
		Title:       r.FormValue("title"),
		Author:      r.FormValue("author"),
		Genre:       r.FormValue("genre"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		Bestseller:  r.FormValue("bestseller"),
	}
	book, err := s.app.AddBook(r.Context(), input, cover)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Book added successfully",
		"book":    book,
	})
}

func (s *Server) handleAllBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.app.ListBooks()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"count":   len(books),
		"books":   books,
	})
}

// handleMyReviews returns every book the caller has reviewed. Books carry
// their whole review sequence; the client filters down to its own reviews.
func (s *Server) handleMyReviews(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	books, err := s.app.BooksReviewedBy(user.Email)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"count":   len(books),
		"books":   books,
	})
}

// /books/{id} or /books/{id}/review
func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/books/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 2 {
		if parts[1] != "review" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.handleAddReview(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		book, err := s.app.GetBook(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{
			"success":       true,
			"book":          book,
			"averageRating": book.AverageRating(),
		})
	case http.MethodDelete:
		if !s.requireAdmin(w, r) {
			return
		}
		if err := s.app.DeleteBook(r.Context(), id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{
			"success": true,
			"message": "Book deleted successfully",
		})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request, bookID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	review, err := s.app.AddReview(bookID, user, req.Rating, req.Text)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Review added successfully",
		"review":  review,
	})
}

// imageFromForm extracts an optional multipart image. A missing file field
// is not an error.
func imageFromForm(r *http.Request, field string) (*app.ImageUpload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	upload := &app.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}
	return upload, func() { _ = file.Close() }, nil
}
