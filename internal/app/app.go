package app

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"bookreview/internal/util"
	"bookreview/pkg/auth"
	"bookreview/pkg/domain"
	"bookreview/pkg/storage"
	"bookreview/pkg/store"
)

const (
	profilePhotoFolder = "user_profiles"
	bookCoverFolder    = "book_covers"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	SessionTTL  time.Duration
	JWTIssuer   string
	JWTAudience string

	AdminEmail    string
	AdminPassword string

	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioUseSSL        bool
	MinioPublicBaseURL string

	UploadsPath string

	// Test seams; production wiring leaves these nil.
	Store    store.Store
	Sessions store.SessionStore
	Images   storage.ImageStore
	Files    *storage.FileStore
}

// App is the core application service wiring storage, sessions, and the
// asset host together.
type App struct {
	store         store.Store
	sessions      store.SessionStore
	images        storage.ImageStore
	files         *storage.FileStore
	adminEmail    string
	adminPassword string
}

// ImageUpload carries one multipart image payload into the app layer.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// New constructs the application with database storage, JWT sessions, and
// MinIO-backed image hosting.
func New(cfg Config) (*App, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil, fmt.Errorf("admin credentials required")
	}

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

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		var err error
		sessionStore, err = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL, store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
	}

	images := cfg.Images
	if images == nil {
		var err error
		images, err = storage.NewMinioStore(
			cfg.MinioEndpoint,
			cfg.MinioAccessKey,
			cfg.MinioSecretKey,
			cfg.MinioBucket,
			cfg.MinioUseSSL,
			cfg.MinioPublicBaseURL,
		)
		if err != nil {
			return nil, fmt.Errorf("init minio store: %w", err)
		}
	}

	files := cfg.Files
	if files == nil && cfg.UploadsPath != "" {
		var err error
		files, err = storage.NewFileStore(cfg.UploadsPath)
		if err != nil {
			return nil, fmt.Errorf("init file store: %w", err)
		}
	}

	return &App{
		store:         dataStore,
		sessions:      sessionStore,
		images:        images,
		files:         files,
		adminEmail:    cfg.AdminEmail,
		adminPassword: cfg.AdminPassword,
	}, nil
}

// RegisterInput carries the required registration fields.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Mobile   string
	DOB      string
}

// Register creates an account and issues a session token. A failed profile
// photo upload does not abort registration; the account is created without
// a photo.
func (a *App) Register(ctx context.Context, in RegisterInput, photo *ImageUpload) (domain.User, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.DOB = strings.TrimSpace(in.DOB)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Mobile == "" || in.DOB == "" {
		return domain.User{}, "", ErrAllFieldsRequired
	}
	exists, err := a.store.HasUserEmail(in.Email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrUserExists
	}
	if !validEmail(in.Email) {
		return domain.User{}, "", ErrInvalidEmail
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return domain.User{}, "", err
	}

	photoURL := ""
	if photo != nil {
		url, err := a.images.Upload(ctx, profilePhotoFolder, photo.Filename, photo.Reader, photo.Size, photo.ContentType)
		if err != nil {
			// Partial-success policy: registration proceeds without a photo.
			slog.Warn("profile photo upload failed", "err", err)
		} else {
			photoURL = url
		}
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Mobile:       in.Mobile,
		DOB:          in.DOB,
		ProfilePhoto: photoURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return "", ErrUserNotExists
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// AdminLogin validates the configured admin pair and issues an admin token.
func (a *App) AdminLogin(email, password string) (string, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.adminEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.adminPassword)) == 1
	if !emailOK || !passOK {
		return "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewAdminSession()
	if err != nil {
		return "", fmt.Errorf("issue admin token: %w", err)
	}
	return token, nil
}

// UserFromToken resolves the account behind a user session token.
func (a *App) UserFromToken(token string) (domain.User, error) {
	userID, err := a.sessions.UserIDByToken(token)
	if err != nil {
		return domain.User{}, err
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// VerifyAdminToken checks an admin session token.
func (a *App) VerifyAdminToken(token string) error {
	return a.sessions.VerifyAdmin(token)
}

// GetProfile returns the account for the id.
func (a *App) GetProfile(userID string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// ProfileUpdateInput carries optional profile fields; empty values leave
// the stored value unchanged.
type ProfileUpdateInput struct {
	Name   string
	Email  string
	Mobile string
	DOB    string
}

// UpdateProfile applies a partial profile update. An email change is
// re-validated for format and uniqueness. A failed photo upload keeps the
// existing photo.
func (a *App) UpdateProfile(ctx context.Context, userID string, in ProfileUpdateInput, photo *ImageUpload) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = name
	}
	if email := strings.TrimSpace(in.Email); email != "" && email != user.Email {
		if !validEmail(email) {
			return domain.User{}, ErrInvalidEmail
		}
		taken, err := a.store.EmailTakenByOther(email, userID)
		if err != nil {
			return domain.User{}, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return domain.User{}, ErrEmailInUse
		}
		user.Email = email
	}
	if mobile := strings.TrimSpace(in.Mobile); mobile != "" {
		user.Mobile = mobile
	}
	if dob := strings.TrimSpace(in.DOB); dob != "" {
		user.DOB = dob
	}

	if photo != nil {
		url, err := a.images.Upload(ctx, profilePhotoFolder, photo.Filename, photo.Reader, photo.Size, photo.ContentType)
		if err != nil {
			slog.Warn("profile photo upload failed", "err", err)
		} else {
			user.ProfilePhoto = url
		}
	}

	user.UpdatedAt = time.Now().UTC()
	if err := a.store.UpdateUser(user); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
