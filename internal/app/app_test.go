package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"bookreview/pkg/auth"
	"bookreview/pkg/store"
)

type fakeImageStore struct {
	fail     bool
	uploaded []string
	removed  []string
}

func (f *fakeImageStore) Upload(_ context.Context, folder, filename string, _ io.Reader, _ int64, _ string) (string, error) {
	if f.fail {
		return "", errors.New("asset host unavailable")
	}
	url := "https://assets.test/" + folder + "/" + filename
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImageStore) Remove(_ context.Context, publicURL string) error {
	f.removed = append(f.removed, publicURL)
	return nil
}

func newTestApp(t *testing.T, images *fakeImageStore) *App {
	t.Helper()
	sessions, err := store.NewJWTSessionStore("unit-test-secret", time.Hour, store.JWTOptions{})
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	a, err := New(Config{
		Store:         store.NewMemoryStore(),
		Sessions:      sessions,
		Images:        images,
		AdminEmail:    "admin@example.com",
		AdminPassword: "super-secret-admin",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
		Mobile:   "5550100",
		DOB:      "1990-04-01",
	}
}

func testPhoto() *ImageUpload {
	return &ImageUpload{
		Filename:    "avatar.png",
		ContentType: "image/png",
		Size:        4,
		Reader:      strings.NewReader("data"),
	}
}

func TestRegisterAndLogin(t *testing.T) {
	a := newTestApp(t, &fakeImageStore{})

	user, token, err := a.Register(context.Background(), validRegistration(), nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}
	if user.ID == "" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "password123" {
		t.Fatal("password stored in plain text")
	}

	if _, err := a.Login("alice@example.com", "password123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := a.Login("alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Login("nobody@example.com", "password123"); !errors.Is(err, ErrUserNotExists) {
		t.Fatalf("expected ErrUserNotExists, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t, &fakeImageStore{})

	missing := validRegistration()
	missing.Mobile = ""
	if _, _, err := a.Register(context.Background(), missing, nil); !errors.Is(err, ErrAllFieldsRequired) {
		t.Fatalf("expected ErrAllFieldsRequired, got %v", err)
	}

	badEmail := validRegistration()
	badEmail.Email = "not-an-email"
	if _, _, err := a.Register(context.Background(), badEmail, nil); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}

	weak := validRegistration()
	weak.Password = "short"
	if _, _, err := a.Register(context.Background(), weak, nil); !errors.Is(err, auth.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, _, err := a.Register(context.Background(), validRegistration(), nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := a.Register(context.Background(), validRegistration(), nil); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestRegisterWithPhoto(t *testing.T) {
	images := &fakeImageStore{}
	a := newTestApp(t, images)

	user, _, err := a.Register(context.Background(), validRegistration(), testPhoto())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ProfilePhoto == "" {
		t.Fatal("expected a hosted profile photo URL")
	}
	if len(images.uploaded) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(images.uploaded))
	}
}

func TestRegisterPhotoUploadFailureDoesNotAbort(t *testing.T) {
	a := newTestApp(t, &fakeImageStore{fail: true})

	user, token, err := a.Register(context.Background(), validRegistration(), testPhoto())
	if err != nil {
		t.Fatalf("register should tolerate a failed photo upload, got %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}
	if user.ProfilePhoto != "" {
		t.Fatalf("expected no profile photo, got %q", user.ProfilePhoto)
	}
}

func TestAdminLogin(t *testing.T) {
	a := newTestApp(t, &fakeImageStore{})

	token, err := a.AdminLogin("admin@example.com", "super-secret-admin")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if err := a.VerifyAdminToken(token); err != nil {
		t.Fatalf("verify admin token: %v", err)
	}

	if _, err := a.AdminLogin("admin@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.AdminLogin("intruder@example.com", "super-secret-admin"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// User tokens never pass the admin gate.
	_, userToken, err := a.Register(context.Background(), validRegistration(), nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := a.VerifyAdminToken(userToken); err == nil {
		t.Fatal("user token accepted as admin")
	}
}

func TestUserFromToken(t *testing.T) {
	a := newTestApp(t, &fakeImageStore{})

	registered, token, err := a.Register(context.Background(), validRegistration(), nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	user, err := a.UserFromToken(token)
	if err != nil {
		t.Fatalf("resolve token: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("resolved wrong user: %q vs %q", user.ID, registered.ID)
	}

	if _, err := a.UserFromToken("garbage"); !errors.Is(err, store.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	// Admin tokens carry no account and never resolve to a user.
	adminToken, err := a.AdminLogin("admin@example.com", "super-secret-admin")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if _, err := a.UserFromToken(adminToken); err == nil {
		t.Fatal("admin token resolved to a user account")
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	a := newTestApp(t, &fakeImageStore{})

	user, _, err := a.Register(context.Background(), validRegistration(), nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := a.UpdateProfile(context.Background(), user.ID, ProfileUpdateInput{Name: "Alice B."}, nil)
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Alice B." {
		t.Fatalf("name not updated: %q", updated.Name)
	}
	if updated.Email != user.Email || updated.Mobile != user.Mobile || updated.DOB != user.DOB {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
}

func TestUpdateProfileEmailChecks(t *testing.T) {
	a := newTestApp(t, &fakeImageStore{})

	alice, _, err := a.Register(context.Background(), validRegistration(), nil)
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bob := validRegistration()
	bob.Name = "Bob"
	bob.Email = "bob@example.com"
	if _, _, err := a.Register(context.Background(), bob, nil); err != nil {
		t.Fatalf("register bob: %v", err)
	}

	if _, err := a.UpdateProfile(context.Background(), alice.ID, ProfileUpdateInput{Email: "bob@example.com"}, nil); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}
	if _, err := a.UpdateProfile(context.Background(), alice.ID, ProfileUpdateInput{Email: "not-an-email"}, nil); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}

	updated, err := a.UpdateProfile(context.Background(), alice.ID, ProfileUpdateInput{Email: "alice.new@example.com"}, nil)
	if err != nil {
		t.Fatalf("update email: %v", err)
	}
	if updated.Email != "alice.new@example.com" {
		t.Fatalf("email not updated: %q", updated.Email)
	}
	if _, err := a.Login("alice.new@example.com", "password123"); err != nil {
		t.Fatalf("login with new email: %v", err)
	}
}

func TestUpdateProfilePhotoFailureKeepsExisting(t *testing.T) {
	images := &fakeImageStore{}
	a := newTestApp(t, images)

	user, _, err := a.Register(context.Background(), validRegistration(), testPhoto())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	existing := user.ProfilePhoto
	if existing == "" {
		t.Fatal("expected a profile photo")
	}

	images.fail = true
	updated, err := a.UpdateProfile(context.Background(), user.ID, ProfileUpdateInput{}, testPhoto())
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.ProfilePhoto != existing {
		t.Fatalf("photo changed despite failed upload: %q", updated.ProfilePhoto)
	}
}

func TestGetProfileUnknownUser(t *testing.T) {
	a := newTestApp(t, &fakeImageStore{})
	if _, err := a.GetProfile("missing-id"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
