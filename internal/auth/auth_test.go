package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shopple/internal/domain"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type memoryUsers struct {
	byName  map[string]*domain.User
	creates int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byName: map[string]*domain.User{}}
}

func (m *memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range m.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := m.byName[username]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memoryUsers) Create(_ context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.byName[u.Username] = u
	m.creates++
	return nil
}

func (m *memoryUsers) UpdateProfile(_ context.Context, id uuid.UUID, _ domain.ProfileUpdate) (*domain.User, error) {
	return m.GetByID(context.Background(), id)
}

func newTestManager(t *testing.T, users domain.UserRepository) *Manager {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return NewManager(Config{
		Username:     "admin",
		PasswordHash: string(hash),
		Secret:       "test-secret",
	}, users, createTestLogger())
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"valid", "admin", "hunter2", nil},
		{"wrong password", "admin", "hunter3", ErrInvalidCredentials},
		{"unknown user", "root", "hunter2", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, newMemoryUsers())
			session, err := m.Login(context.Background(), tt.username, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if session.Token == "" || session.User == nil {
				t.Fatalf("incomplete session %+v", session)
			}
			if got := session.ExpiresAt.Sub(time.Now()); got < DefaultSessionTTL-time.Minute {
				t.Errorf("session expires in %v, want about a week", got)
			}
		})
	}
}

func TestLoginCreatesUserOnce(t *testing.T) {
	users := newMemoryUsers()
	m := newTestManager(t, users)

	first, err := m.Login(context.Background(), "admin", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Login(context.Background(), "admin", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if users.creates != 1 {
		t.Errorf("user created %d times, want 1", users.creates)
	}
	if first.User.ID != second.User.ID {
		t.Error("second login resolved a different user")
	}
}

func TestValidateToken(t *testing.T) {
	m := newTestManager(t, newMemoryUsers())
	user := &domain.User{ID: uuid.New(), Username: "admin"}

	token, _, err := m.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	got, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if got != user.ID {
		t.Errorf("user id = %v, want %v", got, user.ID)
	}

	other := NewManager(Config{Secret: "other-secret"}, nil, createTestLogger())
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign secret error = %v, want ErrInvalidToken", err)
	}

	m.now = func() time.Time { return time.Now().Add(DefaultSessionTTL + time.Hour) }
	if _, err := m.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}

	if _, err := m.ValidateToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token error = %v, want ErrInvalidToken", err)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")) != nil {
		t.Error("hash does not verify")
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := TokenFromRequest(r); got != "" {
		t.Errorf("empty request token = %q", got)
	}

	r.Header.Set("Authorization", "Bearer abc")
	if got := TokenFromRequest(r); got != "abc" {
		t.Errorf("bearer token = %q", got)
	}

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "fromcookie"})
	if got := TokenFromRequest(r); got != "fromcookie" {
		t.Errorf("cookie should win, got %q", got)
	}
}

func TestCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, "tok", time.Now().Add(time.Hour), true)
	ClearCookie(rec, true)

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies", len(cookies))
	}
	if !cookies[0].HttpOnly || cookies[0].Value != "tok" || cookies[0].Name != CookieName {
		t.Errorf("session cookie = %+v", cookies[0])
	}
	if cookies[1].MaxAge >= 0 {
		t.Errorf("clear cookie MaxAge = %d, want negative", cookies[1].MaxAge)
	}
}

func TestUserIDContext(t *testing.T) {
	if _, ok := UserID(context.Background()); ok {
		t.Error("empty context reported a user")
	}
	id := uuid.New()
	got, ok := UserID(WithUserID(context.Background(), id))
	if !ok || got != id {
		t.Errorf("UserID() = %v, %v", got, ok)
	}
}
