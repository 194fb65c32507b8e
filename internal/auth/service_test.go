package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/YuriFontella/strawberry-auth/internal/security"
	sessiondomain "github.com/YuriFontella/strawberry-auth/internal/session/domain"
	userdomain "github.com/YuriFontella/strawberry-auth/internal/user/domain"
	userrepo "github.com/YuriFontella/strawberry-auth/internal/user/repository"
)

type memStore struct {
	mu       sync.Mutex
	users    map[string]*userdomain.User // by id
	byEmail  map[string]*userdomain.User
	sessions map[string]*sessiondomain.Session // by id
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*userdomain.User{},
		byEmail:  map[string]*userdomain.User{},
		sessions: map[string]*sessiondomain.Session{},
	}
}

func (m *memStore) Create(ctx context.Context, u *userdomain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return userrepo.ErrDuplicateEmail
	}
	u2 := *u
	m.users[u.ID] = &u2
	m.byEmail[u.Email] = &u2
	return nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail[email], nil
}

func (m *memStore) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.users[id]; u != nil {
		u.Active = active
	}
	return nil
}

type memSessionRepo struct {
	store *memStore
	// replaceErr fails ReplaceActive before any state change, the way a
	// rolled-back transaction leaves the store.
	replaceErr error
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s2 := *s
	r.store.sessions[s.ID] = &s2
	return nil
}

func (r *memSessionRepo) ReplaceActive(ctx context.Context, s *sessiondomain.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.replaceErr != nil {
		return r.replaceErr
	}
	for _, old := range r.store.sessions {
		if old.UserID == s.UserID {
			old.Revoked = true
		}
	}
	s2 := *s
	r.store.sessions[s.ID] = &s2
	return nil
}

func (r *memSessionRepo) FindActiveByAccessDigest(ctx context.Context, userID, accessDigest string) (*userdomain.Profile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u := r.store.users[userID]
	if u == nil || !u.Active {
		return nil, nil
	}
	for _, s := range r.store.sessions {
		if s.UserID == userID && s.AccessDigest == accessDigest && !s.Revoked {
			return &userdomain.Profile{
				ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
				Fingerprint: u.Fingerprint, Avatar: u.Avatar, Active: u.Active, CreatedAt: u.CreatedAt,
			}, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) RevokeByRefreshDigest(ctx context.Context, refreshDigest string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, s := range r.store.sessions {
		if s.RefreshDigest == refreshDigest && !s.Revoked {
			s.Revoked = true
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) RevokeByUserAndRefreshDigest(ctx context.Context, userID, refreshDigest string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, s := range r.store.sessions {
		if s.UserID == userID && s.RefreshDigest == refreshDigest && !s.Revoked {
			s.Revoked = true
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) UpdateAccessToken(ctx context.Context, userID, refreshDigest, newAccessDigest string, newExpiry time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, s := range r.store.sessions {
		if s.UserID == userID && s.RefreshDigest == refreshDigest && !s.Revoked {
			s.AccessDigest = newAccessDigest
			s.AccessExpiresAt = newExpiry
			n++
		}
	}
	return n, nil
}

func (m *memStore) activeSessions(userID string) []*sessiondomain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range m.sessions {
		if s.UserID == userID && !s.Revoked {
			out = append(out, s)
		}
	}
	return out
}

const (
	testKey  = "test-signing-key"
	testSalt = "test-salt"
)

func newTestService(t *testing.T, store *memStore) *Service {
	t.Helper()
	return newTestServiceWith(t, store, &memSessionRepo{store: store})
}

func newTestServiceWith(t *testing.T, store *memStore, sessions *memSessionRepo) *Service {
	t.Helper()
	tokens, err := security.NewTokenService(testKey, testSalt, 15*time.Minute, 168*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return NewService(store, sessions, security.NewHasher(4), tokens, nil, nil)
}

func register(t *testing.T, svc *Service, email string) {
	t.Helper()
	if err := svc.Register(context.Background(), "Ana", email, "secret123"); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestRegisterThenLogin(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	register(t, svc, "ana@example.com")

	pair, err := svc.Login(context.Background(), "ana@example.com", "secret123", "agent", "203.0.113.7")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.AccessToken == pair.RefreshToken {
		t.Fatal("login must return two distinct non-empty signed tokens")
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Error("refresh expiry must be after access expiry")
	}

	u, _ := store.GetByEmail(context.Background(), "ana@example.com")
	if got := len(store.activeSessions(u.ID)); got != 1 {
		t.Errorf("active sessions = %d, want 1", got)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	register(t, svc, "ana@example.com")

	err := svc.Register(context.Background(), "Other", "ana@example.com", "different-password")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("want ErrEmailTaken, got %v", err)
	}
}

func TestRegister_MissingField(t *testing.T) {
	svc := newTestService(t, newMemStore())
	err := svc.Register(context.Background(), "Ana", "", "secret123")
	var ve *userdomain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Field != "email" {
		t.Errorf("Field = %q, want email", ve.Field)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	register(t, svc, "ana@example.com")

	_, err := svc.Login(context.Background(), "ana@example.com", "wrong", "", "")
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("want ErrWrongPassword, got %v", err)
	}
	u, _ := store.GetByEmail(context.Background(), "ana@example.com")
	if got := len(store.activeSessions(u.ID)); got != 0 {
		t.Errorf("failed login must not create sessions, got %d", got)
	}
}

func TestLogin_UnknownAndInactive(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	register(t, svc, "ana@example.com")

	if _, err := svc.Login(context.Background(), "nobody@example.com", "secret123", "", ""); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: want ErrUserNotFound, got %v", err)
	}

	u, _ := store.GetByEmail(context.Background(), "ana@example.com")
	u.Deactivate()
	if _, err := svc.Login(context.Background(), "ana@example.com", "secret123", "", ""); !errors.Is(err, ErrUserInactive) {
		t.Errorf("inactive user: want ErrUserInactive, got %v", err)
	}
}

func TestLogin_RevokesPriorSessions(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	register(t, svc, "ana@example.com")

	first, err := svc.Login(context.Background(), "ana@example.com", "secret123", "device-1", "")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := svc.Login(context.Background(), "ana@example.com", "secret123", "device-2", ""); err != nil {
		t.Fatalf("second login: %v", err)
	}

	u, _ := store.GetByEmail(context.Background(), "ana@example.com")
	active := store.activeSessions(u.ID)
	if len(active) != 1 {
		t.Fatalf("active sessions after second login = %d, want 1", len(active))
	}
	if active[0].AccessDigest == first.AccessDigest {
		t.Error("surviving session must be the second login's, not the first's")
	}
}

func TestLogin_SessionPersistFailureKeepsPriorSessions(t *testing.T) {
	store := newMemStore()
	sessions := &memSessionRepo{store: store}
	svc := newTestServiceWith(t, store, sessions)
	register(t, svc, "ana@example.com")

	first, err := svc.Login(context.Background(), "ana@example.com", "secret123", "device-1", "")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}

	sessions.replaceErr = errors.New("insert failed")
	if _, err := svc.Login(context.Background(), "ana@example.com", "secret123", "device-2", ""); err == nil {
		t.Fatal("second login should fail when the session cannot be persisted")
	}

	u, _ := store.GetByEmail(context.Background(), "ana@example.com")
	active := store.activeSessions(u.ID)
	if len(active) != 1 || active[0].RefreshDigest != first.RefreshDigest {
		t.Fatalf("failed login must leave the prior session active, got %d active", len(active))
	}
}

func TestRefreshAccessToken(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	register(t, svc, "ana@example.com")

	pair, err := svc.Login(context.Background(), "ana@example.com", "secret123", "", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	renewed, err := svc.RefreshAccessToken(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}
	if renewed.AccessToken == "" || renewed.AccessToken == pair.AccessToken {
		t.Error("refresh must mint a new access token")
	}

	u, _ := store.GetByEmail(context.Background(), "ana@example.com")
	active := store.activeSessions(u.ID)
	if len(active) != 1 {
		t.Fatalf("active sessions = %d, want 1", len(active))
	}
	if active[0].AccessDigest != renewed.AccessDigest {
		t.Error("session access digest must be replaced")
	}
	if active[0].RefreshDigest != pair.RefreshDigest {
		t.Error("refresh digest must be untouched by refresh")
	}
}

func TestRefreshAccessToken_WrongKind(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	register(t, svc, "ana@example.com")
	pair, _ := svc.Login(context.Background(), "ana@example.com", "secret123", "", "")

	if _, err := svc.RefreshAccessToken(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("access token as refresh: want ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := svc.RefreshAccessToken(context.Background(), "garbage"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("garbage: want ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshAccessToken_RevokedSession(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	register(t, svc, "ana@example.com")
	pair, _ := svc.Login(context.Background(), "ana@example.com", "secret123", "", "")

	if !svc.Logout(context.Background(), pair.RefreshToken) {
		t.Fatal("logout should revoke the session")
	}
	if _, err := svc.RefreshAccessToken(context.Background(), pair.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("want ErrSessionNotFound, got %v", err)
	}

	u, _ := store.GetByEmail(context.Background(), "ana@example.com")
	if got := len(store.activeSessions(u.ID)); got != 0 {
		t.Errorf("failed refresh must not reinstate the session, active = %d", got)
	}
}

func TestRefreshAccessToken_ExpiredRefreshRevokesSession(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	register(t, svc, "ana@example.com")
	u, _ := store.GetByEmail(context.Background(), "ana@example.com")

	// Mint an already-expired refresh token with the same key and salt, and
	// persist its session as a login would have.
	expiredTokens, err := security.NewTokenService(testKey, testSalt, 15*time.Minute, -time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	pair, err := expiredTokens.GenerateTokenPair(u.ID)
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	sess, err := sessiondomain.NewSession(u.ID, pair.AccessDigest, pair.RefreshDigest,
		pair.AccessExpiresAt, time.Now().UTC().Add(-time.Minute), "", "")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	repo := &memSessionRepo{store: store}
	if err := repo.Create(context.Background(), sess); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.RefreshAccessToken(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken, got %v", err)
	}
	if got := len(store.activeSessions(u.ID)); got != 0 {
		t.Errorf("expired refresh replay must revoke the session, active = %d", got)
	}
}

func TestDeactivate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	register(t, svc, "ana@example.com")
	u, _ := store.GetByEmail(context.Background(), "ana@example.com")

	if err := svc.Deactivate(context.Background(), u.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if u.Active {
		t.Error("user must be inactive after Deactivate")
	}
	if _, err := svc.Login(context.Background(), "ana@example.com", "secret123", "", ""); !errors.Is(err, ErrUserInactive) {
		t.Errorf("login after deactivation: want ErrUserInactive, got %v", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	register(t, svc, "ana@example.com")
	pair, _ := svc.Login(context.Background(), "ana@example.com", "secret123", "", "")

	if !svc.Logout(context.Background(), pair.RefreshToken) {
		t.Error("first logout should report a revocation")
	}
	if svc.Logout(context.Background(), pair.RefreshToken) {
		t.Error("second logout should report no effect, not an error")
	}
	if svc.Logout(context.Background(), "not-a-token") {
		t.Error("logout with garbage should report no effect")
	}
}
