package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/domain"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/repository"
	jwtpkg "github.com/KhushalAcharya29/real-estate-app/pkg/jwt"
)

type memoryUserRepository struct {
	mu      sync.Mutex
	byID    map[string]domain.User
	byEmail map[string]string
	failGet error
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{byID: map[string]domain.User{}, byEmail: map[string]string{}}
}

func (m *memoryUserRepository) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[user.Email]; ok {
		return repository.ErrConflict
	}
	m.byID[user.ID] = *user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *memoryUserRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	id, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := m.byID[id]
	return &u, nil
}

func (m *memoryUserRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memoryUserRepository) count(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.byID {
		if u.Email == email {
			n++
		}
	}
	return n
}

func newTestService(t *testing.T, denylist Denylist) (Service, *memoryUserRepository) {
	t.Helper()
	issuer, err := jwtpkg.NewIssuer(jwtpkg.IssuerConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	users := newMemoryUserRepository()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(users, issuer, denylist, log), users
}

func TestRegisterCreatesUserAndIssuesTokens(t *testing.T) {
	svc, users := newTestService(t, nil)

	user, pair, err := svc.Register(context.Background(), RegisterInput{Name: " A ", Email: " A@X.com ", Password: "pw", Role: "client"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Name != "A" || user.Email != "a@x.com" || user.Role != domain.RoleClient {
		t.Fatalf("unexpected user: %+v", user)
	}
	if len(user.PasswordHash) == 0 || string(user.PasswordHash) == "pw" {
		t.Fatal("expected password to be hashed")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	claim, err := svc.Authorize(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if claim.Subject != user.ID || claim.Role != domain.RoleClient {
		t.Fatalf("unexpected claim: %+v", claim)
	}
	if users.count("a@x.com") != 1 {
		t.Fatal("expected one stored user")
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newTestService(t, nil)
	cases := []RegisterInput{
		{Email: "a@x.com", Password: "pw", Role: "client"},
		{Name: "A", Email: "not-an-email", Password: "pw", Role: "client"},
		{Name: "A", Email: "a@x.com", Role: "client"},
		{Name: "A", Email: "a@x.com", Password: "pw", Role: "admin"},
		{Name: "A", Email: "a@x.com", Password: string(make([]byte, 73)), Role: "agent"},
	}
	for _, in := range cases {
		if _, _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, users := newTestService(t, nil)
	in := RegisterInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "client"}

	if _, _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("first register: %v", err)
	}
	in.Email = "A@X.COM"
	if _, _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if n := users.count("a@x.com"); n != 1 {
		t.Fatalf("expected exactly one record, got %d", n)
	}
}

func TestConcurrentRegisterKeepsEmailUnique(t *testing.T) {
	svc, users := newTestService(t, nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "race@x.com", Password: "pw", Role: "agent"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrEmailTaken):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != 3 {
		t.Fatalf("expected 1 success and 3 conflicts, got %d/%d", successes, conflicts)
	}
	if users.count("race@x.com") != 1 {
		t.Fatal("expected exactly one stored record")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, _, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "client"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, wrongPassword := svc.Login(context.Background(), "a@x.com", "nope")
	_, _, unknownEmail := svc.Login(context.Background(), "ghost@x.com", "pw")

	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", wrongPassword, unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("expected identical messages, got %q and %q", wrongPassword, unknownEmail)
	}
}

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	svc, _ := newTestService(t, nil)
	registered, _, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "agent"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, pair, err := svc.Login(context.Background(), " A@x.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("expected user %s, got %s", registered.ID, user.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
}

func TestLoginPropagatesStoreFailure(t *testing.T) {
	svc, users := newTestService(t, nil)
	users.failGet = errors.New("connection reset")

	_, _, err := svc.Login(context.Background(), "a@x.com", "pw")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _ := newTestService(t, NewMemoryDenylist())
	_, pair, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "agent"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.AccessToken == pair.AccessToken || next.RefreshToken == pair.RefreshToken {
		t.Fatal("expected rotated tokens")
	}
	if _, err := svc.Authorize(context.Background(), next.AccessToken); err != nil {
		t.Fatalf("new access token should verify: %v", err)
	}
	if _, err := svc.Authorize(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("old access token remains valid until expiry: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected consumed refresh token to be rejected, got %v", err)
	}
}

func TestRefreshRejectsMissingAndForeignTokens(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, pair, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "agent"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, token := range []string{"", "   ", "garbage", pair.AccessToken} {
		if _, err := svc.Refresh(context.Background(), token); !errors.Is(err, ErrInvalidRefreshToken) {
			t.Fatalf("expected ErrInvalidRefreshToken for %q, got %v", token, err)
		}
	}
}

func TestRefreshWithoutDenylistAllowsReuse(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, pair, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "client"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("second refresh should pass with revocation disabled: %v", err)
	}
}

func TestLogoutRevokesPresentedTokens(t *testing.T) {
	denylist := NewMemoryDenylist()
	svc, _ := newTestService(t, denylist)
	_, pair, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "client"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	svc.Logout(context.Background(), pair.AccessToken, pair.RefreshToken)

	if _, err := svc.Authorize(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked access token, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected revoked refresh token, got %v", err)
	}
	if denylist.Len() != 2 {
		t.Fatalf("expected two revoked ids, got %d", denylist.Len())
	}
}

func TestLogoutIgnoresMissingTokens(t *testing.T) {
	denylist := NewMemoryDenylist()
	svc, _ := newTestService(t, denylist)

	svc.Logout(context.Background(), "", "not-a-token")

	if denylist.Len() != 0 {
		t.Fatalf("expected nothing revoked, got %d", denylist.Len())
	}
}

type failingDenylist struct{}

func (failingDenylist) Revoke(context.Context, string, time.Time) error {
	return errors.New("redis down")
}

func (failingDenylist) Revoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingDenylist) Consume(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis down")
}

// slowDenylist widens the gap between a check and its write the way a
// network round-trip would.
type slowDenylist struct {
	*MemoryDenylist
	delay time.Duration
}

func (d slowDenylist) Revoked(ctx context.Context, tokenID string) (bool, error) {
	time.Sleep(d.delay)
	return d.MemoryDenylist.Revoked(ctx, tokenID)
}

func (d slowDenylist) Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	time.Sleep(d.delay)
	return d.MemoryDenylist.Consume(ctx, tokenID, expiresAt)
}

func TestConcurrentRefreshSpendsTokenOnce(t *testing.T) {
	svc, _ := newTestService(t, slowDenylist{MemoryDenylist: NewMemoryDenylist(), delay: 20 * time.Millisecond})
	_, pair, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "client"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	const workers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Refresh(context.Background(), pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInvalidRefreshToken):
				rejected++
			}
		}()
	}
	close(start)
	wg.Wait()

	if succeeded != 1 || rejected != workers-1 {
		t.Fatalf("expected one refresh and %d rejections, got %d and %d", workers-1, succeeded, rejected)
	}
}

func TestRefreshSurfacesDenylistFailure(t *testing.T) {
	svc, _ := newTestService(t, failingDenylist{})
	_, pair, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "client"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	if err == nil || errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected denylist error, got %v", err)
	}
}

func TestAuthorizeSurfacesDenylistFailure(t *testing.T) {
	svc, _ := newTestService(t, failingDenylist{})
	_, pair, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "client"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = svc.Authorize(context.Background(), pair.AccessToken)
	if err == nil || errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected denylist error, got %v", err)
	}
	svc.Logout(context.Background(), pair.AccessToken, pair.RefreshToken)
}

func TestMeReturnsUserOrNil(t *testing.T) {
	svc, _ := newTestService(t, nil)
	registered, _, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw", Role: "client"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Me(context.Background(), &Claim{Subject: registered.ID, Role: "client"})
	if err != nil || user == nil || user.ID != registered.ID {
		t.Fatalf("expected registered user, got %+v (%v)", user, err)
	}

	user, err = svc.Me(context.Background(), &Claim{Subject: "vanished", Role: "client"})
	if err != nil || user != nil {
		t.Fatalf("expected nil user for missing subject, got %+v (%v)", user, err)
	}

	if _, err := svc.Me(context.Background(), nil); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestMemoryDenylistExpiresEntries(t *testing.T) {
	d := NewMemoryDenylist()
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	if err := d.Revoke(context.Background(), "stale", now.Add(-time.Second)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if d.Len() != 0 {
		t.Fatal("expected expired token to be ignored")
	}

	if err := d.Revoke(context.Background(), "live", now.Add(time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := d.Revoked(context.Background(), "live"); !revoked {
		t.Fatal("expected live token to be revoked")
	}

	now = now.Add(2 * time.Minute)
	if revoked, _ := d.Revoked(context.Background(), "live"); revoked {
		t.Fatal("expected entry to lapse with the token")
	}
	if d.Len() != 0 {
		t.Fatal("expected lapsed entry to be dropped")
	}
}

func TestMemoryDenylistConsume(t *testing.T) {
	d := NewMemoryDenylist()
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	if ok, _ := d.Consume(context.Background(), "stale", now.Add(-time.Second)); ok {
		t.Fatal("expired token must not be spendable")
	}
	if ok, _ := d.Consume(context.Background(), "jti", now.Add(time.Minute)); !ok {
		t.Fatal("expected first consume to win")
	}
	if ok, _ := d.Consume(context.Background(), "jti", now.Add(time.Minute)); ok {
		t.Fatal("expected second consume to lose")
	}
	if revoked, _ := d.Revoked(context.Background(), "jti"); !revoked {
		t.Fatal("expected consumed token to read as revoked")
	}
}
