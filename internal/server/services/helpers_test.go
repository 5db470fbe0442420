package services

import (
	"context"
	"database/sql"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"github.com/dmitrijs2005/idkeeper/internal/cryptox"
	"github.com/dmitrijs2005/idkeeper/internal/dbx"
	"github.com/dmitrijs2005/idkeeper/internal/logging"
	"github.com/dmitrijs2005/idkeeper/internal/server/auth"
	"github.com/dmitrijs2005/idkeeper/internal/server/config"
	"github.com/dmitrijs2005/idkeeper/internal/server/locks"
	"github.com/dmitrijs2005/idkeeper/internal/server/mail"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	"github.com/dmitrijs2005/idkeeper/internal/server/repositories/activity"
	"github.com/dmitrijs2005/idkeeper/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// --- in-memory users repository with the same CAS rules as PostgresRepository ---

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*models.User

	// err, when set, fails every call
	err error
	// beforeSetReset runs (unlocked) ahead of each SetResetToken
	beforeSetReset func()
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Roles = append([]models.Role(nil), u.Roles...)
	c.Certificates = append([]string(nil), u.Certificates...)
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	c.PasswordSalt = append([]byte(nil), u.PasswordSalt...)
	return &c
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, e := range m.byID {
		if e.UserName == u.UserName || strings.EqualFold(e.Email, u.Email) {
			return nil, common.ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = cloneUser(u)
	return u, nil
}

func (m *memUsers) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.UserName == username })
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memUsers) List(context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cur, ok := m.byID[u.ID]
	if !ok {
		return common.ErrorNotFound
	}
	next := cloneUser(u)
	next.PasswordHash, next.PasswordSalt, next.ResetToken = cur.PasswordHash, cur.PasswordSalt, cur.ResetToken
	m.byID[u.ID] = next
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id string, hash, salt []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cur, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	cur.PasswordHash, cur.PasswordSalt, cur.ResetToken = hash, salt, ""
	return nil
}

func (m *memUsers) SetResetToken(_ context.Context, id, expected, next string) error {
	if m.beforeSetReset != nil {
		m.beforeSetReset()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cur, ok := m.byID[id]
	if !ok || cur.ResetToken != expected {
		return common.ErrConflict
	}
	cur.ResetToken = next
	return nil
}

func (m *memUsers) ResetPassword(_ context.Context, id, expected string, hash, salt []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cur, ok := m.byID[id]
	if expected == "" || !ok || cur.ResetToken != expected {
		return common.ErrConflict
	}
	cur.PasswordHash, cur.PasswordSalt, cur.ResetToken = hash, salt, ""
	return nil
}

func (m *memUsers) Delete(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for id, u := range m.byID {
		if u.UserName == username {
			delete(m.byID, id)
			return nil
		}
	}
	return common.ErrorNotFound
}

// pointer returns the stored reset token of username.
func (m *memUsers) pointer(t *testing.T, username string) string {
	t.Helper()
	u, err := m.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	return u.ResetToken
}

type memActivity struct {
	mu     sync.Mutex
	events []models.Activity
	err    error
}

func (a *memActivity) Append(_ context.Context, e *models.Activity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.events = append(a.events, *e)
	return nil
}

func (a *memActivity) count(event models.ActivityEvent) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

type fakeRepoManager struct {
	users    users.Repository
	activity activity.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.users }
func (m *fakeRepoManager) Activity(dbx.DBTX) activity.Repository        { return m.activity }

// --- mail capture ---

type captureSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (c *captureSender) Send(_ context.Context, m mail.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, m)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

var resetTokenRe = regexp.MustCompile(`token=([A-Za-z0-9_.-]+)`)

// lastResetToken extracts the token from the most recent reset link mail.
func (c *captureSender) lastResetToken(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		if m := resetTokenRe.FindStringSubmatch(c.sent[i].HTMLBody); m != nil {
			return m[1]
		}
	}
	t.Fatal("no reset link was mailed")
	return ""
}

// --- clock ---

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- environment ---

type testEnv struct {
	svc      *UserService
	ledger   *ResetLedger
	codec    *auth.Codec
	users    *memUsers
	activity *memActivity
	sender   *captureSender
	clock    *testClock
}

func testLogger() logging.Logger {
	return logging.Nop()
}

func testHasher(t *testing.T) *cryptox.Hasher {
	t.Helper()
	h, err := cryptox.NewHasher(cryptox.Params{Time: 1, MemoryKiB: 8, Threads: 1, KeyLen: 16, SaltLen: 8})
	require.NoError(t, err)
	return h
}

func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLocker(t, locks.NewLocal())
}

func newTestEnvWithLocker(t *testing.T, locker locks.Locker) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	codec, err := auth.NewCodec([]byte("test-secret"), auth.WithClock(clock.Now))
	require.NoError(t, err)

	hasher := testHasher(t)
	db := newTxDB(t)
	rm := &fakeRepoManager{}
	mu, ma := newMemUsers(), &memActivity{}
	rm.users, rm.activity = mu, ma

	sender := &captureSender{}
	tpl, err := mail.LoadTemplates(context.Background(), mail.EmbeddedSource())
	require.NoError(t, err)
	mailer := mail.NewMailer(sender, tpl, "https://id.example.com/reset")

	cfg := &config.Config{}
	cfg.LoadDefaults()

	ledger := NewResetLedger(db, rm, codec, hasher, locker, cfg.ResetTokenTTL, testLogger())
	svc, err := NewUserService(db, rm, codec, hasher, ledger, mailer, testLogger(), cfg)
	require.NoError(t, err)
	svc.now = clock.Now

	return &testEnv{svc: svc, ledger: ledger, codec: codec, users: mu, activity: ma, sender: sender, clock: clock}
}

// seed creates username with password "password-<username>".
func (e *testEnv) seed(t *testing.T, username string, roles ...models.Role) *models.User {
	t.Helper()
	u, err := e.svc.CreateUser(context.Background(), UserInput{
		UserName: username,
		Email:    username + "@example.com",
		Password: "password-" + username,
		Roles:    roles,
	})
	require.NoError(t, err)
	return u
}

// tokenFor signs a session token for an already seeded user.
func (e *testEnv) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := e.codec.Sign(u.ID, u.UserName, u.Roles, 10*time.Hour)
	require.NoError(t, err)
	return tok
}
