package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"main/middleware"
	"main/model"
	"main/services"
	"main/usecase"
	"main/utils"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	os.Setenv("GO_ENV", "test")
	gin.SetMode(gin.TestMode)
	utils.InitValidator()
	utils.InitJWT()
	os.Exit(m.Run())
}

// fakeUserStore is an in-memory usecase.UserStore. Lookups return copies the
// way a database decode would.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func copyUser(u *model.User) *model.User {
	c := *u
	c.TwoFactorMethods = append([]string{}, u.TwoFactorMethods...)
	c.KnownDevices = append([]string{}, u.KnownDevices...)
	c.LoginHistory = append([]model.LoginAttempt{}, u.LoginHistory...)
	return &c
}

func (f *fakeUserStore) Insert(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.UserID] = copyUser(user)
	return nil
}

func (f *fakeUserStore) FindByID(_ context.Context, userID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) FindByProvider(_ context.Context, provider, providerID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if (provider == "google" && u.GoogleID == providerID) ||
			(provider == "github" && u.GithubID == providerID) {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) UpdateTwoFactor(_ context.Context, userID string, enabled bool, methods []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[userID]
	u.TwoFactorEnabled = enabled
	u.TwoFactorMethods = append([]string{}, methods...)
	hasAuth := false
	for _, m := range methods {
		if m == model.TwoFactorAuthenticator {
			hasAuth = true
		}
	}
	if !hasAuth {
		u.TwoFactorSecret = ""
	}
	return nil
}

func (f *fakeUserStore) SetAuthenticatorSecret(_ context.Context, userID, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[userID].TwoFactorSecret = secret
	return nil
}

func (f *fakeUserStore) AppendLoginAttempt(_ context.Context, userID string, attempt model.LoginAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[userID]
	u.LoginHistory = append(u.LoginHistory, attempt)
	return nil
}

func (f *fakeUserStore) AddKnownDevice(_ context.Context, userID, deviceKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[userID]
	for _, d := range u.KnownDevices {
		if d == deviceKey {
			return nil
		}
	}
	u.KnownDevices = append(u.KnownDevices, deviceKey)
	return nil
}

func (f *fakeUserStore) SetLoginNotifications(_ context.Context, userID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[userID].LoginNotifications = enabled
	return nil
}

func (f *fakeUserStore) LinkProvider(_ context.Context, userID, provider, providerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch provider {
	case "google":
		f.users[userID].GoogleID = providerID
	case "github":
		f.users[userID].GithubID = providerID
	}
	return nil
}

func (f *fakeUserStore) get(userID string) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		return copyUser(u)
	}
	return nil
}

func (f *fakeUserStore) byEmail(email string) *model.User {
	u, _ := f.FindByEmail(context.Background(), email)
	return u
}

// capturingMailer records every send instead of talking SMTP.
type capturingMailer struct {
	mu            sync.Mutex
	otpCount      int
	lastCode      string
	lastPurpose   string
	notifications []services.LoginNotification
}

func (m *capturingMailer) SendOTPEmail(email, code, purpose string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otpCount++
	m.lastCode = code
	m.lastPurpose = purpose
	return nil
}

func (m *capturingMailer) SendLoginNotification(email string, info services.LoginNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, info)
	return nil
}

func (m *capturingMailer) code() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCode
}

func (m *capturingMailer) sentOTPs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.otpCount
}

func (m *capturingMailer) notificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

type testEnv struct {
	router *gin.Engine
	deps   *AuthDeps
	store  *fakeUserStore
	mailer *capturingMailer
}

func newTestEnv() *testEnv {
	store := newFakeUserStore()
	mailer := &capturingMailer{}
	keyed := services.NewMemoryStore()

	deps := &AuthDeps{
		Users:     &usecase.UserService{Users: store},
		TwoFactor: services.NewTwoFactor(keyed, mailer),
		Store:     keyed,
		Mailer:    mailer,
	}

	router := gin.New()

	auth := router.Group("/api/auth")
	auth.POST("/register", func(c *gin.Context) { RegistrationHandler(c, deps) })
	auth.POST("/verify-otp", func(c *gin.Context) { VerifyOTPHandler(c, deps) })
	auth.POST("/resend-otp", func(c *gin.Context) { ResendOTPHandler(c, deps) })
	auth.POST("/resend-2fa", func(c *gin.Context) { Resend2FAHandler(c, deps) })
	auth.POST("/login", func(c *gin.Context) { LoginHandler(c, deps) })
	auth.POST("/refresh", func(c *gin.Context) { RefreshTokenHandler(c, deps) })
	auth.POST("/social/verify-2fa", func(c *gin.Context) { SocialVerify2FAHandler(c, deps) })

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/user/profile", func(c *gin.Context) { GetProfileHandler(c, deps) })
	protected.GET("/user/login-history", func(c *gin.Context) { GetLoginHistoryHandler(c, deps) })
	protected.PUT("/user/notifications", func(c *gin.Context) { UpdateNotificationsHandler(c, deps) })
	protected.POST("/user/logout", func(c *gin.Context) { LogoutHandler(c, deps) })
	protected.POST("/user/2fa/enable", func(c *gin.Context) { Enable2FAHandler(c, deps) })
	protected.POST("/user/2fa/disable", func(c *gin.Context) { Disable2FAHandler(c, deps) })
	protected.GET("/user/2fa/authenticator", func(c *gin.Context) { GenerateAuthenticatorHandler(c, deps) })
	protected.POST("/user/2fa/authenticator/verify", func(c *gin.Context) { VerifyAuthenticatorHandler(c, deps) })

	return &testEnv{router: router, deps: deps, store: store, mailer: mailer}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) test-agent")
	req.RemoteAddr = "127.0.0.1:4242"
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return resp.Data
}

// seedUser inserts a user with the given password and returns it.
func (e *testEnv) seedUser(t *testing.T, email, password string) *model.User {
	t.Helper()

	hashed, err := services.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &model.User{
		UserID:             utils.GenerateUserID(),
		FirstName:          "Test",
		LastName:           "User",
		Email:              email,
		Password:           hashed,
		Role:               "customer",
		CreatedAt:          time.Now(),
		LoginNotifications: false,
	}
	if err := e.store.Insert(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	return user
}
