package handler

import (
	"net/http"
	"testing"
	"time"

	"main/model"
	"main/services"

	"github.com/pquerna/otp/totp"
)

// authCookie logs the user in over the API and returns the access cookie.
func (e *testEnv) authCookie(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	w := e.do(t, "POST", "/api/auth/login", map[string]string{
		"email": email, "password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login for cookie: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	cookie := cookieByName(w, "accessToken")
	if cookie == nil {
		t.Fatal("expected access cookie")
	}
	return cookie
}

func TestEnableEmail2FACommitsBeforeVerification(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedUser(t, "mona@example.com", testPassword)
	cookie := env.authCookie(t, "mona@example.com", testPassword)

	w := env.do(t, "POST", "/api/user/2fa/enable", map[string]string{
		"method": "email",
	}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("enable: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	// The method is committed as soon as the request lands; the emailed
	// code only confirms the mailbox afterwards.
	user := env.store.get(seeded.UserID)
	if !user.TwoFactorEnabled || !user.HasTwoFactorMethod(model.TwoFactorEmail) {
		t.Error("email method should be enabled before OTP verification completes")
	}
	if env.mailer.sentOTPs() == 0 {
		t.Error("expected confirmation OTP dispatch")
	}

	w = env.do(t, "POST", "/api/auth/verify-otp", map[string]string{
		"email": "mona@example.com", "code": env.mailer.code(), "action": "enable-2fa",
	})
	if w.Code != http.StatusOK {
		t.Errorf("enable confirmation: expected 200, got %d", w.Code)
	}
}

func TestAuthenticatorLoginCompletesWithTOTP(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedUser(t, "lena@example.com", testPassword)

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "test", AccountName: "lena@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	env.store.UpdateTwoFactor(nil, seeded.UserID, true, []string{model.TwoFactorAuthenticator})
	env.store.SetAuthenticatorSecret(nil, seeded.UserID, key.Secret())

	w := env.do(t, "POST", "/api/auth/login", map[string]string{
		"email": "lena@example.com", "password": testPassword,
	})
	if w.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", w.Code)
	}

	// a wrong app code fails without consuming anything
	w = env.do(t, "POST", "/api/auth/verify-otp", map[string]string{
		"email": "lena@example.com", "code": "000000", "action": "login",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong TOTP code: expected 401, got %d", w.Code)
	}

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	w = env.do(t, "POST", "/api/auth/verify-otp", map[string]string{
		"email": "lena@example.com", "code": code, "action": "login",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("TOTP login verification: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if cookieByName(w, "accessToken") == nil || cookieByName(w, "refreshToken") == nil {
		t.Error("expected auth cookies after TOTP verification")
	}
}

func TestDisableLastMethodClearsFlag(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedUser(t, "nina@example.com", testPassword)
	env.store.UpdateTwoFactor(nil, seeded.UserID, true, []string{model.TwoFactorEmail})

	// 2FA user: login is partial, the verification call carries the cookie-less session
	w := env.do(t, "POST", "/api/auth/login", map[string]string{
		"email": "nina@example.com", "password": testPassword,
	})
	if w.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", w.Code)
	}
	w = env.do(t, "POST", "/api/auth/verify-otp", map[string]string{
		"email": "nina@example.com", "code": env.mailer.code(), "action": "login",
	})
	cookie := cookieByName(w, "accessToken")
	if cookie == nil {
		t.Fatal("expected access cookie after 2fa login")
	}

	w = env.do(t, "POST", "/api/user/2fa/disable", map[string]string{
		"method": "email",
	}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("disable request: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	// removal only happens once the emailed code comes back
	user := env.store.get(seeded.UserID)
	if !user.TwoFactorEnabled {
		t.Fatal("method must stay enabled until the code is verified")
	}

	w = env.do(t, "POST", "/api/auth/verify-otp", map[string]string{
		"email": "nina@example.com", "code": env.mailer.code(), "action": "disable-2fa",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("disable confirmation: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	user = env.store.get(seeded.UserID)
	if user.TwoFactorEnabled || len(user.TwoFactorMethods) != 0 {
		t.Error("disabling the only method should clear the two-factor flag")
	}
}

func TestDisableOneOfTwoKeepsFlag(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedUser(t, "omar@example.com", testPassword)

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "test", AccountName: "omar@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	env.store.UpdateTwoFactor(nil, seeded.UserID, true,
		[]string{model.TwoFactorEmail, model.TwoFactorAuthenticator})
	env.store.SetAuthenticatorSecret(nil, seeded.UserID, key.Secret())

	// login via email OTP to get a session
	env.do(t, "POST", "/api/auth/login", map[string]string{
		"email": "omar@example.com", "password": testPassword,
	})
	w := env.do(t, "POST", "/api/auth/verify-otp", map[string]string{
		"email": "omar@example.com", "code": env.mailer.code(), "action": "login",
	})
	cookie := cookieByName(w, "accessToken")
	if cookie == nil {
		t.Fatal("expected access cookie")
	}

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatal(err)
	}

	w = env.do(t, "POST", "/api/user/2fa/disable", map[string]string{
		"method": "authenticator", "code": code,
	}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("disable authenticator: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	user := env.store.get(seeded.UserID)
	if !user.TwoFactorEnabled {
		t.Error("two-factor must stay enabled while another method remains")
	}
	if user.HasTwoFactorMethod(model.TwoFactorAuthenticator) {
		t.Error("authenticator method should be removed")
	}
	if user.TwoFactorSecret != "" {
		t.Error("removing the authenticator should drop its secret")
	}
}

func TestAuthenticatorEnrollment(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedUser(t, "pete@example.com", testPassword)
	cookie := env.authCookie(t, "pete@example.com", testPassword)

	// requesting the authenticator method commits nothing yet
	w := env.do(t, "POST", "/api/user/2fa/enable", map[string]string{
		"method": "authenticator",
	}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("enable: expected 200, got %d", w.Code)
	}
	data := decodeData(t, w)
	if data["enrollment_required"] != true {
		t.Fatalf("expected enrollment_required, got %v", data)
	}
	if env.store.get(seeded.UserID).TwoFactorEnabled {
		t.Fatal("nothing should be committed before enrollment verifies")
	}

	w = env.do(t, "GET", "/api/user/2fa/authenticator", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d", w.Code)
	}
	data = decodeData(t, w)
	secret, _ := data["secret"].(string)
	if secret == "" {
		t.Fatal("expected enrollment secret")
	}
	if qr, _ := data["qr_code"].(string); len(qr) == 0 {
		t.Error("expected QR code payload")
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	w = env.do(t, "POST", "/api/user/2fa/authenticator/verify", map[string]string{
		"secret": secret, "code": code,
	}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	user := env.store.get(seeded.UserID)
	if !user.TwoFactorEnabled || !user.HasTwoFactorMethod(model.TwoFactorAuthenticator) {
		t.Error("authenticator method should be committed after verification")
	}
	if user.TwoFactorSecret != secret {
		t.Error("verified secret should be stored")
	}
}

func TestAuthenticatorEnrollmentRejectsBadCode(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedUser(t, "quinn@example.com", testPassword)
	cookie := env.authCookie(t, "quinn@example.com", testPassword)

	w := env.do(t, "GET", "/api/user/2fa/authenticator", nil, cookie)
	data := decodeData(t, w)
	secret, _ := data["secret"].(string)

	w = env.do(t, "POST", "/api/user/2fa/authenticator/verify", map[string]string{
		"secret": secret, "code": "000000",
	}, cookie)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong code, got %d", w.Code)
	}
	if env.store.get(seeded.UserID).TwoFactorEnabled {
		t.Error("failed enrollment must not commit anything")
	}
}

func TestSocialVerify2FAWithEmailOTP(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedUser(t, "rosa@example.com", testPassword)
	env.store.UpdateTwoFactor(nil, seeded.UserID, true, []string{model.TwoFactorEmail})

	// simulate what the OAuth callback does for a 2FA user
	token, err := services.GeneratePending2FAToken(seeded.UserID, "google")
	if err != nil {
		t.Fatal(err)
	}
	if err := env.deps.TwoFactor.DispatchOTP("rosa@example.com", "social"); err != nil {
		t.Fatal(err)
	}

	w := env.do(t, "POST", "/api/auth/social/verify-2fa", map[string]string{
		"token": token, "code": env.mailer.code(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if cookieByName(w, "accessToken") == nil {
		t.Error("expected access cookie after social 2fa verification")
	}

	user := env.store.get(seeded.UserID)
	if len(user.LoginHistory) == 0 {
		t.Fatal("expected login history entry")
	}
	last := user.LoginHistory[len(user.LoginHistory)-1]
	if last.Method != "social-2fa" || last.Provider != "google" {
		t.Errorf("expected social-2fa/google attempt, got %s/%s", last.Method, last.Provider)
	}
}

func TestSocialVerify2FAHeuristicPicksTOTP(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedUser(t, "sven@example.com", testPassword)

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "test", AccountName: "sven@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	env.store.UpdateTwoFactor(nil, seeded.UserID, true,
		[]string{model.TwoFactorEmail, model.TwoFactorAuthenticator})
	env.store.SetAuthenticatorSecret(nil, seeded.UserID, key.Secret())

	token, err := services.GeneratePending2FAToken(seeded.UserID, "github")
	if err != nil {
		t.Fatal(err)
	}

	// no method hint: a 6-digit code from an authenticator user goes to TOTP
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatal(err)
	}

	w := env.do(t, "POST", "/api/auth/social/verify-2fa", map[string]string{
		"token": token, "code": code,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestSocialVerify2FARejectsExpiredToken(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, "POST", "/api/auth/social/verify-2fa", map[string]string{
		"token": "bogus.pending.token", "code": "ABC123",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid pending token, got %d", w.Code)
	}
}
