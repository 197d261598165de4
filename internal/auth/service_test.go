// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/diplomate/backend/internal/core"
	"github.com/diplomate/backend/internal/identity"
	"github.com/diplomate/backend/internal/middleware"
)

type fakeAccounts struct {
	accounts  map[string]*AccountInfo
	getErr    error
	bindErr   error
	ensureErr error

	ensureCalls int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[string]*AccountInfo)}
}

func (f *fakeAccounts) GetByID(
	_ context.Context,
	id string,
) (*AccountInfo, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	acct, ok := f.accounts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (f *fakeAccounts) BindDevice(
	_ context.Context,
	id, deviceID string,
) (bool, error) {
	if f.bindErr != nil {
		return false, f.bindErr
	}
	acct, ok := f.accounts[id]
	if !ok {
		return false, nil
	}
	if acct.DeviceID != nil && *acct.DeviceID != "" {
		return false, nil
	}
	acct.DeviceID = &deviceID
	return true, nil
}

func (f *fakeAccounts) EnsureProfile(
	_ context.Context,
	ident *identity.Identity,
) (*AccountInfo, error) {
	f.ensureCalls++
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	acct := synthesizeAccount(ident)
	f.accounts[ident.UserID] = acct
	cp := *acct
	return &cp, nil
}

func (f *fakeAccounts) MarkVerified(_ context.Context, id string) error {
	if acct, ok := f.accounts[id]; ok {
		acct.Verified = true
	}
	return nil
}

type fakeIdentity struct {
	users       map[string]*identity.Identity
	passwords   map[string]string
	signOutIDs  []string
	signUpCalls int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		users:     make(map[string]*identity.Identity),
		passwords: make(map[string]string),
	}
}

func (f *fakeIdentity) addUser(email, password, role string) *identity.Identity {
	ident := &identity.Identity{
		UserID: uuid.NewString(),
		Email:  email,
		Metadata: identity.Metadata{
			FullName: "Test User",
			Role:     role,
		},
	}
	f.users[email] = ident
	f.passwords[email] = password
	return ident
}

func (f *fakeIdentity) SignIn(
	_ context.Context,
	email, password string,
) (*identity.Identity, error) {
	ident, ok := f.users[email]
	if !ok || f.passwords[email] != password {
		return nil, core.UnauthorizedError("invalid email or password")
	}
	return ident, nil
}

func (f *fakeIdentity) SignUp(
	_ context.Context,
	email, password string,
	md identity.Metadata,
) (*identity.Identity, error) {
	f.signUpCalls++
	if _, ok := f.users[email]; ok {
		return nil, core.DuplicateError("an account with this email")
	}
	ident := &identity.Identity{
		UserID:   uuid.NewString(),
		Email:    email,
		Metadata: md,
	}
	f.users[email] = ident
	f.passwords[email] = password
	return ident, nil
}

func (f *fakeIdentity) SignOut(_ context.Context, userID string) error {
	f.signOutIDs = append(f.signOutIDs, userID)
	return nil
}

func (f *fakeIdentity) Lookup(
	_ context.Context,
	userID string,
) (*identity.Identity, error) {
	for _, ident := range f.users {
		if ident.UserID == userID {
			return ident, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeIdentity) ChangePassword(
	_ context.Context,
	userID, currentPassword, newPassword string,
) error {
	for email, ident := range f.users {
		if ident.UserID == userID {
			if f.passwords[email] != currentPassword {
				return core.UnauthorizedError("current password is incorrect")
			}
			f.passwords[email] = newPassword
			return nil
		}
	}
	return core.ErrNotFound
}

type fakeSessions struct {
	sessions map[string]*Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]*Session)}
}

func (f *fakeSessions) Create(_ context.Context, s *Session) error {
	s.CreatedAt = time.Now()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessions) FindByHash(
	_ context.Context,
	hash string,
) (*Session, error) {
	for _, s := range f.sessions {
		if s.TokenHash == hash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeSessions) FindByID(_ context.Context, id string) (*Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) MarkAsUsed(
	_ context.Context,
	id, replacedByID string,
) error {
	s, ok := f.sessions[id]
	if !ok {
		return core.ErrNotFound
	}
	now := time.Now()
	s.IsUsed = true
	s.UsedAt = &now
	s.ReplacedByID = &replacedByID
	return nil
}

func (f *fakeSessions) RevokeByID(_ context.Context, id string) error {
	s, ok := f.sessions[id]
	if !ok {
		return core.ErrNotFound
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (f *fakeSessions) RevokeByFamilyID(
	_ context.Context,
	familyID string,
) error {
	now := time.Now()
	for _, s := range f.sessions {
		if s.FamilyID == familyID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeSessions) RevokeAllForUser(_ context.Context, userID string) error {
	now := time.Now()
	for _, s := range f.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeSessions) ActiveForUser(
	_ context.Context,
	userID string,
) ([]Session, error) {
	var out []Session
	for _, s := range f.sessions {
		if s.UserID == userID && s.IsValid() {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

type fakeOTP struct {
	codes map[string]string
}

func newFakeOTP() *fakeOTP {
	return &fakeOTP{codes: make(map[string]string)}
}

func (f *fakeOTP) Issue(_ context.Context, email string) (string, error) {
	f.codes[email] = "123456"
	return "123456", nil
}

func (f *fakeOTP) Verify(
	_ context.Context,
	email, code string,
) (bool, error) {
	stored, ok := f.codes[email]
	if !ok || stored != code {
		return false, nil
	}
	delete(f.codes, email)
	return true, nil
}

type fakeBlacklist struct {
	revoked map[string]bool
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{revoked: make(map[string]bool)}
}

func (f *fakeBlacklist) Revoke(
	_ context.Context,
	jti string,
	_ time.Duration,
) error {
	f.revoked[jti] = true
	return nil
}

func (f *fakeBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], nil
}

type fakeTokens struct {
	lastJTI string
}

func (f *fakeTokens) CreateAccessToken(
	claims AccessTokenClaims,
) (string, string, error) {
	f.lastJTI = uuid.NewString()
	return "access-" + claims.UserID, f.lastJTI, nil
}

func (f *fakeTokens) CreateRefreshToken(
	userID, familyID string,
) (*RefreshTokenData, error) {
	token, err := core.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if familyID == "" {
		familyID = uuid.NewString()
	}
	return &RefreshTokenData{
		Token:     token,
		Hash:      core.HashToken(token),
		ExpiresAt: time.Now().Add(time.Hour),
		FamilyID:  familyID,
	}, nil
}

func (f *fakeTokens) VerifyAccessToken(
	_ context.Context,
	_ string,
) (*middleware.AccessTokenClaims, error) {
	return nil, core.ErrTokenInvalid
}

func (f *fakeTokens) AccessTokenTTL() time.Duration {
	return 15 * time.Minute
}

type testEnv struct {
	svc       *Service
	accounts  *fakeAccounts
	identity  *fakeIdentity
	sessions  *fakeSessions
	otp       *fakeOTP
	blacklist *fakeBlacklist
	tokens    *fakeTokens
}

func newTestEnv() *testEnv {
	env := &testEnv{
		accounts:  newFakeAccounts(),
		identity:  newFakeIdentity(),
		sessions:  newFakeSessions(),
		otp:       newFakeOTP(),
		blacklist: newFakeBlacklist(),
		tokens:    &fakeTokens{},
	}
	env.svc = NewService(
		env.sessions,
		env.tokens,
		env.accounts,
		env.identity,
		env.otp,
		env.blacklist,
		slog.Default(),
	)
	return env
}

func (env *testEnv) addStudent(email, password, device string) *AccountInfo {
	ident := env.identity.addUser(email, password, roleStudent)
	acct := synthesizeAccount(ident)
	if device != "" {
		acct.DeviceID = &device
	}
	env.accounts.accounts[ident.UserID] = acct
	return acct
}

func signIn(env *testEnv, email, password, device string) (*AuthResponse, error) {
	return env.svc.SignIn(context.Background(), SignInRequest{
		Email:    email,
		Password: password,
		DeviceID: device,
	}, "test-agent", "127.0.0.1")
}

func TestSignInBindsFirstDevice(t *testing.T) {
	env := newTestEnv()
	acct := env.addStudent("s@uni.edu", "password123", "")

	resp, err := signIn(env, "s@uni.edu", "password123", "device-A")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if resp.Tokens.AccessToken == "" {
		t.Fatal("no access token issued")
	}

	stored := env.accounts.accounts[acct.ID]
	if stored.DeviceID == nil || *stored.DeviceID != "device-A" {
		t.Fatalf("device not bound, got %v", stored.DeviceID)
	}
}

func TestSignInSameDeviceSucceeds(t *testing.T) {
	env := newTestEnv()
	env.addStudent("s@uni.edu", "password123", "device-A")

	if _, err := signIn(env, "s@uni.edu", "password123", "device-A"); err != nil {
		t.Fatalf("SignIn() on bound device error = %v", err)
	}
}

func TestSignInDeviceConflict(t *testing.T) {
	env := newTestEnv()
	acct := env.addStudent("s@uni.edu", "password123", "device-A")

	_, err := signIn(env, "s@uni.edu", "password123", "device-B")
	if err == nil {
		t.Fatal("SignIn() from second device succeeded")
	}

	appErr, ok := core.AsAppError(err)
	if !ok {
		t.Fatalf("error is not an AppError: %v", err)
	}
	if appErr.Message != core.DeviceConflictMessage {
		t.Fatalf("conflict message = %q, want %q",
			appErr.Message, core.DeviceConflictMessage)
	}

	// Binding must be untouched.
	stored := env.accounts.accounts[acct.ID]
	if stored.DeviceID == nil || *stored.DeviceID != "device-A" {
		t.Fatalf("binding changed to %v", stored.DeviceID)
	}

	// The just-opened session must be revoked and its token blacklisted.
	for _, s := range env.sessions.sessions {
		if s.RevokedAt == nil {
			t.Fatal("conflicted session left active")
		}
	}
	if !env.blacklist.revoked[env.tokens.lastJTI] {
		t.Fatal("conflicted access token not blacklisted")
	}
}

func TestSignInAdminSkipsDeviceCheck(t *testing.T) {
	env := newTestEnv()
	ident := env.identity.addUser("admin@uni.edu", "password123", roleAdmin)
	acct := synthesizeAccount(ident)
	env.accounts.accounts[ident.UserID] = acct

	if _, err := signIn(env, "admin@uni.edu", "password123", "device-A"); err != nil {
		t.Fatalf("admin SignIn() error = %v", err)
	}
	if _, err := signIn(env, "admin@uni.edu", "password123", "device-B"); err != nil {
		t.Fatalf("admin SignIn() from second device error = %v", err)
	}

	if env.accounts.accounts[ident.UserID].DeviceID != nil {
		t.Fatal("admin account acquired a device binding")
	}
}

func TestSignInFailsOpenOnLookupError(t *testing.T) {
	env := newTestEnv()
	env.addStudent("s@uni.edu", "password123", "device-A")
	env.accounts.getErr = errors.New("db down")

	// Even from the wrong device: without a readable binding the check
	// is skipped rather than locking the student out.
	if _, err := signIn(env, "s@uni.edu", "password123", "device-B"); err != nil {
		t.Fatalf("SignIn() during lookup outage error = %v", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	env := newTestEnv()
	env.addStudent("s@uni.edu", "password123", "")

	_, err := signIn(env, "s@uni.edu", "wrong-password", "device-A")
	if err == nil {
		t.Fatal("SignIn() with wrong password succeeded")
	}
	if len(env.sessions.sessions) != 0 {
		t.Fatal("session created for failed credential check")
	}
}

func TestSignInRepairsMissingProfile(t *testing.T) {
	env := newTestEnv()
	env.identity.addUser("s@uni.edu", "password123", roleStudent)

	resp, err := signIn(env, "s@uni.edu", "password123", "device-A")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if env.accounts.ensureCalls != 1 {
		t.Fatalf("EnsureProfile calls = %d, want 1", env.accounts.ensureCalls)
	}
	if resp.User.FullName != "Test User" {
		t.Fatalf("profile not synthesized from metadata: %+v", resp.User)
	}
}

func TestRegisterCompleteWrongCode(t *testing.T) {
	env := newTestEnv()
	env.otp.codes["new@uni.edu"] = "654321"

	_, err := env.svc.RegisterComplete(context.Background(),
		RegisterCompleteRequest{
			Email:    "new@uni.edu",
			Password: "password123",
			FullName: "New Student",
			Code:     "111111",
			DeviceID: "device-A",
		}, "test-agent", "127.0.0.1")

	if !errors.Is(err, core.ErrOTPInvalid) {
		t.Fatalf("error = %v, want ErrOTPInvalid", err)
	}
	if env.identity.signUpCalls != 0 {
		t.Fatal("SignUp called despite failed verification")
	}
}

func TestRegisterCompleteHappyPath(t *testing.T) {
	env := newTestEnv()
	env.otp.codes["new@uni.edu"] = "654321"

	resp, err := env.svc.RegisterComplete(context.Background(),
		RegisterCompleteRequest{
			Email:    "new@uni.edu",
			Password: "password123",
			FullName: "New Student",
			Code:     "654321",
			DeviceID: "device-A",
		}, "test-agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("RegisterComplete() error = %v", err)
	}

	if resp.User.Role != roleStudent {
		t.Fatalf("role = %q, want student", resp.User.Role)
	}
	if resp.Tokens.RefreshToken == "" {
		t.Fatal("no refresh token issued")
	}

	// Single use: the same code cannot complete twice.
	_, err = env.svc.RegisterComplete(context.Background(),
		RegisterCompleteRequest{
			Email:    "new@uni.edu",
			Password: "password123",
			FullName: "New Student",
			Code:     "654321",
			DeviceID: "device-A",
		}, "test-agent", "127.0.0.1")
	if !errors.Is(err, core.ErrOTPInvalid) {
		t.Fatalf("code reuse error = %v, want ErrOTPInvalid", err)
	}
}

func TestRegisterCompleteSurvivesProfileFailure(t *testing.T) {
	env := newTestEnv()
	env.otp.codes["new@uni.edu"] = "654321"
	env.accounts.ensureErr = errors.New("profiles table down")

	resp, err := env.svc.RegisterComplete(context.Background(),
		RegisterCompleteRequest{
			Email:    "new@uni.edu",
			Password: "password123",
			FullName: "New Student",
			Code:     "654321",
			DeviceID: "device-A",
		}, "test-agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("RegisterComplete() error = %v", err)
	}
	if resp.Tokens.AccessToken == "" {
		t.Fatal("no tokens despite credential creation")
	}

	// Next sign-in repairs the profile.
	env.accounts.ensureErr = nil
	if _, err := signIn(env, "new@uni.edu", "password123", "device-A"); err != nil {
		t.Fatalf("repair SignIn() error = %v", err)
	}
	if env.accounts.ensureCalls < 2 {
		t.Fatal("EnsureProfile not retried at sign-in")
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	env := newTestEnv()
	env.addStudent("s@uni.edu", "password123", "")

	resp, err := signIn(env, "s@uni.edu", "password123", "device-A")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	refreshed, err := env.svc.Refresh(
		context.Background(),
		resp.Tokens.RefreshToken,
		"test-agent",
		"127.0.0.1",
	)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.Tokens.RefreshToken == resp.Tokens.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	// Reusing the rotated token burns the family.
	if _, err := env.svc.Refresh(
		context.Background(),
		resp.Tokens.RefreshToken,
		"test-agent",
		"127.0.0.1",
	); !errors.Is(err, ErrTokenReuse) {
		t.Fatalf("reuse error = %v, want ErrTokenReuse", err)
	}

	if _, err := env.svc.Refresh(
		context.Background(),
		refreshed.Tokens.RefreshToken,
		"test-agent",
		"127.0.0.1",
	); err == nil {
		t.Fatal("family member survived reuse revocation")
	}
}

func TestSignOutRevokesSessionAndToken(t *testing.T) {
	env := newTestEnv()
	env.addStudent("s@uni.edu", "password123", "")

	resp, err := signIn(env, "s@uni.edu", "password123", "device-A")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	var userID string
	for _, s := range env.sessions.sessions {
		userID = s.UserID
	}

	jti := env.tokens.lastJTI
	if err := env.svc.SignOut(
		context.Background(),
		resp.Tokens.RefreshToken,
		userID,
		jti,
	); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	if !env.blacklist.revoked[jti] {
		t.Fatal("access token not blacklisted on sign-out")
	}
	if _, err := env.svc.Refresh(
		context.Background(),
		resp.Tokens.RefreshToken,
		"test-agent",
		"127.0.0.1",
	); err == nil {
		t.Fatal("refresh succeeded after sign-out")
	}
}
