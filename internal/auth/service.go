// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/diplomate/backend/internal/core"
	"github.com/diplomate/backend/internal/identity"
	"github.com/diplomate/backend/internal/middleware"
)

var ErrTokenReuse = errors.New("token reuse detected")

const (
	roleStudent = "student"
	roleAdmin   = "admin"
)

// AccountInfo is the profile view the auth flow needs; the account
// package implements AccountStore over its repository.
type AccountInfo struct {
	ID         string
	Email      string
	FullName   string
	Role       string
	Department *string
	Semester   *string
	DeviceID   *string
	Verified   bool
}

type AccountStore interface {
	GetByID(ctx context.Context, id string) (*AccountInfo, error)
	BindDevice(ctx context.Context, id, deviceID string) (bool, error)
	EnsureProfile(
		ctx context.Context,
		ident *identity.Identity,
	) (*AccountInfo, error)
	MarkVerified(ctx context.Context, id string) error
}

type OTPService interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) (bool, error)
}

type TokenManager interface {
	CreateAccessToken(claims AccessTokenClaims) (string, string, error)
	CreateRefreshToken(userID, familyID string) (*RefreshTokenData, error)
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*middleware.AccessTokenClaims, error)
	AccessTokenTTL() time.Duration
}

type Service struct {
	sessions  Repository
	tokens    TokenManager
	accounts  AccountStore
	identity  identity.Provider
	otp       OTPService
	blacklist Blacklist
	logger    *slog.Logger
}

func NewService(
	sessions Repository,
	tokens TokenManager,
	accounts AccountStore,
	identityProvider identity.Provider,
	otpService OTPService,
	blacklist Blacklist,
	logger *slog.Logger,
) *Service {
	return &Service{
		sessions:  sessions,
		tokens:    tokens,
		accounts:  accounts,
		identity:  identityProvider,
		otp:       otpService,
		blacklist: blacklist,
		logger:    logger.With("component", "auth"),
	}
}

// SignIn authenticates against the identity provider, opens a session,
// then enforces the one-device rule for students. The session is
// created first so a device conflict revokes a real session, exactly as
// the client observes it: signed in for an instant, then signed out.
func (s *Service) SignIn(
	ctx context.Context,
	req SignInRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	ident, err := s.identity.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	acct, known := s.resolveAccount(ctx, ident)

	resp, session, jti, err := s.openSession(
		ctx,
		acct,
		req.DeviceID,
		userAgent,
		ipAddress,
		"",
		nil,
	)
	if err != nil {
		return nil, err
	}

	// Admins roam freely; only students are pinned to one device. When
	// the profile could not be read (known == false) the check is
	// skipped: a storage blip must not lock every student out.
	if known && acct.Role == roleStudent {
		if err := s.enforceDeviceBinding(ctx, acct, req.DeviceID, session, jti); err != nil {
			return nil, err
		}
	}

	return resp, nil
}

func (s *Service) enforceDeviceBinding(
	ctx context.Context,
	acct *AccountInfo,
	deviceID string,
	session *Session,
	jti string,
) error {
	if acct.DeviceID == nil || *acct.DeviceID == "" {
		bound, err := s.accounts.BindDevice(ctx, acct.ID, deviceID)
		if err != nil {
			s.logger.Warn("device bind failed, allowing sign-in",
				"user_id", acct.ID,
				"error", err,
			)
			return nil
		}
		if bound {
			return nil
		}

		// Lost a concurrent first-sign-in race; re-read and compare.
		fresh, err := s.accounts.GetByID(ctx, acct.ID)
		if err != nil {
			s.logger.Warn("device re-check failed, allowing sign-in",
				"user_id", acct.ID,
				"error", err,
			)
			return nil
		}
		if fresh.DeviceID != nil && *fresh.DeviceID == deviceID {
			return nil
		}

		return s.rejectDevice(ctx, acct.ID, session, jti)
	}

	if *acct.DeviceID != deviceID {
		return s.rejectDevice(ctx, acct.ID, session, jti)
	}

	return nil
}

// rejectDevice tears the just-opened session back down and returns the
// fixed conflict error.
func (s *Service) rejectDevice(
	ctx context.Context,
	userID string,
	session *Session,
	jti string,
) error {
	if err := s.sessions.RevokeByID(ctx, session.ID); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		s.logger.Error("failed to revoke conflicted session",
			"session_id", session.ID,
			"error", err,
		)
	}

	if err := s.blacklist.Revoke(ctx, jti, s.tokens.AccessTokenTTL()); err != nil {
		s.logger.Error("failed to blacklist conflicted token",
			"user_id", userID,
			"error", err,
		)
	}

	//nolint:errcheck // provider-side sign-out is best-effort
	_ = s.identity.SignOut(ctx, userID)

	return core.DeviceConflictError()
}

// resolveAccount loads the profile, creating it from credential
// metadata when missing. On any failure it synthesizes an in-memory
// view and reports known=false so device enforcement is skipped.
func (s *Service) resolveAccount(
	ctx context.Context,
	ident *identity.Identity,
) (*AccountInfo, bool) {
	acct, err := s.accounts.GetByID(ctx, ident.UserID)
	if err == nil {
		return acct, true
	}

	if errors.Is(err, core.ErrNotFound) {
		acct, err = s.accounts.EnsureProfile(ctx, ident)
		if err == nil {
			return acct, true
		}
	}

	s.logger.Warn("account lookup failed, proceeding without profile",
		"user_id", ident.UserID,
		"error", err,
	)

	return synthesizeAccount(ident), false
}

// RegisterStart validates the sign-up form and emails a verification
// code. No state is created yet; the client resubmits everything with
// the code.
func (s *Service) RegisterStart(
	ctx context.Context,
	req RegisterStartRequest,
) error {
	if _, err := s.otp.Issue(ctx, req.Email); err != nil {
		return err
	}

	return nil
}

// RegisterComplete consumes the code, creates the credential, writes the
// profile, and signs the new student in on the submitting device. A
// failed profile write is swallowed: the credential exists, and the next
// sign-in repairs the profile from metadata.
func (s *Service) RegisterComplete(
	ctx context.Context,
	req RegisterCompleteRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	valid, err := s.otp.Verify(ctx, req.Email, req.Code)
	if err != nil {
		return nil, fmt.Errorf("verify code: %w", err)
	}
	if !valid {
		return nil, core.OTPInvalidError()
	}

	ident, err := s.identity.SignUp(ctx, req.Email, req.Password, identity.Metadata{
		FullName:   req.FullName,
		Role:       roleStudent,
		Department: req.Department,
		Semester:   req.Semester,
	})
	if err != nil {
		return nil, err
	}

	acct, perr := s.accounts.EnsureProfile(ctx, ident)
	if perr != nil {
		s.logger.Warn("profile write failed after signup, repair deferred to sign-in",
			"user_id", ident.UserID,
			"error", perr,
		)
		acct = synthesizeAccount(ident)
	} else {
		if verr := s.accounts.MarkVerified(ctx, ident.UserID); verr != nil {
			s.logger.Warn("mark verified failed",
				"user_id", ident.UserID,
				"error", verr,
			)
		} else {
			acct.Verified = true
		}

		if _, berr := s.accounts.BindDevice(ctx, ident.UserID, req.DeviceID); berr != nil {
			s.logger.Warn("device bind at registration failed",
				"user_id", ident.UserID,
				"error", berr,
			)
		}
	}

	resp, _, _, err := s.openSession(
		ctx,
		acct,
		req.DeviceID,
		userAgent,
		ipAddress,
		"",
		nil,
	)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	tokenHash := core.HashToken(refreshToken)

	session, err := s.sessions.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	if session.IsUsed {
		//nolint:errcheck // security revocation continues regardless
		_ = s.sessions.RevokeByFamilyID(ctx, session.FamilyID)
		return nil, ErrTokenReuse
	}

	if !session.IsValid() {
		if session.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	acct, err := s.loadAccountForSession(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	resp, _, _, err := s.openSession(
		ctx,
		acct,
		session.DeviceID,
		userAgent,
		ipAddress,
		session.FamilyID,
		&session.ID,
	)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (s *Service) loadAccountForSession(
	ctx context.Context,
	userID string,
) (*AccountInfo, error) {
	acct, err := s.accounts.GetByID(ctx, userID)
	if err == nil {
		return acct, nil
	}

	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("get account: %w", err)
	}

	ident, err := s.identity.Lookup(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	acct, err = s.accounts.EnsureProfile(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}

	return acct, nil
}

// SignOut revokes the presented refresh token and blacklists the
// caller's current access token.
func (s *Service) SignOut(
	ctx context.Context,
	refreshToken, userID, jti string,
) error {
	tokenHash := core.HashToken(refreshToken)

	session, err := s.sessions.FindByHash(ctx, tokenHash)
	if err == nil {
		if session.UserID != userID {
			return fmt.Errorf("sign out: %w", core.ErrForbidden)
		}
		if err := s.sessions.RevokeByID(ctx, session.ID); err != nil &&
			!errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("revoke session: %w", err)
		}
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("find session: %w", err)
	}

	if jti != "" {
		if err := s.blacklist.Revoke(ctx, jti, s.tokens.AccessTokenTTL()); err != nil {
			s.logger.Warn("blacklist on sign-out failed",
				"user_id", userID,
				"error", err,
			)
		}
	}

	//nolint:errcheck // provider-side sign-out is best-effort
	_ = s.identity.SignOut(ctx, userID)

	return nil
}

func (s *Service) SignOutAll(ctx context.Context, userID, jti string) error {
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}

	if jti != "" {
		if err := s.blacklist.Revoke(ctx, jti, s.tokens.AccessTokenTTL()); err != nil {
			s.logger.Warn("blacklist on sign-out-all failed",
				"user_id", userID,
				"error", err,
			)
		}
	}

	return nil
}

func (s *Service) GetActiveSessions(
	ctx context.Context,
	userID string,
) ([]SessionInfo, error) {
	sessions, err := s.sessions.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, SessionInfo{
			ID:        sess.ID,
			DeviceID:  sess.DeviceID,
			UserAgent: sess.UserAgent,
			IPAddress: sess.IPAddress,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
		})
	}

	return infos, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}

	if session.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}

	if err := s.sessions.RevokeByID(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword, jti string,
) error {
	if err := s.identity.ChangePassword(ctx, userID, currentPassword, newPassword); err != nil {
		return err
	}

	return s.SignOutAll(ctx, userID, jti)
}

// VerifyAccessToken satisfies middleware.TokenVerifier: signature check
// plus the revocation blacklist. A blacklist read failure lets the
// token through with a warning; the session row is the durable
// revocation record and refresh still dies there.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		s.logger.Warn("blacklist check failed, accepting token",
			"error", err,
		)
		return claims, nil
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	acct, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(acct)
	return &resp, nil
}

func (s *Service) openSession(
	ctx context.Context,
	acct *AccountInfo,
	deviceID, userAgent, ipAddress, familyID string,
	oldSessionID *string,
) (*AuthResponse, *Session, string, error) {
	accessToken, jti, err := s.tokens.CreateAccessToken(AccessTokenClaims{
		UserID: acct.ID,
		Role:   acct.Role,
	})
	if err != nil {
		return nil, nil, "", fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.tokens.CreateRefreshToken(acct.ID, familyID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("create refresh token: %w", err)
	}

	session := &Session{
		ID:        uuid.New().String(),
		UserID:    acct.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		DeviceID:  deviceID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, "", fmt.Errorf("store session: %w", err)
	}

	if oldSessionID != nil {
		//nolint:errcheck // best-effort rotation chain tracking
		_ = s.sessions.MarkAsUsed(ctx, *oldSessionID, session.ID)
	}

	ttl := s.tokens.AccessTokenTTL()

	return &AuthResponse{
		User: toUserResponse(acct),
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshData.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(ttl / time.Second),
			ExpiresAt:    time.Now().Add(ttl),
		},
	}, session, jti, nil
}

func synthesizeAccount(ident *identity.Identity) *AccountInfo {
	role := ident.Metadata.Role
	if role != roleAdmin {
		role = roleStudent
	}

	return &AccountInfo{
		ID:         ident.UserID,
		Email:      ident.Email,
		FullName:   ident.Metadata.FullName,
		Role:       role,
		Department: optional(ident.Metadata.Department),
		Semester:   optional(ident.Metadata.Semester),
	}
}

func toUserResponse(acct *AccountInfo) UserResponse {
	return UserResponse{
		ID:         acct.ID,
		Email:      acct.Email,
		FullName:   acct.FullName,
		Role:       acct.Role,
		Department: acct.Department,
		Semester:   acct.Semester,
		Verified:   acct.Verified,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ middleware.TokenVerifier = (*Service)(nil)
