package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/fluxmesh/accounts/internal/dto"
	apperrors "github.com/fluxmesh/accounts/internal/errors"
)

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("failed to parse mail link %q: %v", link, err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatalf("mail link %q carries no token", link)
	}
	return token
}

// Register, confirm with the mailed token, then log in with the password.
func TestRegisterConfirmLoginFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	err := f.auth.Register(ctx, &dto.RegisterRequest{
		Name:      "Jane Doe",
		Email:     "jane@x.com",
		Password1: "Ab123456",
		Password2: "Ab123456",
	})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	confirmToken := tokenFromLink(t, waitForMail(t, f.mailer.confirmations))

	// Unconfirmed login is rejected and triggers a fresh confirmation mail
	_, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "jane@x.com", Password: "Ab123456"})
	if !errors.Is(err, apperrors.ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	waitForMail(t, f.mailer.confirmations)

	tokens, err := f.auth.ConfirmEmail(ctx, confirmToken)
	if err != nil {
		t.Fatalf("confirmation failed: %v", err)
	}

	claims, err := f.tokens.VerifyAccess(tokens.AccessToken)
	if err != nil {
		t.Fatalf("issued access token does not verify: %v", err)
	}

	user := f.reload(t, claims.UserID)
	if !user.Confirmed {
		t.Error("expected user to be confirmed")
	}
	if user.Email != "jane@x.com" {
		t.Errorf("unexpected email %s", user.Email)
	}
	if user.Credentials.Version != 1 {
		t.Errorf("expected version 1 after confirmation, got %d", user.Credentials.Version)
	}

	// Confirming twice is rejected
	if _, err := f.auth.ConfirmEmail(ctx, confirmToken); err == nil {
		t.Fatal("expected second confirmation to fail")
	}

	result, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "jane@x.com", Password: "Ab123456"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.TwoFactorPending {
		t.Fatal("unexpected two-factor challenge")
	}
	if _, err := f.tokens.VerifyAccess(result.Tokens.AccessToken); err != nil {
		t.Fatalf("login access token does not verify: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.createUser(t, "taken@x.com", "Ab123456")

	err := f.auth.Register(ctx, &dto.RegisterRequest{
		Name:      "Imposter",
		Email:     "taken@x.com",
		Password1: "Cd789012",
		Password2: "Cd789012",
	})
	if !errors.Is(err, apperrors.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.createUser(t, "alice@x.com", "correct-password")

	_, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "alice@x.com", Password: "wrong-password"})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

// After a password change, logging in with the previous password fails with
// the age hint instead of the generic message.
func TestLoginPreviousPasswordHint(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "bob@x.com", "old-password1")

	if _, err := f.auth.UpdatePassword(ctx, user.ID, &dto.UpdatePasswordRequest{
		Password:  "old-password1",
		Password1: "new-password1",
		Password2: "new-password1",
	}); err != nil {
		t.Fatalf("password update failed: %v", err)
	}

	_, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "bob@x.com", Password: "old-password1"})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	msg := apperrors.GetErrorMessage(err)
	if !strings.Contains(msg, "You changed your password") {
		t.Errorf("expected password-age hint, got %q", msg)
	}
	if !strings.Contains(msg, "recently") {
		t.Errorf("expected a just-changed password to read recently, got %q", msg)
	}

	// A password that was never used stays generic
	_, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "bob@x.com", Password: "never-used"})
	if got := apperrors.GetErrorMessage(err); strings.Contains(got, "You changed") {
		t.Errorf("generic failure leaked the hint: %q", got)
	}
}

// Two-factor login never hands out tokens before the code round trip.
func TestTwoFactorLoginFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "carol@x.com", "Ab123456")

	if err := f.auth.ChangeTwoFactorAuth(ctx, user.ID, true); err != nil {
		t.Fatalf("failed to enable two-factor: %v", err)
	}

	result, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "carol@x.com", Password: "Ab123456"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !result.TwoFactorPending {
		t.Fatal("expected a two-factor challenge")
	}
	if result.Tokens != nil {
		t.Fatal("two-factor login must not return tokens")
	}

	code := waitForMail(t, f.mailer.codes)
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	if _, err := f.auth.ConfirmLogin(ctx, &dto.ConfirmLoginRequest{Email: "carol@x.com", AccessCode: wrong}); !errors.Is(err, apperrors.ErrInvalidAccessCode) {
		t.Fatalf("expected ErrInvalidAccessCode, got %v", err)
	}

	tokens, err := f.auth.ConfirmLogin(ctx, &dto.ConfirmLoginRequest{Email: "carol@x.com", AccessCode: code})
	if err != nil {
		t.Fatalf("login confirmation failed: %v", err)
	}
	if _, err := f.tokens.VerifyAccess(tokens.AccessToken); err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}

	// The code was consumed; replaying it fails
	if _, err := f.auth.ConfirmLogin(ctx, &dto.ConfirmLoginRequest{Email: "carol@x.com", AccessCode: code}); err == nil {
		t.Fatal("expected replayed code to be rejected")
	}
}

// A refresh token is accepted iff its count matches the live version.
func TestRefreshTokenVersionCheck(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "dave@x.com", "Ab123456")

	result, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "dave@x.com", Password: "Ab123456"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := f.auth.RefreshAccessToken(ctx, result.Tokens.RefreshToken); err != nil {
		t.Fatalf("refresh with current version failed: %v", err)
	}

	// Any version bump revokes the outstanding refresh token
	if err := f.auth.ChangeTwoFactorAuth(ctx, user.ID, false); err != nil {
		t.Fatalf("failed to bump version: %v", err)
	}

	_, err = f.auth.RefreshAccessToken(ctx, result.Tokens.RefreshToken)
	if !errors.Is(err, apperrors.ErrStaleToken) {
		t.Fatalf("expected ErrStaleToken, got %v", err)
	}
}

// The reset endpoint answers identically for unknown addresses and sends no
// mail for them.
func TestResetPasswordUnknownEmailSilent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.auth.SendResetPasswordEmail(ctx, "nobody@x.com"); err != nil {
		t.Fatalf("expected generic success, got %v", err)
	}

	select {
	case link := <-f.mailer.resets:
		t.Fatalf("unexpected reset mail for unknown address: %s", link)
	default:
	}
}

func TestResetPasswordFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "erin@x.com", "old-password1")

	if err := f.auth.SendResetPasswordEmail(ctx, "erin@x.com"); err != nil {
		t.Fatalf("reset mail failed: %v", err)
	}
	resetToken := tokenFromLink(t, waitForMail(t, f.mailer.resets))

	if err := f.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{
		ResetToken: resetToken,
		Password1:  "new-password1",
		Password2:  "mismatched",
	}); !errors.Is(err, apperrors.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}

	if err := f.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{
		ResetToken: resetToken,
		Password1:  "new-password1",
		Password2:  "new-password1",
	}); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	reloaded := f.reload(t, user.ID)
	if reloaded.Credentials.Version != user.Credentials.Version+1 {
		t.Errorf("expected version bump, got %d", reloaded.Credentials.Version)
	}
	if reloaded.Credentials.LastPassword != user.Password {
		t.Error("expected previous hash to be recorded")
	}

	// The reset token died with the version bump
	if err := f.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{
		ResetToken: resetToken,
		Password1:  "another-pass1",
		Password2:  "another-pass1",
	}); !errors.Is(err, apperrors.ErrStaleToken) {
		t.Fatalf("expected ErrStaleToken on reuse, got %v", err)
	}

	if _, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "erin@x.com", Password: "new-password1"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestUpdateEmailChecks(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "frank@x.com", "Ab123456")
	f.createUser(t, "existing@x.com", "Ab123456")

	if _, err := f.auth.UpdateEmail(ctx, user.ID, &dto.UpdateEmailRequest{
		Email:    "new@x.com",
		Password: "wrong",
	}); !errors.Is(err, apperrors.ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}

	if _, err := f.auth.UpdateEmail(ctx, user.ID, &dto.UpdateEmailRequest{
		Email:    "frank@x.com",
		Password: "Ab123456",
	}); !errors.Is(err, apperrors.ErrSameEmail) {
		t.Fatalf("expected ErrSameEmail, got %v", err)
	}

	if _, err := f.auth.UpdateEmail(ctx, user.ID, &dto.UpdateEmailRequest{
		Email:    "existing@x.com",
		Password: "Ab123456",
	}); !errors.Is(err, apperrors.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	tokens, err := f.auth.UpdateEmail(ctx, user.ID, &dto.UpdateEmailRequest{
		Email:    "new@x.com",
		Password: "Ab123456",
	})
	if err != nil {
		t.Fatalf("email update failed: %v", err)
	}

	reloaded := f.reload(t, user.ID)
	if reloaded.Email != "new@x.com" {
		t.Errorf("expected new@x.com, got %s", reloaded.Email)
	}
	if reloaded.Credentials.Version != user.Credentials.Version+1 {
		t.Errorf("expected version bump, got %d", reloaded.Credentials.Version)
	}

	// The fresh refresh token carries the new version
	claims, err := f.tokens.VerifyRefresh(tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh token does not verify: %v", err)
	}
	if claims.Count != reloaded.Credentials.Version {
		t.Errorf("expected refresh count %d, got %d", reloaded.Credentials.Version, claims.Count)
	}
}

func TestUpdatePasswordChecks(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "grace@x.com", "Ab123456")

	for _, tt := range []struct {
		name string
		req  dto.UpdatePasswordRequest
		want error
	}{
		{
			name: "wrong current password",
			req:  dto.UpdatePasswordRequest{Password: "nope", Password1: "Cd789012", Password2: "Cd789012"},
			want: apperrors.ErrIncorrectPassword,
		},
		{
			name: "mismatched confirmation",
			req:  dto.UpdatePasswordRequest{Password: "Ab123456", Password1: "Cd789012", Password2: "Ef345678"},
			want: apperrors.ErrPasswordMismatch,
		},
		{
			name: "same password",
			req:  dto.UpdatePasswordRequest{Password: "Ab123456", Password1: "Ab123456", Password2: "Ab123456"},
			want: apperrors.ErrSamePassword,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.auth.UpdatePassword(ctx, user.ID, &tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// ConfirmCredentials moves only the timestamp, never the version.
func TestConfirmCredentialsTimestampOnly(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "henry@x.com", "Ab123456")

	before := f.reload(t, user.ID)
	if err := f.auth.ConfirmCredentials(ctx, user.ID); err != nil {
		t.Fatalf("confirm credentials failed: %v", err)
	}

	after := f.reload(t, user.ID)
	if after.Credentials.Version != before.Credentials.Version {
		t.Errorf("version must not move: %d -> %d", before.Credentials.Version, after.Credentials.Version)
	}
	if after.Credentials.UpdatedAt < before.Credentials.UpdatedAt {
		t.Error("updatedAt went backwards")
	}
}
