package constants

// Client-facing messages shared across handlers and services. Reset and
// registration answers are deliberately generic so responses cannot be used
// to probe which emails exist.
const (
	MsgRegistered        = "Registration successful. Check your email to confirm your account."
	MsgConfirmationSent  = "Your account is not confirmed yet. A new confirmation email has been sent."
	MsgAccessCodeSent    = "A login code has been sent to your email."
	MsgResetEmailSent    = "If the email belongs to an account, a password reset link has been sent."
	MsgPasswordReset     = "Password has been reset. You can now log in."
	MsgLoggedOut         = "Logout successful."
	MsgCredentialsOK     = "Credentials confirmed."
	MsgTwoFactorEnabled  = "Two-factor authentication enabled."
	MsgTwoFactorDisabled = "Two-factor authentication disabled."
	MsgAccountDeleted    = "Account deleted."
)
