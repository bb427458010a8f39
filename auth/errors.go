package auth

import (
	"fmt"
	"strings"
)

// Error is an authentication failure carrying a Firebase client error code such
// as "auth/email-already-in-use".
type Error struct {
	Code string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Firebase: Error (%s).", e.Code)
}

var restErrorCodes = map[string]string{
	"EMAIL_EXISTS":                "auth/email-already-in-use",
	"INVALID_EMAIL":               "auth/invalid-email",
	"EMAIL_NOT_FOUND":             "auth/user-not-found",
	"INVALID_PASSWORD":            "auth/wrong-password",
	"INVALID_LOGIN_CREDENTIALS":   "auth/invalid-credential",
	"WEAK_PASSWORD":               "auth/weak-password",
	"MISSING_PASSWORD":            "auth/missing-password",
	"USER_DISABLED":               "auth/user-disabled",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "auth/too-many-requests",
	"OPERATION_NOT_ALLOWED":       "auth/operation-not-allowed",
}

// errorFromREST normalizes an Identity Toolkit message such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func errorFromREST(message string) *Error {
	code, _, _ := strings.Cut(message, " ")
	code = strings.TrimSpace(code)
	if mapped, ok := restErrorCodes[code]; ok {
		return &Error{Code: mapped}
	}
	if code == "" {
		return &Error{Code: "auth/internal-error"}
	}
	return &Error{Code: "auth/" + strings.ToLower(strings.ReplaceAll(code, "_", "-"))}
}

var friendlyMessages = []struct {
	substring string
	message   string
}{
	{"auth/email-already-in-use", "That email is already in use."},
	{"auth/invalid-email", "Please enter a valid email address."},
	{"auth/user-not-found", "No account found with this email."},
	{"auth/wrong-password", "Incorrect password."},
}

// FriendlyMessage maps known auth error codes to text for the sign-in form.
// Unknown errors are shown verbatim without the "Firebase: " prefix.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	message := err.Error()
	for _, fm := range friendlyMessages {
		if strings.Contains(message, fm.substring) {
			return fm.message
		}
	}
	return strings.Replace(message, "Firebase: ", "", 1)
}
