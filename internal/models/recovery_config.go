package models

import (
	"strconv"
	"strings"
)

// Tenant scoped configuration keys holding code timeouts in minutes.
const (
	ConfigExpiryTime                       = "Recovery.ExpiryTime"
	ConfigAskPasswordExpiryTime            = "EmailVerification.AskPassword.ExpiryTime"
	ConfigSelfSignUpVerificationExpiryTime = "SelfRegistration.VerificationCode.ExpiryTime"
	ConfigSelfSignUpSMSOTPExpiryTime       = "SelfRegistration.VerificationCode.SMSOTP.ExpiryTime"
	ConfigPasswordRecoverySMSOTPExpiryTime = "Recovery.Notification.Password.smsOtp.ExpiryTime"
	ConfigRecoveryCodeExpiryTime           = "Recovery.Notification.Password.ExpiryTime.RecoveryCode"
	ConfigResendCodeExpiryTime             = "Recovery.Notification.Password.ExpiryTime.ResendCode"
)

// Fallbacks for the keys that tolerate a missing or malformed value.
const (
	DefaultRecoveryCodeExpiryMinutes = 1
	DefaultResendCodeExpiryMinutes   = 1
)

var recoveryConfigKeys = map[string]struct{}{
	ConfigExpiryTime:                       {},
	ConfigAskPasswordExpiryTime:            {},
	ConfigSelfSignUpVerificationExpiryTime: {},
	ConfigSelfSignUpSMSOTPExpiryTime:       {},
	ConfigPasswordRecoverySMSOTPExpiryTime: {},
	ConfigRecoveryCodeExpiryTime:           {},
	ConfigResendCodeExpiryTime:             {},
}

// IsRecoveryConfigKey reports whether key is one of the timeout keys above.
func IsRecoveryConfigKey(key string) bool {
	_, ok := recoveryConfigKeys[key]
	return ok
}

// ParseExpiryMinutes reads a configured timeout. Values are base 10 minutes;
// a negative value means codes never expire.
func ParseExpiryMinutes(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}
