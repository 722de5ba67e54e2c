package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RecoveryScenario is the high-level flow that issued a recovery code.
type RecoveryScenario string

const (
	ScenarioNotificationBasedPasswordRecovery RecoveryScenario = "NOTIFICATION_BASED_PW_RECOVERY"
	ScenarioQuestionBasedPasswordRecovery     RecoveryScenario = "QUESTION_BASED_PWD_RECOVERY"
	ScenarioUsernameRecovery                  RecoveryScenario = "USERNAME_RECOVERY"
	ScenarioSelfSignUp                        RecoveryScenario = "SELF_SIGN_UP"
	ScenarioLiteSignUp                        RecoveryScenario = "LITE_SIGN_UP"
	ScenarioAskPassword                       RecoveryScenario = "ASK_PASSWORD"
	ScenarioTenantAdminAskPassword            RecoveryScenario = "TENANT_ADMIN_ASK_PASSWORD"
	ScenarioAdminForcedResetViaEmailLink      RecoveryScenario = "ADMIN_FORCED_PASSWORD_RESET_VIA_EMAIL_LINK"
	ScenarioAdminForcedResetViaOTP            RecoveryScenario = "ADMIN_FORCED_PASSWORD_RESET_VIA_OTP"
	ScenarioEmailVerificationOnUpdate         RecoveryScenario = "EMAIL_VERIFICATION_ON_UPDATE"
	ScenarioMobileVerificationOnUpdate        RecoveryScenario = "MOBILE_VERIFICATION_ON_UPDATE"
)

// RecoveryStep is a sub-stage within a scenario.
type RecoveryStep string

const (
	StepUpdatePassword                RecoveryStep = "UPDATE_PASSWORD"
	StepValidateChallengeQuestion     RecoveryStep = "VALIDATE_CHALLENGE_QUESTION"
	StepValidateAllChallengeQuestions RecoveryStep = "VALIDATE_ALL_CHALLENGE_QUESTION"
	StepConfirmSignUp                 RecoveryStep = "CONFIRM_SIGN_UP"
	StepConfirmLiteSignUp             RecoveryStep = "CONFIRM_LITE_SIGN_UP"
	StepVerifyEmail                   RecoveryStep = "VERIFY_EMAIL"
	StepVerifyMobileNumber            RecoveryStep = "VERIFY_MOBILE_NUMBER"
	StepSendRecoveryInformation       RecoveryStep = "SEND_RECOVERY_INFORMATION"
	StepResendConfirmationCode        RecoveryStep = "RESEND_CONFIRMATION_CODE"
)

// legalSteps lists, per scenario, the steps a code may be issued for.
var legalSteps = map[RecoveryScenario][]RecoveryStep{
	ScenarioNotificationBasedPasswordRecovery: {StepSendRecoveryInformation, StepResendConfirmationCode, StepUpdatePassword},
	ScenarioQuestionBasedPasswordRecovery:     {StepValidateChallengeQuestion, StepValidateAllChallengeQuestions, StepUpdatePassword},
	ScenarioUsernameRecovery:                  {StepSendRecoveryInformation},
	ScenarioSelfSignUp:                        {StepConfirmSignUp},
	ScenarioLiteSignUp:                        {StepConfirmLiteSignUp},
	ScenarioAskPassword:                       {StepUpdatePassword},
	ScenarioTenantAdminAskPassword:            {StepUpdatePassword},
	ScenarioAdminForcedResetViaEmailLink:      {StepUpdatePassword},
	ScenarioAdminForcedResetViaOTP:            {StepUpdatePassword},
	ScenarioEmailVerificationOnUpdate:         {StepVerifyEmail},
	ScenarioMobileVerificationOnUpdate:        {StepVerifyMobileNumber},
}

// RecoveryFlow is a scenario paired with one of its legal steps.
// The zero value is not a valid flow; build one with NewRecoveryFlow.
type RecoveryFlow struct {
	scenario RecoveryScenario
	step     RecoveryStep
}

// Predefined flows used across the recovery orchestrators.
var (
	FlowSelfSignUpConfirm         = MustRecoveryFlow(ScenarioSelfSignUp, StepConfirmSignUp)
	FlowAskPassword               = MustRecoveryFlow(ScenarioAskPassword, StepUpdatePassword)
	FlowUsernameRecovery          = MustRecoveryFlow(ScenarioUsernameRecovery, StepSendRecoveryInformation)
	FlowPasswordRecoverySend      = MustRecoveryFlow(ScenarioNotificationBasedPasswordRecovery, StepSendRecoveryInformation)
	FlowPasswordRecoveryResend    = MustRecoveryFlow(ScenarioNotificationBasedPasswordRecovery, StepResendConfirmationCode)
	FlowPasswordRecoveryUpdate    = MustRecoveryFlow(ScenarioNotificationBasedPasswordRecovery, StepUpdatePassword)
	FlowEmailVerificationOnUpdate = MustRecoveryFlow(ScenarioEmailVerificationOnUpdate, StepVerifyEmail)
)

// ErrIllegalRecoveryFlow is returned when a step does not belong to a scenario.
var ErrIllegalRecoveryFlow = errors.New("illegal recovery scenario and step combination")

// NewRecoveryFlow pairs a scenario with a step, rejecting combinations the scenario does not define.
func NewRecoveryFlow(scenario RecoveryScenario, step RecoveryStep) (RecoveryFlow, error) {
	steps, ok := legalSteps[scenario]
	if !ok {
		return RecoveryFlow{}, fmt.Errorf("%w: unknown scenario %q", ErrIllegalRecoveryFlow, scenario)
	}
	for _, s := range steps {
		if s == step {
			return RecoveryFlow{scenario: scenario, step: step}, nil
		}
	}
	return RecoveryFlow{}, fmt.Errorf("%w: step %q is not part of scenario %q", ErrIllegalRecoveryFlow, step, scenario)
}

// MustRecoveryFlow is like NewRecoveryFlow but panics on an illegal combination.
func MustRecoveryFlow(scenario RecoveryScenario, step RecoveryStep) RecoveryFlow {
	f, err := NewRecoveryFlow(scenario, step)
	if err != nil {
		panic(err)
	}
	return f
}

// ParseRecoveryFlow builds a flow from its persisted string form.
func ParseRecoveryFlow(scenario, step string) (RecoveryFlow, error) {
	return NewRecoveryFlow(RecoveryScenario(scenario), RecoveryStep(step))
}

func (f RecoveryFlow) Scenario() RecoveryScenario { return f.scenario }
func (f RecoveryFlow) Step() RecoveryStep         { return f.step }

// IsZero reports whether f was never initialised.
func (f RecoveryFlow) IsZero() bool { return f.scenario == "" }

func (f RecoveryFlow) String() string {
	return string(f.scenario) + "/" + string(f.step)
}

// Notification channel identifiers carried in RecoveryRecord.RemainingData.
const (
	ChannelEmail = "EMAIL"
	ChannelSMS   = "SMS"
)

// IsEmailChannel matches the email channel identifier ignoring case.
func IsEmailChannel(s string) bool { return strings.EqualFold(ChannelEmail, s) }

// IsSMSChannel matches the SMS channel identifier exactly.
func IsSMSChannel(s string) bool { return s == ChannelSMS }

// User identifies an account within a user store of a tenant.
type User struct {
	UserName        string `json:"userName"`
	UserStoreDomain string `json:"userStoreDomain"`
	TenantDomain    string `json:"tenantDomain"`
}

func (u User) String() string {
	return u.TenantDomain + "/" + u.UserStoreDomain + "/" + u.UserName
}

// RecoveryRecord is one issued recovery code.
type RecoveryRecord struct {
	User User
	Code string
	Flow RecoveryFlow
	// CreatedAt is assigned by the store on write.
	CreatedAt time.Time
	// RemainingData holds a notification channel or residual step data. Blank means absent.
	RemainingData string
}
