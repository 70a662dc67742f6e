package authcore

import (
	"context"
	"errors"

	internalflows "github.com/MrEthical07/authcore/internal/flows"
)

// Register validates in, creates the account and, when email verification is enabled,
// stores a verification token and notifies the user. A notification failure is logged
// and does not fail registration.
//
// Register returns a *ValidationError (matching [ErrValidation]) for invalid input and
// [ErrDuplicateEmail] when the normalized email is taken.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	account, verificationRequired, err := internalflows.RunRegister(ctx, internalflows.RegisterRequest{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	}, e.registerFlowDeps())
	if err != nil {
		return nil, err
	}

	user := userFromAccount(account)
	user.PasswordHash = ""
	return &RegisterResult{User: user, VerificationRequired: verificationRequired}, nil
}

func (e *Engine) registerFlowDeps() internalflows.RegisterDeps {
	return internalflows.RegisterDeps{
		VerificationEnabled: e.config.EmailVerification.Enabled,
		VerificationTTL:     e.config.EmailVerification.VerificationTTL,
		DefaultRole:         string(RoleUser),
		Validate: func(req *internalflows.RegisterRequest) error {
			in := RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password}
			if err := validateRegister(&in); err != nil {
				return err
			}
			req.Name, req.Email = in.Name, in.Email
			return nil
		},
		GetUserByEmail: e.getAccountByEmail,
		IsDuplicate: func(err error) bool {
			return errors.Is(err, ErrDuplicateEmail)
		},
		HashPassword: e.hasher.Hash,
		CreateUser: func(ctx context.Context, a internalflows.Account) (internalflows.Account, error) {
			u, err := e.users.CreateUser(ctx, NewUser{
				Name:         a.Name,
				Email:        a.Email,
				PasswordHash: a.PasswordHash,
				IsVerified:   a.IsVerified,
				Role:         Role(a.Role),
			})
			if err != nil {
				return internalflows.Account{}, err
			}
			return accountFromUser(u), nil
		},
		CreateToken: e.createToken,
		VerifyLink:  e.config.Links.verifyEmailLink,
		Notify:      e.notify,
		LogError:    e.logError,
		MetricInc:   func(id int) { e.metricInc(MetricID(id)) },
		Metrics: internalflows.RegisterMetrics{
			RegisterSuccess:     int(MetricRegisterSuccess),
			RegisterDuplicate:   int(MetricRegisterDuplicate),
			RegisterInvalid:     int(MetricRegisterInvalid),
			NotificationFailure: int(MetricNotificationFailure),
			InternalError:       int(MetricInternalError),
		},
		Errors: e.flowErrors(),
	}
}
