package auth

import (
	"github.com/tastebase/auth/internal/credential"
	"github.com/tastebase/auth/internal/security/password"
	"github.com/tastebase/auth/internal/session"
	"github.com/tastebase/auth/internal/store"
	"github.com/tastebase/auth/internal/verification"
)

// Deps contains everything the auth services share.
type Deps struct {
	DAL      store.DataAccessLayer
	Verifier credential.Verifier
	Sessions session.Manager
	Codes    verification.Service
	Policy   password.Policy
	Denylist *password.Denylist

	RequireVerification bool
	AutoLogin           bool
}

// Services groups the auth domain services.
type Services struct {
	Register       RegisterService
	Login          LoginService
	Logout         LogoutService
	Forgot         ForgotService
	Reset          ResetService
	ChangePassword ChangePasswordService
}

// NewServices wires the auth service aggregate.
func NewServices(d Deps) Services {
	return Services{
		Register: NewRegisterService(RegisterDeps{
			DAL:                 d.DAL,
			Sessions:            d.Sessions,
			Codes:               d.Codes,
			Policy:              d.Policy,
			Denylist:            d.Denylist,
			RequireVerification: d.RequireVerification,
			AutoLogin:           d.AutoLogin,
		}),
		Login: NewLoginService(LoginDeps{
			Verifier: d.Verifier,
			Sessions: d.Sessions,
		}),
		Logout: NewLogoutService(LogoutDeps{
			Sessions: d.Sessions,
		}),
		Forgot: NewForgotService(ForgotDeps{
			DAL:   d.DAL,
			Codes: d.Codes,
		}),
		Reset: NewResetService(ResetDeps{
			DAL:      d.DAL,
			Codes:    d.Codes,
			Sessions: d.Sessions,
			Policy:   d.Policy,
			Denylist: d.Denylist,
		}),
		ChangePassword: NewChangePasswordService(ChangePasswordDeps{
			DAL:      d.DAL,
			Sessions: d.Sessions,
			Policy:   d.Policy,
			Denylist: d.Denylist,
		}),
	}
}
