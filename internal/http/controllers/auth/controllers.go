// Package auth contains the HTTP controllers for the authentication
// endpoints. Controllers decode and validate the wire shape, call one
// service, and translate service errors into the error envelope; all
// decisions live in the services.
package auth

import (
	svc "github.com/tastebase/auth/internal/http/services/auth"
	"github.com/tastebase/auth/internal/session"
	"github.com/tastebase/auth/internal/verification"
)

// Controllers groups every controller of the auth domain.
type Controllers struct {
	Login          *LoginController
	Register       *RegisterController
	Refresh        *RefreshController
	Logout         *LogoutController
	Forgot         *ForgotPasswordController
	Reset          *ResetPasswordController
	ChangePassword *ChangePasswordController
	Code           *CodeController
}

// NewControllers builds the auth controller aggregate. Refresh and Code
// take their collaborators directly: token rotation and code issuing are
// complete services on their own, with no orchestration layer between.
func NewControllers(s svc.Services, sessions session.Manager, codes verification.Service) *Controllers {
	return &Controllers{
		Login:          NewLoginController(s.Login),
		Register:       NewRegisterController(s.Register),
		Refresh:        NewRefreshController(sessions),
		Logout:         NewLogoutController(s.Logout),
		Forgot:         NewForgotPasswordController(s.Forgot),
		Reset:          NewResetPasswordController(s.Reset),
		ChangePassword: NewChangePasswordController(s.ChangePassword),
		Code:           NewCodeController(codes),
	}
}
