package auth

import (
	"net/http"
	"strings"

	"github.com/tastebase/auth/internal/domain/repository"
	dto "github.com/tastebase/auth/internal/http/dto/auth"
	httperrors "github.com/tastebase/auth/internal/http/errors"
	"github.com/tastebase/auth/internal/http/helpers"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/verification"
)

// CodeController serves the verification-code endpoints. It talks to the
// verification service directly; there is no orchestration to add.
type CodeController struct {
	codes verification.Service
}

func NewCodeController(codes verification.Service) *CodeController {
	return &CodeController{codes: codes}
}

// parseCodeType maps the wire value onto a repository.CodeType. An empty
// value means register, the common case for a client that predates the
// code_type field.
func parseCodeType(raw string) repository.CodeType {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return repository.CodeTypeRegister
	}
	return repository.CodeType(raw)
}

// SendCode handles POST /v1/auth/send-verification-code.
func (c *CodeController) SendCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("CodeController.SendCode"),
	)

	var req dto.SendCodeRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Identifier) == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("identifier"))
		return
	}

	issued, err := c.codes.Issue(ctx, req.Identifier, parseCodeType(req.CodeType))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.SendCodeResponse{
		Message:            "Verification code sent.",
		ExpiresAt:          issued.ExpiresAt,
		ResendAfterSeconds: int(issued.ResendAfter.Seconds()),
	})
}

// VerificationStatus handles GET /v1/auth/verification-status. It reports
// whether a code is pending for the identifier and how long the resend
// cooldown has left.
func (c *CodeController) VerificationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("CodeController.VerificationStatus"),
	)

	identifier := strings.TrimSpace(r.URL.Query().Get("identifier"))
	if identifier == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("identifier"))
		return
	}

	info, err := c.codes.Active(ctx, identifier, parseCodeType(r.URL.Query().Get("code_type")))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	helpers.NoStore(w)
	helpers.WriteJSON(w, http.StatusOK, dto.VerificationStatusResponse{
		Pending:            info.Pending,
		ExpiresAt:          info.ExpiresAt,
		ResendAfterSeconds: int(info.ResendAfter.Seconds()),
	})
}
