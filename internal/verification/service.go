// Package verification issues and checks the one-time codes used by the
// register and password-reset flows. A code is bound to (target, type);
// reissuing voids the previous code, and a consumed or exhausted code is
// dead for good.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/tastebase/auth/internal/domain/repository"
	"github.com/tastebase/auth/internal/email"
	"github.com/tastebase/auth/internal/metrics"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/store"
	"github.com/tastebase/auth/internal/validation"
)

var (
	ErrInvalidTarget = errors.New("target must be an email or phone number")
	ErrUnknownType   = errors.New("unknown code type")
	ErrCooldown      = errors.New("a code was sent recently")
	ErrCodeInvalid   = errors.New("code invalid or expired")
)

// CooldownError tells the caller how long to wait before the next send;
// it unwraps to ErrCooldown.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("a code was sent recently, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }

// Options tunes code issuing. Zero values fall back to the defaults below.
type Options struct {
	TTL         time.Duration
	Cooldown    time.Duration
	MaxAttempts int
	Length      int
}

func (o *Options) fill() {
	if o.TTL <= 0 {
		o.TTL = 10 * time.Minute
	}
	if o.Cooldown <= 0 {
		o.Cooldown = 60 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Length <= 0 {
		o.Length = 6
	}
}

// Issued describes a successfully dispatched code. The code itself never
// leaves the service except through the delivery channel.
type Issued struct {
	Target      string
	Kind        repository.IdentifierKind
	ExpiresAt   time.Time
	ResendAfter time.Duration
}

// ActiveInfo is the answer to "is a code pending for this target".
type ActiveInfo struct {
	Pending     bool
	ExpiresAt   *time.Time
	ResendAfter time.Duration // zero once a resend is allowed
}

// Service is the verification code API.
type Service interface {
	// Issue generates, stores and dispatches a fresh code for
	// (target, type). Returns *CooldownError while the resend window for
	// the previous code is still open.
	Issue(ctx context.Context, target string, codeType repository.CodeType) (*Issued, error)

	// Consume checks code against the live entry and burns it on success.
	// Wrong, expired, missing and exhausted codes all come back as
	// ErrCodeInvalid.
	Consume(ctx context.Context, target string, codeType repository.CodeType, code string) error

	// Active reports whether a live code is pending for (target, type).
	Active(ctx context.Context, target string, codeType repository.CodeType) (*ActiveInfo, error)

	// Sweep removes consumed and expired codes. Meant for a periodic
	// housekeeping ticker or an operator command.
	Sweep(ctx context.Context) (int, error)
}

// Deps contains dependencies for the service. SMS is whatever sender
// handles phone targets; without a provider wire email.LogSender.
type Deps struct {
	DAL   store.DataAccessLayer
	Email email.Sender
	SMS   email.Sender
	Opts  Options
}

type service struct {
	deps Deps
}

func NewService(deps Deps) Service {
	deps.Opts.fill()
	if deps.Email == nil {
		deps.Email = email.LogSender{}
	}
	if deps.SMS == nil {
		deps.SMS = email.LogSender{}
	}
	return &service{deps: deps}
}

func (s *service) Issue(ctx context.Context, target string, codeType repository.CodeType) (*Issued, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("verification"),
		logger.Op("Issue"),
		logger.CodeType(string(codeType)),
	)

	if !codeType.Valid() {
		return nil, ErrUnknownType
	}
	kind, normalized, err := validation.CodeTarget(target)
	if err != nil {
		log.Debug("issue rejected: bad target", logger.Err(err))
		return nil, ErrInvalidTarget
	}
	log = log.With(logger.Identifier(normalized))

	now := time.Now().UTC()
	if prev, err := s.deps.DAL.Codes().GetActive(ctx, normalized, codeType); err == nil {
		if wait := s.deps.Opts.Cooldown - now.Sub(prev.CreatedAt); wait > 0 {
			log.Debug("issue rejected: cooldown", logger.Duration(wait))
			return nil, &CooldownError{RetryAfter: wait}
		}
	} else if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("verification: lookup: %w", err)
	}

	code, err := randomDigits(s.deps.Opts.Length)
	if err != nil {
		return nil, fmt.Errorf("verification: generate: %w", err)
	}

	expiresAt := now.Add(s.deps.Opts.TTL)
	if _, err := s.deps.DAL.Codes().Upsert(ctx, repository.UpsertCodeInput{
		Target:      normalized,
		Type:        codeType,
		Code:        code,
		MaxAttempts: s.deps.Opts.MaxAttempts,
		ExpiresAt:   expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("verification: store: %w", err)
	}

	subject, htmlBody, textBody := email.CodeMessage(codeType, code, s.deps.Opts.TTL)
	sender := s.deps.Email
	if kind == repository.IdentifierPhone {
		sender = s.deps.SMS
	}
	if err := sender.Send(normalized, subject, htmlBody, textBody); err != nil {
		// the stored code stays valid; delivery may still straggle in,
		// and the cooldown caps how fast this can be retried anyway
		log.Error("code delivery failed", logger.Err(err))
		return nil, fmt.Errorf("verification: deliver: %w", err)
	}

	metrics.CodesIssuedTotal.WithLabelValues(string(codeType)).Inc()
	log.Info("code issued", logger.Any("expires_at", expiresAt))
	return &Issued{
		Target:      normalized,
		Kind:        kind,
		ExpiresAt:   expiresAt,
		ResendAfter: s.deps.Opts.Cooldown,
	}, nil
}

func (s *service) Consume(ctx context.Context, target string, codeType repository.CodeType, code string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("verification"),
		logger.Op("Consume"),
		logger.CodeType(string(codeType)),
	)

	if !codeType.Valid() {
		return ErrUnknownType
	}
	_, normalized, err := validation.CodeTarget(target)
	if err != nil {
		return ErrInvalidTarget
	}
	code = strings.TrimSpace(code)
	if code == "" {
		metrics.CodesConsumedTotal.WithLabelValues("rejected").Inc()
		return ErrCodeInvalid
	}

	if err := s.deps.DAL.Codes().Consume(ctx, normalized, codeType, code); err != nil {
		if repository.IsNotFound(err) {
			metrics.CodesConsumedTotal.WithLabelValues("rejected").Inc()
			log.Debug("code rejected", logger.Identifier(normalized))
			return ErrCodeInvalid
		}
		return fmt.Errorf("verification: consume: %w", err)
	}

	metrics.CodesConsumedTotal.WithLabelValues("ok").Inc()
	log.Info("code consumed", logger.Identifier(normalized))
	return nil
}

func (s *service) Active(ctx context.Context, target string, codeType repository.CodeType) (*ActiveInfo, error) {
	if !codeType.Valid() {
		return nil, ErrUnknownType
	}
	_, normalized, err := validation.CodeTarget(target)
	if err != nil {
		return nil, ErrInvalidTarget
	}

	c, err := s.deps.DAL.Codes().GetActive(ctx, normalized, codeType)
	if err != nil {
		if repository.IsNotFound(err) {
			return &ActiveInfo{}, nil
		}
		return nil, fmt.Errorf("verification: lookup: %w", err)
	}

	info := &ActiveInfo{Pending: true}
	t := c.ExpiresAt.UTC()
	info.ExpiresAt = &t
	if wait := s.deps.Opts.Cooldown - time.Since(c.CreatedAt); wait > 0 {
		info.ResendAfter = wait
	}
	return info, nil
}

func (s *service) Sweep(ctx context.Context) (int, error) {
	n, err := s.deps.DAL.Codes().DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("verification: sweep: %w", err)
	}
	if n > 0 {
		logger.From(ctx).Debug("swept verification codes",
			logger.Component("verification"), logger.Count(n))
	}
	return n, nil
}

// randomDigits draws n decimal digits from crypto/rand, one at a time so
// the distribution stays uniform.
func randomDigits(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + v.Int64()))
	}
	return b.String(), nil
}
