package session_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tastebase/auth/internal/domain/repository"
	svc "github.com/tastebase/auth/internal/http/services/session"
	"github.com/tastebase/auth/internal/jwt"
	"github.com/tastebase/auth/internal/security/secretbox"
	"github.com/tastebase/auth/internal/session"
	"github.com/tastebase/auth/internal/store/adapters/memory"
)

func newDevicesEnv(t *testing.T) (svc.DevicesService, session.Manager, *memory.Store) {
	t.Helper()
	st := memory.New()
	issuer, err := jwt.NewIssuer(jwt.Options{Issuer: "authd-test", Audience: "clients", AccessTTL: time.Minute})
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	box, err := secretbox.New(strings.Repeat("d", 32))
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	mgr := session.NewManager(session.Deps{DAL: st, Issuer: issuer, Box: box})
	return svc.NewDevicesService(svc.DevicesDeps{DAL: st, Sessions: mgr}), mgr, st
}

func seedDeviceUser(t *testing.T, st *memory.Store, username string) *repository.User {
	t.Helper()
	email := username + "@example.com"
	u, err := st.Users().Create(context.Background(), repository.CreateUserInput{
		Username: username, Email: &email, PasswordHash: "$argon2id$irrelevant",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestDevicesListAndRevokeOne(t *testing.T) {
	ctx := context.Background()
	ds, mgr, st := newDevicesEnv(t)
	u := seedDeviceUser(t, st, "karla")

	laptop, err := mgr.Issue(ctx, u, "laptop", "203.0.113.1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	phone, err := mgr.Issue(ctx, u, "phone", "203.0.113.2")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	list, err := ds.List(ctx, u.ID, phone.SessionID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 2 {
		t.Fatalf("total %d, want 2", list.Total)
	}
	current := 0
	for _, d := range list.Devices {
		if d.Current {
			current++
			if d.SessionID != phone.SessionID {
				t.Fatalf("wrong current session: %s", d.SessionID)
			}
		}
	}
	if current != 1 {
		t.Fatalf("current flags: %d, want 1", current)
	}

	if err := ds.RevokeOne(ctx, u.ID, laptop.SessionID); err != nil {
		t.Fatalf("revoke one: %v", err)
	}
	// a second revoke of the same session reads as a miss
	if err := ds.RevokeOne(ctx, u.ID, laptop.SessionID); !errors.Is(err, svc.ErrDeviceNotFound) {
		t.Fatalf("want ErrDeviceNotFound, got %v", err)
	}

	list, err = ds.List(ctx, u.ID, phone.SessionID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("total after revoke %d, want 1", list.Total)
	}
}

func TestDevicesRevokeMasksForeignSessions(t *testing.T) {
	ctx := context.Background()
	ds, mgr, st := newDevicesEnv(t)
	alice := seedDeviceUser(t, st, "alice")
	mallory := seedDeviceUser(t, st, "mallory")

	target, err := mgr.Issue(ctx, alice, "laptop", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// mallory cannot see or kill alice's session
	if err := ds.RevokeOne(ctx, mallory.ID, target.SessionID); !errors.Is(err, svc.ErrDeviceNotFound) {
		t.Fatalf("cross-user revoke: want ErrDeviceNotFound, got %v", err)
	}
	if err := ds.RevokeOne(ctx, mallory.ID, "no-such-session"); !errors.Is(err, svc.ErrDeviceNotFound) {
		t.Fatalf("unknown id: want ErrDeviceNotFound, got %v", err)
	}

	// alice's session is untouched
	if _, err := mgr.Refresh(ctx, target.RefreshToken); err != nil {
		t.Fatalf("alice's session must survive: %v", err)
	}
}
