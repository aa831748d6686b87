package bootstrap

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/tastebase/auth/internal/domain/repository"
	"github.com/tastebase/auth/internal/security/password"
	"github.com/tastebase/auth/internal/store"
	"github.com/tastebase/auth/internal/validation"
)

// SeedInput describes the account to create. Email and Phone are
// optional; a seeded account is created already verified.
type SeedInput struct {
	Username string
	Email    string
	Phone    string
	Password string
	Region   string
}

// SeedAccount creates a verified account directly in the store, skipping
// the verification-code flow. Meant for dev setups and smoke tests, not
// for production onboarding.
func SeedAccount(ctx context.Context, dal store.DataAccessLayer, in SeedInput) (*repository.User, error) {
	username, err := validation.NormalizeUsername(in.Username)
	if err != nil {
		return nil, fmt.Errorf("seed: username: %w", err)
	}

	var email, phone *string
	if s := strings.TrimSpace(in.Email); s != "" {
		norm, err := validation.NormalizeEmail(s)
		if err != nil {
			return nil, fmt.Errorf("seed: email: %w", err)
		}
		email = &norm
	}
	if s := strings.TrimSpace(in.Phone); s != "" {
		norm, err := validation.NormalizePhone(s)
		if err != nil {
			return nil, fmt.Errorf("seed: phone: %w", err)
		}
		phone = &norm
	}

	hash, err := password.Hash(password.Default, in.Password)
	if err != nil {
		return nil, fmt.Errorf("seed: hash password: %w", err)
	}

	user, err := dal.Users().Create(ctx, repository.CreateUserInput{
		Username:     username,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Region:       strings.TrimSpace(in.Region),
		IsVerified:   true,
	})
	if err != nil {
		if repository.IsConflict(err) {
			return nil, fmt.Errorf("seed: account %q already exists", username)
		}
		return nil, fmt.Errorf("seed: create account: %w", err)
	}
	return user, nil
}

// PromptSeedAccount collects the seed input interactively. The password
// is read with echo off and must be confirmed.
func PromptSeedAccount() (SeedInput, error) {
	reader := bufio.NewReader(os.Stdin)
	var in SeedInput

	fmt.Print("Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return in, err
	}
	in.Username = strings.TrimSpace(username)
	if in.Username == "" {
		return in, fmt.Errorf("username cannot be empty")
	}

	fmt.Print("Email (optional): ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return in, err
	}
	in.Email = strings.TrimSpace(email)

	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return in, err
	}
	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return in, err
	}
	if string(pw) != string(confirm) {
		return in, fmt.Errorf("passwords do not match")
	}
	in.Password = string(pw)

	return in, nil
}
