package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/nedpals/supabase-go"
)

type fakeAdminUsers struct {
	getUserFn func(ctx context.Context, userID string) (*supabase.AdminUser, error)
}

func (f *fakeAdminUsers) GetUser(ctx context.Context, userID string) (*supabase.AdminUser, error) {
	return f.getUserFn(ctx, userID)
}

type countingDirectory struct {
	calls int
	email string
	err   error
}

func (d *countingDirectory) EmailFor(context.Context, string) (string, error) {
	d.calls++
	return d.email, d.err
}

func TestSupabaseDirectoryEmailFor(t *testing.T) {
	t.Parallel()

	dir := NewSupabaseDirectoryWithAdmin(&fakeAdminUsers{
		getUserFn: func(_ context.Context, userID string) (*supabase.AdminUser, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			return &supabase.AdminUser{Email: " kim@example.com "}, nil
		},
	})

	email, err := dir.EmailFor(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EmailFor() error = %v", err)
	}
	if email != "kim@example.com" {
		t.Fatalf("EmailFor() = %q, want kim@example.com", email)
	}
}

func TestSupabaseDirectoryEmailForErrors(t *testing.T) {
	t.Parallel()

	dir := NewSupabaseDirectoryWithAdmin(&fakeAdminUsers{
		getUserFn: func(context.Context, string) (*supabase.AdminUser, error) {
			return nil, nil
		},
	})
	if _, err := dir.EmailFor(context.Background(), "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("EmailFor() error = %v, want ErrNotFound", err)
	}
	if _, err := dir.EmailFor(context.Background(), " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("EmailFor() error = %v, want ErrValidation", err)
	}
}

func TestCachedDirectory(t *testing.T) {
	t.Parallel()

	next := &countingDirectory{email: "kim@example.com"}
	dir := NewCachedDirectory(next, time.Minute)

	for i := 0; i < 3; i++ {
		email, err := dir.EmailFor(context.Background(), "user-1")
		if err != nil || email != "kim@example.com" {
			t.Fatalf("EmailFor() = %q, %v", email, err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("next calls = %d, want 1", next.calls)
	}
}

func TestCachedDirectoryDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	next := &countingDirectory{err: errors.New("boom")}
	dir := NewCachedDirectory(next, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := dir.EmailFor(context.Background(), "user-1"); err == nil {
			t.Fatal("EmailFor() error = nil, want error")
		}
	}
	if next.calls != 2 {
		t.Fatalf("next calls = %d, want 2", next.calls)
	}
}
