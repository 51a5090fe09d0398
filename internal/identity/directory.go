// Package identity resolves authoritative account e-mail addresses.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/nedpals/supabase-go"
	gocache "github.com/patrickmn/go-cache"
)

// Directory returns the account e-mail for a user. An empty string with a nil
// error means the account has no e-mail.
type Directory interface {
	EmailFor(ctx context.Context, userID string) (string, error)
}

// AdminUsers is the subset of the Supabase admin API used here. It is
// satisfied by supabase.Client.Admin.
type AdminUsers interface {
	GetUser(ctx context.Context, userID string) (*supabase.AdminUser, error)
}

// SupabaseDirectory reads e-mail addresses from Supabase Auth.
type SupabaseDirectory struct {
	admin AdminUsers
}

func NewSupabaseDirectory(baseURL, serviceKey string) (*SupabaseDirectory, error) {
	baseURL = strings.TrimSpace(baseURL)
	serviceKey = strings.TrimSpace(serviceKey)
	if baseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase url and service key are required")
	}

	client := supabase.CreateClient(baseURL, serviceKey)
	if client == nil {
		return nil, fmt.Errorf("failed to create supabase client")
	}
	return NewSupabaseDirectoryWithAdmin(client.Admin), nil
}

func NewSupabaseDirectoryWithAdmin(admin AdminUsers) *SupabaseDirectory {
	return &SupabaseDirectory{admin: admin}
}

func (d *SupabaseDirectory) EmailFor(ctx context.Context, userID string) (string, error) {
	if d == nil || d.admin == nil {
		return "", fmt.Errorf("identity directory is not initialized")
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	user, err := d.admin.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get auth user %s: %w", userID, err)
	}
	if user == nil {
		return "", fmt.Errorf("auth user %s: %w", userID, domain.ErrNotFound)
	}
	return strings.TrimSpace(user.Email), nil
}

// CachedDirectory memoizes successful lookups for ttl. Failures are not cached.
type CachedDirectory struct {
	next  Directory
	cache *gocache.Cache
	ttl   time.Duration
}

func NewCachedDirectory(next Directory, ttl time.Duration) *CachedDirectory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedDirectory{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (d *CachedDirectory) EmailFor(ctx context.Context, userID string) (string, error) {
	if v, ok := d.cache.Get(userID); ok {
		if email, ok := v.(string); ok {
			return email, nil
		}
	}

	email, err := d.next.EmailFor(ctx, userID)
	if err != nil {
		return "", err
	}
	d.cache.Set(userID, email, d.ttl)
	return email, nil
}
