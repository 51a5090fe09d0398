package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/identity"
	"github.com/kursadbilgin/renewal-reminder/internal/repository"
)

type resolvedRecipient struct {
	profile *domain.RecipientProfile
	err     error
}

// recipientResolver builds contact details per user for the duration of one
// run. The identity directory is authoritative for e-mail; the stored profile
// supplies the phone number and display name.
type recipientResolver struct {
	profiles  repository.ProfileRepository
	directory identity.Directory
	resolved  map[string]resolvedRecipient
}

func newRecipientResolver(profiles repository.ProfileRepository, directory identity.Directory) *recipientResolver {
	return &recipientResolver{
		profiles:  profiles,
		directory: directory,
		resolved:  make(map[string]resolvedRecipient),
	}
}

// Resolve always returns a profile. Each contact source is read on its own:
// a failed profile load leaves no phone, a failed directory lookup leaves no
// e-mail. The returned error reports the sources that failed.
func (r *recipientResolver) Resolve(ctx context.Context, userID string) (*domain.RecipientProfile, error) {
	if cached, ok := r.resolved[userID]; ok {
		return cached.profile, cached.err
	}

	profile, err := r.resolve(ctx, userID)
	r.resolved[userID] = resolvedRecipient{profile: profile, err: err}
	return profile, err
}

func (r *recipientResolver) resolve(ctx context.Context, userID string) (*domain.RecipientProfile, error) {
	var errs []error

	profile, err := r.profiles.GetByUserID(ctx, userID)
	switch {
	case err == nil && profile != nil:
	case err == nil, errors.Is(err, domain.ErrNotFound):
		profile = &domain.RecipientProfile{UserID: userID}
	default:
		errs = append(errs, fmt.Errorf("failed to load profile for user %s: %w", userID, err))
		profile = &domain.RecipientProfile{UserID: userID}
	}

	if r.directory == nil {
		return profile, errors.Join(errs...)
	}

	email, err := r.directory.EmailFor(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		profile.Email = ""
		errs = append(errs, fmt.Errorf("failed to resolve email for user %s: %w", userID, err))
	default:
		if email = strings.TrimSpace(email); email != "" {
			profile.Email = email
		}
	}
	return profile, errors.Join(errs...)
}
