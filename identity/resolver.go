package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DevDisplayName is the display name given to identities created by dev login.
const DevDisplayName = "Dev User"

// Resolver turns normalized attributes into a stored Identity.
type Resolver struct {
	store Store
	now   func() time.Time
}

// NewResolver creates a Resolver over store. now defaults to time.Now.
func NewResolver(store Store, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{store: store, now: now}
}

// Resolve looks up attrs.Email and creates a USER identity when absent.
//
// An existing identity only has its display name and picture refreshed;
// role, provider and provider id are never changed. Repeating the call with
// identical attributes performs no write.
func (r *Resolver) Resolve(ctx context.Context, attrs OAuthAttributes) (Identity, error) {
	subject := strings.TrimSpace(attrs.Email)
	if subject == "" {
		return Identity{}, fmt.Errorf("%w: empty email", ErrMalformedAttributes)
	}

	existing, err := r.store.FindBySubject(ctx, subject)
	switch {
	case err == nil:
		updated := existing
		if attrs.Name != "" {
			updated.DisplayName = attrs.Name
		}
		if attrs.Picture != "" {
			updated.Picture = attrs.Picture
		}
		if updated == existing {
			return existing, nil
		}
		updated.UpdatedAt = r.now().UTC()
		if err := r.store.Save(ctx, updated); err != nil {
			return Identity{}, err
		}
		return updated, nil
	case errors.Is(err, ErrNotFound):
	default:
		return Identity{}, err
	}

	name := attrs.Name
	if name == "" {
		name = subject
	}
	now := r.now().UTC()
	created := Identity{
		Subject:     subject,
		DisplayName: name,
		Role:        RoleUser,
		Provider:    attrs.Provider,
		ProviderID:  attrs.ProviderID,
		Picture:     attrs.Picture,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.store.Save(ctx, created); err != nil {
		return Identity{}, err
	}
	return created, nil
}

// ResolveDev finds or creates the dev-login identity for email. Existing identities are returned untouched.
func (r *Resolver) ResolveDev(ctx context.Context, email string) (Identity, error) {
	subject := strings.TrimSpace(email)
	if subject == "" {
		return Identity{}, fmt.Errorf("%w: empty email", ErrMalformedAttributes)
	}

	existing, err := r.store.FindBySubject(ctx, subject)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Identity{}, err
	}

	now := r.now().UTC()
	created := Identity{
		Subject:     subject,
		DisplayName: DevDisplayName,
		Role:        RoleUser,
		Provider:    ProviderDev,
		ProviderID:  "dev_" + subject,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.store.Save(ctx, created); err != nil {
		return Identity{}, err
	}
	return created, nil
}

// Find returns the stored identity for subject.
func (r *Resolver) Find(ctx context.Context, subject string) (Identity, error) {
	return r.store.FindBySubject(ctx, subject)
}
