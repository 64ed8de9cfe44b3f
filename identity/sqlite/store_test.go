package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth/identity"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSaveAndFind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.FindBySubject(ctx, "ann@x.com"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := identity.Identity{
		Subject:     "ann@x.com",
		DisplayName: "Ann",
		Role:        identity.RoleUser,
		Provider:    identity.ProviderGoogle,
		ProviderID:  "g1",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.FindBySubject(ctx, "ann@x.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.DisplayName != in.DisplayName || got.Role != in.Role || got.Provider != in.Provider || got.ProviderID != in.ProviderID {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, in)
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(created) {
		t.Fatalf("timestamps mismatch: %+v", got)
	}

	in.DisplayName = "Ann B"
	in.UpdatedAt = created.Add(time.Hour)
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = s.FindBySubject(ctx, "ann@x.com")
	if err != nil {
		t.Fatalf("find after update: %v", err)
	}
	if got.DisplayName != "Ann B" || !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(in.UpdatedAt) {
		t.Fatalf("unexpected updated identity %+v", got)
	}
}

func TestSaveRejectsInvalidRole(t *testing.T) {
	s := openTestStore(t)
	err := s.Save(context.Background(), identity.Identity{Subject: "a@x.com", Role: "ROOT"})
	if err == nil {
		t.Fatal("expected invalid role rejection")
	}
}

func TestResolverOverSQLite(t *testing.T) {
	s := openTestStore(t)
	r := identity.NewResolver(s, nil)
	ctx := context.Background()

	attrs := identity.OAuthAttributes{Name: "Cy", Email: "cy@x.com", Provider: identity.ProviderKakao, ProviderID: "7"}
	first, err := r.Resolve(ctx, attrs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := r.Resolve(ctx, attrs)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if first.Subject != second.Subject || first.Role != second.Role {
		t.Fatalf("expected stable identity, got %+v vs %+v", first, second)
	}
}
