package profile

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRoleFromDescription(t *testing.T) {
	cases := []struct {
		desc string
		want RoleCategory
	}{
		{"Software Developer / Engineer", RoleDeveloper},
		{"I'm a senior software engineer", RoleDeveloper},
		{"Team Lead", RoleDeveloper},
		{"devops specialist", RoleDeveloper},
		{"QA / Testing", RoleDeveloper},
		{"Product Manager", RoleStakeholder},
		{"engineering manager", RoleStakeholder},
		{"UX Designer", RoleStakeholder},
		{"astronaut", RoleUnknown},
		{"", RoleUnknown},
	}
	for _, tc := range cases {
		if got := RoleFromDescription(tc.desc); got != tc.want {
			t.Errorf("RoleFromDescription(%q) = %s, want %s", tc.desc, got, tc.want)
		}
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get on empty store: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing profile, got %+v", got)
	}

	p := New("user-1", "Dana")
	p.Role = RoleDeveloper
	p.Onboarding = OnboardingCompleted
	p.Preferences.PreferredName = "D"
	p.Preferences.Tools = []string{"GitHub", "Jira"}
	p.Credentials.GitHubToken = "ghp_test"
	if err := store.Put(ctx, p); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err = store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected profile after Put")
	}
	if got.Name() != "D" {
		t.Errorf("Name = %q, want preferred name", got.Name())
	}
	if got.Role != RoleDeveloper || got.Onboarding != OnboardingCompleted {
		t.Errorf("role/onboarding lost: %+v", got)
	}
	if !got.Credentials.HasAny() {
		t.Error("credentials lost in round trip")
	}

	// Overwrite.
	got.Onboarding = OnboardingDeclined
	if err := store.Put(ctx, got); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	again, _ := store.Get(ctx, "user-1")
	if again.Onboarding != OnboardingDeclined {
		t.Errorf("overwrite lost: %s", again.Onboarding)
	}
}

func TestCachedStoreServesFromCache(t *testing.T) {
	backend := NewMemoryStore()
	ctx := context.Background()
	if err := backend.Put(ctx, New("user-2", "Sam")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cached := NewCachedStore(backend, 8, time.Minute, zap.NewNop())
	defer cached.Close()

	first, err := cached.Get(ctx, "user-2")
	if err != nil || first == nil {
		t.Fatalf("Get: %v, %v", first, err)
	}

	// Change the backend behind the cache's back; a cached read must not
	// see it until expiry.
	stale := New("user-2", "Changed")
	if err := backend.Put(ctx, stale); err != nil {
		t.Fatalf("backend Put: %v", err)
	}
	second, err := cached.Get(ctx, "user-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if second.DisplayName != "Sam" {
		t.Errorf("expected cached read, got %q", second.DisplayName)
	}

	// Writing through the cache refreshes it.
	updated := New("user-2", "Written")
	if err := cached.Put(ctx, updated); err != nil {
		t.Fatalf("Put: %v", err)
	}
	third, _ := cached.Get(ctx, "user-2")
	if third.DisplayName != "Written" {
		t.Errorf("write-through not cached: %q", third.DisplayName)
	}
}

func TestCachedStoreMissPassesThrough(t *testing.T) {
	backend := NewMemoryStore()
	cached := NewCachedStore(backend, 8, time.Minute, zap.NewNop())
	defer cached.Close()

	got, err := cached.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing profile, got %+v", got)
	}
}
