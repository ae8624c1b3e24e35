package auth

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw     string
		want    Role
		wantErr bool
	}{
		{"VOLUNTEER", RoleVolunteer, false},
		{"ngo", RoleNGO, false},
		{" Admin ", RoleAdmin, false},
		{"", "", true},
		{"INTERN", "", true},
	}
	for _, tc := range cases {
		got, err := ParseRole(tc.raw)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("ParseRole(%q): expected ErrInvalidInput, got %v", tc.raw, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRole(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestRequirementSatisfied(t *testing.T) {
	cases := []struct {
		name string
		req  Requirement
		role Role
		want bool
	}{
		{"volunteer matches volunteer", RequireVolunteer, RoleVolunteer, true},
		{"ngo does not match volunteer", RequireVolunteer, RoleNGO, false},
		{"ngo matches composite", RequireNGOOrAdmin, RoleNGO, true},
		{"admin matches composite", RequireNGOOrAdmin, RoleAdmin, true},
		{"volunteer misses composite", RequireNGOOrAdmin, RoleVolunteer, false},
		{"admin does not inherit ngo-only", RequireNGO, RoleAdmin, false},
		{"unknown role satisfies nothing", RequireNGOOrAdmin, Role("INTERN"), false},
		{"empty role satisfies nothing", RequireAdmin, Role(""), false},
		{"any-authenticated has no role check", AnyAuthenticated, Role(""), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.req.Satisfied(tc.role); got != tc.want {
				t.Fatalf("Satisfied(%s) = %v, want %v", tc.role, got, tc.want)
			}
		})
	}
}

func TestRoleKnown(t *testing.T) {
	if !RoleAdmin.Known() {
		t.Fatal("ADMIN should be known")
	}
	if Role("INTERN").Known() {
		t.Fatal("INTERN should not be known")
	}
}
