package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsVersionConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "version conflict error", err: ErrVersionConflict, want: true},
		{name: "wrapped version conflict error", err: fmt.Errorf("save order: %w", ErrVersionConflict), want: true},
		{name: "joined version conflict error", err: errors.Join(ErrVersionConflict, errors.New("additional context")), want: true},
		{name: "other error", err: ErrOrderNotFound, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVersionConflict(tt.err); got != tt.want {
				t.Errorf("IsVersionConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleBusiness, RolePartner, RoleAdmin, RoleSystem} {
		if !r.Valid() {
			t.Fatalf("role %q must be valid", r)
		}
	}
	if Role("guest").Valid() {
		t.Fatalf("unknown role must be invalid")
	}
}

func TestActorOwnsBusiness(t *testing.T) {
	owner := Actor{UserID: "u1", Role: RoleBusiness}
	if !owner.OwnsBusiness("u1") {
		t.Fatalf("business account without business_id owns its own id")
	}
	scoped := Actor{UserID: "u1", Role: RoleBusiness, BusinessID: "shop-1"}
	if !scoped.OwnsBusiness("shop-1") || scoped.OwnsBusiness("u1") {
		t.Fatalf("business_id claim must take precedence")
	}
	if (Actor{UserID: "u1", Role: RoleUser}).OwnsBusiness("u1") {
		t.Fatalf("plain users do not own businesses")
	}
}

func TestValidationError(t *testing.T) {
	if ValidationError(nil) != nil {
		t.Fatalf("empty list must produce nil")
	}
	err := ValidationError([]error{ErrCustomerRequired, ErrItemsRequired})
	if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrItemsRequired) {
		t.Fatalf("validation error must match its parts: %v", err)
	}
	want := "validation failed: customer_id is required; order must contain at least one item"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
