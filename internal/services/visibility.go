package services

import (
	"context"
	"fmt"
	"slices"

	"familyledger/internal/core"
	"familyledger/internal/ledger"
)

// View is the resolved visibility of one request. Members is the only
// transaction filter handed to the aggregation components.
type View struct {
	Requester core.Member
	Family    *core.Family
	// Requested is what the caller asked for; Scope is what was applied.
	Requested core.Scope
	Scope     core.Scope
	Premium   bool
	Members   []int64
}

// FamilyID returns 0 when the requester has no family.
func (v View) FamilyID() int64 {
	if v.Family == nil {
		return 0
	}
	return v.Family.ID
}

// Downgraded reports whether a combined request was served individually.
func (v View) Downgraded() bool {
	return v.Requested == core.Combined && v.Scope == core.Individual
}

// ResolveMembers applies the premium gate. familyMembers is nil when the
// requester has no family. A combined request without a premium family is
// served as individual; that is never an error.
func ResolveMembers(requesterID int64, familyMembers []int64, scope core.Scope, premium bool) (core.Scope, []int64) {
	if scope != core.Combined || familyMembers == nil || !premium {
		return core.Individual, []int64{requesterID}
	}
	members := append(slices.Clone(familyMembers), requesterID)
	slices.Sort(members)
	return core.Combined, slices.Compact(members)
}

type Resolver struct {
	dir ledger.Directory
}

func NewResolver(dir ledger.Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve loads the requester's family and subscription and computes the
// member set for scope.
func (r *Resolver) Resolve(ctx context.Context, memberID int64, scope core.Scope) (View, error) {
	if !scope.Valid() {
		return View{}, core.ErrInvalidScope
	}
	member, err := r.dir.GetMember(ctx, memberID)
	if err != nil {
		return View{}, err
	}

	view := View{Requester: member, Requested: scope}
	var familyMembers []int64
	if member.FamilyID != nil {
		family, err := r.dir.GetFamily(ctx, *member.FamilyID)
		if err != nil {
			return View{}, fmt.Errorf("resolve family of member %d: %w", memberID, err)
		}
		view.Family = &family

		sub, err := r.dir.GetSubscription(ctx, family.ID)
		if err != nil {
			return View{}, fmt.Errorf("resolve subscription: %w", err)
		}
		view.Premium = sub.IsPremium()

		if scope == core.Combined && view.Premium {
			members, err := r.dir.ListFamilyMembers(ctx, family.ID)
			if err != nil {
				return View{}, fmt.Errorf("list family members: %w", err)
			}
			familyMembers = make([]int64, 0, len(members))
			for _, m := range members {
				familyMembers = append(familyMembers, m.ID)
			}
		}
	}

	view.Scope, view.Members = ResolveMembers(member.ID, familyMembers, scope, view.Premium)
	return view, nil
}
