package memory

import (
	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/google/uuid"
)

// Load validates the seed and inserts it, keeping the given ids.
func (s *Store) Load(seed ledger.Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.st
	bump := func(id int64) {
		if id > st.nextID {
			st.nextID = id
		}
	}

	for _, f := range seed.Families {
		st.families[f.ID] = core.Family{ID: f.ID, Name: f.Name, InviteCode: uuid.New()}
		if f.Plan != nil {
			st.subscriptions[f.ID] = core.Subscription{
				FamilyID: f.ID,
				Plan:     core.Plan{Name: f.Plan.Name, MonthlyPrice: f.Plan.MonthlyPrice},
				Status:   core.SubscriptionStatus(f.Plan.Status),
			}
		}
		bump(f.ID)
	}
	for _, m := range seed.Members {
		member := core.Member{ID: m.ID, Username: m.Username}
		if m.FamilyID != 0 {
			fid := m.FamilyID
			member.FamilyID = &fid
		}
		st.members[m.ID] = member
		bump(m.ID)
	}
	for _, a := range seed.Accounts {
		st.accounts[a.ID] = core.Account{ID: a.ID, FamilyID: a.FamilyID, Name: a.Name, Type: core.AccountType(a.Type), InitialBalance: a.InitialBalance}
		bump(a.ID)
	}
	for _, c := range seed.Cards {
		st.cards[c.ID] = c.Card()
		bump(c.ID)
	}
	for _, c := range seed.Categories {
		st.categories[c.ID] = c.Category()
		bump(c.ID)
	}
	for _, c := range seed.RevenueCategories {
		st.revenueCategories[c.ID] = core.RevenueCategory{ID: c.ID, FamilyID: c.FamilyID, Name: c.Name}
		bump(c.ID)
	}
	return nil
}
