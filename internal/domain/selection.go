package domain

// Selection tracks the cards picked for the next invoice.
// Only eligible cards (done, not archived) can ever be added.
type Selection struct {
	ids map[int64]struct{}
}

// NewSelection creates an empty selection
func NewSelection() *Selection {
	return &Selection{ids: make(map[int64]struct{})}
}

// Toggle adds or removes the card. Ineligible cards are ignored and
// Toggle returns false for them.
func (s *Selection) Toggle(card Card) bool {
	if !card.Eligible() {
		return false
	}
	if _, ok := s.ids[card.ID]; ok {
		delete(s.ids, card.ID)
	} else {
		s.ids[card.ID] = struct{}{}
	}
	return true
}

// ToggleAll selects every eligible card, or clears the selection when all of
// them are already selected
func (s *Selection) ToggleAll(cards []Card) {
	eligible := make([]int64, 0, len(cards))
	for i := range cards {
		if cards[i].Eligible() {
			eligible = append(eligible, cards[i].ID)
		}
	}

	if len(eligible) > 0 && len(s.ids) == len(eligible) {
		s.Clear()
		return
	}

	s.ids = make(map[int64]struct{}, len(eligible))
	for _, id := range eligible {
		s.ids[id] = struct{}{}
	}
}

// Has reports whether the card id is selected
func (s *Selection) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected cards
func (s *Selection) Len() int {
	return len(s.ids)
}

// Clear empties the selection
func (s *Selection) Clear() {
	s.ids = make(map[int64]struct{})
}

// Pick returns the selected cards in the order they appear in cards
func (s *Selection) Pick(cards []Card) []Card {
	picked := make([]Card, 0, len(s.ids))
	for _, c := range cards {
		if s.Has(c.ID) {
			picked = append(picked, c)
		}
	}
	return picked
}
