package search

// Budget caps the number of search calls dispatched in one run.
type Budget struct {
	remaining int
}

func NewBudget(limit int) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{remaining: limit}
}

func (b *Budget) Exhausted() bool {
	return b.remaining <= 0
}

// Consume takes one unit. It reports false, leaving the budget at zero,
// when nothing is left.
func (b *Budget) Consume() bool {
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

func (b *Budget) Remaining() int {
	return b.remaining
}
