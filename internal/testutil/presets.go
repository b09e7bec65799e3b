package testutil

// WithStandardTestData adds a small mixed data set: every status, one
// multi-line note and one empty note.
func (b *Builder) WithStandardTestData() *Builder {
	return b.
		WithRecord("rec-a", Title("Fix login bug"), Status("open"), Priority(0), Score(9.5),
			Notes("**Login**\n- fails for sso users\n- retry loops")).
		WithRecord("rec-b", Title("Add search"), Status("in progress"), Priority(1), Score(7)).
		WithRecord("rec-c", Title("Refactor auth"), Status("blocked"), Priority(2), Score(4.25),
			Notes("waiting on review")).
		WithRecord("rec-d", Title("Update docs"), Status("closed"), Priority(3), Score(1))
}
