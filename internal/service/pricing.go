package service

// BasePeople is the headcount included with every registration: the child
// and two adults.
const BasePeople = 3

// HardMaxPasses caps pass_count even when MAX_PASSES is 0 or larger.
const HardMaxPasses = 100

// passLimit returns the effective pass cap for a configured value.
func passLimit(configured int) int {
	if configured <= 0 || configured > HardMaxPasses {
		return HardMaxPasses
	}
	return configured
}

// Price returns the headcount and amount owed for passCount passes.  The
// first pass is part of the base registration and costs nothing.
func Price(passCount int, unitPrice int64) (totalPeople int, amount int64) {
	extra := passCount - 1
	if extra < 0 {
		extra = 0
	}
	return BasePeople + extra, int64(extra) * unitPrice
}
