package workflow

// Tally is the live vote count for one (entity, transition) pair.
// Rejections are informational; only approvals move toward quorum.
type Tally struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
	Required int `json:"required"`
}

// Reached returns true once approvals meet the required quorum
func (t Tally) Reached() bool {
	return t.Approved >= t.Required
}

// Remaining returns how many more approvals are needed
func (t Tally) Remaining() int {
	if t.Reached() {
		return 0
	}
	return t.Required - t.Approved
}
