package alarm

import "slices"

// branchRegistry holds the open branches of one alarm in creation order.
type branchRegistry struct {
	// branches are the open branches, oldest first.
	branches []*Condition
	// created counts every branch ever created for the alarm.
	created uint64
}

// create stores snapshot as a new branch identified by branchID.
// Ids come from the owner's Sequence, so creation never fails.
func (r *branchRegistry) create(snapshot *Condition, branchID EventID) *Condition {
	snapshot.BranchID = branchID
	snapshot.Shelving = Shelving{}
	r.branches = append(r.branches, snapshot)
	r.created++

	return snapshot
}

// get returns the branch that reported id.
func (r *branchRegistry) get(id EventID) (*Condition, bool) {
	for _, branch := range r.branches {
		if branch.owns(id) || branch.BranchID.Equal(id) {
			return branch, true
		}
	}

	return nil, false
}

// remove drops exactly one branch.
func (r *branchRegistry) remove(branch *Condition) {
	r.branches = slices.DeleteFunc(r.branches, func(c *Condition) bool {
		return c == branch
	})
}

// clear drops every branch.
func (r *branchRegistry) clear() {
	r.branches = nil
}

// has reports whether any branch is open.
func (r *branchRegistry) has() bool {
	return len(r.branches) > 0
}

// list returns the open branches, oldest first.
func (r *branchRegistry) list() []*Condition {
	return r.branches
}
