package study

// Progress returns floor(100 * completed / total) for the milestone set.
// An empty set has 0% progress.
func Progress(ms []Milestone) int {
	if len(ms) == 0 {
		return 0
	}
	done := 0
	for _, m := range ms {
		if m.Completed {
			done++
		}
	}
	return done * 100 / len(ms)
}

// CloneMilestones returns an independent copy of ms.
func CloneMilestones(ms []Milestone) []Milestone {
	if ms == nil {
		return nil
	}
	cp := make([]Milestone, len(ms))
	copy(cp, ms)
	for i := range cp {
		if cp[i].Weight != nil {
			w := *cp[i].Weight
			cp[i].Weight = &w
		}
	}
	return cp
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	p.Milestones = CloneMilestones(p.Milestones)
	return p
}
