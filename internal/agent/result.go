package agent

// Result reports the pins published by one run.
type Result struct {
	RepinnedIDs []string `json:"repinned_ids"`
	CreatedIDs  []string `json:"created_ids"`
}

// Repinned returns the number of successful repins.
func (r Result) Repinned() int { return len(r.RepinnedIDs) }

// Created returns the number of new pins created.
func (r Result) Created() int { return len(r.CreatedIDs) }
