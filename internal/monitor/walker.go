package monitor

import "github.com/washops/fleetbot/internal/domain"

// maxWalkDepth bounds recursion; the module tree comes from a remote feed
// and is not trusted to be acyclic.
const maxWalkDepth = 32

// CollectProblems walks the tree depth-first and returns one entry per node
// whose normalized status is not clean. Descent never depends on the
// parent's own status: a clean parent may still hide an unclean descendant.
func CollectProblems(nodes []domain.ModuleNode) []domain.ProblemEntry {
	var out []domain.ProblemEntry
	collect(nodes, 0, &out)
	return out
}

func collect(nodes []domain.ModuleNode, depth int, out *[]domain.ProblemEntry) {
	if depth >= maxWalkDepth {
		return
	}
	for _, m := range nodes {
		sev := domain.NormalizeSeverity(m.Status)
		if !sev.IsClean() {
			*out = append(*out, domain.ProblemEntry{
				Name:     m.Label(),
				Severity: sev,
				Text:     m.Text,
			})
		}
		collect(m.Children, depth+1, out)
	}
}
