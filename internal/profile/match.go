package profile

import (
	"sort"
	"strings"

	"github.com/kizunalabs/kizuna-backend/internal/identity"
)

// Candidate is one raw similarity result before resolution.
type Candidate struct {
	Identity identity.Identity
	RawScore float64
	Name     string
	Content  string
}

// Match is a resolved, display-ready candidate.
type Match struct {
	Identity identity.Identity
	Score    float64
	Name     string
	Content  string
}

// ResolveMatches turns raw similarity results into an ordered, bounded match
// list. The acting user and the counselor persona are always excluded; the
// counselor is reached through its own entry point, never through ranking.
// Candidates with no representative content are not presentable and are
// dropped. Pure transform, no I/O.
func ResolveMatches(raw []Candidate, acting identity.Identity, cfg Config) []Match {
	cfg = cfg.withDefaults()

	out := make([]Match, 0, len(raw))
	for _, c := range raw {
		if c.Identity.Equal(acting) || c.Identity.IsCounselor() {
			continue
		}
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		out = append(out, Match{
			Identity: c.Identity,
			Score:    Rescale(c.RawScore, cfg.ScoreFloor, 1.0),
			Name:     c.Name,
			Content:  c.Content,
		})
	}

	// Stable identity tie-break keeps ordering deterministic.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Identity.String() < out[j].Identity.String()
	})

	if len(out) > cfg.MaxMatchResults {
		out = out[:cfg.MaxMatchResults]
	}
	return out
}
