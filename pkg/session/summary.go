package session

import "fmt"

// Summary aggregates recorded sessions.
type Summary struct {
	Sessions int     `json:"sessions"`
	Scored   int     `json:"scored"` // sessions with at least one assessment
	AvgREBA  float64 `json:"avg_reba"`
	AvgRULA  float64 `json:"avg_rula"`
}

// Summarize counts the sessions in store and averages the last scores of
// those that saw a person. Sessions without a score do not lower the averages.
func Summarize(store Store) (Summary, error) {
	sessions, err := store.List()
	if err != nil {
		return Summary{}, fmt.Errorf("session: summarize: %w", err)
	}

	sum := Summary{Sessions: len(sessions)}
	var reba, rula int
	for _, s := range sessions {
		if s.REBAScore <= 0 {
			continue
		}
		sum.Scored++
		reba += s.REBAScore
		rula += s.RULAScore
	}
	if sum.Scored > 0 {
		sum.AvgREBA = float64(reba) / float64(sum.Scored)
		sum.AvgRULA = float64(rula) / float64(sum.Scored)
	}
	return sum, nil
}

// String formats the summary for status lines.
func (s Summary) String() string {
	if s.Scored == 0 {
		return fmt.Sprintf("%d recorded", s.Sessions)
	}
	return fmt.Sprintf("%d recorded, avg REBA %.1f, avg RULA %.1f", s.Sessions, s.AvgREBA, s.AvgRULA)
}
