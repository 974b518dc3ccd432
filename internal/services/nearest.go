package services

import (
	"drivetime-accessibility/internal/domain"
)

// ReduceNearest collapses each matrix row to the minimum reachable travel
// time and the destination that achieved it.
//
// Equal times resolve to the destination listed first. Rows without a
// reachable destination are StatusUnreachable and failed rows are
// StatusFailed; neither carries a time.
func ReduceNearest(m *Matrix) []domain.Accessibility {
	out := make([]domain.Accessibility, len(m.Rows))
	for i, row := range m.Rows {
		if row.Failed() {
			out[i] = domain.Missing(row.Origin.ID, row.Origin.Population, domain.StatusFailed, row.Err)
			continue
		}

		best := -1
		for j, v := range row.Minutes {
			if v == nil {
				continue
			}
			if best < 0 || *v < *row.Minutes[best] {
				best = j
			}
		}

		if best < 0 {
			out[i] = domain.Missing(row.Origin.ID, row.Origin.Population, domain.StatusUnreachable, nil)
			continue
		}

		out[i] = domain.Accessibility{
			AreaID:           row.Origin.ID,
			Population:       row.Origin.Population,
			Minutes:          *row.Minutes[best],
			DestinationIndex: best,
			DestinationID:    m.Destinations[best].ID,
			Status:           domain.StatusOK,
		}
	}
	return out
}
