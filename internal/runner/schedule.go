package runner

import (
	"log/slog"
	"sort"

	"git.home.luguber.info/inful/brandintel/internal/registry"
)

// Schedule is the wave-ordered execution plan for a set of extractors.
// Every id's prerequisites lie in strictly earlier waves. Unscheduled holds
// ids that could not be placed because of a dependency cycle; they are logged
// and skipped, never run.
type Schedule struct {
	Waves       [][]string
	Unscheduled []string
}

// UnitCount returns the number of scheduled units across all waves.
func (s Schedule) UnitCount() int {
	n := 0
	for _, w := range s.Waves {
		n += len(w)
	}
	return n
}

// BuildSchedule partitions extractor ids into ordered waves. Dependencies on
// ids outside the given set are ignored, so a partial run over a subset of
// extractors still schedules.
func BuildSchedule(defs []registry.ExtractorDefinition) Schedule {
	pending := make(map[string][]string, len(defs))
	for _, def := range defs {
		pending[def.ID] = def.DependsOn
	}

	var waves [][]string

	for len(pending) > 0 {
		var wave []string
		for id, deps := range pending {
			ready := true
			for _, dep := range deps {
				// Placed deps were removed from pending; deps outside the
				// requested set never block.
				if _, stillPending := pending[dep]; stillPending {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, id)
			}
		}

		if len(wave) == 0 {
			// No progress: the remaining ids form at least one cycle.
			var leftover []string
			for id := range pending {
				leftover = append(leftover, id)
			}
			sort.Strings(leftover)
			slog.Error("dependency cycle detected, leaving units unscheduled",
				slog.Any("units", leftover))
			return Schedule{Waves: waves, Unscheduled: leftover}
		}

		sort.Strings(wave)
		for _, id := range wave {
			delete(pending, id)
		}
		waves = append(waves, wave)
	}

	return Schedule{Waves: waves}
}
