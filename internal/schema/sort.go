package schema

import (
	"github.com/sirupsen/logrus"
)

// Node is anything that can be ordered by its foreign key dependencies.
type Node interface {
	TableName() string
	Dependencies() []string
}

// ---------------------------------------------------------------------
// Sorting Algorithm (Topological / Greedy)
// ---------------------------------------------------------------------

// SortTablesByFKCount sorts tables by dependency order, referenced tables first.
// Dependencies on tables outside the set are ignored. Cycles are broken with a
// scoring heuristic, so every input table appears exactly once in the output.
func SortTablesByFKCount[T Node](tables []T, log logrus.FieldLogger) []T {
	known := make(map[string]T, len(tables))
	for _, t := range tables {
		known[t.TableName()] = t
	}
	deps := make(map[string][]string, len(tables))
	for _, t := range tables {
		for _, dep := range t.Dependencies() {
			if _, ok := known[dep]; ok && dep != t.TableName() {
				deps[t.TableName()] = append(deps[t.TableName()], dep)
			}
		}
	}

	sorted := make([]T, 0, len(tables))
	// done tracks entries by position so repeated names are all emitted;
	// processed tracks names for dependency checks.
	done := make([]bool, len(tables))
	processed := make(map[string]bool)

	// Keep looping until all tables are processed
	for len(sorted) < len(tables) {
		added := false

		// Pass 1: Add tables whose dependencies are fully satisfied
		for i, t := range tables {
			if done[i] {
				continue
			}
			name := t.TableName()

			allDepsProcessed := true
			for _, dep := range deps[name] {
				if !processed[dep] {
					allDepsProcessed = false
					break
				}
			}

			if allDepsProcessed {
				sorted = append(sorted, t)
				done[i] = true
				processed[name] = true
				added = true
			}
		}

		if added {
			continue
		}

		// Pass 2: No table added, we have a cycle. Break it using heuristic score.
		best := -1
		bestScore := -999999

		for i, t := range tables {
			if done[i] {
				continue
			}
			name := t.TableName()

			// Penalty per unprocessed dependency, bonus for sitting on a direct cycle.
			score := 0
			isCircular := false
			for _, dep := range deps[name] {
				if processed[dep] {
					continue
				}
				score -= 100
				for _, back := range deps[dep] {
					if back == name {
						isCircular = true
						break
					}
				}
			}
			if isCircular {
				score += 500
			}

			// Tie-breaker: Name (Deterministic)
			if best < 0 || score > bestScore || (score == bestScore && name > tables[best].TableName()) {
				best, bestScore = i, score
			}
		}

		name := tables[best].TableName()
		sorted = append(sorted, tables[best])
		done[best] = true
		processed[name] = true
		log.WithFields(logrus.Fields{"table": name, "score": bestScore}).Info("Breaking circular dependency")
	}

	return sorted
}
