package chapter

import (
	"fmt"
	"sort"
)

// Reordered applies the moves to the full current chapter set and returns
// the resulting positions per chapter, validating before anything is
// written: every move must target a chapter of the set and the final
// positions must be unique. Unmoved chapters keep their position.
func Reordered(chapters []Chapter, moves []Move) (map[string]int, error) {
	final := make(map[string]int, len(chapters))
	for _, c := range chapters {
		final[c.ID] = c.Position
	}

	for _, m := range moves {
		if _, ok := final[m.ID]; !ok {
			return nil, fmt.Errorf("chapter[%s] does not belong to the course", m.ID)
		}
		final[m.ID] = m.Position
	}

	seen := make(map[int]string, len(final))
	for id, pos := range final {
		if other, ok := seen[pos]; ok {
			// Map iteration order is random; report the pair stably.
			a, b := id, other
			if a > b {
				a, b = b, a
			}
			return nil, fmt.Errorf("chapters [%s] and [%s] would share position %d", a, b, pos)
		}
		seen[pos] = id
	}

	return final, nil
}

// ByPosition sorts chapters into their course order.
func ByPosition(chapters []Chapter) {
	sort.Slice(chapters, func(i, j int) bool {
		return chapters[i].Position < chapters[j].Position
	})
}
