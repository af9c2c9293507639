package game

import "sort"

// IsValidGroup reports whether tiles form a legal table group: at least
// three tiles making either a set or a run.
func IsValidGroup(tiles []Tile) bool {
	if len(tiles) < 3 {
		return false
	}
	return IsValidSet(tiles) || IsValidRun(tiles)
}

// IsValidSet: at most four tiles, all non-jokers share one value with
// pairwise-distinct colors. An all-joker bucket is vacuously valid; it is
// only reachable through search, never as a committed group on its own.
func IsValidSet(tiles []Tile) bool {
	if len(tiles) > 4 {
		return false
	}
	nonJokers := withoutJokers(tiles)
	if len(nonJokers) == 0 {
		return true
	}
	value := nonJokers[0].Value
	colors := make(map[Color]bool, len(nonJokers))
	for _, tile := range nonJokers {
		if tile.Value != value {
			return false
		}
		if colors[tile.Color] {
			return false
		}
		colors[tile.Color] = true
	}
	return true
}

// IsValidRun: all non-jokers share one color with pairwise-distinct
// values, and the jokers present are enough to fill the internal gaps;
// any leftover jokers must fit as extension within the [1,13] bound.
func IsValidRun(tiles []Tile) bool {
	nonJokers := withoutJokers(tiles)
	if len(nonJokers) == 0 {
		return true
	}
	color := nonJokers[0].Color
	values := make([]int, 0, len(nonJokers))
	for _, tile := range nonJokers {
		if tile.Color != color {
			return false
		}
		values = append(values, tile.Value)
	}
	sort.Ints(values)
	needed := 0
	for i := 1; i < len(values); i++ {
		if values[i] == values[i-1] {
			return false
		}
		needed += values[i] - values[i-1] - 1
	}
	jokerCount := len(tiles) - len(nonJokers)
	if needed > jokerCount {
		return false
	}
	remaining := jokerCount - needed
	min := values[0]
	max := values[len(values)-1]
	return (min-1)+(13-max) >= remaining
}

func maxConsecutiveSum(length int) int {
	start := 14 - length
	return length * (2*start + length - 1) / 2
}

// maxRunValue is the maximum sum of a consecutive run of the group's
// length that covers all observed values. Jokers therefore score at the
// highest position the run can slide to.
func maxRunValue(tiles []Tile) (int, bool) {
	nonJokers := withoutJokers(tiles)
	length := len(tiles)
	if len(nonJokers) == 0 {
		return maxConsecutiveSum(length), true
	}
	minValue, maxValue := 13, 1
	for _, tile := range nonJokers {
		if tile.Value < minValue {
			minValue = tile.Value
		}
		if tile.Value > maxValue {
			maxValue = tile.Value
		}
	}
	startMin := maxValue - length + 1
	if startMin < 1 {
		startMin = 1
	}
	startMax := 14 - length
	if minValue < startMax {
		startMax = minValue
	}
	if startMin > startMax {
		return 0, false
	}
	return length * (2*startMax + length - 1) / 2, true
}

// GroupMeldValue scores a group for the initial-meld threshold and for
// AI ranking. Sets score value×count (all-joker sets as value 13); runs
// score their maximum slide position, which deliberately rewards melding
// at the high end rather than summing the literal faces.
func GroupMeldValue(tiles []Tile) int {
	if IsValidSet(tiles) {
		nonJokers := withoutJokers(tiles)
		if len(nonJokers) == 0 {
			return 13 * len(tiles)
		}
		return nonJokers[0].Value * len(tiles)
	}
	if IsValidRun(tiles) {
		if value, ok := maxRunValue(tiles); ok {
			return value
		}
	}
	return 0
}

// NormalizeGroupTiles produces the canonical in-group ordering: sets by
// color priority with jokers last; runs ascending with jokers filling
// internal gaps first, then extending upward, then downward, leftovers
// trailing. Idempotent.
func NormalizeGroupTiles(tiles []Tile) []Tile {
	if len(tiles) == 0 {
		return []Tile{}
	}
	if IsValidSet(tiles) {
		nonJokers := withoutJokers(tiles)
		jokers := sortedJokers(tiles)
		sort.SliceStable(nonJokers, func(i, j int) bool {
			return colorOrder[nonJokers[i].Color] < colorOrder[nonJokers[j].Color]
		})
		return append(nonJokers, jokers...)
	}
	if IsValidRun(tiles) {
		nonJokers := withoutJokers(tiles)
		jokers := sortedJokers(tiles)
		if len(nonJokers) == 0 {
			return jokers
		}
		sort.SliceStable(nonJokers, func(i, j int) bool {
			return nonJokers[i].Value < nonJokers[j].Value
		})
		min := nonJokers[0].Value
		max := nonJokers[len(nonJokers)-1].Value
		byValue := make(map[int]Tile, len(tiles))
		for _, tile := range nonJokers {
			byValue[tile.Value] = tile
		}
		for v := min; v <= max && len(jokers) > 0; v++ {
			if _, ok := byValue[v]; !ok {
				byValue[v] = jokers[0]
				jokers = jokers[1:]
			}
		}
		for len(jokers) > 0 && max < 13 {
			max++
			byValue[max] = jokers[0]
			jokers = jokers[1:]
		}
		for len(jokers) > 0 && min > 1 {
			min--
			byValue[min] = jokers[0]
			jokers = jokers[1:]
		}
		ordered := make([]Tile, 0, len(tiles))
		for v := min; v <= max; v++ {
			if tile, ok := byValue[v]; ok {
				ordered = append(ordered, tile)
			}
		}
		return append(ordered, jokers...)
	}
	out := make([]Tile, len(tiles))
	copy(out, tiles)
	return out
}

func withoutJokers(tiles []Tile) []Tile {
	out := make([]Tile, 0, len(tiles))
	for _, tile := range tiles {
		if !tile.Joker {
			out = append(out, tile)
		}
	}
	return out
}

// sortedJokers orders jokers by id so joker placement is a pure function
// of the tile multiset; normalization stays idempotent regardless of the
// order jokers arrive in.
func sortedJokers(tiles []Tile) []Tile {
	out := make([]Tile, 0, 2)
	for _, tile := range tiles {
		if tile.Joker {
			out = append(out, tile)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
