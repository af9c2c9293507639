// Package ai searches for legal table extensions and rearrangements on
// behalf of AI-controlled seats. Planning is a pure function of the room
// and hand; the scheduler decides when plans run.
package ai

import (
	"sort"

	"rummikub-server/internal/game"
	"rummikub-server/internal/room"
)

// Plan is a final table plus the intermediate tables the scheduler
// reveals as drafts before committing. Steps are presentation only, not
// atomic state commits.
type Plan struct {
	Table []room.Group
	Steps [][]room.Group
}

// maxMovedTableTiles bounds the advanced search to combinations of at
// most two relocated table tiles. Policy constant, not a derived
// optimum: it keeps the combo space tractable.
const maxMovedTableTiles = 2

type scoredGroup struct {
	tiles []game.Tile
	value int
}

// BuildPlan returns nil when no legal improving move exists; the seat
// must draw instead.
func BuildPlan(r *room.Room, player *room.Player, meldPoints int, level room.AILevel) *Plan {
	hand := append([]game.Tile(nil), player.Hand...)
	table := room.CloneTable(r.Table)

	if !player.HasMelded {
		groups := generateGroups(hand, 3, 5)
		picks := pickInitialMeld(groups, meldPoints)
		if len(picks) == 0 {
			return nil
		}
		return buildInitialMeldPlan(r, picks)
	}

	table, handLeft, moved := addTilesToGroups(table, hand)
	table, remaining := addNewGroupsFromHand(table, handLeft)

	if len(moved) == 0 && len(remaining) == len(handLeft) {
		if level == room.AIAdvanced {
			return buildTableWithMovedTiles(r, player, maxMovedTableTiles)
		}
		return nil
	}

	return &Plan{Table: table, Steps: [][]room.Group{room.CloneTable(table)}}
}

// BuildTable is BuildPlan without the staged reveal, used for hints.
func BuildTable(r *room.Room, player *room.Player, meldPoints int, level room.AILevel) []room.Group {
	plan := BuildPlan(r, player, meldPoints, level)
	if plan == nil {
		return nil
	}
	return plan.Table
}

// generateGroups enumerates every hand subset of the given sizes that
// forms a valid group, scored by its meld value.
func generateGroups(hand []game.Tile, minSize, maxSize int) []scoredGroup {
	var results []scoredGroup
	n := len(hand)
	bucket := make([]game.Tile, 0, maxSize)

	var walk func(start, size int)
	walk = func(start, size int) {
		if len(bucket) == size {
			if game.IsValidGroup(bucket) {
				results = append(results, scoredGroup{
					tiles: append([]game.Tile(nil), bucket...),
					value: game.GroupMeldValue(bucket),
				})
			}
			return
		}
		for i := start; i < n; i++ {
			bucket = append(bucket, hand[i])
			walk(i+1, size)
			bucket = bucket[:len(bucket)-1]
		}
	}

	for size := minSize; size <= maxSize; size++ {
		walk(0, size)
	}
	return results
}

// pickInitialMeld searches highest-value-first for tile-disjoint groups
// whose values reach the threshold. The used set is restored on
// backtrack; there is no hidden search state.
func pickInitialMeld(groups []scoredGroup, threshold int) []scoredGroup {
	sorted := append([]scoredGroup(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].value > sorted[j].value })

	used := make(map[string]bool)
	var picks []scoredGroup

	var dfs func(index, total int) []scoredGroup
	dfs = func(index, total int) []scoredGroup {
		if total >= threshold {
			return append([]scoredGroup(nil), picks...)
		}
		if index >= len(sorted) {
			return nil
		}
		for i := index; i < len(sorted); i++ {
			candidate := sorted[i]
			if overlapsUsed(candidate.tiles, used) {
				continue
			}
			markUsed(candidate.tiles, used, true)
			picks = append(picks, candidate)
			if found := dfs(i+1, total+candidate.value); found != nil {
				return found
			}
			picks = picks[:len(picks)-1]
			markUsed(candidate.tiles, used, false)
		}
		return nil
	}

	return dfs(0, 0)
}

func buildInitialMeldPlan(r *room.Room, picks []scoredGroup) *Plan {
	working := room.CloneTable(r.Table)
	var steps [][]room.Group
	for _, pick := range picks {
		working = append(working, room.Group{
			ID:    newAIGroupID(),
			Tiles: append([]game.Tile(nil), pick.tiles...),
		})
		steps = append(steps, room.CloneTable(working))
	}
	return &Plan{Table: working, Steps: steps}
}

// addTilesToGroups appends each hand tile to the first existing group
// the tile keeps valid. First fit, not best fit.
func addTilesToGroups(table []room.Group, hand []game.Tile) (out []room.Group, remaining, moved []game.Tile) {
	out = table
	for _, tile := range hand {
		placed := false
		for i := range out {
			candidate := append(append([]game.Tile(nil), out[i].Tiles...), tile)
			if game.IsValidGroup(candidate) {
				out[i].Tiles = append(out[i].Tiles, tile)
				moved = append(moved, tile)
				placed = true
				break
			}
		}
		if !placed {
			remaining = append(remaining, tile)
		}
	}
	return out, remaining, moved
}

// addNewGroupsFromHand lays down valid new groups greedily by descending
// value over disjoint tile sets.
func addNewGroupsFromHand(table []room.Group, hand []game.Tile) (out []room.Group, remaining []game.Tile) {
	groups := generateGroups(hand, 3, 5)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].value > groups[j].value })

	used := make(map[string]bool)
	out = table
	for _, candidate := range groups {
		if overlapsUsed(candidate.tiles, used) {
			continue
		}
		markUsed(candidate.tiles, used, true)
		out = append(out, room.Group{
			ID:    newAIGroupID(),
			Tiles: append([]game.Tile(nil), candidate.tiles...),
		})
	}
	for _, tile := range hand {
		if !used[tile.ID] {
			remaining = append(remaining, tile)
		}
	}
	return out, remaining
}

type tableRef struct {
	tile       game.Tile
	groupIndex int
}

type comboResult struct {
	table         []room.Group
	steps         [][]room.Group
	value         int
	handUsedCount int
	movedCount    int
}

// buildTableWithMovedTiles relocates one or two table tiles into a
// brand-new group formed with hand tiles. Origin groups must vanish or
// stay valid; tie-breaks are value, then hand tiles used, then tiles
// moved, in that order, so plans are deterministic.
func buildTableWithMovedTiles(r *room.Room, player *room.Player, maxMoved int) *Plan {
	baseTable := room.CloneTable(r.Table)
	hand := append([]game.Tile(nil), player.Hand...)

	var refs []tableRef
	for groupIndex, group := range baseTable {
		for _, tile := range group.Tiles {
			refs = append(refs, tableRef{tile: tile, groupIndex: groupIndex})
		}
	}

	var best *comboResult
	better := func(candidate *comboResult) bool {
		if best == nil {
			return true
		}
		if candidate.value != best.value {
			return candidate.value > best.value
		}
		if candidate.handUsedCount != best.handUsedCount {
			return candidate.handUsedCount > best.handUsedCount
		}
		return candidate.movedCount > best.movedCount
	}

	for i := 0; i < len(refs); i++ {
		if single := evaluateCombo(baseTable, hand, []tableRef{refs[i]}); single != nil && better(single) {
			best = single
		}
		if maxMoved < 2 {
			continue
		}
		for j := i + 1; j < len(refs); j++ {
			if combo := evaluateCombo(baseTable, hand, []tableRef{refs[i], refs[j]}); combo != nil && better(combo) {
				best = combo
			}
		}
	}

	if best == nil {
		return nil
	}
	return &Plan{Table: best.table, Steps: best.steps}
}

func evaluateCombo(baseTable []room.Group, hand []game.Tile, refs []tableRef) *comboResult {
	movedTiles := make([]game.Tile, 0, len(refs))
	removals := make(map[int][]string)
	for _, ref := range refs {
		movedTiles = append(movedTiles, ref.tile)
		removals[ref.groupIndex] = append(removals[ref.groupIndex], ref.tile.ID)
	}

	var nextTable []room.Group
	for i, group := range baseTable {
		removeIDs := removals[i]
		if removeIDs == nil {
			nextTable = append(nextTable, room.Group{ID: group.ID, Tiles: append([]game.Tile(nil), group.Tiles...)})
			continue
		}
		var remaining []game.Tile
		for _, tile := range group.Tiles {
			if !containsID(removeIDs, tile.ID) {
				remaining = append(remaining, tile)
			}
		}
		if len(remaining) == 0 {
			continue
		}
		if !game.IsValidGroup(remaining) {
			return nil
		}
		nextTable = append(nextTable, room.Group{ID: group.ID, Tiles: remaining})
	}

	handIDs := make(map[string]bool, len(hand))
	for _, tile := range hand {
		handIDs[tile.ID] = true
	}

	pool := append(append([]game.Tile(nil), movedTiles...), hand...)
	var candidates []scoredGroup
	for _, candidate := range generateGroups(pool, 3, 5) {
		if !containsAll(candidate.tiles, movedTiles) {
			continue
		}
		if countHandTiles(candidate.tiles, handIDs) == 0 {
			continue
		}
		candidates = append(candidates, candidate)
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].value != candidates[j].value {
			return candidates[i].value > candidates[j].value
		}
		return countHandTiles(candidates[i].tiles, handIDs) > countHandTiles(candidates[j].tiles, handIDs)
	})

	bestGroup := candidates[0]
	usedHandIDs := make(map[string]bool)
	for _, tile := range bestGroup.tiles {
		if handIDs[tile.ID] {
			usedHandIDs[tile.ID] = true
		}
	}
	tableWithGroup := room.CloneTable(nextTable)
	tableWithGroup = append(tableWithGroup, room.Group{
		ID:    newAIGroupID(),
		Tiles: append([]game.Tile(nil), bestGroup.tiles...),
	})

	var remainingHand []game.Tile
	for _, tile := range hand {
		if !usedHandIDs[tile.ID] {
			remainingHand = append(remainingHand, tile)
		}
	}
	tableAfterAdds := room.CloneTable(tableWithGroup)
	tableAfterAdds, leftover, moved := addTilesToGroups(tableAfterAdds, remainingHand)
	tableAfterAdds, stillLeft := addNewGroupsFromHand(tableAfterAdds, leftover)

	steps := [][]room.Group{room.CloneTable(nextTable), room.CloneTable(tableWithGroup)}
	if len(moved) > 0 || len(stillLeft) < len(leftover) {
		steps = append(steps, room.CloneTable(tableAfterAdds))
	}

	return &comboResult{
		table:         tableAfterAdds,
		steps:         steps,
		value:         bestGroup.value,
		handUsedCount: countHandTiles(bestGroup.tiles, handIDs),
		movedCount:    len(movedTiles),
	}
}

func newAIGroupID() string {
	return "ai-" + room.NewGroupID()
}

func overlapsUsed(tiles []game.Tile, used map[string]bool) bool {
	for _, tile := range tiles {
		if used[tile.ID] {
			return true
		}
	}
	return false
}

func markUsed(tiles []game.Tile, used map[string]bool, on bool) {
	for _, tile := range tiles {
		if on {
			used[tile.ID] = true
		} else {
			delete(used, tile.ID)
		}
	}
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func containsAll(tiles, wanted []game.Tile) bool {
	for _, want := range wanted {
		found := false
		for _, tile := range tiles {
			if tile.ID == want.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func countHandTiles(tiles []game.Tile, handIDs map[string]bool) int {
	count := 0
	for _, tile := range tiles {
		if handIDs[tile.ID] {
			count++
		}
	}
	return count
}
