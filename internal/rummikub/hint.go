package rummikub

import (
	"rummikub-server/internal/ai"
	"rummikub-server/internal/game"
	"rummikub-server/internal/room"
)

// Hint is the advisory payload sent only to the requesting player.
type Hint struct {
	Type         string      `json:"type"`
	Message      string      `json:"message,omitempty"`
	Tiles        []game.Tile `json:"tiles,omitempty"`
	UsedAdvanced bool        `json:"usedAdvanced,omitempty"`
}

// Hint satisfies the router's adapter contract.
func (a *Adapter) Hint(r *room.Room, player *room.Player) any {
	return a.BuildHint(r, player)
}

// BuildHint runs the planner on the requesting player's behalf, basic
// level first, and highlights the tiles their move would touch.
func (a *Adapter) BuildHint(r *room.Room, player *room.Player) Hint {
	if !r.Started || r.RoundOver || r.Winner != "" {
		return Hint{Type: "hint", Message: "No moves available right now."}
	}
	if r.CurrentPlayer != player.Name {
		return Hint{Type: "hint", Message: "Not your turn."}
	}
	if player.AutoPlay {
		return Hint{Type: "hint", Message: "Auto play is enabled."}
	}
	usedAdvanced := false
	table := ai.BuildTable(r, player, a.cfg.InitialMeldPoints, room.AIBasic)
	if table == nil {
		table = ai.BuildTable(r, player, a.cfg.InitialMeldPoints, room.AIAdvanced)
		usedAdvanced = table != nil
	}
	if table == nil {
		return Hint{Type: "hint", Message: "No moves found."}
	}
	tiles := collectHintTiles(r.Table, table)
	if usedAdvanced {
		if advanced := collectHintTilesAdvanced(r.Table, table); len(advanced) > 0 {
			tiles = advanced
		}
	}
	return Hint{Type: "hint", Tiles: tiles, UsedAdvanced: usedAdvanced}
}

// collectHintTiles gathers the tiles the plan plays from hand.
func collectHintTiles(baseTable, newTable []room.Group) []game.Tile {
	baseIDs := make(map[string]bool)
	for _, id := range room.TableTileIDs(baseTable) {
		baseIDs[id] = true
	}
	var tiles []game.Tile
	seen := make(map[string]bool)
	for _, group := range newTable {
		for _, tile := range group.Tiles {
			if !baseIDs[tile.ID] && !seen[tile.ID] {
				seen[tile.ID] = true
				tiles = append(tiles, tile)
			}
		}
	}
	return tiles
}

// collectHintTilesAdvanced additionally highlights every tile in groups
// the rearrangement changed, so relocations are visible too.
func collectHintTilesAdvanced(prevTable, nextTable []room.Group) []game.Tile {
	byID := make(map[string]game.Tile)
	for _, table := range [][]room.Group{prevTable, nextTable} {
		for _, group := range table {
			for _, tile := range group.Tiles {
				byID[tile.ID] = tile
			}
		}
	}

	prevIDs := make(map[string]bool)
	for _, id := range room.TableTileIDs(prevTable) {
		prevIDs[id] = true
	}
	picked := make(map[string]bool)
	var tiles []game.Tile
	add := func(tile game.Tile) {
		if !picked[tile.ID] {
			picked[tile.ID] = true
			tiles = append(tiles, tile)
		}
	}
	for _, group := range nextTable {
		for _, tile := range group.Tiles {
			if !prevIDs[tile.ID] {
				add(tile)
			}
		}
	}
	before, after := room.DiffTableGroups(prevTable, nextTable)
	for _, group := range append(before, after...) {
		for _, tile := range group.Tiles {
			if entry, ok := byID[tile.ID]; ok {
				add(entry)
			}
		}
	}
	return tiles
}
