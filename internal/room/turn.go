package room

import (
	"fmt"

	"rummikub-server/internal/game"
)

// WireGroup is the wire form of one table group: tiles travel purely as
// id strings and are reconstructed through the strict decoder.
type WireGroup struct {
	ID      string   `json:"id"`
	TileIDs []string `json:"tileIds"`
}

// Limits bound incoming table payloads; oversized tables are rejected
// before any per-tile parsing.
type Limits struct {
	MaxGroups     int
	MaxTableTiles int
}

// DecodeTable converts an untrusted wire table into typed groups. Any
// id failing decode rejects the whole payload.
func DecodeTable(payload []WireGroup, limits Limits) ([]Group, error) {
	if payload == nil {
		return nil, structural("Table data missing.")
	}
	if len(payload) > limits.MaxGroups {
		return nil, capacity("Too many groups submitted.")
	}
	seen := make(map[string]bool)
	groups := make([]Group, 0, len(payload))
	totalTiles := 0
	for _, wire := range payload {
		if wire.ID == "" || len(wire.TileIDs) == 0 {
			return nil, structural("Group data invalid.")
		}
		totalTiles += len(wire.TileIDs)
		if totalTiles > limits.MaxTableTiles {
			return nil, capacity("Too many tiles submitted.")
		}
		tiles := make([]game.Tile, 0, len(wire.TileIDs))
		for _, id := range wire.TileIDs {
			if seen[id] {
				return nil, structural("Duplicate tile in table.")
			}
			tile, err := game.ParseTileID(id)
			if err != nil {
				return nil, structural("Invalid tile.")
			}
			seen[id] = true
			tiles = append(tiles, tile)
		}
		groups = append(groups, Group{ID: wire.ID, Tiles: tiles})
	}
	return groups, nil
}

func jokerGroupIDs(table []Group) map[string]string {
	out := make(map[string]string)
	for _, group := range table {
		for _, tile := range group.Tiles {
			if tile.Joker {
				out[tile.ID] = group.ID
			}
		}
	}
	return out
}

func jokerGroupTiles(table []Group) map[string][]game.Tile {
	out := make(map[string][]game.Tile)
	for _, group := range table {
		for _, tile := range group.Tiles {
			if tile.Joker {
				out[tile.ID] = group.Tiles
			}
		}
	}
	return out
}

// DiffTableGroups splits two tables into the groups that disappeared and
// the groups that newly appeared, matching unchanged groups by their
// tile-id signature.
func DiffTableGroups(prevTable, nextTable []Group) (before, after []Group) {
	prevCounts := TableSignature(prevTable)
	nextCounts := TableSignature(nextTable)

	for _, group := range prevTable {
		sig := groupSignature(group)
		if nextCounts[sig] > 0 {
			nextCounts[sig]--
		} else {
			before = append(before, group)
		}
	}
	for _, group := range nextTable {
		sig := groupSignature(group)
		if prevCounts[sig] > 0 {
			prevCounts[sig]--
		} else {
			after = append(after, group)
		}
	}
	return before, after
}

// IsTableOnlyExtended reports whether every prior group survives intact
// in the next table, i.e. the move only appended tiles or added groups.
func IsTableOnlyExtended(prevTable, nextTable []Group) bool {
	prevCounts := TableSignature(prevTable)
	nextCounts := TableSignature(nextTable)
	for sig, count := range prevCounts {
		if nextCounts[sig] < count {
			return false
		}
	}
	return true
}

// SubmitTurn validates and applies a proposed table for the one
// committing action of the current turn. The caller holds the room lock
// and has already verified turn ownership and the turn id.
func SubmitTurn(r *Room, playerName string, newTable []Group, meldPoints int) (roundOver bool, err error) {
	player := r.Players[playerName]
	if player == nil {
		return false, structural("Player not found.")
	}
	prevTable := r.TurnStartTable
	prevIDs := make(map[string]bool)
	for _, id := range TableTileIDs(prevTable) {
		prevIDs[id] = true
	}
	handIDs := make(map[string]bool, len(player.Hand))
	for _, tile := range player.Hand {
		handIDs[tile.ID] = true
	}
	newIDs := make(map[string]bool)
	playedIDs := make(map[string]bool)

	for _, group := range newTable {
		if !game.IsValidGroup(group.Tiles) {
			return false, ruleViolation("One or more groups are invalid.")
		}
		for _, tile := range group.Tiles {
			if newIDs[tile.ID] {
				return false, structural("Duplicate tile in table.")
			}
			newIDs[tile.ID] = true
			if prevIDs[tile.ID] {
				continue
			}
			if handIDs[tile.ID] {
				playedIDs[tile.ID] = true
				continue
			}
			return false, ruleViolation("Table uses tiles not available.")
		}
	}

	for id := range prevIDs {
		if !newIDs[id] {
			return false, ruleViolation("You must keep all existing table tiles.")
		}
	}

	if len(playedIDs) == 0 {
		return false, ruleViolation("You did not play any tiles. Draw instead.")
	}

	prevJokers := jokerGroupIDs(prevTable)
	nextJokers := jokerGroupIDs(newTable)
	if r.JokerLocked {
		for jokerID, prevGroupID := range prevJokers {
			if nextJokers[jokerID] != prevGroupID {
				return false, ruleViolation("Jokers are locked and cannot be moved.")
			}
		}
	} else {
		prevJokerTiles := jokerGroupTiles(prevTable)
		for jokerID, prevGroupID := range prevJokers {
			nextGroupID, ok := nextJokers[jokerID]
			if !ok || nextGroupID == prevGroupID {
				continue
			}
			remaining := make([]game.Tile, 0)
			for _, tile := range prevJokerTiles[jokerID] {
				if tile.ID != jokerID {
					remaining = append(remaining, tile)
				}
			}
			if !game.IsValidGroup(remaining) {
				return false, ruleViolation("Joker can only move if its original group stays valid.")
			}
		}
	}

	if !player.HasMelded {
		prevSig := TableSignature(prevTable)
		nextSig := TableSignature(newTable)
		for sig, count := range prevSig {
			if nextSig[sig] < count {
				return false, ruleViolation("You cannot change the table before your initial meld.")
			}
		}
		points := 0
		for _, group := range newTable {
			hasPlayed := false
			for _, tile := range group.Tiles {
				if playedIDs[tile.ID] {
					hasPlayed = true
					break
				}
			}
			if hasPlayed {
				points += game.GroupMeldValue(group.Tiles)
			}
		}
		if points < meldPoints {
			return false, ruleViolation(fmt.Sprintf("Initial meld must be at least %d points.", meldPoints))
		}
	}

	playedTiles := make([]game.Tile, 0, len(playedIDs))
	keptHand := make([]game.Tile, 0, len(player.Hand))
	for _, tile := range player.Hand {
		if playedIDs[tile.ID] {
			playedTiles = append(playedTiles, tile)
		} else {
			keptHand = append(keptHand, tile)
		}
	}
	player.Hand = keptHand
	player.HasMelded = true
	committed := make([]Group, 0, len(newTable))
	for _, group := range newTable {
		committed = append(committed, Group{ID: group.ID, Tiles: game.NormalizeGroupTiles(group.Tiles)})
	}
	r.Table = committed
	r.DraftTable = nil
	r.DraftPlayer = ""

	plural := "s"
	if len(playedIDs) == 1 {
		plural = ""
	}
	before, after := DiffTableGroups(prevTable, newTable)
	r.appendMove(fmt.Sprintf("%s played %d tile%s.", playerName, len(playedIDs), plural), MoveEntry{
		Type:        MoveSubmit,
		Player:      playerName,
		PlayedTiles: playedTiles,
		TableBefore: before,
		TableAfter:  after,
	})
	r.NoPlayTurns = 0

	if len(player.Hand) == 0 {
		ApplyScores(r, playerName)
		return true, nil
	}
	if next := FindNextPlayer(r, playerName); next != "" {
		StartTurn(r, next)
	}
	return false, nil
}

// DrawTurn handles the pass action: draw one tile while the deck lasts,
// otherwise count a pass. When every seat has passed consecutively the
// round ends by stalemate.
func DrawTurn(r *Room, playerName string) (roundOver bool, err error) {
	player := r.Players[playerName]
	if player == nil {
		return false, structural("Player not found.")
	}
	if len(r.Deck) > 0 {
		drawn := r.Deck[0]
		r.Deck = r.Deck[1:]
		player.Hand = append(player.Hand, drawn)
		tile := drawn
		r.appendMove(fmt.Sprintf("%s drew a tile.", playerName), MoveEntry{
			Type:      MoveDraw,
			Player:    playerName,
			DrawnTile: &tile,
		})
		r.DraftTable = nil
		r.DraftPlayer = ""
		r.NoPlayTurns = 0
	} else {
		r.NoPlayTurns++
		r.appendMove(fmt.Sprintf("%s passed (deck empty).", playerName), MoveEntry{
			Type:   MovePass,
			Player: playerName,
		})
		r.DraftTable = nil
		r.DraftPlayer = ""
		if r.NoPlayTurns >= len(r.Order) {
			EndRoundStalemate(r)
			return true, nil
		}
	}
	if next := FindNextPlayer(r, playerName); next != "" {
		StartTurn(r, next)
	}
	return false, nil
}

// SanitizeDraft gates the advisory preview: every tile must come from
// the current table or the drafting player's hand, with no duplicates.
// Drafts never touch authoritative state.
func SanitizeDraft(r *Room, player *Player, table []Group) error {
	currentIDs := make(map[string]bool)
	for _, id := range TableTileIDs(r.Table) {
		currentIDs[id] = true
	}
	handIDs := make(map[string]bool, len(player.Hand))
	for _, tile := range player.Hand {
		handIDs[tile.ID] = true
	}
	seen := make(map[string]bool)
	for _, group := range table {
		for _, tile := range group.Tiles {
			if seen[tile.ID] {
				return structural("Duplicate tile in draft.")
			}
			seen[tile.ID] = true
			if !currentIDs[tile.ID] && !handIDs[tile.ID] {
				return structural("Draft uses tiles not available.")
			}
		}
	}
	return nil
}
