package game

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

type Color string

const (
	Red    Color = "red"
	Blue   Color = "blue"
	Black  Color = "black"
	Orange Color = "orange"
	Joker  Color = "joker"
)

// Colors lists the non-joker colors in canonical display order.
var Colors = []Color{Red, Blue, Black, Orange}

var colorOrder = map[Color]int{Red: 0, Blue: 1, Black: 2, Orange: 3}

// Tile is an immutable value object. ID is its sole identity and its
// canonical serialization: "<color>-<value>-<copy>" or "joker-<0|1>".
type Tile struct {
	ID    string `json:"id"`
	Color Color  `json:"color"`
	Value int    `json:"value"`
	Joker bool   `json:"joker"`
}

var ErrBadTileID = errors.New("invalid tile id")

// ParseTileID is the only boundary converting untrusted strings into
// typed tiles. It rejects anything that is not one of the 106 deck ids.
func ParseTileID(id string) (Tile, error) {
	parts := strings.Split(id, "-")
	if len(parts) == 2 && parts[0] == string(Joker) {
		if parts[1] != "0" && parts[1] != "1" {
			return Tile{}, ErrBadTileID
		}
		return Tile{ID: id, Color: Joker, Value: 0, Joker: true}, nil
	}
	if len(parts) != 3 {
		return Tile{}, ErrBadTileID
	}
	color := Color(parts[0])
	if _, ok := colorOrder[color]; !ok {
		return Tile{}, ErrBadTileID
	}
	value, err := strconv.Atoi(parts[1])
	if err != nil || value < 1 || value > 13 || parts[1] != strconv.Itoa(value) {
		return Tile{}, ErrBadTileID
	}
	if parts[2] != "0" && parts[2] != "1" {
		return Tile{}, ErrBadTileID
	}
	return Tile{ID: id, Color: color, Value: value}, nil
}

// NewDeck builds the 106-tile universe: two copies of values 1..13 in
// four colors plus two jokers. An id collision means the deck itself is
// corrupt, so it is surfaced instead of proceeding.
func NewDeck() ([]Tile, error) {
	tiles := make([]Tile, 0, 106)
	seen := make(map[string]bool, 106)
	for _, color := range Colors {
		for value := 1; value <= 13; value++ {
			for copy := 0; copy < 2; copy++ {
				id := fmt.Sprintf("%s-%d-%d", color, value, copy)
				if seen[id] {
					return nil, fmt.Errorf("deck id collision: %s", id)
				}
				seen[id] = true
				tiles = append(tiles, Tile{ID: id, Color: color, Value: value})
			}
		}
	}
	for copy := 0; copy < 2; copy++ {
		id := fmt.Sprintf("joker-%d", copy)
		if seen[id] {
			return nil, fmt.Errorf("deck id collision: %s", id)
		}
		seen[id] = true
		tiles = append(tiles, Tile{ID: id, Color: Joker, Joker: true})
	}
	return tiles, nil
}

func Shuffle(tiles []Tile) {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	rnd.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
}

// HandPoints is the penalty value of unplayed tiles: jokers count 30,
// numbered tiles their face value.
func HandPoints(hand []Tile) int {
	sum := 0
	for _, tile := range hand {
		if tile.Joker {
			sum += 30
		} else {
			sum += tile.Value
		}
	}
	return sum
}
