package rummy

type MoveType string

const (
	// Draw phase
	MoveDrawFromDeck MoveType = "draw_from_deck"
	MoveDrawFromPile MoveType = "draw_from_pile"

	// Discard phase
	MoveMeld       MoveType = "meld"
	MoveExtendMeld MoveType = "extend_meld"
	MoveDiscard    MoveType = "discard"
)
