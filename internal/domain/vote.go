package domain

import "time"

// VoteType is the direction of a sentiment vote.
type VoteType string

const (
	VoteBullish VoteType = "BULLISH"
	VoteBearish VoteType = "BEARISH"
)

// Valid reports whether v is one of the known vote directions.
func (v VoteType) Valid() bool {
	return v == VoteBullish || v == VoteBearish
}

// VoteEvent is published to activity-feed subscribers after a vote lands.
type VoteEvent struct {
	TokenID           string    `json:"tokenId"`
	BaseTokenSymbol   string    `json:"baseTokenSymbol"`
	VoteType          VoteType  `json:"voteType"`
	Undo              bool      `json:"undo,omitempty"`
	BullishVotes      int       `json:"bullishVotes"`
	BearishVotes      int       `json:"bearishVotes"`
	BullishPercentage int       `json:"bullishPercentage"`
	At                time.Time `json:"at"`
}
