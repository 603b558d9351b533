package services

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"dkpauction/domain/entities"
)

const (
	// TieRollMax is the highest value a tie roll can produce; rolls are 1..TieRollMax
	TieRollMax = 100

	// maxTieRounds bounds re-rolls when the top roll is itself shared
	maxTieRounds = 100
)

// RandSource provides random numbers for tie-breaking.
type RandSource interface {
	// Intn returns a random integer in [0, n). Panics if n <= 0.
	Intn(n int) int
}

// cryptoRandSource wraps crypto/rand for production use
type cryptoRandSource struct{}

func (cryptoRandSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("cryptoRandSource.Intn: n must be positive, got %d", n))
	}
	// rand.Int does not error when using rand.Reader
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(nBig.Int64())
}

// NewCryptoRandSource returns a cryptographically secure RandSource
func NewCryptoRandSource() RandSource {
	return cryptoRandSource{}
}

// RollOff gives each tied bidder an independent roll in [1, TieRollMax].
// When the highest roll is shared, every bidder rolls again; only the deciding
// round is returned. The winner is the single bidder holding the maximum roll.
func RollOff(auctionID int64, bidders []int64, src RandSource) (rolls []*entities.TieRoll, winner *entities.TieRoll, rounds int, err error) {
	if len(bidders) < 2 {
		return nil, nil, 0, fmt.Errorf("roll-off needs at least two bidders, got %d", len(bidders))
	}

	for rounds = 1; rounds <= maxTieRounds; rounds++ {
		rolls = make([]*entities.TieRoll, len(bidders))
		best := 0
		bestCount := 0
		bestIdx := -1

		for i, userID := range bidders {
			roll := src.Intn(TieRollMax) + 1
			rolls[i] = &entities.TieRoll{AuctionID: auctionID, DiscordID: userID, Roll: roll}
			switch {
			case roll > best:
				best, bestCount, bestIdx = roll, 1, i
			case roll == best:
				bestCount++
			}
		}

		if bestCount == 1 {
			rolls[bestIdx].IsWinner = true
			return rolls, rolls[bestIdx], rounds, nil
		}
	}

	return nil, nil, maxTieRounds, fmt.Errorf("%w after %d rounds", entities.ErrTieUnresolved, maxTieRounds)
}
