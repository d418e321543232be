package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"bookie/models"
)

// Winning outcomes are drawn from the OS CSPRNG at settlement time. The draw
// takes no round state as input, so it cannot be computed from or biased by
// the distribution of bets placed on the round.

// drawInt returns a uniform integer in [0, n)
func drawInt(n int64) (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return v.Int64(), nil
}

// DrawOutcome draws the winning outcome label(s) for a game type. Games that
// award several simultaneous winners return the labels comma-joined.
func DrawOutcome(gameType models.GameType) (string, error) {
	switch gameType {
	case models.GameSevenUpDown:
		return drawSevenUpDown()
	case models.GameCoinFlip:
		return drawCoinFlip()
	case models.GameLuckyNumbers:
		return drawLuckyNumbers(3, 10)
	default:
		return "", fmt.Errorf("%q: %w", gameType, ErrUnknownGame)
	}
}

// drawSevenUpDown rolls two dice: sums below seven pay "down", above pay
// "up", exactly seven pays "7".
func drawSevenUpDown() (string, error) {
	d1, err := drawInt(6)
	if err != nil {
		return "", err
	}
	d2, err := drawInt(6)
	if err != nil {
		return "", err
	}

	sum := (d1 + 1) + (d2 + 1)
	switch {
	case sum < 7:
		return "down", nil
	case sum > 7:
		return "up", nil
	default:
		return "7", nil
	}
}

func drawCoinFlip() (string, error) {
	v, err := drawInt(2)
	if err != nil {
		return "", err
	}
	if v == 0 {
		return "heads", nil
	}
	return "tails", nil
}

// drawLuckyNumbers draws count distinct numbers from [0, max) and returns
// them sorted and comma-joined; every drawn number is a winning label.
func drawLuckyNumbers(count, max int64) (string, error) {
	drawn := make(map[int64]bool, count)
	for int64(len(drawn)) < count {
		v, err := drawInt(max)
		if err != nil {
			return "", err
		}
		drawn[v] = true
	}

	labels := make([]string, 0, count)
	for v := range drawn {
		labels = append(labels, strconv.FormatInt(v, 10))
	}
	sort.Strings(labels)

	return strings.Join(labels, ","), nil
}
