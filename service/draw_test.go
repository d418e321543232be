package service

import (
	"errors"
	"strings"
	"testing"

	"bookie/models"

	"github.com/stretchr/testify/assert"
)

func TestDrawOutcome_SevenUpDown(t *testing.T) {
	valid := map[string]bool{"up": true, "down": true, "7": true}

	for i := 0; i < 100; i++ {
		outcome, err := DrawOutcome(models.GameSevenUpDown)
		assert.NoError(t, err)
		assert.True(t, valid[outcome], "unexpected outcome %q", outcome)
	}
}

func TestDrawOutcome_CoinFlip(t *testing.T) {
	valid := map[string]bool{"heads": true, "tails": true}

	for i := 0; i < 100; i++ {
		outcome, err := DrawOutcome(models.GameCoinFlip)
		assert.NoError(t, err)
		assert.True(t, valid[outcome], "unexpected outcome %q", outcome)
	}
}

func TestDrawOutcome_LuckyNumbers(t *testing.T) {
	for i := 0; i < 100; i++ {
		outcome, err := DrawOutcome(models.GameLuckyNumbers)
		assert.NoError(t, err)

		labels := strings.Split(outcome, ",")
		assert.Len(t, labels, 3)

		seen := map[string]bool{}
		for _, label := range labels {
			assert.Contains(t, []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, label)
			assert.False(t, seen[label], "duplicate label %q in %q", label, outcome)
			seen[label] = true
		}
	}
}

func TestDrawOutcome_UnknownGame(t *testing.T) {
	_, err := DrawOutcome(models.GameType("roulette"))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownGame))
}
