package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		current int
		delta   int
		want    Transition
	}{
		{"open long", 0, 5, TransitionOpen},
		{"open short", 0, -5, TransitionOpen},
		{"add long", 10, 3, TransitionAddLong},
		{"partial exit", 10, -4, TransitionPartialExit},
		{"full exit", 10, -10, TransitionFullExit},
		{"flip to short", 10, -15, TransitionFlipShort},
		{"add short", -10, -3, TransitionAddShort},
		{"partial cover", -10, 4, TransitionPartialCover},
		{"full cover", -10, 10, TransitionFullCover},
		{"flip to long", -10, 15, TransitionFlipLong},
		{"minimal full exit", 1, -1, TransitionFullExit},
		{"minimal flip", 1, -2, TransitionFlipShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.current, tc.delta))
		})
	}
}

func TestTransitionCompletes(t *testing.T) {
	completing := []Transition{TransitionFullExit, TransitionFullCover, TransitionFlipShort, TransitionFlipLong}
	for _, tr := range completing {
		assert.True(t, tr.Completes(), tr.String())
	}
	ongoing := []Transition{TransitionOpen, TransitionAddLong, TransitionPartialExit, TransitionAddShort, TransitionPartialCover}
	for _, tr := range ongoing {
		assert.False(t, tr.Completes(), tr.String())
	}
}
