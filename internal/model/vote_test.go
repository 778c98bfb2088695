package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVote_CountMapAndTotal(t *testing.T) {
	v := Vote{
		CenterID: "c1",
		Counts: []VoteCount{
			{CenterID: "c1", CandidateID: "a", Count: 100},
			{CenterID: "c1", CandidateID: "b", Count: 50},
		},
	}

	assert.Equal(t, map[string]int{"a": 100, "b": 50}, v.CountMap())
	assert.Equal(t, 150, v.Total())
	assert.Empty(t, Vote{}.CountMap())
	assert.Equal(t, 0, Vote{}.Total())
}

func TestSession_Active(t *testing.T) {
	now := time.Now()

	assert.True(t, Session{ExpiresAt: now.Add(time.Minute)}.Active(now))
	assert.False(t, Session{ExpiresAt: now.Add(-time.Minute)}.Active(now))
	assert.False(t, Session{ExpiresAt: now.Add(time.Minute), Revoked: true}.Active(now))
}
