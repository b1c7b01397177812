package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePlate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"abc123", "ABC123"},
		{"AB C123", "ABC123"},
		{"  ab  c 123  ", "ABC123"},
		{"ABC123", "ABC123"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePlate(tc.in), "plate %q", tc.in)
	}
}

func TestChatPairKeyIsOrderIndependent(t *testing.T) {
	a := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	b := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000")

	lo1, hi1 := ChatPairKey(a, b)
	lo2, hi2 := ChatPairKey(b, a)

	assert.Equal(t, lo1, lo2)
	assert.Equal(t, hi1, hi2)
	assert.Equal(t, a, lo1, "lower uuid lands in the first slot")
	assert.Equal(t, b, hi1)
}

func TestChatPairKeySameCar(t *testing.T) {
	a := uuid.New()
	lo, hi := ChatPairKey(a, a)
	assert.Equal(t, a, lo)
	assert.Equal(t, a, hi)
}

func TestChatParticipants(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	stranger := uuid.New()

	chat := Chat{OwnerID: owner, OtherUserID: other}

	assert.True(t, chat.HasParticipant(owner))
	assert.True(t, chat.HasParticipant(other))
	assert.False(t, chat.HasParticipant(stranger))

	assert.Equal(t, other, chat.OtherParticipant(owner))
	assert.Equal(t, owner, chat.OtherParticipant(other))
}
