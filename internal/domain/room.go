package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidRoomArgs signals a caller contract violation when resolving a
// chat room key.
var ErrInvalidRoomArgs = errors.New("invalid room arguments")

// RoomKey computes the canonical chat room key for a proposal and a pair of
// participants. The participant ids are ordered numerically, so both sides
// of a conversation resolve to the same key no matter who computes it first.
// Self-chat (userA == userB) is rejected: a marketplace conversation is
// always between two distinct parties.
func RoomKey(proposalID, userA, userB int64) (string, error) {
	if proposalID <= 0 || userA <= 0 || userB <= 0 {
		return "", fmt.Errorf("%w: ids must be positive", ErrInvalidRoomArgs)
	}
	if userA == userB {
		return "", fmt.Errorf("%w: participants must be distinct", ErrInvalidRoomArgs)
	}

	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("proposal:%d:chat:%d_%d", proposalID, lo, hi), nil
}

// PersonalChannel returns the per-user channel key used for out-of-band
// notifications, independent of any chat room.
func PersonalChannel(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}
