package core

import "fmt"

// RoomKey identifies a broadcast domain: one channel within one group.
// It is a comparable value type so it can be used directly as a map key,
// avoiding the collision bugs of concatenated string keys.
type RoomKey struct {
	GroupID int64
	Channel string
}

func (k RoomKey) String() string {
	return fmt.Sprintf("%d/%s", k.GroupID, k.Channel)
}

// Zero reports whether the key is unset.
func (k RoomKey) Zero() bool {
	return k.GroupID == 0 && k.Channel == ""
}
