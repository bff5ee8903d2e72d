package imagecache

import (
	"fmt"
	"strings"
)

// Slot identifies one of the two input image holders
type Slot string

const (
	SlotImage1 Slot = "image1"
	SlotImage2 Slot = "image2"
)

// Slots returns both slots in display order
func Slots() []Slot {
	return []Slot{SlotImage1, SlotImage2}
}

// ParseSlot accepts "image1"/"image2" as well as "1"/"2"
func ParseSlot(s string) (Slot, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image1", "1":
		return SlotImage1, nil
	case "image2", "2":
		return SlotImage2, nil
	default:
		return "", fmt.Errorf("unknown image slot %q", s)
	}
}

func (s Slot) String() string {
	return string(s)
}
