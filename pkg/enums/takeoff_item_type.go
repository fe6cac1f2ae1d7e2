package enums

import "fmt"

// TakeoffItemType maps to the takeoff_item_type enum in Postgres.
type TakeoffItemType string

const (
	TakeoffItemTypeSection TakeoffItemType = "section"
	TakeoffItemTypeItem    TakeoffItemType = "item"
)

var validTakeoffItemTypes = []TakeoffItemType{
	TakeoffItemTypeSection,
	TakeoffItemTypeItem,
}

// IsValid reports whether the value matches the canonical takeoff item type enum.
func (t TakeoffItemType) IsValid() bool {
	for _, candidate := range validTakeoffItemTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTakeoffItemType converts raw input into TakeoffItemType.
func ParseTakeoffItemType(value string) (TakeoffItemType, error) {
	for _, candidate := range validTakeoffItemTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid takeoff item type %q", value)
}
