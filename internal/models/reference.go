package models

// Modalities is the fixed equipment-type enumeration. Order and requisition
// intake validates against it; routing treats the value as opaque.
var Modalities = []string{"CT", "MRI", "Ultrasound", "PET", "X-Ray"}

func ValidModality(m string) bool {
	for _, known := range Modalities {
		if m == known {
			return true
		}
	}
	return false
}

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityStat, PriorityUrgent, PriorityRoutine, PriorityLow:
		return true
	}
	return false
}
