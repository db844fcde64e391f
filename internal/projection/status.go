package projection

// Status is the three-state maintenance badge.
type Status string

const (
	StatusGood    Status = "Good"
	StatusDueSoon Status = "DueSoon"
	StatusOverdue Status = "Overdue"
)

// DueSoonThreshold is the warning band, in hours, before a service falls due.
const DueSoonThreshold = 100.0

// Classify maps the hours left until a service to its status.
func Classify(hoursRemaining float64) Status {
	switch {
	case hoursRemaining <= 0:
		return StatusOverdue
	case hoursRemaining <= DueSoonThreshold:
		return StatusDueSoon
	default:
		return StatusGood
	}
}
