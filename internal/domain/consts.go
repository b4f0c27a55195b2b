package domain

// ISO 8601 weekday constants and mappings
const (
	Monday    = 1
	Tuesday   = 2
	Wednesday = 3
	Thursday  = 4
	Friday    = 5
	Saturday  = 6
	Sunday    = 7
)

// WeekdayNumbers maps weekday numbers as strings to integers
var WeekdayNumbers = map[string]int{
	"1": Monday,
	"2": Tuesday,
	"3": Wednesday,
	"4": Thursday,
	"5": Friday,
	"6": Saturday,
	"7": Sunday,
}

// DefaultActiveDays represents Monday through Friday in ISO format
var DefaultActiveDays = []int{Monday, Tuesday, Wednesday, Thursday, Friday}

// DefaultNotificationTime is when the daily order opens if not configured
const DefaultNotificationTime = "09:00"

// MaximumAutoSkippedTimes is how many times the scheduler will push a
// non-responsive participant to the back of the queue before giving up
const MaximumAutoSkippedTimes = 2

// UserNotAvailable replaces mention tokens whose handle does not resolve
const UserNotAvailable = "User Not Available"

// The three daily questions, asked strictly in this order.
var Questions = [3]string{
	"1. Which curry would you like?",
	"2. Which rice would you like (plain/pulau/coconut)?",
	"3. Would you like naan (plain/butter/garlic) or popadoms?",
}

// QuestionForNumber returns the prompt for a question number (1-3),
// or an empty string for anything else.
func QuestionForNumber(number int) string {
	if number < 1 || number > 3 {
		return ""
	}
	return Questions[number-1]
}
