package booking

import "github.com/appetiteclub/apt"

const (
	DateLayout = "2006-01-02"

	MinPartySize = 1
	MaxPartySize = 10

	DefaultTime      = "18:00"
	DefaultPartySize = 2
)

// Slots are the bookable hourly times, 10:00 through 22:00.
var Slots = []string{
	"10:00", "11:00", "12:00", "13:00", "14:00",
	"15:00", "16:00", "17:00", "18:00", "19:00",
	"20:00", "21:00", "22:00",
}

func IsSlot(value string) bool {
	return apt.IsInList(value, Slots)
}
