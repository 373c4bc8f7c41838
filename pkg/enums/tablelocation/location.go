package tablelocation

import "strings"

type Location struct {
	Name string
}

func (l Location) Code() string {
	return l.Name
}

func (l Location) Label() string {
	if len(l.Name) == 0 {
		return ""
	}
	return strings.ToUpper(l.Name[:1]) + l.Name[1:]
}

type Enum struct {
	Indoors  Location
	Outdoors Location
	Balcony  Location
	Private  Location
}

var Locations = Enum{
	Indoors:  Location{Name: "indoors"},
	Outdoors: Location{Name: "outdoors"},
	Balcony:  Location{Name: "balcony"},
	Private:  Location{Name: "private"},
}

var All = []Location{
	Locations.Indoors,
	Locations.Outdoors,
	Locations.Balcony,
	Locations.Private,
}

// ByName returns the location for a given name, or nil if not found
func ByName(name string) *Location {
	for _, l := range All {
		if l.Name == name {
			return &l
		}
	}
	return nil
}
