package tablestatus

import "strings"

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

type Enum struct {
	Available   Status
	Occupied    Status
	Reserved    Status
	Maintenance Status
}

var Statuses = Enum{
	Available:   Status{Name: "available"},
	Occupied:    Status{Name: "occupied"},
	Reserved:    Status{Name: "reserved"},
	Maintenance: Status{Name: "maintenance"},
}

var All = []Status{
	Statuses.Available,
	Statuses.Occupied,
	Statuses.Reserved,
	Statuses.Maintenance,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
