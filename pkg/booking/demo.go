package booking

// DemoTables is the sample floor plan used when the backend table list has
// never been reachable and demo fallback is enabled.
func DemoTables() []Table {
	return []Table{
		{ID: "1", TableNumber: "T01", Capacity: 2, Location: "indoors", Status: "available"},
		{ID: "2", TableNumber: "T02", Capacity: 4, Location: "indoors", Status: "available"},
		{ID: "3", TableNumber: "T03", Capacity: 6, Location: "outdoors", Status: "available"},
		{ID: "4", TableNumber: "T04", Capacity: 2, Location: "balcony", Status: "available"},
		{ID: "5", TableNumber: "T05", Capacity: 8, Location: "private", Status: "available"},
		{ID: "6", TableNumber: "T06", Capacity: 4, Location: "indoors", Status: "available"},
		{ID: "7", TableNumber: "T07", Capacity: 2, Location: "indoors", Status: "available"},
		{ID: "8", TableNumber: "T08", Capacity: 4, Location: "outdoors", Status: "available"},
	}
}
