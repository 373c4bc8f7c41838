package booking

import (
	"fmt"
	"strings"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/frontdesk/pkg/enums/tablelocation"
	"github.com/appetiteclub/frontdesk/pkg/enums/tablestatus"
)

const (
	MinTableCapacity = 1
	MaxTableCapacity = 20
)

// TableInput is the editable part of a table, sent on create and update.
type TableInput struct {
	TableNumber string `json:"tableNumber"`
	Capacity    int    `json:"capacity"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// Normalize trims the text fields, lowercases the enums and defaults an empty
// location to indoors and an empty status to available.
func (in TableInput) Normalize() TableInput {
	in.TableNumber = strings.TrimSpace(in.TableNumber)
	in.Location = strings.ToLower(strings.TrimSpace(in.Location))
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	in.Description = strings.TrimSpace(in.Description)
	if in.Location == "" {
		in.Location = tablelocation.Locations.Indoors.Code()
	}
	if in.Status == "" {
		in.Status = tablestatus.Statuses.Available.Code()
	}
	return in
}

// Validate checks a normalized input. Failures wrap ErrInvalidTable.
func (in TableInput) Validate() error {
	if !apt.IsRequired(in.TableNumber) {
		return fmt.Errorf("%w: table number is required", ErrInvalidTable)
	}
	if !apt.MinValueInt(in.Capacity, MinTableCapacity) || !apt.MaxValueInt(in.Capacity, MaxTableCapacity) {
		return fmt.Errorf("%w: capacity must be between %d and %d", ErrInvalidTable, MinTableCapacity, MaxTableCapacity)
	}
	if tablelocation.ByName(in.Location) == nil {
		return fmt.Errorf("%w: unknown location %q", ErrInvalidTable, in.Location)
	}
	if tablestatus.ByName(in.Status) == nil {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTable, in.Status)
	}
	return nil
}
