package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
)

const (
	StepCustomerInfo = iota
	StepDateTime
	StepTableSelection
	StepConfirmation
)

const minPhoneLength = 10

// emailPattern only asks for something@something.tld. apt.IsEmail would turn
// away addresses the booking form has always taken, such as non-ASCII local
// parts, and it lets an empty value through.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Draft is an in-progress reservation request.
type Draft struct {
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	ReservationDate string `json:"reservationDate"`
	ReservationTime string `json:"reservationTime"`
	PartySize       int    `json:"partySize"`
	SpecialRequests string `json:"specialRequests"`
	SelectedTable   *Table `json:"selectedTable"`
}

// Query returns the availability query for the draft's date, time and party size.
func (d Draft) Query() Query {
	return Query{Date: d.ReservationDate, Time: d.ReservationTime, PartySize: d.PartySize}
}

// DraftState holds the single mutable draft owned by one wizard.
type DraftState struct {
	draft Draft
	now   func() time.Time
}

// NewDraftState returns a draft defaulted to today at 18:00 for two guests.
func NewDraftState(now func() time.Time) *DraftState {
	if now == nil {
		now = time.Now
	}
	return &DraftState{
		draft: Draft{
			ReservationDate: now().Format(DateLayout),
			ReservationTime: DefaultTime,
			PartySize:       DefaultPartySize,
		},
		now: now,
	}
}

// Prefill copies the session profile into the customer fields.
func (s *DraftState) Prefill(p Profile) {
	if p.Name != "" {
		s.draft.CustomerName = p.Name
	}
	if p.Email != "" {
		s.draft.CustomerEmail = p.Email
	}
	if p.Phone != "" {
		s.draft.CustomerPhone = p.Phone
	}
}

// Draft returns a copy of the current draft.
func (s *DraftState) Draft() Draft {
	d := s.draft
	if s.draft.SelectedTable != nil {
		t := *s.draft.SelectedTable
		d.SelectedTable = &t
	}
	return d
}

func (s *DraftState) Query() Query {
	return s.draft.Query()
}

// Set updates a draft field by its wire name.
func (s *DraftState) Set(field, value string) error {
	switch field {
	case "customerName":
		s.draft.CustomerName = value
	case "customerEmail":
		s.draft.CustomerEmail = value
	case "customerPhone":
		s.draft.CustomerPhone = value
	case "reservationDate":
		s.setSlot(value, s.draft.ReservationTime)
	case "reservationTime":
		s.setSlot(s.draft.ReservationDate, value)
	case "partySize":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("partySize must be a number: %w", err)
		}
		s.SetPartySize(n)
	case "specialRequests":
		s.draft.SpecialRequests = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// SetPartySize updates the party size, dropping a selected table that can no
// longer seat the party.
func (s *DraftState) SetPartySize(n int) {
	s.draft.PartySize = n
	if s.draft.SelectedTable != nil && !s.draft.SelectedTable.Fits(n) {
		s.draft.SelectedTable = nil
	}
}

// setSlot changes date and time. A selection made for another slot is dropped.
func (s *DraftState) setSlot(date, slot string) {
	if date == s.draft.ReservationDate && slot == s.draft.ReservationTime {
		return
	}
	s.draft.ReservationDate = date
	s.draft.ReservationTime = slot
	s.draft.SelectedTable = nil
}

// SelectTable records the chosen table.
func (s *DraftState) SelectTable(t Table) error {
	if !t.Fits(s.draft.PartySize) {
		return newValidationError(StepTableSelection, ReasonTableTooSmall,
			fmt.Sprintf("Table %s seats %d, party size is %d", t.TableNumber, t.Capacity, s.draft.PartySize))
	}
	s.draft.SelectedTable = &t
	return nil
}

func (s *DraftState) ClearSelection() {
	s.draft.SelectedTable = nil
}

// ValidateStep checks whether the wizard may leave the given step.
func (s *DraftState) ValidateStep(step int) error {
	switch step {
	case StepCustomerInfo:
		return s.validateCustomerInfo()
	case StepDateTime:
		return s.validateDateTime()
	case StepTableSelection:
		if s.draft.SelectedTable == nil {
			return newValidationError(step, ReasonNoTableSelected, "Please select a table")
		}
		return nil
	default:
		return nil
	}
}

func (s *DraftState) validateCustomerInfo() error {
	d := s.draft
	if !apt.IsRequired(d.CustomerName) || !apt.IsRequired(d.CustomerEmail) || !apt.IsRequired(d.CustomerPhone) {
		return newValidationError(StepCustomerInfo, ReasonMissingField, "Please fill in all customer information")
	}
	if !emailPattern.MatchString(strings.TrimSpace(d.CustomerEmail)) {
		return newValidationError(StepCustomerInfo, ReasonInvalidEmail, "Please enter a valid email address")
	}
	if !apt.MinLength(strings.TrimSpace(d.CustomerPhone), minPhoneLength) {
		return newValidationError(StepCustomerInfo, ReasonInvalidPhone, "Please enter a valid phone number")
	}
	return nil
}

func (s *DraftState) validateDateTime() error {
	d := s.draft
	if !apt.IsRequired(d.ReservationDate) || !apt.IsRequired(d.ReservationTime) {
		return newValidationError(StepDateTime, ReasonMissingField, "Please select date and time")
	}

	now := s.now()
	date, err := time.ParseInLocation(DateLayout, d.ReservationDate, now.Location())
	if err != nil {
		return newValidationError(StepDateTime, ReasonInvalidDate, "Please enter the date as YYYY-MM-DD")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return newValidationError(StepDateTime, ReasonPastDate, "Cannot book for past dates")
	}

	if !IsSlot(d.ReservationTime) {
		return newValidationError(StepDateTime, ReasonInvalidSlot, "Please pick one of the available time slots")
	}
	if !apt.MinValueInt(d.PartySize, MinPartySize) || !apt.MaxValueInt(d.PartySize, MaxPartySize) {
		return newValidationError(StepDateTime, ReasonInvalidPartySize,
			fmt.Sprintf("Party size must be between %d and %d", MinPartySize, MaxPartySize))
	}
	return nil
}
