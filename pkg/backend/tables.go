package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/appetiteclub/frontdesk/pkg/booking"
)

func (c *Client) FetchAllTables(ctx context.Context) ([]booking.Table, error) {
	const op = "fetch tables"
	var records []tableRecord
	if err := c.read(ctx, op, "/api/tables", nil, &records); err != nil {
		return nil, err
	}
	tables, err := toTables(records)
	if err != nil {
		return nil, &booking.RequestFailure{Op: op, StatusCode: http.StatusOK, Err: err}
	}
	return tables, nil
}

func (c *Client) FetchAvailableTables(ctx context.Context, q booking.Query) ([]booking.Table, error) {
	const op = "fetch available tables"
	query := url.Values{}
	query.Set("date", q.Date)
	query.Set("time", q.Time)
	query.Set("partySize", strconv.Itoa(q.PartySize))

	var records []tableRecord
	if err := c.read(ctx, op, "/api/tables/available", query, &records); err != nil {
		return nil, err
	}
	tables, err := toTables(records)
	if err != nil {
		return nil, &booking.RequestFailure{Op: op, StatusCode: http.StatusOK, Err: err}
	}
	return tables, nil
}

// CreateTable adds a table to the floor plan. The input is sent as given;
// callers normalize and validate it first.
func (c *Client) CreateTable(ctx context.Context, in booking.TableInput) (*booking.Table, error) {
	var record tableRecord
	if err := c.write(ctx, "create table", http.MethodPost, "/api/tables", in, &record); err != nil {
		return nil, err
	}
	return recordedTable(record)
}

func (c *Client) UpdateTable(ctx context.Context, id string, in booking.TableInput) (*booking.Table, error) {
	path, err := tablePath(id)
	if err != nil {
		return nil, err
	}
	var record tableRecord
	if err := c.write(ctx, "update table", http.MethodPut, path, in, &record); err != nil {
		return nil, err
	}
	return recordedTable(record)
}

func (c *Client) DeleteTable(ctx context.Context, id string) error {
	path, err := tablePath(id)
	if err != nil {
		return err
	}
	return c.write(ctx, "delete table", http.MethodDelete, path, nil, nil)
}

func tablePath(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", &booking.ServerValidationError{Message: "Table id is required"}
	}
	return "/api/tables/" + url.PathEscape(id), nil
}

func recordedTable(record tableRecord) (*booking.Table, error) {
	t, err := record.toTable()
	if err != nil {
		return nil, &booking.ServerValidationError{Message: "Unexpected response from the tables service"}
	}
	return &t, nil
}
