package booking

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"ticketbooking/entity"
)

const (
	minPassengerNameLen = 2
	maxPassengerNameLen = 100
	// MaxRequestIDLen is the width of idempotency_records.request_id.
	MaxRequestIDLen = 255
)

// Seat numbers fit tickets.seat_number, VARCHAR(10).
var seatNumberPattern = regexp.MustCompile(`^[A-Z][0-9]{1,9}$`)

// Request is a booking request body once it has passed validation.
type Request struct {
	PassengerName string
	SeatNumber    string
	Amount        float64
}

type rawRequest struct {
	PassengerName *string  `json:"passenger_name"`
	SeatNumber    *string  `json:"seat_number"`
	Amount        *float64 `json:"amount"`
}

type validationError struct {
	msg string
}

func (e validationError) Error() string {
	return e.msg
}

func parseRequest(body []byte) (Request, error) {
	if !utf8.Valid(body) {
		return Request{}, validationError{"Request body must be valid UTF-8"}
	}

	var raw rawRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return Request{}, validationError{fmt.Sprintf("Invalid type for field: %s", typeErr.Field)}
		}
		return Request{}, validationError{"Malformed request body"}
	}

	var missing []string
	if raw.PassengerName == nil {
		missing = append(missing, "passenger_name")
	}
	if raw.SeatNumber == nil {
		missing = append(missing, "seat_number")
	}
	if raw.Amount == nil {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return Request{}, validationError{"Missing required field: " + strings.Join(missing, ", ")}
	}

	req := Request{
		PassengerName: *raw.PassengerName,
		SeatNumber:    *raw.SeatNumber,
		Amount:        *raw.Amount,
	}

	if n := utf8.RuneCountInString(req.PassengerName); n < minPassengerNameLen || n > maxPassengerNameLen {
		return Request{}, validationError{fmt.Sprintf(
			"passenger_name must be between %d and %d characters", minPassengerNameLen, maxPassengerNameLen,
		)}
	}
	if !seatNumberPattern.MatchString(req.SeatNumber) {
		return Request{}, validationError{"seat_number must match " + seatNumberPattern.String()}
	}
	if req.Amount <= 0 {
		return Request{}, validationError{"amount must be greater than 0"}
	}

	return req, nil
}

func sameBody(a, b []byte) bool {
	return bytes.Equal(entity.CanonicalJSON(a), entity.CanonicalJSON(b))
}
