package entity

const (
	ResponseSuccess = "SUCCESS"
	ResponseError   = "ERROR"
)

const (
	CodeBookingCreated  = "BOOKING_CREATED"
	CodeTicketCancelled = "TICKET_CANCELLED"

	CodeValidationError         = "VALIDATION_ERROR"
	CodeSeatUnavailable         = "SEAT_UNAVAILABLE"
	CodeInvalidDuplicateRequest = "INVALID_DUPLICATE_REQUEST"
	CodeResponseNotFound        = "RESPONSE_NOT_FOUND"
	CodeTicketNotFound          = "TICKET_NOT_FOUND"
	CodeTicketAlreadyCancelled  = "TICKET_ALREADY_CANCELLED"
	CodeInternalError           = "INTERNAL_ERROR"
)

// BookingResponse is the body of every booking and cancellation answer.
type BookingResponse struct {
	Status           string         `json:"status"`
	Code             string         `json:"code"`
	Message          string         `json:"message"`
	BookingReference string         `json:"booking_reference,omitempty"`
	TicketDetails    *TicketDetails `json:"ticket_details,omitempty"`
}

type TicketDetails struct {
	BookingReference string       `json:"booking_reference,omitempty"`
	PassengerName    string       `json:"passenger_name"`
	SeatNumber       string       `json:"seat_number"`
	Amount           float64      `json:"amount,omitempty"`
	Status           TicketStatus `json:"status"`
}

func NewErrorResponse(code, message string) BookingResponse {
	return BookingResponse{
		Status:  ResponseError,
		Code:    code,
		Message: message,
	}
}
