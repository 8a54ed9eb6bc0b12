package booking

import (
	"encoding/json"

	"ticketbooking/entity"
)

// Kind classifies the outcome of a protocol call.
type Kind int

const (
	KindFailed Kind = iota
	KindRejected
	KindCreated
	KindReplayed
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindCreated:
		return "created"
	case KindReplayed:
		return "replayed"
	case KindCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Reply is what Book and Cancel return. Raw, when set, holds the exact bytes
// that must be written to the client; replays always carry the bytes persisted
// for the original attempt.
type Reply struct {
	Kind     Kind
	Response entity.BookingResponse
	Raw      json.RawMessage
}

func (r Reply) Body() ([]byte, error) {
	if r.Raw != nil {
		return r.Raw, nil
	}
	return json.Marshal(r.Response)
}

func reject(code, message string) Reply {
	return Reply{
		Kind:     KindRejected,
		Response: entity.NewErrorResponse(code, message),
	}
}

func failure() Reply {
	return Reply{
		Kind:     KindFailed,
		Response: entity.NewErrorResponse(entity.CodeInternalError, "An internal error occurred"),
	}
}
