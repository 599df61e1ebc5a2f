package errs

// StatusError is the only status value an Envelope carries.
const StatusError = "error"

// Envelope is the response body for rejected requests:
//
//	{ "status": "error", "message": "name: Required, age: Must be at least 18" }
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewErrorEnvelope builds an Envelope with status "error".
func NewErrorEnvelope(message string) Envelope {
	return Envelope{
		Status:  StatusError,
		Message: message,
	}
}
