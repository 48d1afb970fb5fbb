package models

// RSVPStatus classifies the result of an attendance transition.
type RSVPStatus string

const (
	RSVPJoined     RSVPStatus = "JOINED"
	RSVPAlreadyIn  RSVPStatus = "ALREADY_ATTENDING"
	RSVPFull       RSVPStatus = "FULL"
	RSVPLeft       RSVPStatus = "LEFT"
	RSVPAlreadyOut RSVPStatus = "NOT_ATTENDING"
	RSVPStarted    RSVPStatus = "STARTED"
	RSVPFailed     RSVPStatus = "FAILED"
)

// RSVPOutcome is the user-facing result of an RSVP or un-RSVP request.
type RSVPOutcome struct {
	Status  RSVPStatus  `json:"status"`
	Message string      `json:"message"`
	Event   *StudyEvent `json:"event,omitempty"`
}

// Succeeded reports whether the roster changed.
func (o RSVPOutcome) Succeeded() bool {
	return o.Status == RSVPJoined || o.Status == RSVPLeft
}
