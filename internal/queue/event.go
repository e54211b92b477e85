package queue

// RegistrationConfirmedEvent is published when an attendee successfully
// registers for an event. It carries enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type RegistrationConfirmedEvent struct {
	RegistrationID uint64 `json:"registration_id"`
	UserID         uint64 `json:"user_id"`
	UserEmail      string `json:"user_email"`
	UserName       string `json:"user_name"`
	EventID        uint64 `json:"event_id"`
	EventTitle     string `json:"event_title"`
	Location       string `json:"location"`
	StartsAt       string `json:"starts_at"`
	EndsAt         string `json:"ends_at"`
	TicketCode     string `json:"ticket_code"`
	RegisteredAt   string `json:"registered_at"`
}
