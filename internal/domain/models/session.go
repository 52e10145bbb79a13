package models

// Session is a named sub-interval of the trading day.
type Session string

const (
	SessionAsia    Session = "Asia"
	SessionLondon  Session = "London"
	SessionUSOpen  Session = "US Open"
	SessionUSMid   Session = "US Mid"
	SessionUSClose Session = "US Close"
	SessionOther   Session = "Other"
	SessionAllDay  Session = "All day"
)

// ReportSessions is the order sessions are reported in.
var ReportSessions = []Session{
	SessionLondon,
	SessionUSOpen,
	SessionUSMid,
	SessionUSClose,
	SessionAsia,
	SessionAllDay,
}
