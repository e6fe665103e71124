package types

// TriggerEvent is a tag identifying the kind of domain event that caused a
// webhook dispatch. The set is closed: subscriptions and dispatch calls are
// validated against it.
type TriggerEvent string

const (
	TriggerScheduleCreated    TriggerEvent = "SCHEDULE_CREATED"
	TriggerScheduleUpdated    TriggerEvent = "SCHEDULE_UPDATED"
	TriggerScheduleDeleted    TriggerEvent = "SCHEDULE_DELETED"
	TriggerBookingCreated     TriggerEvent = "BOOKING_CREATED"
	TriggerBookingRescheduled TriggerEvent = "BOOKING_RESCHEDULED"
	TriggerBookingCancelled   TriggerEvent = "BOOKING_CANCELLED"
	TriggerUserCreated        TriggerEvent = "USER_CREATED"
	TriggerMeetingEnded       TriggerEvent = "MEETING_ENDED"
	TriggerFormSubmitted      TriggerEvent = "FORM_SUBMITTED"
)

// AllTriggerEvents lists every known trigger, in the order webhook
// subscriptions present them.
var AllTriggerEvents = []TriggerEvent{
	TriggerScheduleCreated,
	TriggerScheduleUpdated,
	TriggerScheduleDeleted,
	TriggerBookingCreated,
	TriggerBookingRescheduled,
	TriggerBookingCancelled,
	TriggerUserCreated,
	TriggerMeetingEnded,
	TriggerFormSubmitted,
}

// IsValid reports whether t is one of the known trigger events.
func (t TriggerEvent) IsValid() bool {
	for _, known := range AllTriggerEvents {
		if t == known {
			return true
		}
	}
	return false
}
