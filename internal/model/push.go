package model

import "time"

// Notification type constants
const (
	NotifTypeFlightReminder = "flight_reminder"
)

type PushSubscription struct {
	ID         int64     `json:"id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
