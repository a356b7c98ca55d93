package dto

import "time"

type SlotPreviewDTO struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	Reasoning    string    `json:"reasoning"`
}
