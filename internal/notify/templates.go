package notify

import (
	"fmt"

	"github.com/smartbus/school-bus-monitor/internal/models"
)

const fallbackMessage = "ALERT: Please check your bus status immediately."

// OverspeedTemplate renders the overspeed driver message.
func OverspeedTemplate(speed, threshold float64) string {
	return fmt.Sprintf(
		"ALERT: Overspeed detected. Current speed: %.1f km/h (limit: %.1f km/h). Please reduce speed immediately for safety.",
		speed, threshold,
	)
}

// DoorOpenTemplate renders the door-open-while-moving driver message.
func DoorOpenTemplate(speed float64) string {
	return fmt.Sprintf(
		"ALERT: Door is open while bus is moving (speed: %.1f km/h). Please close the door immediately for passenger safety.",
		speed,
	)
}

// WithCustomNote appends an annotated note line to a base message.
func WithCustomNote(base, note string) string {
	if note == "" {
		return base
	}
	return fmt.Sprintf("%s\n\nNote: %s", base, note)
}

// RenderMessage picks the template for a request. Templates missing their
// required values fall back to the generic safety check text.
func RenderMessage(templateType string, speed, threshold *float64, customNote string) string {
	var base string
	switch {
	case templateType == models.TemplateOverspeed && speed != nil && threshold != nil:
		base = OverspeedTemplate(*speed, *threshold)
	case templateType == models.TemplateDoorOpen && speed != nil:
		base = DoorOpenTemplate(*speed)
	default:
		base = fallbackMessage
	}
	return WithCustomNote(base, customNote)
}

// Templates lists the available template kinds for the API.
func Templates() []models.MessageTemplateInfo {
	return []models.MessageTemplateInfo{
		{
			Type:    models.TemplateOverspeed,
			Name:    "Overspeed warning",
			Example: OverspeedTemplate(85.0, 70.0),
		},
		{
			Type:    models.TemplateDoorOpen,
			Name:    "Door open while moving",
			Example: DoorOpenTemplate(25.0),
		},
		{
			Type:    models.TemplateCustom,
			Name:    "Custom safety check",
			Example: fallbackMessage,
		},
	}
}
