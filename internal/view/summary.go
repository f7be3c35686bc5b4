package view

import "github.com/fleet-console/fleet-console/internal/models"

// Summary is the dashboard roll-up of a device collection.
type Summary struct {
	Total            int      `json:"total"`
	Online           int      `json:"online"`
	Offline          int      `json:"offline"`
	Warning          int      `json:"warning"`
	Gateways         int      `json:"gateways"`
	AverageBattery   *float64 `json:"averageBattery"`
	TotalConsumption float64  `json:"totalConsumption"`
}

// Summarize counts devices by status. The battery average only covers devices
// that report a battery level and is nil when none do.
func Summarize(devices []models.Device) Summary {
	s := Summary{Total: len(devices)}

	var batterySum float64
	var batteryCount int
	for _, d := range devices {
		switch d.Status {
		case models.StatusOnline:
			s.Online++
		case models.StatusOffline:
			s.Offline++
		case models.StatusWarning:
			s.Warning++
		}
		if d.IsGateway {
			s.Gateways++
		}
		if d.Battery != nil {
			batterySum += *d.Battery
			batteryCount++
		}
		if d.Consumption != nil {
			s.TotalConsumption += *d.Consumption
		}
	}

	if batteryCount > 0 {
		avg := batterySum / float64(batteryCount)
		s.AverageBattery = &avg
	}
	return s
}
