package usecases

import (
	"sort"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/abelzeko/danube-cote/internal/stations"
)

// DefaultVariationCM is the daily change, in cm, that raises a variation alert
const DefaultVariationCM = 20

// EvaluateAlerts grades records against their station thresholds. A level
// at or above the flood threshold is critical, at or above the warning
// threshold a warning. A large daily change raises a separate variation
// alert. Alerts are sorted by severity, then by station.
func EvaluateAlerts(records []entities.MeasurementRecord, catalog *stations.Catalog, variationCM int) []entities.Alert {
	var alerts []entities.Alert
	for _, rec := range records {
		if rec.WaterLevel == nil {
			continue
		}
		level := *rec.WaterLevel
		alert := entities.Alert{
			Station:   rec.Station,
			StationID: rec.StationID,
			Current:   level,
			Delta:     rec.WaterDelta,
			Trend:     rec.Trend,
		}

		if st, ok := catalog.ByID(rec.StationID); ok {
			switch {
			case st.Flood > 0 && level >= st.Flood:
				alert.Level, alert.Threshold = entities.AlertCritical, st.Flood
				alerts = append(alerts, alert)
			case st.Warning > 0 && level >= st.Warning:
				alert.Level, alert.Threshold = entities.AlertWarning, st.Warning
				alerts = append(alerts, alert)
			}
		}

		if variationCM > 0 && rec.WaterDelta != nil && abs(*rec.WaterDelta) >= variationCM {
			alert.Level, alert.Threshold = entities.AlertVariation, variationCM
			alerts = append(alerts, alert)
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if severity(alerts[i].Level) != severity(alerts[j].Level) {
			return severity(alerts[i].Level) < severity(alerts[j].Level)
		}
		return alerts[i].StationID < alerts[j].StationID
	})
	return alerts
}

func severity(l entities.AlertLevel) int {
	switch l {
	case entities.AlertCritical:
		return 0
	case entities.AlertWarning:
		return 1
	default:
		return 2
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
