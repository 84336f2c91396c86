package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/abelzeko/danube-cote/internal/integration/openai"
)

// ResolveStation finds a catalog station from user text
func (uc *CoteUseCase) ResolveStation(name string) (entities.Station, bool) {
	return uc.catalog.Resolve(name)
}

// StationNames returns the canonical names of all known stations
func (uc *CoteUseCase) StationNames() []string {
	all := uc.catalog.Stations()
	names := make([]string, len(all))
	for i, st := range all {
		names[i] = st.Name
	}
	return names
}

// GetLatestByStation resolves name through the catalog and returns the
// station's most recent record, nil when none is stored
func (uc *CoteUseCase) GetLatestByStation(name string) (*entities.MeasurementRecord, error) {
	st, ok := uc.ResolveStation(name)
	if !ok {
		return nil, nil
	}
	uc.logger.Infof("Retrieving latest record for station: %s", st.Name)
	return uc.repo.GetLatestByStation(st.Name)
}

// GetLatestAll returns the latest record of every station
func (uc *CoteUseCase) GetLatestAll() ([]entities.MeasurementRecord, error) {
	return uc.repo.GetLatestAll()
}

// GetStationHistory returns a station's records of the last days
func (uc *CoteUseCase) GetStationHistory(stationID int, days int) ([]entities.MeasurementRecord, error) {
	since := uc.clock.Now().AddDate(0, 0, -days)
	return uc.repo.GetStationHistory(stationID, since)
}

// StationHistory resolves name through the catalog and returns the station
// with its records of the last days, oldest first. The station is nil when
// name matches no port.
func (uc *CoteUseCase) StationHistory(name string, days int) (*entities.Station, []entities.MeasurementRecord, error) {
	st, ok := uc.ResolveStation(name)
	if !ok {
		return nil, nil, nil
	}
	uc.logger.Infof("Retrieving %d day history for station: %s", days, st.Name)
	records, err := uc.GetStationHistory(st.ID, days)
	if err != nil {
		return nil, nil, err
	}
	return &st, records, nil
}

// GetLastUpdateTime returns when data was last captured
func (uc *CoteUseCase) GetLastUpdateTime() (time.Time, error) {
	return uc.repo.GetLastUpdateTime()
}

// CurrentAlerts evaluates alerts over the latest stored records
func (uc *CoteUseCase) CurrentAlerts() ([]entities.Alert, error) {
	latest, err := uc.repo.GetLatestAll()
	if err != nil {
		return nil, err
	}
	return EvaluateAlerts(latest, uc.catalog, uc.variationCM), nil
}

// HandleNaturalLanguageQuery interprets a user's free-text query using the AI service
// and returns an appropriate response string.
func (uc *CoteUseCase) HandleNaturalLanguageQuery(ctx context.Context, query string) (string, error) {
	if uc.openAIService == nil {
		return "I don't understand. Use /help to see available commands.", nil
	}
	uc.logger.Infof("Interpreting natural language query: %s", query)

	agentResp, err := uc.openAIService.InterpretUserQuery(ctx, query, uc.StationNames())
	if err != nil {
		uc.logger.Warnf("Error interpreting user query via OpenAI: %v", err)
		return "Sorry, I'm having trouble understanding right now. Please try again later or use /help.", nil
	}

	uc.logger.Infof("Agent response: Command='%s', Station='%s', Message='%s'",
		agentResp.CommandName, agentResp.StationName, agentResp.UserMessage)

	prefix := agentResp.UserMessage
	if prefix != "" {
		prefix += "\n\n"
	}

	switch agentResp.CommandName {
	case openai.CommandGetStationData:
		if agentResp.StationName == "" {
			return agentResp.UserMessage, nil
		}
		rec, err := uc.GetLatestByStation(agentResp.StationName)
		if err != nil {
			uc.logger.Warnf("Error fetching station data after agent interpretation: %v", err)
			return "Sorry, I couldn't fetch the data for that station right now.", nil
		}
		if rec == nil {
			return prefix + fmt.Sprintf("However, I couldn't find any reading for '%s'. Use /stations to see available ones.", agentResp.StationName), nil
		}
		return prefix + uc.FormatStationInfo(*rec), nil

	case openai.CommandGetAlerts:
		alerts, err := uc.CurrentAlerts()
		if err != nil {
			uc.logger.Warnf("Error evaluating alerts: %v", err)
			return "Sorry, I couldn't check the alerts right now.", nil
		}
		return prefix + FormatAlerts(alerts), nil

	case openai.CommandGeneralQuery:
		return agentResp.UserMessage, nil

	default:
		uc.logger.Warnf("Agent returned unexpected command: %s", agentResp.CommandName)
		return "I'm not sure how to respond to that. You can use /help for commands.", nil
	}
}

// FormatStationInfo formats a station reading for display
func (uc *CoteUseCase) FormatStationInfo(rec entities.MeasurementRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📍 %s", rec.Station))
	if rec.Km != nil {
		b.WriteString(fmt.Sprintf(" (km %d)", *rec.Km))
	}
	b.WriteString("\n")

	if rec.WaterLevel != nil {
		b.WriteString(fmt.Sprintf("💧 Water Level: %d cm", *rec.WaterLevel))
		if rec.WaterDelta != nil {
			b.WriteString(fmt.Sprintf(" (%+d cm %s)", *rec.WaterDelta, rec.Trend.Symbol()))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("💧 Water Level: n/a\n")
	}

	if rec.WaterTemp != nil {
		b.WriteString(fmt.Sprintf("🌡️ Water Temperature: %.1f °C\n", *rec.WaterTemp))
	}
	if rec.AirTemp != nil {
		b.WriteString(fmt.Sprintf("🌬️ Air Temperature: %.1f °C\n", *rec.AirTemp))
	}
	if f := rec.Forecast24h; f != "" {
		b.WriteString(fmt.Sprintf("🔮 Forecast 24h: %s\n", f))
	}

	b.WriteString(fmt.Sprintf("🕒 Measured: %s", rec.MeasuredAt.In(uc.loc).Format("2006-01-02 15:04 MST")))
	return b.String()
}

// FormatStationsList formats the latest level of every station, one per line
func (uc *CoteUseCase) FormatStationsList(records []entities.MeasurementRecord, lastUpdate time.Time) string {
	if len(records) == 0 {
		return "No readings stored yet."
	}

	var b strings.Builder
	b.WriteString("Danube water levels:\n\n")
	for _, rec := range records {
		level := "n/a"
		if rec.WaterLevel != nil {
			level = fmt.Sprintf("%d cm", *rec.WaterLevel)
		}
		b.WriteString(fmt.Sprintf("%s %s: %s\n", rec.Trend.Symbol(), rec.Station, level))
	}
	b.WriteString("\nUse /station [name] to get detailed information.")
	if !lastUpdate.IsZero() {
		b.WriteString(fmt.Sprintf("\n\n🕒 Last update: %s", lastUpdate.In(uc.loc).Format("2006-01-02 15:04:05")))
	}
	return b.String()
}

// FormatHistory formats the water levels of a station's history, one line per
// reading. Records without a level are left out.
func (uc *CoteUseCase) FormatHistory(st entities.Station, records []entities.MeasurementRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 %s (km %d)\n", st.Name, st.Km))

	n := 0
	for _, rec := range records {
		if rec.WaterLevel == nil {
			continue
		}
		n++
		b.WriteString(fmt.Sprintf("\n%s  %d cm", rec.MeasuredAt.In(uc.loc).Format("2006-01-02 15:04"), *rec.WaterLevel))
		if rec.WaterDelta != nil {
			b.WriteString(fmt.Sprintf(" (%+d cm %s)", *rec.WaterDelta, rec.Trend.Symbol()))
		}
	}
	if n == 0 {
		b.WriteString("\nNo water levels stored for this period.")
	}
	return b.String()
}

// FormatAlerts formats alerts for a chat message
func FormatAlerts(alerts []entities.Alert) string {
	if len(alerts) == 0 {
		return "✅ No alerts: all levels are within normal limits."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚨 Active alerts: %d\n", len(alerts)))
	for _, a := range alerts {
		b.WriteString("\n")
		switch a.Level {
		case entities.AlertCritical:
			b.WriteString(fmt.Sprintf("🔴 FLOOD: %s at %d cm, %d cm over the flood level", a.Station, a.Current, a.Current-a.Threshold))
		case entities.AlertWarning:
			b.WriteString(fmt.Sprintf("🟡 WARNING: %s at %d cm, %d cm over the warning level", a.Station, a.Current, a.Current-a.Threshold))
		case entities.AlertVariation:
			delta := 0
			if a.Delta != nil {
				delta = *a.Delta
			}
			b.WriteString(fmt.Sprintf("🟠 CHANGE: %s moved %+d cm %s to %d cm", a.Station, delta, a.Trend.Symbol(), a.Current))
		}
	}
	return b.String()
}
