package export

import (
	"fmt"
	"sort"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/xuri/excelize/v2"
)

// ProfileSheetName is the worksheet holding the longitudinal profile and its charts
const ProfileSheetName = "Profil"

var profileHeader = []any{"station", "km", "water_level_cm", "water_delta_cm"}

// ProfilePoint is one station on the longitudinal profile
type ProfilePoint struct {
	Station string
	Km      int
	Level   int
	Delta   *int
}

// Profile picks the newest level of every station and orders the stations
// by km, from the mouth upstream. Records without a level or km are left out.
func Profile(records []entities.MeasurementRecord) []ProfilePoint {
	newest := make(map[int]entities.MeasurementRecord)
	for _, rec := range records {
		if rec.WaterLevel == nil || rec.Km == nil {
			continue
		}
		if cur, ok := newest[rec.StationID]; ok && !rec.MeasuredAt.After(cur.MeasuredAt) {
			continue
		}
		newest[rec.StationID] = rec
	}

	points := make([]ProfilePoint, 0, len(newest))
	for _, rec := range newest {
		points = append(points, ProfilePoint{
			Station: rec.Station,
			Km:      *rec.Km,
			Level:   *rec.WaterLevel,
			Delta:   rec.WaterDelta,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Km != points[j].Km {
			return points[i].Km < points[j].Km
		}
		return points[i].Station < points[j].Station
	})
	return points
}

// addProfileSheet writes the profile table with a level-by-km line chart
// and a daily variation column chart. Nothing is added without points.
func addProfileSheet(f *excelize.File, points []ProfilePoint) error {
	if len(points) == 0 {
		return nil
	}
	if _, err := f.NewSheet(ProfileSheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(ProfileSheetName, "A1", &profileHeader); err != nil {
		return err
	}
	for i, p := range points {
		row := i + 2
		if err := f.SetCellValue(ProfileSheetName, fmt.Sprintf("A%d", row), p.Station); err != nil {
			return err
		}
		if err := f.SetCellValue(ProfileSheetName, fmt.Sprintf("B%d", row), p.Km); err != nil {
			return err
		}
		if err := f.SetCellValue(ProfileSheetName, fmt.Sprintf("C%d", row), p.Level); err != nil {
			return err
		}
		if p.Delta != nil {
			if err := f.SetCellValue(ProfileSheetName, fmt.Sprintf("D%d", row), *p.Delta); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(ProfileSheetName, "A", "A", 20); err != nil {
		return err
	}

	last := len(points) + 1
	categories := fmt.Sprintf("'%s'!$A$2:$A$%d", ProfileSheetName, last)

	level := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$C$1", ProfileSheetName),
			Categories: categories,
			Values:     fmt.Sprintf("'%s'!$C$2:$C$%d", ProfileSheetName, last),
		}},
		Title:     []excelize.RichTextRun{{Text: "Profil longitudinal (cm)"}},
		Legend:    excelize.ChartLegend{Position: "none"},
		Dimension: excelize.ChartDimension{Width: 720, Height: 320},
	}
	if err := f.AddChart(ProfileSheetName, "F2", level); err != nil {
		return fmt.Errorf("failed to add profile chart: %w", err)
	}

	variation := &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$D$1", ProfileSheetName),
			Categories: categories,
			Values:     fmt.Sprintf("'%s'!$D$2:$D$%d", ProfileSheetName, last),
		}},
		Title:     []excelize.RichTextRun{{Text: "Variația zilnică (cm)"}},
		Legend:    excelize.ChartLegend{Position: "none"},
		Dimension: excelize.ChartDimension{Width: 720, Height: 320},
	}
	if err := f.AddChart(ProfileSheetName, "F20", variation); err != nil {
		return fmt.Errorf("failed to add variation chart: %w", err)
	}
	return nil
}
