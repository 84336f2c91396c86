package entities

// Station is a Danube port with a fixed kilometer marker
type Station struct {
	ID       int
	Name     string   // Canonical display name, with diacritics
	Km       int      // Kilometers from Sulina
	Sector   string   // Delta, Maritim, Fluvial or Defileul Dunării
	Variants []string // Alternative spellings seen in sources
	Warning  int      // Cota de atenție in cm, 0 if unknown
	Flood    int      // Cota de inundație in cm, 0 if unknown
}

// Alert describes a water level crossing a threshold
type Alert struct {
	Level     AlertLevel
	Station   string
	StationID int
	Current   int // Current level in cm
	Threshold int // Threshold that was crossed, in cm
	Delta     *int
	Trend     Trend
}

// AlertLevel grades an alert
type AlertLevel string

const (
	AlertCritical  AlertLevel = "critical"
	AlertWarning   AlertLevel = "warning"
	AlertVariation AlertLevel = "variation"
)
