package stations

import "github.com/abelzeko/danube-cote/internal/entities"

// DefaultStations lists the Romanian Danube ports in kilometer order from Sulina.
// Thresholds are the AFDJ cota de atenție / cota de inundație where published.
var DefaultStations = []entities.Station{
	{ID: 1, Name: "Sulina", Km: 0, Sector: "Delta", Warning: 250, Flood: 300},
	{ID: 2, Name: "Tulcea", Km: 71, Sector: "Delta", Warning: 550, Flood: 600},
	{ID: 3, Name: "Isaccea", Km: 103, Sector: "Maritim", Warning: 550, Flood: 600},
	{ID: 4, Name: "Galați", Km: 150, Sector: "Maritim", Variants: []string{"Galati", "Galatz"}, Warning: 650, Flood: 720},
	{ID: 5, Name: "Brăila", Km: 170, Sector: "Maritim", Variants: []string{"Braila"}, Warning: 650, Flood: 720},
	{ID: 6, Name: "Hârșova", Km: 253, Sector: "Fluvial", Variants: []string{"Harsova", "Hirsova", "Hîrșova"}, Warning: 650, Flood: 720},
	{ID: 7, Name: "Cernavodă", Km: 300, Sector: "Fluvial", Variants: []string{"Cernavoda"}, Warning: 550, Flood: 620},
	{ID: 8, Name: "Călărași", Km: 370, Sector: "Fluvial", Variants: []string{"Calarasi"}, Warning: 700, Flood: 780},
	{ID: 9, Name: "Oltenița", Km: 430, Sector: "Fluvial", Variants: []string{"Oltenita"}, Warning: 600, Flood: 680},
	{ID: 10, Name: "Giurgiu", Km: 493, Sector: "Fluvial", Warning: 650, Flood: 750},
	{ID: 11, Name: "Zimnicea", Km: 554, Sector: "Fluvial"},
	{ID: 12, Name: "Turnu Măgurele", Km: 597, Sector: "Fluvial", Variants: []string{"Turnu Magurele", "Tr. Magurele", "T. Magurele"}},
	{ID: 13, Name: "Corabia", Km: 630, Sector: "Fluvial"},
	{ID: 14, Name: "Bechet", Km: 679, Sector: "Fluvial"},
	{ID: 15, Name: "Rast", Km: 738, Sector: "Fluvial"},
	{ID: 16, Name: "Calafat", Km: 795, Sector: "Fluvial"},
	{ID: 17, Name: "Cetate", Km: 811, Sector: "Fluvial"},
	{ID: 18, Name: "Gruia", Km: 851, Sector: "Fluvial"},
	{ID: 19, Name: "Drobeta Turnu Severin", Km: 931, Sector: "Fluvial", Variants: []string{"Dr. Tr. Severin", "Drobeta-Turnu Severin", "Turnu Severin"}},
	{ID: 20, Name: "Orșova", Km: 954, Sector: "Defileul Dunării", Variants: []string{"Orsova"}},
	{ID: 21, Name: "Drencova", Km: 1015, Sector: "Defileul Dunării"},
	{ID: 22, Name: "Moldova Veche", Km: 1048, Sector: "Defileul Dunării"},
	{ID: 23, Name: "Baziaș", Km: 1072, Sector: "Defileul Dunării", Variants: []string{"Bazias"}},
}

// Default returns a catalog of DefaultStations
func Default() *Catalog {
	return New(DefaultStations)
}
