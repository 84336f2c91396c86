package stations

import (
	"testing"

	"github.com/abelzeko/danube-cote/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Galați":                "galati",
		"  GALATI ":             "galati",
		"Hârșova":               "harsova",
		"Brăila":                "braila",
		"Orşova":                "orsova", // cedilla variant of ș
		"Dr.Tr.Severin":         "dr tr severin",
		"Drobeta-Turnu Severin": "drobeta turnu severin",
		"":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Fold(in), "Fold(%q)", in)
	}
}

func TestResolve_DiacriticVariants(t *testing.T) {
	c := Default()

	withDiacritics, ok := c.Resolve("Galați")
	require.True(t, ok)
	without, ok := c.Resolve("Galati")
	require.True(t, ok)

	assert.Equal(t, withDiacritics.ID, without.ID)
	assert.Equal(t, "Galați", without.Name)
	assert.Equal(t, 150, without.Km)
}

func TestResolve_AllStationsByOwnName(t *testing.T) {
	c := Default()
	for _, s := range DefaultStations {
		got, ok := c.Resolve(s.Name)
		require.True(t, ok, s.Name)
		assert.Equal(t, s.ID, got.ID, s.Name)

		for _, v := range s.Variants {
			got, ok := c.Resolve(v)
			require.True(t, ok, v)
			assert.Equal(t, s.ID, got.ID, v)
		}
	}
}

func TestResolve_Containment(t *testing.T) {
	c := Default()

	t.Run("raw text contains canonical name", func(t *testing.T) {
		s, ok := c.Resolve("Port Brăila (km 170)")
		require.True(t, ok)
		assert.Equal(t, 5, s.ID)
	})

	t.Run("canonical name contains truncated text", func(t *testing.T) {
		s, ok := c.Resolve("Drobeta Turnu Sev")
		require.True(t, ok)
		assert.Equal(t, 19, s.ID)
	})

	t.Run("abbreviated variant", func(t *testing.T) {
		s, ok := c.Resolve("Dr.Tr.Severin")
		require.True(t, ok)
		assert.Equal(t, 19, s.ID)
	})
}

func TestResolve_NoMatch(t *testing.T) {
	c := Default()
	for _, raw := range []string{"Unknown Place", "", "   ", "a", "Localitate"} {
		_, ok := c.Resolve(raw)
		assert.False(t, ok, "Resolve(%q)", raw)
	}
}

func TestResolve_FirstMatchWins(t *testing.T) {
	c := New([]entities.Station{
		{ID: 1, Name: "Turnu Măgurele"},
		{ID: 2, Name: "Drobeta Turnu Severin"},
	})
	s, ok := c.Resolve("Turnu")
	require.True(t, ok)
	assert.Equal(t, 1, s.ID)
}

func TestCatalogIsImmutable(t *testing.T) {
	input := []entities.Station{{ID: 7, Name: "Cernavodă", Variants: []string{"Cernavoda"}}}
	c := New(input)

	input[0].Name = "Changed"
	input[0].Variants[0] = "Changed"

	s, ok := c.ByID(7)
	require.True(t, ok)
	assert.Equal(t, "Cernavodă", s.Name)
	assert.Equal(t, []string{"Cernavoda"}, s.Variants)

	list := c.Stations()
	list[0].Name = "Mutated"
	s, _ = c.ByID(7)
	assert.Equal(t, "Cernavodă", s.Name)
	assert.Len(t, c.Stations(), 1)
}
