package render

import (
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"jardin/internal/model"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func TestBarClampsAndFills(t *testing.T) {
	half := Bar{Percent: 0.5, Width: 26}.View()
	assert.Equal(t, 10, strings.Count(half, "█"))
	assert.Equal(t, 10, strings.Count(half, "░"))
	assert.Contains(t, half, " 50%")

	over := Bar{Percent: 3, Width: 26}.View()
	assert.Equal(t, 20, strings.Count(over, "█"))
	assert.Contains(t, over, "100%")

	assert.Contains(t, Bar{Percent: -1, Width: 26}.View(), "  0%")
}

func TestProgressShowsCountersAndCards(t *testing.T) {
	view := model.ProgressView{
		Level:        1,
		Title:        "El Primer Brote",
		Confirmed:    1,
		Visible:      2,
		TotalSeen:    4,
		NextLevelAt:  10,
		PendingCount: 1,
		Cards: []model.PlantCard{
			{Plant: model.Plant{ID: "Bellis perennis"}, Status: model.StatusConfirmed},
			{Plant: model.Plant{ID: "Rosa canina"}, Status: "queued"},
		},
	}
	out := Progress(view, 60)
	assert.Contains(t, out, "Nivel 1 · El Primer Brote")
	assert.Contains(t, out, "1/2 plantas vistas")
	assert.Contains(t, out, "sin conexión")
	assert.Contains(t, out, "✔ Bellis perennis")
	assert.Contains(t, out, "… Rosa canina")
	assert.Contains(t, out, "Nivel 2")
	assert.Contains(t, out, " 40%")
}

func TestProgressAtTopLevel(t *testing.T) {
	out := Progress(model.ProgressView{Level: 4, Title: "El Legado Verde", TotalSeen: 70, Online: true}, 40)
	assert.Contains(t, out, "Nivel max")
	assert.NotContains(t, out, "sin conexión")
}
