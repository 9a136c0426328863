package scoreboard

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

func TestRenderPNG(t *testing.T) {
	data, err := RenderPNG(domain.LevelII, []domain.Team{
		{Name: "Euler", Score: 6},
		{Name: "Gauss", Score: 0},
		{Name: "Noether", Score: 3},
	})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 480, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestRenderPNGWithoutTeams(t *testing.T) {
	data, err := RenderPNG(domain.LevelI, nil)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}
