package durations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundedUp(t *testing.T) {
	assert.Equal(t, "15 minutos", RoundedUp(14*time.Minute+10*time.Second))
	assert.Equal(t, "15 minutos", RoundedUp(15*time.Minute))
	assert.Equal(t, "1 minuto", RoundedUp(time.Minute))
	assert.Equal(t, "2 minutos", RoundedUp(time.Minute+time.Second))
	assert.Equal(t, "1 segundo", RoundedUp(10*time.Millisecond))
	assert.Equal(t, "0 segundos", RoundedUp(0))
	assert.Equal(t, "0 segundos", RoundedUp(-time.Minute))
	assert.Equal(t, "2 horas", RoundedUp(90*time.Minute))
	assert.Equal(t, "1 dia", RoundedUp(24*time.Hour))
	assert.Equal(t, "3 dias", RoundedUp(49*time.Hour))
}
