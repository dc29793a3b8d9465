package affinity

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvailableMatchesPlatform(t *testing.T) {
	assert.Equal(t, runtime.GOOS == "linux", Available())
}

func TestPinOnCurrentPlatform(t *testing.T) {
	err := Pin(0)
	if Available() {
		assert.NoError(t, err)
	} else {
		assert.ErrorIs(t, err, ErrUnsupported)
	}
}
