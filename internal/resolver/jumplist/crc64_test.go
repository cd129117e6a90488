package jumplist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The CRC-64/Jones hash of a fixed AppID string is stable across calls.
func TestComputeAppIdHashStability(t *testing.T) {
	appID := DefaultAppID(`c:\program files\notepad++\notepad++.exe`)
	h1 := ComputeAppIDHash(appID)
	h2 := ComputeAppIDHash(appID)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16)
}

func TestComputeAppIdHashDiffersByInput(t *testing.T) {
	a := ComputeAppIDHash(DefaultAppID(`c:\a.exe`))
	b := ComputeAppIDHash(DefaultAppID(`c:\b.exe`))
	assert.NotEqual(t, a, b)
}

func TestDefaultAppIDLowercasesPath(t *testing.T) {
	assert.Equal(t, `c:\program files\app\app.exe`, DefaultAppID(`C:\Program Files\App\App.exe`))
}
