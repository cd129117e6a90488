package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The monitor fingerprint must not depend on the order in which the
// display-config query returns its paths.
func TestHashIdentitiesOrderIndependent(t *testing.T) {
	a := hashIdentities([]string{"0x01:0x02:0", "0x03:0x04:1"})
	b := hashIdentities([]string{"0x03:0x04:1", "0x01:0x02:0"})
	assert.Equal(t, a, b)
}

func TestHashIdentitiesDiffersByContent(t *testing.T) {
	a := hashIdentities([]string{"0x01:0x02:0"})
	b := hashIdentities([]string{"0x01:0x02:1"})
	assert.NotEqual(t, a, b)
}

func TestHashIdentitiesDeterministicLength(t *testing.T) {
	h := hashIdentities([]string{"noedid:\\\\.\\DISPLAY1"})
	assert.Len(t, h, 8)
}
