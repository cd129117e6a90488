// Package jumplist parses the OS's per-application "recent documents"
// jump-list files: OLE compound documents keyed by a CRC-64/Jones hash of
// the application's AppID, each containing Shell Link ("shortcut")
// streams.
//
// Both formats are read directly against their documented layouts with
// encoding/binary; only the subset a jump-list file actually uses is
// supported.
package jumplist

import (
	"hash/crc64"
	"strings"
	"unicode/utf16"
)

// jonesPoly is the CRC-64/Jones polynomial used by the OS shell to derive
// a jump-list filename stem from an AppID string.
const jonesPoly = 0xAD93D23594C935A9

var jonesTable = crc64.MakeTable(jonesPoly)

// ComputeAppIDHash hashes appID the way the shell names jump-list files:
// the string is encoded UTF-16LE, each code unit's two bytes fed
// low-byte-first, and the resulting 64-bit CRC is rendered as 16 lowercase
// hex digits.
func ComputeAppIDHash(appID string) string {
	units := utf16.Encode([]rune(appID))
	buf := make([]byte, 0, len(units)*2)
	for _, u := range units {
		buf = append(buf, byte(u&0xFF), byte(u>>8))
	}
	sum := crc64.Checksum(buf, jonesTable)
	return toHex16(sum)
}

// DefaultAppID is the fallback AppID for an application without an
// explicit manifest: its lowercased full executable path.
func DefaultAppID(executablePath string) string {
	return strings.ToLower(executablePath)
}

func toHex16(v uint64) string {
	const digits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = digits[v&0xF]
		v >>= 4
	}
	return string(buf)
}
