package jumplist

import (
	"encoding/binary"
	"fmt"
	"os"
	"unicode/utf16"
)

const (
	shellLinkHeaderSize = 76
	shellLinkMagic      = 0x4C

	flagHasLinkTargetIDList = 1 << 0
	flagHasLinkInfo         = 1 << 1

	linkInfoHeaderSizeWithUnicode = 0x24
)

// ErrMalformed marks a stream that could not be parsed as a Shell Link;
// callers skip it and continue with the rest of the jump-list file.
type ErrMalformed struct{ reason string }

func (e *ErrMalformed) Error() string { return "lnk malformed: " + e.reason }

// ParseLnk parses a Shell Link blob and returns the target path. The
// header's flag bits gate an optional id-list block and an optional
// link-info block; the Unicode local-base-path is preferred over the ANSI
// one when both are present. The result is returned only if it refers to
// an existing filesystem entity.
func ParseLnk(data []byte) (string, error) {
	if len(data) < shellLinkHeaderSize {
		return "", &ErrMalformed{"header too short"}
	}
	if data[0] != shellLinkMagic {
		return "", &ErrMalformed{"bad magic"}
	}
	flags := binary.LittleEndian.Uint32(data[20:24])

	offset := shellLinkHeaderSize
	if flags&flagHasLinkTargetIDList != 0 {
		if offset+2 > len(data) {
			return "", &ErrMalformed{"id-list size out of range"}
		}
		size := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
		offset += 2 + size
	}

	if flags&flagHasLinkInfo == 0 {
		return "", &ErrMalformed{"no link info"}
	}
	if offset+8 > len(data) {
		return "", &ErrMalformed{"link info header out of range"}
	}

	linkInfo := data[offset:]
	if len(linkInfo) < 4 {
		return "", &ErrMalformed{"link info block too short"}
	}
	blockSize := binary.LittleEndian.Uint32(linkInfo[0:4])
	if int(blockSize) > len(linkInfo) {
		return "", &ErrMalformed{"link info block size exceeds buffer"}
	}
	if len(linkInfo) < 8 {
		return "", &ErrMalformed{"link info missing header size"}
	}
	headerSize := binary.LittleEndian.Uint32(linkInfo[4:8])

	if len(linkInfo) < 20 {
		return "", &ErrMalformed{"link info missing ansi offset"}
	}
	ansiOffset := binary.LittleEndian.Uint32(linkInfo[16:20])

	var unicodeOffset uint32
	if headerSize >= linkInfoHeaderSizeWithUnicode {
		if len(linkInfo) < 32 {
			return "", &ErrMalformed{"link info missing unicode offset"}
		}
		unicodeOffset = binary.LittleEndian.Uint32(linkInfo[28:32])
	}

	var path string
	if unicodeOffset != 0 {
		p, err := readUTF16ZZ(linkInfo, int(unicodeOffset))
		if err != nil {
			return "", err
		}
		path = p
	} else if ansiOffset != 0 {
		p, err := readASCIIZ(linkInfo, int(ansiOffset))
		if err != nil {
			return "", err
		}
		path = p
	} else {
		return "", &ErrMalformed{"no local base path present"}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", &ErrMalformed{fmt.Sprintf("target does not exist: %v", err)}
	}
	_ = info
	return path, nil
}

func readASCIIZ(buf []byte, offset int) (string, error) {
	if offset < 0 || offset >= len(buf) {
		return "", &ErrMalformed{"ansi offset out of range"}
	}
	end := offset
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	return string(buf[offset:end]), nil
}

func readUTF16ZZ(buf []byte, offset int) (string, error) {
	if offset < 0 || offset >= len(buf) {
		return "", &ErrMalformed{"unicode offset out of range"}
	}
	var units []uint16
	i := offset
	for i+1 < len(buf) {
		u := uint16(buf[i]) | uint16(buf[i+1])<<8
		if u == 0 {
			break
		}
		units = append(units, u)
		i += 2
	}
	return string(utf16.Decode(units)), nil
}
