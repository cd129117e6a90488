package jumplist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"unicode/utf16"
)

// Minimal Microsoft Compound File Binary (OLE2) reader: enough to walk a
// jump-list file's streams. Directory-tree ordering (red-black tree) is
// irrelevant here, since every non-storage entry other than DestList is
// wanted, so entries are read as a flat table.

const (
	cfbSignature     = 0xE11AB1A1E011CFD0
	cfbHeaderSize    = 512
	direntSize       = 128
	freeSect         = 0xFFFFFFFF
	endOfChain       = 0xFFFFFFFE
	fatSect          = 0xFFFFFFFD
	difSect          = 0xFFFFFFFC
	direntTypeRoot   = 5
	direntTypeStream = 2
)

type cfbHeader struct {
	Signature          uint64
	_                  [16]byte // CLSID
	MinorVersion       uint16
	MajorVersion       uint16
	ByteOrder          uint16
	SectorShift        uint16
	MiniSectorShift    uint16
	_                  [6]byte
	NumDirSectors      uint32
	NumFATSectors      uint32
	FirstDirSector     uint32
	_                  uint32 // transaction signature
	MiniStreamCutoff   uint32
	FirstMiniFATSector uint32
	NumMiniFATSectors  uint32
	FirstDIFATSector   uint32
	NumDIFATSectors    uint32
	DIFAT              [109]uint32
}

type direntry struct {
	Name        string
	Type        byte
	StartSector uint32
	StreamSize  uint64
}

// Document is an opened compound document ready for stream iteration.
type Document struct {
	data       []byte
	header     cfbHeader
	sectorSize int
	miniSize   int
	fat        []uint32
	miniFat    []uint32
	miniStream []byte
	dirents    []direntry
}

// Open reads and parses a compound document already copied to a local
// temp path (the caller is responsible for the copy-before-open dance,
// since the source file is shell-locked while the jump list is live).
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return OpenBytes(data)
}

func OpenBytes(data []byte) (*Document, error) {
	if len(data) < cfbHeaderSize {
		return nil, &ErrMalformed{"file shorter than CFB header"}
	}
	var hdr cfbHeader
	r := bytes.NewReader(data[:cfbHeaderSize])
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, &ErrMalformed{fmt.Sprintf("header decode: %v", err)}
	}
	if hdr.Signature != cfbSignature {
		return nil, &ErrMalformed{"bad CFB signature"}
	}

	doc := &Document{
		data:       data,
		header:     hdr,
		sectorSize: 1 << hdr.SectorShift,
		miniSize:   1 << hdr.MiniSectorShift,
	}

	if err := doc.readFAT(); err != nil {
		return nil, err
	}
	if err := doc.readDirectory(); err != nil {
		return nil, err
	}
	if err := doc.readMiniFAT(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) sectorOffset(sect uint32) int {
	return cfbHeaderSize + int(sect)*d.sectorSize
}

func (d *Document) readSector(sect uint32) ([]byte, error) {
	off := d.sectorOffset(sect)
	if off < 0 || off+d.sectorSize > len(d.data) {
		return nil, &ErrMalformed{"sector out of range"}
	}
	return d.data[off : off+d.sectorSize], nil
}

func (d *Document) readFAT() error {
	var fatSectors []uint32
	for _, s := range d.header.DIFAT {
		if s == freeSect {
			continue
		}
		fatSectors = append(fatSectors, s)
	}
	// Additional DIFAT sectors are uncommon in jump-list-sized files;
	// unsupported here and treated as a malformed document.
	if d.header.NumDIFATSectors != 0 {
		return &ErrMalformed{"multi-sector DIFAT unsupported"}
	}

	entriesPerSector := d.sectorSize / 4
	fat := make([]uint32, 0, len(fatSectors)*entriesPerSector)
	for _, s := range fatSectors {
		raw, err := d.readSector(s)
		if err != nil {
			return err
		}
		for i := 0; i+4 <= len(raw); i += 4 {
			fat = append(fat, binary.LittleEndian.Uint32(raw[i:i+4]))
		}
	}
	d.fat = fat
	return nil
}

func (d *Document) chain(start uint32) ([]uint32, error) {
	var chain []uint32
	seen := map[uint32]bool{}
	cur := start
	for cur != endOfChain && cur != freeSect {
		if seen[cur] {
			return nil, &ErrMalformed{"cyclic sector chain"}
		}
		seen[cur] = true
		chain = append(chain, cur)
		if int(cur) >= len(d.fat) {
			return nil, &ErrMalformed{"sector chain out of range"}
		}
		cur = d.fat[cur]
	}
	return chain, nil
}

func (d *Document) readStreamSectors(start uint32) ([]byte, error) {
	chain, err := d.chain(start)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(chain)*d.sectorSize)
	for _, s := range chain {
		sec, err := d.readSector(s)
		if err != nil {
			return nil, err
		}
		buf = append(buf, sec...)
	}
	return buf, nil
}

func (d *Document) readDirectory() error {
	raw, err := d.readStreamSectors(d.header.FirstDirSector)
	if err != nil {
		return fmt.Errorf("directory stream: %w", err)
	}
	for off := 0; off+direntSize <= len(raw); off += direntSize {
		e := raw[off : off+direntSize]
		nameLen := int(binary.LittleEndian.Uint16(e[64:66]))
		if nameLen > 64 {
			continue
		}
		var nameUnits []uint16
		for i := 0; i+2 <= nameLen-2 && i+2 <= 64; i += 2 {
			nameUnits = append(nameUnits, binary.LittleEndian.Uint16(e[i:i+2]))
		}
		name := string(utf16.Decode(nameUnits))
		objType := e[66]
		start := binary.LittleEndian.Uint32(e[116:120])
		size := binary.LittleEndian.Uint64(e[120:128])
		if objType == 0 {
			continue // unused slot
		}
		d.dirents = append(d.dirents, direntry{Name: name, Type: objType, StartSector: start, StreamSize: size})
	}
	return nil
}

func (d *Document) readMiniFAT() error {
	if d.header.FirstMiniFATSector == endOfChain || d.header.NumMiniFATSectors == 0 {
		return nil
	}
	raw, err := d.readStreamSectors(d.header.FirstMiniFATSector)
	if err != nil {
		return fmt.Errorf("mini FAT: %w", err)
	}
	miniFat := make([]uint32, 0, len(raw)/4)
	for i := 0; i+4 <= len(raw); i += 4 {
		miniFat = append(miniFat, binary.LittleEndian.Uint32(raw[i:i+4]))
	}
	d.miniFat = miniFat

	for _, e := range d.dirents {
		if e.Type == direntTypeRoot {
			ms, err := d.readStreamSectors(e.StartSector)
			if err != nil {
				return fmt.Errorf("mini stream: %w", err)
			}
			d.miniStream = ms
			break
		}
	}
	return nil
}

// Streams returns the name and raw bytes of every stream in the document
// except DestList, skipping individual corrupt streams so one bad stream
// never aborts the rest of the file.
func (d *Document) Streams() map[string][]byte {
	out := make(map[string][]byte)
	for _, e := range d.dirents {
		if e.Type != direntTypeStream {
			continue
		}
		if e.Name == "DestList" {
			continue
		}
		data, err := d.readStream(e)
		if err != nil {
			continue
		}
		out[e.Name] = data
	}
	return out
}

func (d *Document) readStream(e direntry) ([]byte, error) {
	if e.StreamSize < uint64(d.header.MiniStreamCutoff) {
		return d.readMiniChain(e.StartSector, e.StreamSize)
	}
	raw, err := d.readStreamSectors(e.StartSector)
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) < e.StreamSize {
		return nil, &ErrMalformed{"stream shorter than declared size"}
	}
	return raw[:e.StreamSize], nil
}

func (d *Document) readMiniChain(start uint32, size uint64) ([]byte, error) {
	var chain []uint32
	seen := map[uint32]bool{}
	cur := start
	for cur != endOfChain && cur != freeSect {
		if seen[cur] {
			return nil, &ErrMalformed{"cyclic mini-sector chain"}
		}
		seen[cur] = true
		chain = append(chain, cur)
		if int(cur) >= len(d.miniFat) {
			return nil, &ErrMalformed{"mini sector chain out of range"}
		}
		cur = d.miniFat[cur]
	}
	buf := make([]byte, 0, len(chain)*d.miniSize)
	for _, s := range chain {
		off := int(s) * d.miniSize
		if off < 0 || off+d.miniSize > len(d.miniStream) {
			return nil, &ErrMalformed{"mini stream sector out of range"}
		}
		buf = append(buf, d.miniStream[off:off+d.miniSize]...)
	}
	if uint64(len(buf)) < size {
		return nil, &ErrMalformed{"mini stream shorter than declared size"}
	}
	return buf[:size], nil
}
