// Package object implements the ATOB (Atlas Object Binary) relocatable
// object file format: a byte-exact, little-endian serialization of
// sections, symbols, and relocations produced by the encoder and consumed
// by the linker.
package object

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	magic          = "ATOB"
	currentVersion = uint32(1)
)

// Binding mirrors parser.SymbolBinding without importing the parser
// package, keeping object file-format-only.
type Binding uint8

const (
	BindingLocal Binding = iota
	BindingGlobal
)

// Section is one named, ordered byte buffer.
type Section struct {
	Name string
	Data []byte
}

// Symbol is a `{name, value, section, binding}` record. HasSection is false
// for an import (an undefined symbol).
type Symbol struct {
	Name       string
	Value      uint32
	HasSection bool
	Section    string
	Binding    Binding
}

// Relocation is a `{offset, symbol, addend, section}` record.
type Relocation struct {
	Offset  uint32
	Symbol  string
	Addend  int32
	Section string
}

// File is the in-memory form of an ATOB object file.
type File struct {
	Version     uint32
	Sections    []Section
	Symbols     []Symbol
	Relocations []Relocation
}

var (
	// ErrBadMagic is returned when the stream doesn't start with "ATOB".
	ErrBadMagic = errors.New("object: bad magic")
	// ErrUnsupportedVersion is returned for a version this reader can't parse.
	ErrUnsupportedVersion = errors.New("object: unsupported version")
	// ErrTruncated is returned when the stream ends mid-record.
	ErrTruncated = errors.New("object: truncated")
)

// New builds a File at the current format version.
func New() *File {
	return &File{Version: currentVersion}
}

// Encode serializes f in ATOB format.
func (f *File) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(magic)

	if err := writeU32(&buf, f.Version); err != nil {
		return nil, err
	}
	if err := writeU32(&buf, uint32(len(f.Sections))); err != nil {
		return nil, err
	}
	if err := writeU32(&buf, uint32(len(f.Symbols))); err != nil {
		return nil, err
	}
	if err := writeU32(&buf, uint32(len(f.Relocations))); err != nil {
		return nil, err
	}

	for _, sec := range f.Sections {
		if err := writeString(&buf, sec.Name); err != nil {
			return nil, err
		}
		if err := writeU32(&buf, 0); err != nil { // start: reserved
			return nil, err
		}
		if err := writeU32(&buf, uint32(len(sec.Data))); err != nil {
			return nil, err
		}
		buf.Write(sec.Data)
	}

	for _, sym := range f.Symbols {
		if err := writeString(&buf, sym.Name); err != nil {
			return nil, err
		}
		if err := writeU32(&buf, sym.Value); err != nil {
			return nil, err
		}
		has := byte(0)
		if sym.HasSection {
			has = 1
		}
		buf.WriteByte(has)
		if sym.HasSection {
			if err := writeString(&buf, sym.Section); err != nil {
				return nil, err
			}
		}
		buf.WriteByte(byte(sym.Binding))
	}

	for _, rel := range f.Relocations {
		if err := writeU32(&buf, rel.Offset); err != nil {
			return nil, err
		}
		if err := writeString(&buf, rel.Symbol); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, rel.Addend); err != nil {
			return nil, err
		}
		if err := writeString(&buf, rel.Section); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses an ATOB object file from data.
func Decode(data []byte) (*File, error) {
	r := bytes.NewReader(data)

	magicBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, magicBuf); err != nil {
		return nil, ErrTruncated
	}
	if string(magicBuf) != magic {
		return nil, ErrBadMagic
	}

	version, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if version != currentVersion {
		return nil, ErrUnsupportedVersion
	}

	sectionCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	symbolCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	relocationCount, err := readU32(r)
	if err != nil {
		return nil, err
	}

	f := &File{Version: version}

	for i := uint32(0); i < sectionCount; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		if _, err := readU32(r); err != nil { // start, reserved
			return nil, err
		}
		dataLen, err := readU32(r)
		if err != nil {
			return nil, err
		}
		data := make([]byte, dataLen)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, ErrTruncated
		}
		f.Sections = append(f.Sections, Section{Name: name, Data: data})
	}

	for i := uint32(0); i < symbolCount; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		value, err := readU32(r)
		if err != nil {
			return nil, err
		}
		hasByte := make([]byte, 1)
		if _, err := io.ReadFull(r, hasByte); err != nil {
			return nil, ErrTruncated
		}
		sym := Symbol{Name: name, Value: value, HasSection: hasByte[0] == 1}
		if sym.HasSection {
			section, err := readString(r)
			if err != nil {
				return nil, err
			}
			sym.Section = section
		}
		bindingByte := make([]byte, 1)
		if _, err := io.ReadFull(r, bindingByte); err != nil {
			return nil, ErrTruncated
		}
		sym.Binding = Binding(bindingByte[0])
		f.Symbols = append(f.Symbols, sym)
	}

	for i := uint32(0); i < relocationCount; i++ {
		offset, err := readU32(r)
		if err != nil {
			return nil, err
		}
		symbol, err := readString(r)
		if err != nil {
			return nil, err
		}
		var addend int32
		if err := binary.Read(r, binary.LittleEndian, &addend); err != nil {
			return nil, ErrTruncated
		}
		section, err := readString(r)
		if err != nil {
			return nil, err
		}
		f.Relocations = append(f.Relocations, Relocation{
			Offset: offset, Symbol: symbol, Addend: addend, Section: section,
		})
	}

	return f, nil
}

func writeU32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, ErrTruncated
	}
	return v, nil
}

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	length, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", ErrTruncated
	}
	return string(buf), nil
}

// SectionByName returns the first section named name, if any.
func (f *File) SectionByName(name string) (Section, bool) {
	for _, s := range f.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}
