package source

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
)

// ByteSource delivers a byte stream one byte at a time.
// Next returns io.EOF once the input is exhausted.
type ByteSource interface {
	Next() (byte, error)
}

// Memory reads from an in-memory buffer.
type Memory struct {
	data []byte
	pos  int
}

func NewMemory(data []byte) *Memory {
	return &Memory{data: data}
}

func (m *Memory) Next() (byte, error) {
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	b := m.data[m.pos]
	m.pos++
	return b, nil
}

// File reads from a file handle (or any other reader) through a buffer.
type File struct {
	r      *bufio.Reader
	closer io.Closer
}

func NewFile(f io.Reader) *File {
	return &File{r: bufio.NewReader(f)}
}

// Open opens the named file for reading. The caller must Close it.
func Open(fsys fs.FS, name string) (*File, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", name, err)
	}
	return &File{r: bufio.NewReader(f), closer: f}, nil
}

func (f *File) Next() (byte, error) {
	return f.r.ReadByte()
}

func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
