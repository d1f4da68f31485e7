package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Binary layout, little-endian:
//
//	magic "MCIX" | format uint32 | version str | fingerprint str | dimensions uint32 | n uint32
//	then n times: keyword str | subtag str | dimensions*float32
//
// where str is a uint32 byte length followed by UTF-8 bytes.
var magic = [4]byte{'M', 'C', 'I', 'X'}

const formatVersion uint32 = 1

// Decode limits. A corrupt header must fail with an error, not exhaust memory.
const (
	maxStringLen  = 1 << 20
	maxDimensions = 1 << 16
	// initialCapacity caps the preallocation for entries; larger indexes grow by append.
	initialCapacity = 1024
)

// Encode writes ix to w.
func Encode(w io.Writer, ix *Index) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, formatVersion); err != nil {
		return fmt.Errorf("write format: %w", err)
	}
	if err := writeString(bw, ix.version); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := writeString(bw, ix.fingerprint); err != nil {
		return fmt.Errorf("write fingerprint: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(ix.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(ix.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, e := range ix.entries {
		if err := writeString(bw, e.Keyword); err != nil {
			return fmt.Errorf("write keyword: %w", err)
		}
		if err := writeString(bw, e.Subtag); err != nil {
			return fmt.Errorf("write subtag: %w", err)
		}
		if _, err := bw.Write(float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return bw.Flush()
}

// Decode reads an index written by Encode.
func Decode(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	var m [4]byte
	if _, err := io.ReadFull(br, m[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if m != magic {
		return nil, errors.New("not an index file")
	}
	var format, dim, n uint32
	if err := binary.Read(br, binary.LittleEndian, &format); err != nil {
		return nil, fmt.Errorf("read format: %w", err)
	}
	if format != formatVersion {
		return nil, fmt.Errorf("unsupported index format %d", format)
	}
	version, err := readString(br)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	fingerprint, err := readString(br)
	if err != nil {
		return nil, fmt.Errorf("read fingerprint: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if dim > maxDimensions {
		return nil, fmt.Errorf("dimensions %d exceeds limit", dim)
	}
	entries := make([]Entry, 0, min(n, initialCapacity))
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		kw, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("read keyword: %w", err)
		}
		st, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("read subtag: %w", err)
		}
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		entries = append(entries, Entry{Keyword: kw, Subtag: st, Vector: bytesToFloat32Slice(buf)})
	}
	return New(version, fingerprint, entries)
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("string length %d exceeds limit", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
