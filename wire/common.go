package wire

import (
	"encoding/binary"
	"io"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"

	"github.com/dash-blockchain/mnsync/errors"
)

var (
	littleEndian = binary.LittleEndian
	bigEndian    = binary.BigEndian
)

// binaryFreeList provides a free list of buffers to use for serializing and
// deserializing primitive integer values, so the hot read path does not
// allocate per element.
type binaryFreeList chan []byte

const binaryFreeListMaxItems = 1024

var binarySerializer binaryFreeList = make(chan []byte, binaryFreeListMaxItems)

func (l binaryFreeList) Borrow() []byte {
	var buf []byte
	select {
	case buf = <-l:
	default:
		buf = make([]byte, 8)
	}

	return buf[:8]
}

func (l binaryFreeList) Return(buf []byte) {
	select {
	case l <- buf:
	default:
	}
}

func (l binaryFreeList) Uint8(r io.Reader) (uint8, error) {
	buf := l.Borrow()[:1]
	defer l.Return(buf)

	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}

	return buf[0], nil
}

func (l binaryFreeList) Uint16(r io.Reader, byteOrder binary.ByteOrder) (uint16, error) {
	buf := l.Borrow()[:2]
	defer l.Return(buf)

	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}

	return byteOrder.Uint16(buf), nil
}

func (l binaryFreeList) Uint32(r io.Reader, byteOrder binary.ByteOrder) (uint32, error) {
	buf := l.Borrow()[:4]
	defer l.Return(buf)

	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}

	return byteOrder.Uint32(buf), nil
}

func (l binaryFreeList) Uint64(r io.Reader, byteOrder binary.ByteOrder) (uint64, error) {
	buf := l.Borrow()[:8]
	defer l.Return(buf)

	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}

	return byteOrder.Uint64(buf), nil
}

func (l binaryFreeList) PutUint8(w io.Writer, val uint8) error {
	buf := l.Borrow()[:1]
	defer l.Return(buf)

	buf[0] = val
	_, err := w.Write(buf)

	return err
}

func (l binaryFreeList) PutUint16(w io.Writer, byteOrder binary.ByteOrder, val uint16) error {
	buf := l.Borrow()[:2]
	defer l.Return(buf)

	byteOrder.PutUint16(buf, val)
	_, err := w.Write(buf)

	return err
}

func (l binaryFreeList) PutUint32(w io.Writer, byteOrder binary.ByteOrder, val uint32) error {
	buf := l.Borrow()[:4]
	defer l.Return(buf)

	byteOrder.PutUint32(buf, val)
	_, err := w.Write(buf)

	return err
}

func (l binaryFreeList) PutUint64(w io.Writer, byteOrder binary.ByteOrder, val uint64) error {
	buf := l.Borrow()[:8]
	defer l.Return(buf)

	byteOrder.PutUint64(buf, val)
	_, err := w.Write(buf)

	return err
}

// readVarInt reads a variable length integer in the bitcoin compact size
// encoding used throughout the Dash protocol.
func readVarInt(r io.Reader) (uint64, error) {
	var vi bt.VarInt
	if _, err := vi.ReadFrom(r); err != nil {
		return 0, err
	}

	return uint64(vi), nil
}

// writeVarInt writes val in the bitcoin compact size encoding.
func writeVarInt(w io.Writer, val uint64) error {
	_, err := w.Write(bt.VarInt(val).Bytes())
	return err
}

// readVarBytes reads a variable length byte array with a sanity cap against
// malformed length prefixes forcing huge allocations.
func readVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := readVarInt(r)
	if err != nil {
		return nil, err
	}

	if count > maxAllowed {
		return nil, errors.NewMalformedMessageError("%s is larger than the max allowed size [count %d, max %d]", fieldName, count, maxAllowed)
	}

	b := make([]byte, count)
	if _, err = io.ReadFull(r, b); err != nil {
		return nil, err
	}

	return b, nil
}

func writeVarBytes(w io.Writer, b []byte) error {
	if err := writeVarInt(w, uint64(len(b))); err != nil {
		return err
	}

	_, err := w.Write(b)

	return err
}

// readHash reads a 32 byte hash directly off the wire.
func readHash(r io.Reader, hash *chainhash.Hash) error {
	_, err := io.ReadFull(r, hash[:])
	return err
}

func writeHash(w io.Writer, hash *chainhash.Hash) error {
	_, err := w.Write(hash[:])
	return err
}
