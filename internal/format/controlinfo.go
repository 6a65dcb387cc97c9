package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// Cookie is the 4-byte magic every control-info block starts with.
const Cookie = "$HDT"

// Control-info types (spec §6).
const (
	TypeGlobal     byte = 1
	TypeHeader     byte = 2
	TypeDictionary byte = 3
	TypeTriples    byte = 4
	TypeIndex      byte = 5 // used by the hybrid-cache sidecar
)

// Property keys used across control-info blocks.
const (
	PropFormat      = "format"
	PropOrder       = "order"
	PropNumTriples  = "numTriples"
	PropHeaderSize  = "headerSize"
)

// FourSectionPFCFormat names the four-section plain-front-coding
// dictionary format. The dataset writer and reader stamp and check
// dict.FourSectionFormat on the TypeDictionary block; this constant is
// not used by either.
const FourSectionPFCFormat = "hdtv1-fourSectionPlainFrontCoding"

// CacheFormatVersion is the PropFormat value stamped on the sidecar's
// control info, and is bumped whenever the sidecar's on-disk layout
// changes incompatibly.
const CacheFormatVersion = "hybrid-cache-v1"

// ControlInfo is the "$HDT" + type + vbyte(payload_len) + key\0value\0...
// + CRC16 block framed at the start of the dataset header, the dictionary
// section, the triples section, and (type=index) the cache sidecar.
type ControlInfo struct {
	Type       byte
	Properties map[string]string
}

// NewControlInfo returns an empty ControlInfo of the given type.
func NewControlInfo(typ byte) *ControlInfo {
	return &ControlInfo{Type: typ, Properties: make(map[string]string)}
}

// Get returns a property value, and whether it was present.
func (c *ControlInfo) Get(key string) (string, bool) {
	v, ok := c.Properties[key]
	return v, ok
}

// Set assigns a property value.
func (c *ControlInfo) Set(key, value string) {
	if c.Properties == nil {
		c.Properties = make(map[string]string)
	}
	c.Properties[key] = value
}

// payload renders the key\0value\0 ... pairs in a deterministic (sorted by
// key) order, so the same ControlInfo always serializes to the same bytes.
func (c *ControlInfo) payload() []byte {
	keys := make([]string, 0, len(c.Properties))
	for k := range c.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte(0)
		buf.WriteString(c.Properties[k])
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// WriteTo writes the control-info block to w.
func (c *ControlInfo) WriteTo(w io.Writer) (int64, error) {
	var total int64
	n, err := io.WriteString(w, Cookie)
	total += int64(n)
	if err != nil {
		return total, err
	}
	nb, err := w.Write([]byte{c.Type})
	total += int64(nb)
	if err != nil {
		return total, err
	}

	payload := c.payload()
	nv, err := WriteVByte(w, uint64(len(payload)))
	total += int64(nv)
	if err != nil {
		return total, err
	}

	nb, err = w.Write(payload)
	total += int64(nb)
	if err != nil {
		return total, err
	}

	crc := CRC16(payload)
	var crcBuf [2]byte
	binary.LittleEndian.PutUint16(crcBuf[:], crc)
	nb, err = w.Write(crcBuf[:])
	total += int64(nb)
	return total, err
}

// ReadControlInfo reads and validates a control-info block from r.
func ReadControlInfo(r io.Reader) (*ControlInfo, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufReader{r}
	}

	var cookie [4]byte
	if _, err := io.ReadFull(r, cookie[:]); err != nil {
		return nil, fmt.Errorf("%w: reading control-info cookie: %v", ErrIO, err)
	}
	if string(cookie[:]) != Cookie {
		return nil, fmt.Errorf("%w: bad control-info cookie %q", ErrFormat, cookie[:])
	}

	var typBuf [1]byte
	if _, err := io.ReadFull(r, typBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading control-info type: %v", ErrIO, err)
	}

	payloadLen, err := ReadVByte(br)
	if err != nil {
		return nil, fmt.Errorf("%w: reading control-info payload length: %v", ErrIO, err)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: reading control-info payload: %v", ErrIO, err)
	}

	var crcBuf [2]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading control-info CRC16: %v", ErrIO, err)
	}
	want := binary.LittleEndian.Uint16(crcBuf[:])
	got := CRC16(payload)
	if want != got {
		return nil, fmt.Errorf("%w: control-info payload CRC16 mismatch: want %04x got %04x", ErrChecksum, want, got)
	}

	ci := &ControlInfo{Type: typBuf[0], Properties: make(map[string]string)}
	parts := bytes.Split(bytes.TrimRight(payload, "\x00"), []byte{0})
	for i := 0; i+1 < len(parts); i += 2 {
		ci.Properties[string(parts[i])] = string(parts[i+1])
	}
	return ci, nil
}

// bufReader adapts an io.Reader lacking ReadByte into one that has it,
// reading a single byte at a time. Control-info payloads are tiny, so the
// lack of buffering here is immaterial.
type bufReader struct {
	io.Reader
}

func (b bufReader) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(b.Reader, buf[:])
	return buf[0], err
}
