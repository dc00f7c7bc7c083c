package output

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// EasyIP protocol constants.
const (
	EasyIPPort = 995

	easyIPFlagResponse = 0x80
	easyIPOperandFlag  = 1
	easyIPHeaderSize   = 20
)

// ErrShortPacket is returned when a datagram is smaller than the header.
var ErrShortPacket = errors.New("easyip packet too short")

// EasyIPHeader is the fixed little-endian packet header.
type EasyIPHeader struct {
	Flags           uint8
	Error           uint8
	Counter         uint16
	Index1          uint16
	Spare1          uint8
	SendType        uint8
	SendSize        uint16
	SendOffset      uint16
	Spare2          uint8
	ReqType         uint8
	ReqSize         uint16
	ReqOffsetServer uint16
	ReqOffsetClient uint16
}

// EasyIPPacket is a header plus word payload.
type EasyIPPacket struct {
	Header  EasyIPHeader
	Payload []uint16
}

// SendFlagwords builds a packet writing words to flag words starting at offset.
func SendFlagwords(counter, offset uint16, words []uint16) EasyIPPacket {
	return EasyIPPacket{
		Header: EasyIPHeader{
			Counter:    counter,
			SendType:   easyIPOperandFlag,
			SendSize:   uint16(len(words)),
			SendOffset: offset,
		},
		Payload: words,
	}
}

// MarshalBinary encodes the packet.
func (p EasyIPPacket) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(easyIPHeaderSize + 2*len(p.Payload))
	if err := binary.Write(&buf, binary.LittleEndian, p.Header); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, p.Payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseEasyIP decodes a packet. Response packets carry no payload for a send.
func ParseEasyIP(data []byte) (EasyIPPacket, error) {
	if len(data) < easyIPHeaderSize {
		return EasyIPPacket{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(data))
	}
	var p EasyIPPacket
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, &p.Header); err != nil {
		return EasyIPPacket{}, err
	}
	p.Payload = make([]uint16, (len(data)-easyIPHeaderSize)/2)
	if err := binary.Read(r, binary.LittleEndian, p.Payload); err != nil {
		return EasyIPPacket{}, err
	}
	return p, nil
}

// IsResponse reports whether the response flag is set.
func (p EasyIPPacket) IsResponse() bool { return p.Header.Flags&easyIPFlagResponse != 0 }
