// Package itch decodes framed market-data packets into typed events.
//
// A frame is a 20-byte header (10-byte opaque session tag, big-endian uint64
// sequence number, big-endian uint16 message count) followed by that many
// length-prefixed messages. All multi-byte integers are big-endian. The
// decoder tolerates truncation and malformed lengths by discarding the rest
// of the current frame and resuming at the next one; it never fails the run.
package itch

import (
	"bufio"
	"encoding/binary"
	"io"
	"strings"

	"github.com/memduhb/orderbook-strategy/internal/obs"
	"github.com/memduhb/orderbook-strategy/internal/schema"
)

const (
	frameHeaderSize = 20
	maxMessageCount = 10000
	maxMessageLen   = 65535

	// Mandatory payload bytes after the type tag, per message kind.
	minStateChangeLen = 4 + 4 + 20
	minAddOrderLen    = 4 + 8 + 4 + 1 + 4 + 8 + 4 + 2 + 1 + 8
	minExecuteLen     = 4 + 8 + 4 + 1 + 8
	minDeleteLen      = 4 + 8 + 4 + 1
)

// Message type tags.
const (
	tagStateChange = 'O'
	tagAddOrder    = 'A'
	tagExecute     = 'E'
	tagDelete      = 'D'
)

// Parser reads frames sequentially from a byte stream.
type Parser struct {
	r    *bufio.Reader
	sink obs.Sink

	headerBuf [frameHeaderSize]byte
	lenBuf    [2]byte
	payload   []byte

	unknownLogged int
}

// NewParser wraps a reader with frame decoding. A nil sink discards
// diagnostics.
func NewParser(r io.Reader, sink obs.Sink) *Parser {
	if sink == nil {
		sink = obs.Nop()
	}
	return &Parser{
		r:       bufio.NewReader(r),
		sink:    sink,
		payload: make([]byte, 0, maxMessageLen),
	}
}

// NextFrame decodes one frame and returns its events in wire order. It
// returns io.EOF once the stream is exhausted; a short read on the frame
// header is treated the same way. A corrupt message count or a short read
// mid-frame discards the remainder of the frame only, returning whatever was
// decoded before it.
func (p *Parser) NextFrame() ([]schema.Event, error) {
	if _, err := io.ReadFull(p.r, p.headerBuf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}

	// Session tag (bytes 0:10) is opaque and the sequence number (10:18) is
	// not used by this system; only the message count matters.
	count := int(be16(p.headerBuf[18:20]))
	if count == 0 || count > maxMessageCount {
		p.sink.Warnf("itch: invalid message count %d, discarding frame", count)
		return nil, nil
	}

	events := make([]schema.Event, 0, count)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(p.r, p.lenBuf[:]); err != nil {
			p.sink.Warnf("itch: short read on message length, dropping rest of frame")
			break
		}
		msgLen := int(be16(p.lenBuf[:]))
		if msgLen < 1 || msgLen > maxMessageLen {
			p.sink.Warnf("itch: invalid message length %d, dropping rest of frame", msgLen)
			break
		}

		if cap(p.payload) < msgLen {
			p.payload = make([]byte, msgLen)
		}
		p.payload = p.payload[:msgLen]
		if _, err := io.ReadFull(p.r, p.payload); err != nil {
			p.sink.Warnf("itch: short read on message payload, dropping rest of frame")
			break
		}

		ev := p.decodeMessage(p.payload)
		if u, ok := ev.(schema.Unrecognized); ok && p.unknownLogged < 5 {
			p.sink.Warnf("itch: unrecognized message tag 0x%02x", u.Tag)
			p.unknownLogged++
		}
		events = append(events, ev)
	}

	return events, nil
}

// decodeMessage dispatches on the type tag byte. A payload shorter than its
// kind's mandatory fields, or an unknown tag, yields an Unrecognized event.
func (p *Parser) decodeMessage(msg []byte) schema.Event {
	tag := msg[0]
	rest := msg[1:]

	switch tag {
	case tagStateChange:
		if len(rest) < minStateChangeLen {
			return schema.Unrecognized{Tag: tag}
		}
		return schema.StateChange{
			Timestamp: be32(rest[0:4]),
			BookID:    be32(rest[4:8]),
			State:     strings.TrimRight(string(rest[8:28]), " "),
		}

	case tagAddOrder:
		if len(rest) < minAddOrderLen {
			return schema.Unrecognized{Tag: tag}
		}
		// Two attribute bytes and one lot-type byte sit between the price
		// and the ranking time; they are not used by this system.
		return schema.AddOrder{
			Timestamp:   be32(rest[0:4]),
			OrderID:     be64(rest[4:12]),
			BookID:      be32(rest[12:16]),
			Side:        schema.ParseSide(rest[16]),
			RankingSeq:  be32(rest[17:21]),
			Quantity:    be64(rest[21:29]),
			Price:       be32(rest[29:33]),
			RankingTime: be64(rest[36:44]),
		}

	case tagExecute:
		if len(rest) < minExecuteLen {
			return schema.Unrecognized{Tag: tag}
		}
		// Match id (8), combo group (4) and two reserved 7-byte blocks
		// trail the mandatory fields; each is optional and skipped.
		return schema.Execute{
			Timestamp: be32(rest[0:4]),
			OrderID:   be64(rest[4:12]),
			BookID:    be32(rest[12:16]),
			Side:      schema.ParseSide(rest[16]),
			Quantity:  be64(rest[17:25]),
		}

	case tagDelete:
		if len(rest) < minDeleteLen {
			return schema.Unrecognized{Tag: tag}
		}
		return schema.Delete{
			Timestamp: be32(rest[0:4]),
			OrderID:   be64(rest[4:12]),
			BookID:    be32(rest[12:16]),
			Side:      schema.ParseSide(rest[16]),
		}

	default:
		return schema.Unrecognized{Tag: tag}
	}
}

func be16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func be32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func be64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }
