package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// maxCommandPayloadSize bounds an inbound command payload to guard against
// a malicious or corrupt length field forcing a huge allocation.
const maxCommandPayloadSize = 64 << 20

// ErrPayloadTooLarge is returned when a frame's declared length exceeds the
// maximum allowed payload size.
var ErrPayloadTooLarge = errors.New("wire: payload exceeds maximum size")

// Command codes accepted on a subscriber's command channel (§4.4),
// ground-truthed against the upstream protocol's ServerCommand enum.
const (
	CommandMetadataRefresh            byte = 0x01
	CommandSubscribe                  byte = 0x02
	CommandUnsubscribe                byte = 0x03
	CommandRotateCipherKeys           byte = 0x04
	CommandUpdateProcessingInterval   byte = 0x05
	CommandDefineOperationalModes     byte = 0x06
	CommandConfirmNotification        byte = 0x07
	CommandConfirmBufferBlock         byte = 0x08
	CommandPublishCommandMeasurements byte = 0x09
	// UserCommandLow and UserCommandHigh bound the reserved block of sixteen
	// user-command codes (§4.4); neither the defined command table nor any
	// response code (0x80+) lives in this range.
	UserCommandLow  byte = 0x70
	UserCommandHigh byte = 0x7F
)

// IsUserCommand reports whether command falls in the reserved user-command
// range.
func IsUserCommand(command byte) bool {
	return command >= UserCommandLow && command <= UserCommandHigh
}

// Response codes sent on a subscriber's command (or data) channel (§4.4).
const (
	ResponseSucceeded             byte = 0x80
	ResponseFailed                byte = 0x81
	ResponseDataPacket             byte = 0x82
	ResponseUpdateSignalIndexCache byte = 0x83
	ResponseUpdateBaseTimes        byte = 0x84
	ResponseUpdateCipherKeys       byte = 0x85
	ResponseDataStartTime          byte = 0x86
	ResponseProcessingComplete     byte = 0x87
	ResponseBufferBlock            byte = 0x88
	ResponseNotify                 byte = 0x89
	ResponseConfigurationChanged   byte = 0x8A
	// ResponseNoOP is the bare single-byte ping heartbeat; it carries no
	// commandCode/length/payload triplet.
	ResponseNoOP byte = 0xFF
)

// WriteCommandFrame writes a single command frame: [u8 command][u32
// payloadLength][payload].
func WriteCommandFrame(w io.Writer, command byte, payload []byte) error {
	var hdr [5]byte
	hdr[0] = command
	binary.BigEndian.PutUint32(hdr[1:5], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wire: write command header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("wire: write command payload: %w", err)
		}
	}
	return nil
}

// ReadCommandFrame reads a single command frame from r, returning the
// command byte and payload. Returns io.EOF when the reader is exhausted
// cleanly between frames.
func ReadCommandFrame(r io.Reader) (command byte, payload []byte, err error) {
	var hdr [5]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	command = hdr[0]
	length := binary.BigEndian.Uint32(hdr[1:5])
	if length > maxCommandPayloadSize {
		return 0, nil, ErrPayloadTooLarge
	}
	payload = make([]byte, length)
	if length > 0 {
		if _, err = io.ReadFull(r, payload); err != nil {
			return 0, nil, fmt.Errorf("wire: read command payload: %w", err)
		}
	}
	return command, payload, nil
}

// WriteResponseFrame writes a single response frame: [u8 responseCode][u8
// commandCode][u32 length][payload]. ResponseNoOP is a special case with no
// trailing fields; use WriteNoOP for it instead.
func WriteResponseFrame(w io.Writer, responseCode, commandCode byte, payload []byte) error {
	var hdr [6]byte
	hdr[0] = responseCode
	hdr[1] = commandCode
	binary.BigEndian.PutUint32(hdr[2:6], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wire: write response header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("wire: write response payload: %w", err)
		}
	}
	return nil
}

// WriteNoOP writes the bare single-byte ping heartbeat.
func WriteNoOP(w io.Writer) error {
	_, err := w.Write([]byte{ResponseNoOP})
	if err != nil {
		return fmt.Errorf("wire: write no-op: %w", err)
	}
	return nil
}

// ReadResponseFrame reads a single response frame from r. When the response
// code is ResponseNoOP, commandCode is 0 and payload is nil.
func ReadResponseFrame(r io.Reader) (responseCode, commandCode byte, payload []byte, err error) {
	var code [1]byte
	if _, err = io.ReadFull(r, code[:]); err != nil {
		return 0, 0, nil, err
	}
	if code[0] == ResponseNoOP {
		return ResponseNoOP, 0, nil, nil
	}
	var rest [5]byte
	if _, err = io.ReadFull(r, rest[:]); err != nil {
		return 0, 0, nil, fmt.Errorf("wire: read response header: %w", err)
	}
	commandCode = rest[0]
	length := binary.BigEndian.Uint32(rest[1:5])
	if length > maxCommandPayloadSize {
		return 0, 0, nil, ErrPayloadTooLarge
	}
	payload = make([]byte, length)
	if length > 0 {
		if _, err = io.ReadFull(r, payload); err != nil {
			return 0, 0, nil, fmt.Errorf("wire: read response payload: %w", err)
		}
	}
	return code[0], commandCode, payload, nil
}
