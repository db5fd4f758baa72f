// Package measurement implements the time-series measurement types exchanged
// over a GEP data channel: the canonical Measurement record, signal
// reference parsing, and measurement-key parsing. The compact wire encoding
// used by DataPacket responses lives in package compact.
package measurement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// SignalKind classifies a measurement's role within its originating device,
// independent of its specific engineering quantity (e.g. Angle covers both
// voltage and current phase angles).
type SignalKind int16

const (
	SignalKindAngle SignalKind = iota
	SignalKindMagnitude
	SignalKindFrequency
	SignalKindDfDt
	SignalKindStatus
	SignalKindDigital
	SignalKindAnalog
	SignalKindCalculation
	SignalKindStatistic
	SignalKindAlarm
	SignalKindQuality
	SignalKindUnknown
)

var signalKindAcronym = [...]string{
	"PA", "PM", "FQ", "DF", "SF", "DV", "AV", "CV", "ST", "AL", "QF", "??",
}

var signalKindDescription = [...]string{
	"Angle", "Magnitude", "Frequency", "DfDt", "Status", "Digital", "Analog",
	"Calculation", "Statistic", "Alarm", "Quality", "Unknown",
}

// Acronym returns the two-letter code used in a signal reference's suffix
// (e.g. "PA" for SignalKindAngle).
func (k SignalKind) Acronym() string {
	if k < 0 || int(k) >= len(signalKindAcronym) {
		return "??"
	}
	return signalKindAcronym[k]
}

// String returns the human-readable name of the signal kind.
func (k SignalKind) String() string {
	if k < 0 || int(k) >= len(signalKindDescription) {
		return "Unknown"
	}
	return signalKindDescription[k]
}

// ParseSignalKind maps a two-letter acronym to its SignalKind, returning
// SignalKindUnknown for any acronym it does not recognize.
func ParseSignalKind(acronym string) SignalKind {
	switch acronym {
	case "PA":
		return SignalKindAngle
	case "PM":
		return SignalKindMagnitude
	case "FQ":
		return SignalKindFrequency
	case "DF":
		return SignalKindDfDt
	case "SF":
		return SignalKindStatus
	case "DV":
		return SignalKindDigital
	case "AV":
		return SignalKindAnalog
	case "CV":
		return SignalKindCalculation
	case "ST":
		return SignalKindStatistic
	case "AL":
		return SignalKindAlarm
	case "QF":
		return SignalKindQuality
	default:
		return SignalKindUnknown
	}
}

// SignalReference is the parsed form of a measurement's point tag, e.g.
// "SHELBY-FQ" or "CORDOVA-PA2" (an indexed phasor angle).
type SignalReference struct {
	Acronym string
	Kind    SignalKind
	Index   int
}

// ParseSignalReference splits signal on its last hyphen into a device
// acronym and a signal-type suffix. A suffix longer than two characters is
// treated as an acronym followed by a decimal phasor index (e.g. "PA2"
// parses as SignalKindAngle, Index 2).
func ParseSignalReference(signal string) SignalReference {
	splitIndex := strings.LastIndex(signal, "-")
	if splitIndex < 0 {
		return SignalReference{
			Acronym: strings.ToUpper(strings.TrimSpace(signal)),
			Kind:    SignalKindUnknown,
		}
	}

	signalType := strings.ToUpper(strings.TrimSpace(signal[splitIndex+1:]))
	ref := SignalReference{
		Acronym: strings.ToUpper(strings.TrimSpace(signal[:splitIndex])),
	}

	if len(signalType) > 2 {
		ref.Kind = ParseSignalKind(signalType[:2])
		if ref.Kind != SignalKindUnknown {
			if idx, err := strconv.Atoi(signalType[2:]); err == nil {
				ref.Index = idx
			}
		}
	} else {
		ref.Kind = ParseSignalKind(signalType)
	}

	return ref
}

// String renders the signal reference back to its point-tag form.
func (r SignalReference) String() string {
	if r.Index > 0 {
		return fmt.Sprintf("%s-%s%d", r.Acronym, r.Kind.Acronym(), r.Index)
	}
	return fmt.Sprintf("%s-%s", r.Acronym, r.Kind.Acronym())
}

// Measurement is a single time-stamped value flowing through the publisher.
// SignalID uniquely identifies the measurement across the system; ID and
// Source together form the legacy measurement key ("source:id").
type Measurement struct {
	ID         uint32
	Source     string
	SignalID   wire.Guid
	Tag        string
	Value      float64
	Adder      float64
	Multiplier float64
	Timestamp  int64 // .NET ticks (100ns units since 0001-01-01)
	Flags      uint32
}

// AdjustedValue applies the measurement's linear adjustment
// (Value*Multiplier + Adder), the value actually placed on the wire.
func (m Measurement) AdjustedValue() float64 {
	return m.Value*m.Multiplier + m.Adder
}

// Key formats the legacy "source:id" measurement key.
func (m Measurement) Key() string {
	return fmt.Sprintf("%s:%d", m.Source, m.ID)
}

// ParseMeasurementKey splits a "source:id" measurement key. A key with no
// colon-delimited numeric suffix yields id = ^uint32(0), mirroring the
// sentinel used when no id could be parsed.
func ParseMeasurementKey(key string) (source string, id uint32) {
	parts := strings.SplitN(key, ":", 2)
	source = parts[0]
	if len(parts) != 2 {
		return source, ^uint32(0)
	}
	parsed, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return source, ^uint32(0)
	}
	return source, uint32(parsed)
}

// GetSignalTypeAcronym derives the four-letter signal-type acronym used by
// metadata records from a SignalKind, disambiguating phase quantities by
// phasorType ('V' for voltage, anything else for current).
func GetSignalTypeAcronym(kind SignalKind, phasorType byte) string {
	switch kind {
	case SignalKindAngle:
		if phasorType == 'V' || phasorType == 'v' {
			return "VPHA"
		}
		return "IPHA"
	case SignalKindMagnitude:
		if phasorType == 'V' || phasorType == 'v' {
			return "VPHM"
		}
		return "IPHM"
	case SignalKindFrequency:
		return "FREQ"
	case SignalKindDfDt:
		return "DFDT"
	case SignalKindStatus:
		return "FLAG"
	case SignalKindDigital:
		return "DIGI"
	case SignalKindAnalog:
		return "ALOG"
	case SignalKindCalculation:
		return "CALC"
	case SignalKindStatistic:
		return "STAT"
	case SignalKindAlarm:
		return "ALRM"
	case SignalKindQuality:
		return "QUAL"
	default:
		return "NULL"
	}
}

// GetEngineeringUnits derives a display unit from a four-letter signal-type
// acronym. Returns "" for acronyms with no well-known unit.
func GetEngineeringUnits(signalType string) string {
	switch strings.ToUpper(signalType) {
	case "IPHM":
		return "Amps"
	case "VPHM":
		return "Volts"
	case "FREQ":
		return "Hz"
	}
	if strings.HasSuffix(strings.ToUpper(signalType), "PHA") {
		return "Degrees"
	}
	return ""
}

// GetProtocolType classifies a source protocol name as either a
// point-by-point "Measurement" protocol or a frame-oriented "Frame"
// protocol, used to pick a metadata-refresh strategy upstream.
func GetProtocolType(protocolName string) string {
	switch {
	case strings.HasPrefix(protocolName, "Gateway"),
		strings.HasPrefix(protocolName, "Modbus"),
		strings.HasPrefix(protocolName, "DNP"):
		return "Measurement"
	default:
		return "Frame"
	}
}
