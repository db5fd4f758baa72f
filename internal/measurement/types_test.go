package measurement

import "testing"

func TestParseSignalReferenceIndexed(t *testing.T) {
	ref := ParseSignalReference("CORDOVA-PA2")
	if ref.Acronym != "CORDOVA" {
		t.Errorf("Acronym = %q, want CORDOVA", ref.Acronym)
	}
	if ref.Kind != SignalKindAngle {
		t.Errorf("Kind = %v, want SignalKindAngle", ref.Kind)
	}
	if ref.Index != 2 {
		t.Errorf("Index = %d, want 2", ref.Index)
	}
	if got := ref.String(); got != "CORDOVA-PA2" {
		t.Errorf("String() = %q, want CORDOVA-PA2", got)
	}
}

func TestParseSignalReferenceUnindexed(t *testing.T) {
	ref := ParseSignalReference("SHELBY-FQ")
	if ref.Acronym != "SHELBY" {
		t.Errorf("Acronym = %q, want SHELBY", ref.Acronym)
	}
	if ref.Kind != SignalKindFrequency {
		t.Errorf("Kind = %v, want SignalKindFrequency", ref.Kind)
	}
	if ref.Index != 0 {
		t.Errorf("Index = %d, want 0", ref.Index)
	}
	if got := ref.String(); got != "SHELBY-FQ" {
		t.Errorf("String() = %q, want SHELBY-FQ", got)
	}
}

func TestParseSignalReferenceNoDash(t *testing.T) {
	ref := ParseSignalReference("malformed")
	if ref.Acronym != "MALFORMED" {
		t.Errorf("Acronym = %q, want MALFORMED", ref.Acronym)
	}
	if ref.Kind != SignalKindUnknown {
		t.Errorf("Kind = %v, want SignalKindUnknown", ref.Kind)
	}
}

func TestParseMeasurementKey(t *testing.T) {
	cases := []struct {
		key        string
		wantSource string
		wantID     uint32
	}{
		{"SHELBY:45", "SHELBY", 45},
		{"CORDOVA:102", "CORDOVA", 102},
		{"NOCOLON", "NOCOLON", ^uint32(0)},
		{"SHELBY:notanumber", "SHELBY", ^uint32(0)},
	}
	for _, c := range cases {
		source, id := ParseMeasurementKey(c.key)
		if source != c.wantSource || id != c.wantID {
			t.Errorf("ParseMeasurementKey(%q) = (%q, %d), want (%q, %d)", c.key, source, id, c.wantSource, c.wantID)
		}
	}
}

func TestMeasurementKeyFormat(t *testing.T) {
	m := Measurement{Source: "SHELBY", ID: 45}
	if got := m.Key(); got != "SHELBY:45" {
		t.Errorf("Key() = %q, want SHELBY:45", got)
	}
}

func TestMeasurementAdjustedValue(t *testing.T) {
	m := Measurement{Value: 10, Multiplier: 2, Adder: 1}
	if got := m.AdjustedValue(); got != 21 {
		t.Errorf("AdjustedValue() = %v, want 21", got)
	}
}

func TestGetSignalTypeAcronym(t *testing.T) {
	cases := []struct {
		kind       SignalKind
		phasorType byte
		want       string
	}{
		{SignalKindAngle, 'V', "VPHA"},
		{SignalKindAngle, 'I', "IPHA"},
		{SignalKindMagnitude, 'V', "VPHM"},
		{SignalKindFrequency, 0, "FREQ"},
		{SignalKindUnknown, 0, "NULL"},
	}
	for _, c := range cases {
		if got := GetSignalTypeAcronym(c.kind, c.phasorType); got != c.want {
			t.Errorf("GetSignalTypeAcronym(%v, %c) = %q, want %q", c.kind, c.phasorType, got, c.want)
		}
	}
}

func TestGetEngineeringUnits(t *testing.T) {
	cases := map[string]string{
		"IPHM": "Amps",
		"VPHM": "Volts",
		"FREQ": "Hz",
		"VPHA": "Degrees",
		"IPHA": "Degrees",
		"FLAG": "",
	}
	for signalType, want := range cases {
		if got := GetEngineeringUnits(signalType); got != want {
			t.Errorf("GetEngineeringUnits(%q) = %q, want %q", signalType, got, want)
		}
	}
}

func TestGetProtocolType(t *testing.T) {
	cases := map[string]string{
		"GatewayTransport": "Measurement",
		"Modbus":           "Measurement",
		"DNP3":             "Measurement",
		"IEEE C37.118":     "Frame",
	}
	for name, want := range cases {
		if got := GetProtocolType(name); got != want {
			t.Errorf("GetProtocolType(%q) = %q, want %q", name, got, want)
		}
	}
}
