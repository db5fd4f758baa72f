package subscriber

import "testing"

func TestParseConnectionStringBasic(t *testing.T) {
	got := ParseConnectionString("throttled=true;publishInterval=1")
	if got["throttled"] != "true" {
		t.Fatalf("throttled = %q", got["throttled"])
	}
	if got["publishinterval"] != "1" {
		t.Fatalf("publishinterval = %q", got["publishinterval"])
	}
}

func TestParseConnectionStringBracedValue(t *testing.T) {
	got := ParseConnectionString("filterExpression={FILTER ActiveMeasurements WHERE SignalType='FREQ'};includeTime=true")
	want := "FILTER ActiveMeasurements WHERE SignalType='FREQ'"
	if got["filterexpression"] != want {
		t.Fatalf("filterexpression = %q, want %q", got["filterexpression"], want)
	}
	if got["includetime"] != "true" {
		t.Fatalf("includetime = %q", got["includetime"])
	}
}

func TestParseConnectionStringEmbeddedSemicolon(t *testing.T) {
	got := ParseConnectionString("filterExpression={A;B;C}")
	if got["filterexpression"] != "A;B;C" {
		t.Fatalf("filterexpression = %q", got["filterexpression"])
	}
}

func TestParseConnectionStringCaseInsensitiveKeys(t *testing.T) {
	got := ParseConnectionString("UseMillisecondResolution=TRUE")
	if got["usemillisecondresolution"] != "TRUE" {
		t.Fatalf("usemillisecondresolution = %q", got["usemillisecondresolution"])
	}
}

func TestParseConnectionStringEmpty(t *testing.T) {
	got := ParseConnectionString("")
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}
