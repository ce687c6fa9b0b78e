package stream

import (
	"testing"
	"time"
)

func TestParseSample(t *testing.T) {
	row := "1610000000.0,60,12345.6,80,100,270.5,37.4,-122.1,50,D,250,240"
	sample := ParseSample(row)
	if sample == nil {
		t.Fatal("expected a sample")
	}
	if !sample.Timestamp.Equal(time.Unix(1610000000, 0)) {
		t.Errorf("Timestamp = %s", sample.Timestamp)
	}
	if sample.Speed != 60 {
		t.Errorf("Speed = %f", sample.Speed)
	}
	if sample.Odometer != 12345.6 {
		t.Errorf("Odometer = %f", sample.Odometer)
	}
	if sample.SOC != 80 {
		t.Errorf("SOC = %d", sample.SOC)
	}
	if sample.Elevation != 100 {
		t.Errorf("Elevation = %d", sample.Elevation)
	}
	if sample.Heading != 270.5 {
		t.Errorf("Heading = %f", sample.Heading)
	}
	if sample.Latitude != 37.4 || sample.Longitude != -122.1 {
		t.Errorf("position = (%f, %f)", sample.Latitude, sample.Longitude)
	}
	if sample.Power != 50 {
		t.Errorf("Power = %f", sample.Power)
	}
	if sample.ShiftState != ShiftDrive {
		t.Errorf("ShiftState = %q", sample.ShiftState)
	}
	if sample.Range != 250 || sample.EstRange != 240 {
		t.Errorf("range = %d/%d", sample.Range, sample.EstRange)
	}
}

func TestParseSampleMillisecondTimestamp(t *testing.T) {
	sample := ParseSample("1610000000000,0,0,0,0,0,0,0,0,P,0,0")
	if sample == nil {
		t.Fatal("expected a sample")
	}
	if !sample.Timestamp.Equal(time.UnixMilli(1610000000000)) {
		t.Errorf("Timestamp = %s", sample.Timestamp)
	}
}

func TestParseSampleDropsShortRows(t *testing.T) {
	rows := []string{
		"",
		"1610000000.0",
		"1610000000.0,60,12345.6,80,100,270.5,37.4,-122.1,50,D,250", // 11 fields
	}
	for _, row := range rows {
		if sample := ParseSample(row); sample != nil {
			t.Errorf("ParseSample(%q) = %+v, want nil", row, sample)
		}
	}
}

func TestParseSampleToleratesBlankFields(t *testing.T) {
	// Parked vehicles report empty speed and shift state.
	sample := ParseSample("1610000000.0,,12345.6,80,100,270.5,37.4,-122.1,0,,250,240")
	if sample == nil {
		t.Fatal("expected a sample")
	}
	if sample.Speed != 0 {
		t.Errorf("Speed = %f", sample.Speed)
	}
	if sample.ShiftState != ShiftPark {
		t.Errorf("ShiftState = %q", sample.ShiftState)
	}
}

func TestShiftStates(t *testing.T) {
	tests := map[string]ShiftState{
		"D": ShiftDrive, "R": ShiftReverse, "N": ShiftNeutral,
		"P": ShiftPark, "": ShiftPark, "X": ShiftPark,
	}
	for raw, want := range tests {
		if got := parseShiftState(raw); got != want {
			t.Errorf("parseShiftState(%q) = %q, want %q", raw, got, want)
		}
	}
}
