package stream

import (
	"strconv"
	"strings"
	"time"
)

// Message is the frame format spoken on the streaming socket, in both directions.
type Message struct {
	MsgType string `json:"msg_type"`
	Token   string `json:"token,omitempty"`
	Value   string `json:"value,omitempty"`
	Tag     string `json:"tag,omitempty"`

	ErrorType         string `json:"error_type,omitempty"`
	ConnectionTimeout int    `json:"connection_timeout,omitempty"`
}

const (
	msgSubscribe  = "data:subscribe_oauth"
	msgHello      = "control:hello"
	msgDataUpdate = "data:update"
	msgDataError  = "data:error"
)

// subscribedFields names the telemetry columns requested on subscribe. The server answers with
// rows in this order, prefixed by a timestamp.
const subscribedFields = "speed,odometer,soc,elevation,est_heading,est_lat,est_lng,power,shift_state,range,est_range,heading"

// ShiftState is the gear reported in a telemetry row.
type ShiftState string

const (
	ShiftPark    ShiftState = "P"
	ShiftDrive   ShiftState = "D"
	ShiftReverse ShiftState = "R"
	ShiftNeutral ShiftState = "N"
)

func parseShiftState(raw string) ShiftState {
	switch raw {
	case "D":
		return ShiftDrive
	case "R":
		return ShiftReverse
	case "N":
		return ShiftNeutral
	default:
		return ShiftPark
	}
}

// Sample is one decoded telemetry row.
type Sample struct {
	Timestamp  time.Time
	Speed      float64
	Odometer   float64
	SOC        int
	Elevation  int
	Heading    float64
	Latitude   float64
	Longitude  float64
	Power      float64
	ShiftState ShiftState
	Range      int
	EstRange   int
}

const sampleFieldCount = 12

// ParseSample decodes one comma-separated telemetry row. Rows with fewer than twelve fields are
// truncated frames and yield nil; individual fields that fail to parse are left at their zero
// value rather than rejecting the whole row.
func ParseSample(raw string) *Sample {
	fields := strings.Split(strings.TrimSpace(raw), ",")
	if len(fields) < sampleFieldCount {
		return nil
	}
	s := &Sample{
		Speed:      parseFloat(fields[1]),
		Odometer:   parseFloat(fields[2]),
		SOC:        parseInt(fields[3]),
		Elevation:  parseInt(fields[4]),
		Heading:    parseFloat(fields[5]),
		Latitude:   parseFloat(fields[6]),
		Longitude:  parseFloat(fields[7]),
		Power:      parseFloat(fields[8]),
		ShiftState: parseShiftState(fields[9]),
		Range:      parseInt(fields[10]),
		EstRange:   parseInt(fields[11]),
	}
	epoch := parseFloat(fields[0])
	if epoch > 1e11 {
		s.Timestamp = time.UnixMilli(int64(epoch))
	} else {
		s.Timestamp = time.Unix(int64(epoch), 0)
	}
	return s
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}
