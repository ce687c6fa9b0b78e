package fleet

// Command is a request that can be posted to a vehicle's command endpoint. Name is the path
// component after /command/, Body is the JSON payload (nil for commands without parameters), and
// RequestType determines which API quota the call is billed against.
type Command interface {
	Name() string
	RequestType() RequestType
	Body() interface{}
}

type simpleCommand struct {
	name string
	kind RequestType
}

func (c simpleCommand) Name() string             { return c.name }
func (c simpleCommand) RequestType() RequestType { return c.kind }
func (c simpleCommand) Body() interface{}        { return nil }

// Commands without parameters.
var (
	FlashLights          Command = simpleCommand{name: "flash_lights", kind: RequestGeneral}
	HonkHorn             Command = simpleCommand{name: "honk_horn", kind: RequestGeneral}
	LockDoors            Command = simpleCommand{name: "door_lock", kind: RequestGeneral}
	UnlockDoors          Command = simpleCommand{name: "door_unlock", kind: RequestGeneral}
	StartCharging        Command = simpleCommand{name: "charge_start", kind: RequestCharging}
	StopCharging         Command = simpleCommand{name: "charge_stop", kind: RequestCharging}
	ChargeStandard       Command = simpleCommand{name: "charge_standard", kind: RequestCharging}
	ChargeMaxRange       Command = simpleCommand{name: "charge_max_range", kind: RequestCharging}
	OpenChargePort       Command = simpleCommand{name: "charge_port_door_open", kind: RequestGeneral}
	CloseChargePort      Command = simpleCommand{name: "charge_port_door_close", kind: RequestGeneral}
	StartClimate         Command = simpleCommand{name: "auto_conditioning_start", kind: RequestGeneral}
	StopClimate          Command = simpleCommand{name: "auto_conditioning_stop", kind: RequestGeneral}
	RemoteStart          Command = simpleCommand{name: "remote_start_drive", kind: RequestGeneral}
	ResetValetPIN        Command = simpleCommand{name: "reset_valet_pin", kind: RequestGeneral}
	CancelSoftwareUpdate Command = simpleCommand{name: "cancel_software_update", kind: RequestGeneral}
	MediaTogglePlayback  Command = simpleCommand{name: "media_toggle_playback", kind: RequestGeneral}
	MediaNextTrack       Command = simpleCommand{name: "media_next_track", kind: RequestGeneral}
	MediaPreviousTrack   Command = simpleCommand{name: "media_prev_track", kind: RequestGeneral}
)

// SetChargeLimit sets the charge limit to a custom percentage.
type SetChargeLimit struct {
	// Percent is the charge limit as an integer percentage of full capacity.
	Percent int `json:"percent"`
}

func (SetChargeLimit) Name() string             { return "set_charge_limit" }
func (SetChargeLimit) RequestType() RequestType { return RequestCharging }
func (c SetChargeLimit) Body() interface{}      { return c }

// SetChargingAmps limits the current the vehicle draws while charging.
type SetChargingAmps struct {
	Amps int `json:"charging_amps"`
}

func (SetChargingAmps) Name() string             { return "set_charging_amps" }
func (SetChargingAmps) RequestType() RequestType { return RequestCharging }
func (c SetChargingAmps) Body() interface{}      { return c }

// SetTemperatures sets the driver and passenger climate targets in Celsius.
type SetTemperatures struct {
	DriverTemp    float64 `json:"driver_temp"`
	PassengerTemp float64 `json:"passenger_temp"`
}

func (SetTemperatures) Name() string             { return "set_temps" }
func (SetTemperatures) RequestType() RequestType { return RequestGeneral }
func (c SetTemperatures) Body() interface{}      { return c }

// SetPreconditioningMax toggles max defrost.
type SetPreconditioningMax struct {
	On bool `json:"on"`
}

func (SetPreconditioningMax) Name() string             { return "set_preconditioning_max" }
func (SetPreconditioningMax) RequestType() RequestType { return RequestGeneral }
func (c SetPreconditioningMax) Body() interface{}      { return c }

// ClimateKeeperMode selects the cabin climate behavior while the vehicle is parked.
type ClimateKeeperMode int

const (
	ClimateKeeperOff ClimateKeeperMode = iota
	ClimateKeeperOn
	ClimateKeeperDog
	ClimateKeeperCamp
)

// SetClimateKeeperMode configures Keep Climate, Dog Mode, or Camp Mode.
type SetClimateKeeperMode struct {
	Mode ClimateKeeperMode `json:"climate_keeper_mode"`
}

func (SetClimateKeeperMode) Name() string             { return "set_climate_keeper_mode" }
func (SetClimateKeeperMode) RequestType() RequestType { return RequestGeneral }
func (c SetClimateKeeperMode) Body() interface{}      { return c }

// SetSentryMode enables or disables Sentry Mode.
type SetSentryMode struct {
	On bool `json:"on"`
}

func (SetSentryMode) Name() string             { return "set_sentry_mode" }
func (SetSentryMode) RequestType() RequestType { return RequestGeneral }
func (c SetSentryMode) Body() interface{}      { return c }

// SetValetMode enables or disables valet mode. Password is a four-digit PIN required the first
// time valet mode is activated.
type SetValetMode struct {
	On       bool   `json:"on"`
	Password string `json:"password,omitempty"`
}

func (SetValetMode) Name() string             { return "set_valet_mode" }
func (SetValetMode) RequestType() RequestType { return RequestGeneral }
func (c SetValetMode) Body() interface{}      { return c }

// Trunk identifies which trunk ActuateTrunk operates on.
type Trunk string

const (
	TrunkFront Trunk = "front"
	TrunkRear  Trunk = "rear"
)

// ActuateTrunk opens the front trunk, or opens/closes the rear trunk.
type ActuateTrunk struct {
	Which Trunk `json:"which_trunk"`
}

func (ActuateTrunk) Name() string             { return "actuate_trunk" }
func (ActuateTrunk) RequestType() RequestType { return RequestGeneral }
func (c ActuateTrunk) Body() interface{}      { return c }

// WindowCommand is the action WindowControl performs.
type WindowCommand string

const (
	WindowVent  WindowCommand = "vent"
	WindowClose WindowCommand = "close"
)

// WindowControl vents or closes all windows. Closing requires the caller's location to be near
// the vehicle, so latitude and longitude must be populated for WindowClose.
type WindowControl struct {
	Command WindowCommand `json:"command"`
	Lat     float64       `json:"lat"`
	Lon     float64       `json:"lon"`
}

func (WindowControl) Name() string             { return "window_control" }
func (WindowControl) RequestType() RequestType { return RequestGeneral }
func (c WindowControl) Body() interface{}      { return c }

// SunRoofControl vents or closes the panoramic roof.
type SunRoofControl struct {
	State string `json:"state"`
}

func (SunRoofControl) Name() string             { return "sun_roof_control" }
func (SunRoofControl) RequestType() RequestType { return RequestGeneral }
func (c SunRoofControl) Body() interface{}      { return c }

// TriggerHomelink fires the Homelink transmitter. The coordinates must be near the programmed
// device.
type TriggerHomelink struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (TriggerHomelink) Name() string             { return "trigger_homelink" }
func (TriggerHomelink) RequestType() RequestType { return RequestGeneral }
func (c TriggerHomelink) Body() interface{}      { return c }

// Seat identifies a heated seat position.
type Seat int

const (
	SeatDriver Seat = iota
	SeatPassenger
	SeatRearLeft
	SeatRearCenter Seat = 4
	SeatRearRight  Seat = 5
)

// SetSeatHeater sets one seat's heater level, 0 (off) through 3 (high).
type SetSeatHeater struct {
	Heater Seat `json:"heater"`
	Level  int  `json:"level"`
}

func (SetSeatHeater) Name() string             { return "remote_seat_heater_request" }
func (SetSeatHeater) RequestType() RequestType { return RequestGeneral }
func (c SetSeatHeater) Body() interface{}      { return c }

// SetSteeringWheelHeater turns the steering wheel heater on or off.
type SetSteeringWheelHeater struct {
	On bool `json:"on"`
}

func (SetSteeringWheelHeater) Name() string             { return "remote_steering_wheel_heater_request" }
func (SetSteeringWheelHeater) RequestType() RequestType { return RequestGeneral }
func (c SetSteeringWheelHeater) Body() interface{}      { return c }

// SpeedLimitSet sets the speed limit in miles per hour without activating it.
type SpeedLimitSet struct {
	LimitMph float64 `json:"limit_mph"`
}

func (SpeedLimitSet) Name() string             { return "speed_limit_set_limit" }
func (SpeedLimitSet) RequestType() RequestType { return RequestGeneral }
func (c SpeedLimitSet) Body() interface{}      { return c }

// SpeedLimitActivate enables the configured speed limit. PIN is a four-digit code that must be
// re-entered to deactivate.
type SpeedLimitActivate struct {
	PIN string `json:"pin"`
}

func (SpeedLimitActivate) Name() string             { return "speed_limit_activate" }
func (SpeedLimitActivate) RequestType() RequestType { return RequestGeneral }
func (c SpeedLimitActivate) Body() interface{}      { return c }

// SpeedLimitDeactivate disables the speed limit.
type SpeedLimitDeactivate struct {
	PIN string `json:"pin"`
}

func (SpeedLimitDeactivate) Name() string             { return "speed_limit_deactivate" }
func (SpeedLimitDeactivate) RequestType() RequestType { return RequestGeneral }
func (c SpeedLimitDeactivate) Body() interface{}      { return c }

// SpeedLimitClearPIN removes the speed limit PIN.
type SpeedLimitClearPIN struct {
	PIN string `json:"pin"`
}

func (SpeedLimitClearPIN) Name() string             { return "speed_limit_clear_pin" }
func (SpeedLimitClearPIN) RequestType() RequestType { return RequestGeneral }
func (c SpeedLimitClearPIN) Body() interface{}      { return c }

// ScheduleSoftwareUpdate schedules the pending update to install after the given delay.
type ScheduleSoftwareUpdate struct {
	OffsetSec int `json:"offset_sec"`
}

func (ScheduleSoftwareUpdate) Name() string             { return "schedule_software_update" }
func (ScheduleSoftwareUpdate) RequestType() RequestType { return RequestGeneral }
func (c ScheduleSoftwareUpdate) Body() interface{}      { return c }

// ScheduledCharging sets or clears the daily charging start time. Time is minutes past midnight.
type ScheduledCharging struct {
	Enable bool `json:"enable"`
	Time   int  `json:"time"`
}

func (ScheduledCharging) Name() string             { return "set_scheduled_charging" }
func (ScheduledCharging) RequestType() RequestType { return RequestCharging }
func (c ScheduledCharging) Body() interface{}      { return c }

// NavigationRequest sends a destination to the vehicle's navigation system.
type NavigationRequest struct {
	// Address is a free-form address or place name.
	Address string
	Locale  string
}

type navigationPayload struct {
	Type   string          `json:"type"`
	Value  navigationValue `json:"value"`
	Locale string          `json:"locale"`
}

type navigationValue struct {
	AndroidIntent string `json:"android.intent.extra.TEXT"`
}

func (NavigationRequest) Name() string             { return "navigation_request" }
func (NavigationRequest) RequestType() RequestType { return RequestGeneral }
func (c NavigationRequest) Body() interface{} {
	locale := c.Locale
	if locale == "" {
		locale = "en-US"
	}
	return navigationPayload{
		Type:   "share_ext_content_raw",
		Value:  navigationValue{AndroidIntent: c.Address},
		Locale: locale,
	}
}
