package fleet

import (
	"sync"
	"time"
)

// DemoVIN marks a vehicle as simulated. A client created with a Simulator answers requests for
// this VIN locally and never touches the network.
const DemoVIN = "VIN#DEMO_#TESTING"

const demoVehicleID = 1234567890

// Simulator holds the in-memory state of the demo vehicle. It is safe for concurrent use. Create
// one per client; there is no shared global instance.
type Simulator struct {
	mu      sync.Mutex
	vehicle Vehicle
}

// NewSimulator returns a simulator seeded with a plausible Model 3 parked in the Engadin.
func NewSimulator() *Simulator {
	now := Timestamp{time.Now()}
	return &Simulator{
		vehicle: Vehicle{
			ID:          demoVehicleID,
			VehicleID:   demoVehicleID,
			VIN:         DemoVIN,
			DisplayName: "My Tesla Model 3",
			State:       "online",
			ChargeState: &ChargeState{
				BatteryLevel:       50,
				UsableBatteryLevel: 50,
				BatteryRange:       180,
				EstBatteryRange:    180,
				ChargeLimitSoc:     80,
				ChargeLimitSocMin:  50,
				ChargeLimitSocMax:  100,
				ChargeLimitSocStd:  90,
				ChargingState:      "Disconnected",
				ChargePortLatch:    "Engaged",
				ChargeAmps:         16,
				Timestamp:          now,
			},
			ClimateState: &ClimateState{
				InsideTemp:           18.5,
				OutsideTemp:          12.0,
				DriverTempSetting:    21.0,
				PassengerTempSetting: 21.0,
				MinAvailTemp:         15.0,
				MaxAvailTemp:         28.0,
				Timestamp:            now,
			},
			DriveState: &DriveState{
				Latitude:  46.49699,
				Longitude: 9.84191,
				Heading:   194,
				Timestamp: now,
			},
			GUISettings: &GUISettings{
				GuiChargeRateUnits:  "km/hr",
				GuiDistanceUnits:    "km/hr",
				GuiRangeDisplay:     "Rated",
				GuiTemperatureUnits: "C",
				Timestamp:           now,
			},
			VehicleState: &VehicleState{
				CarVersion:          "2024.20.1",
				Locked:              true,
				SentryModeAvailable: true,
				Odometer:            22340.5,
				VehicleName:         "My Tesla Model 3",
				Timestamp:           now,
			},
			VehicleConfig: &VehicleConfig{
				CarType:       "model3",
				ExteriorColor: "DeepBlue",
				WheelType:     "Pinwheel18",
				Timestamp:     now,
			},
		},
	}
}

// Vehicles lists the simulator's single vehicle, without nested state, mirroring the account-level
// listing.
func (s *Simulator) Vehicles() []Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := s.vehicle
	summary.ChargeState = nil
	summary.ClimateState = nil
	summary.DriveState = nil
	summary.GUISettings = nil
	summary.VehicleState = nil
	summary.VehicleConfig = nil
	return []Vehicle{summary}
}

// VehicleData returns a deep copy of the simulated vehicle. Mutating the copy does not affect the
// simulator.
func (s *Simulator) VehicleData() Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Simulator) snapshot() Vehicle {
	v := s.vehicle
	charge := *v.ChargeState
	climate := *v.ClimateState
	drive := *v.DriveState
	gui := *v.GUISettings
	state := *v.VehicleState
	config := *v.VehicleConfig
	v.ChargeState = &charge
	v.ClimateState = &climate
	v.DriveState = &drive
	v.GUISettings = &gui
	v.VehicleState = &state
	v.VehicleConfig = &config
	return v
}

// WakeUp reports the simulated vehicle's state, which is always online.
func (s *Simulator) WakeUp() string {
	return "online"
}

// Apply executes a command against the simulated state. Commands the simulator does not model
// still succeed; they just have no observable effect.
func (s *Simulator) Apply(cmd Command) CommandResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := Timestamp{time.Now()}
	switch c := cmd.(type) {
	case SetChargeLimit:
		if c.Percent < s.vehicle.ChargeState.ChargeLimitSocMin || c.Percent > s.vehicle.ChargeState.ChargeLimitSocMax {
			return CommandResponse{Result: false, Reason: "invalid charge limit"}
		}
		s.vehicle.ChargeState.ChargeLimitSoc = c.Percent
	case SetChargingAmps:
		s.vehicle.ChargeState.ChargeAmps = c.Amps
	case SetTemperatures:
		s.vehicle.ClimateState.DriverTempSetting = c.DriverTemp
		s.vehicle.ClimateState.PassengerTempSetting = c.PassengerTemp
	case SetSentryMode:
		s.vehicle.VehicleState.SentryMode = c.On
	case SetValetMode:
		s.vehicle.VehicleState.ValetMode = c.On
	case SetSeatHeater:
		s.applySeatHeater(c)
	case SetSteeringWheelHeater:
		s.vehicle.ClimateState.SteeringWheelHeater = c.On
	default:
		switch cmd {
		case LockDoors:
			s.vehicle.VehicleState.Locked = true
		case UnlockDoors:
			s.vehicle.VehicleState.Locked = false
		case StartClimate:
			s.vehicle.ClimateState.IsClimateOn = true
			s.vehicle.ClimateState.IsAutoConditioningOn = true
		case StopClimate:
			s.vehicle.ClimateState.IsClimateOn = false
			s.vehicle.ClimateState.IsAutoConditioningOn = false
		case OpenChargePort:
			s.vehicle.ChargeState.ChargePortDoorOpen = true
		case CloseChargePort:
			s.vehicle.ChargeState.ChargePortDoorOpen = false
		case StartCharging:
			if !s.vehicle.ChargeState.ChargePortDoorOpen {
				return CommandResponse{Result: false, Reason: "disconnected"}
			}
			s.vehicle.ChargeState.ChargingState = "Charging"
		case StopCharging:
			s.vehicle.ChargeState.ChargingState = "Stopped"
		case ChargeStandard:
			s.vehicle.ChargeState.ChargeLimitSoc = s.vehicle.ChargeState.ChargeLimitSocStd
		case ChargeMaxRange:
			s.vehicle.ChargeState.ChargeLimitSoc = s.vehicle.ChargeState.ChargeLimitSocMax
		}
	}

	s.vehicle.ChargeState.Timestamp = now
	s.vehicle.ClimateState.Timestamp = now
	s.vehicle.VehicleState.Timestamp = now
	return CommandResponse{Result: true}
}

func (s *Simulator) applySeatHeater(c SetSeatHeater) {
	switch c.Heater {
	case SeatDriver:
		s.vehicle.ClimateState.SeatHeaterLeft = c.Level
	case SeatPassenger:
		s.vehicle.ClimateState.SeatHeaterRight = c.Level
	case SeatRearLeft:
		s.vehicle.ClimateState.SeatHeaterRearLeft = c.Level
	case SeatRearCenter:
		s.vehicle.ClimateState.SeatHeaterRearCenter = c.Level
	case SeatRearRight:
		s.vehicle.ClimateState.SeatHeaterRearRight = c.Level
	}
}
