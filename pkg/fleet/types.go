package fleet

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DefaultUserAgent identifies this library in requests when the application does not override it.
const DefaultUserAgent = "tesla-fleet-client/1.0"

// Response wraps a single resource returned by the REST API.
type Response[T any] struct {
	Response T `json:"response"`
}

// ListResponse wraps a collection returned by the REST API.
type ListResponse[T any] struct {
	Response []T    `json:"response"`
	Count    int    `json:"count"`
	Error    string `json:"error,omitempty"`
}

// Timestamp decodes timestamps the API serves in two shapes: epoch numbers (seconds or
// milliseconds) and ISO-8601 strings.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			// Charging history omits the zone designator.
			parsed, err = time.Parse("2006-01-02T15:04:05", s)
			if err != nil {
				return fmt.Errorf("unrecognized timestamp %q", s)
			}
		}
		t.Time = parsed
		return nil
	}
	epoch, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("unrecognized timestamp %s", data)
	}
	if epoch > 1e12 {
		t.Time = time.UnixMilli(epoch)
	} else {
		t.Time = time.Unix(epoch, 0)
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339))
}

// Vehicle is the account-level summary of a vehicle, optionally populated with the nested state
// objects when fetched through VehicleData.
type Vehicle struct {
	ID          int64    `json:"id"`
	VehicleID   int64    `json:"vehicle_id"`
	VIN         string   `json:"vin"`
	DisplayName string   `json:"display_name"`
	State       string   `json:"state"`
	InService   bool     `json:"in_service"`
	APIVersion  int      `json:"api_version,omitempty"`
	Tokens      []string `json:"tokens,omitempty"`

	ChargeState   *ChargeState   `json:"charge_state,omitempty"`
	ClimateState  *ClimateState  `json:"climate_state,omitempty"`
	DriveState    *DriveState    `json:"drive_state,omitempty"`
	GUISettings   *GUISettings   `json:"gui_settings,omitempty"`
	VehicleState  *VehicleState  `json:"vehicle_state,omitempty"`
	VehicleConfig *VehicleConfig `json:"vehicle_config,omitempty"`
}

// Tag returns the identifier used in endpoint paths for this vehicle.
func (v *Vehicle) Tag() string {
	return strconv.FormatInt(v.ID, 10)
}

type ChargeState struct {
	BatteryLevel            int     `json:"battery_level"`
	UsableBatteryLevel      int     `json:"usable_battery_level"`
	BatteryRange            float64 `json:"battery_range"`
	EstBatteryRange         float64 `json:"est_battery_range"`
	IdealBatteryRange       float64 `json:"ideal_battery_range"`
	ChargeLimitSoc          int     `json:"charge_limit_soc"`
	ChargeLimitSocMin       int     `json:"charge_limit_soc_min"`
	ChargeLimitSocMax       int     `json:"charge_limit_soc_max"`
	ChargeLimitSocStd       int     `json:"charge_limit_soc_std"`
	ChargingState           string  `json:"charging_state"`
	ChargePortDoorOpen      bool    `json:"charge_port_door_open"`
	ChargePortLatch         string  `json:"charge_port_latch"`
	ChargeRate              float64 `json:"charge_rate"`
	ChargerPower            int     `json:"charger_power"`
	ChargerVoltage          int     `json:"charger_voltage"`
	ChargerActualCurrent    int     `json:"charger_actual_current"`
	ChargeCurrentRequest    int     `json:"charge_current_request"`
	ChargeCurrentRequestMax int     `json:"charge_current_request_max"`
	ChargeAmps              int     `json:"charge_amps"`
	TimeToFullCharge        float64 `json:"time_to_full_charge"`
	MinutesToFullCharge     int     `json:"minutes_to_full_charge"`
	ScheduledChargingPending bool   `json:"scheduled_charging_pending"`
	ScheduledChargingStartTime *Timestamp `json:"scheduled_charging_start_time,omitempty"`
	ChargeEnergyAdded       float64 `json:"charge_energy_added"`
	ChargeMilesAddedRated   float64 `json:"charge_miles_added_rated"`
	Timestamp               Timestamp `json:"timestamp"`
}

type ClimateState struct {
	InsideTemp              float64 `json:"inside_temp"`
	OutsideTemp             float64 `json:"outside_temp"`
	DriverTempSetting       float64 `json:"driver_temp_setting"`
	PassengerTempSetting    float64 `json:"passenger_temp_setting"`
	IsClimateOn             bool    `json:"is_climate_on"`
	IsAutoConditioningOn    bool    `json:"is_auto_conditioning_on"`
	IsPreconditioning       bool    `json:"is_preconditioning"`
	IsFrontDefrosterOn      bool    `json:"is_front_defroster_on"`
	IsRearDefrosterOn       bool    `json:"is_rear_defroster_on"`
	MinAvailTemp            float64 `json:"min_avail_temp"`
	MaxAvailTemp            float64 `json:"max_avail_temp"`
	SeatHeaterLeft          int     `json:"seat_heater_left"`
	SeatHeaterRight         int     `json:"seat_heater_right"`
	SeatHeaterRearLeft      int     `json:"seat_heater_rear_left"`
	SeatHeaterRearCenter    int     `json:"seat_heater_rear_center"`
	SeatHeaterRearRight     int     `json:"seat_heater_rear_right"`
	SteeringWheelHeater     bool    `json:"steering_wheel_heater"`
	FanStatus               int     `json:"fan_status"`
	Timestamp               Timestamp `json:"timestamp"`
}

type DriveState struct {
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	Heading           int       `json:"heading"`
	GpsAsOf           int64     `json:"gps_as_of"`
	Power             int       `json:"power"`
	ShiftState        string    `json:"shift_state"`
	Speed             float64   `json:"speed"`
	NativeLatitude    float64   `json:"native_latitude"`
	NativeLongitude   float64   `json:"native_longitude"`
	NativeLocationSupported int `json:"native_location_supported"`
	Timestamp         Timestamp `json:"timestamp"`
}

type GUISettings struct {
	Gui24HourTime       bool      `json:"gui_24_hour_time"`
	GuiChargeRateUnits  string    `json:"gui_charge_rate_units"`
	GuiDistanceUnits    string    `json:"gui_distance_units"`
	GuiRangeDisplay     string    `json:"gui_range_display"`
	GuiTemperatureUnits string    `json:"gui_temperature_units"`
	Timestamp           Timestamp `json:"timestamp"`
}

type VehicleState struct {
	APIVersion          int     `json:"api_version"`
	CarVersion          string  `json:"car_version"`
	Locked              bool    `json:"locked"`
	SentryMode          bool    `json:"sentry_mode"`
	SentryModeAvailable bool    `json:"sentry_mode_available"`
	ValetMode           bool    `json:"valet_mode"`
	Odometer            float64 `json:"odometer"`
	VehicleName         string  `json:"vehicle_name"`
	DriverFrontDoor     int     `json:"df"`
	DriverRearDoor      int     `json:"dr"`
	PassengerFrontDoor  int     `json:"pf"`
	PassengerRearDoor   int     `json:"pr"`
	FrontTrunk          int     `json:"ft"`
	RearTrunk           int     `json:"rt"`
	FdWindow            int     `json:"fd_window"`
	FpWindow            int     `json:"fp_window"`
	RdWindow            int     `json:"rd_window"`
	RpWindow            int     `json:"rp_window"`
	IsUserPresent       bool    `json:"is_user_present"`
	HomelinkNearby      bool    `json:"homelink_nearby"`
	SoftwareUpdate      *SoftwareUpdate `json:"software_update,omitempty"`
	SpeedLimitMode      *SpeedLimitMode `json:"speed_limit_mode,omitempty"`
	Timestamp           Timestamp `json:"timestamp"`
}

type SoftwareUpdate struct {
	DownloadPercent     int    `json:"download_perc"`
	InstallPercent      int    `json:"install_perc"`
	Status              string `json:"status"`
	Version             string `json:"version"`
	ExpectedDurationSec int    `json:"expected_duration_sec"`
}

type SpeedLimitMode struct {
	Active          bool    `json:"active"`
	CurrentLimitMph float64 `json:"current_limit_mph"`
	MaxLimitMph     float64 `json:"max_limit_mph"`
	MinLimitMph     float64 `json:"min_limit_mph"`
	PinCodeSet      bool    `json:"pin_code_set"`
}

type VehicleConfig struct {
	CarType            string    `json:"car_type"`
	CarSpecialType     string    `json:"car_special_type"`
	ExteriorColor      string    `json:"exterior_color"`
	WheelType          string    `json:"wheel_type"`
	TrimBadging        string    `json:"trim_badging"`
	HasAirSuspension   bool      `json:"has_air_suspension"`
	HasLudicrousMode   bool      `json:"has_ludicrous_mode"`
	MotorizedChargePort bool     `json:"motorized_charge_port"`
	PlgSupported       bool      `json:"plg"`
	RearSeatHeaters    int       `json:"rear_seat_heaters"`
	CanAcceptNavigationRequests bool `json:"can_accept_navigation_requests"`
	Timestamp          Timestamp `json:"timestamp"`
}

// Product is an entry from the products listing, which mixes vehicles with energy sites. Entries
// with a VIN are vehicles.
type Product struct {
	ID           json.Number `json:"id"`
	VIN          string      `json:"vin,omitempty"`
	DisplayName  string      `json:"display_name,omitempty"`
	State        string      `json:"state,omitempty"`
	EnergySiteID int64       `json:"energy_site_id,omitempty"`
	SiteName     string      `json:"site_name,omitempty"`
	ResourceType string      `json:"resource_type,omitempty"`
}

// CommandResponse reports whether the vehicle accepted a command.
type CommandResponse struct {
	Result bool   `json:"result"`
	Reason string `json:"reason"`
}

// User describes the authenticated account.
type User struct {
	Email           string `json:"email"`
	FullName        string `json:"full_name"`
	ProfileImageURL string `json:"profile_image_url"`
	VaultUUID       string `json:"vault_uuid"`
}

// RegionInfo is the server's answer to the region lookup, naming the Fleet API host that serves
// the account.
type RegionInfo struct {
	Region          string `json:"region"`
	FleetAPIBaseURL string `json:"fleet_api_base_url"`
}

// VehicleAlert is one entry from the vehicle's recent alert log.
type VehicleAlert struct {
	Name      string    `json:"name"`
	Time      Timestamp `json:"time"`
	Audience  []string  `json:"audience"`
	UserText  string    `json:"user_text"`
}

type recentAlertsResponse struct {
	RecentAlerts []VehicleAlert `json:"recent_alerts"`
}

// ChargingSites lists Superchargers and destination chargers near the vehicle.
type ChargingSites struct {
	CongestionSyncTimeUTCSecs int64                `json:"congestion_sync_time_utc_secs"`
	DestinationCharging       []DestinationCharger `json:"destination_charging"`
	Superchargers             []Supercharger       `json:"superchargers"`
	Timestamp                 Timestamp            `json:"timestamp"`
}

type ChargerLocation struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

type DestinationCharger struct {
	Location      ChargerLocation `json:"location"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	DistanceMiles float64         `json:"distance_miles"`
}

type Supercharger struct {
	Location        ChargerLocation `json:"location"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	DistanceMiles   float64         `json:"distance_miles"`
	AvailableStalls int             `json:"available_stalls"`
	TotalStalls     int             `json:"total_stalls"`
	SiteClosed      bool            `json:"site_closed"`
}

// ChargingSession is one entry of the account's charging history.
type ChargingSession struct {
	SessionID         int64     `json:"sessionId"`
	VIN               string    `json:"vin"`
	SiteLocationName  string    `json:"siteLocationName"`
	ChargeStartDateTime Timestamp `json:"chargeStartDateTime"`
	ChargeStopDateTime  Timestamp `json:"chargeStopDateTime"`
	UnlatchDateTime     Timestamp `json:"unlatchDateTime"`
	CountryCode       string    `json:"countryCode"`
	Fees              []ChargingFee `json:"fees"`
}

type ChargingFee struct {
	FeeType     string  `json:"feeType"`
	CurrencyCode string `json:"currencyCode"`
	PricingType string  `json:"pricingType"`
	RateBase    float64 `json:"rateBase"`
	UsageBase   float64 `json:"usageBase"`
	TotalDue    float64 `json:"totalDue"`
	Uom         string  `json:"uom"`
}

type chargingHistoryResponse struct {
	Data       []ChargingSession `json:"data"`
	TotalResults int             `json:"totalResults"`
}

// OptionCode pairs a factory option code with its human-readable meaning.
type OptionCode struct {
	Code        string `json:"code"`
	DisplayName string `json:"name"`
	Description string `json:"description"`
}

type optionCodesResponse struct {
	Codes []OptionCode `json:"codes"`
}

// TripPlanRequest asks the trip planner for a charging-aware route.
type TripPlanRequest struct {
	CarTrim         string  `json:"car_trim"`
	CarType         string  `json:"car_type"`
	DestinationLat  float64 `json:"destination"`
	DestinationLong float64 `json:"destination_long"`
	OriginLat       float64 `json:"origin"`
	OriginLong      float64 `json:"origin_long"`
	OriginSOE       float64 `json:"origin_soe"`
	VIN             string  `json:"vin"`
}

// TripPlan is the planner's proposed route with charging stops.
type TripPlan struct {
	Status            string         `json:"status"`
	TotalDriveTimeMin float64        `json:"total_drive_time_min"`
	TotalChargeTimeMin float64       `json:"total_charge_time_min"`
	Stops             []TripPlanStop `json:"charging_stops"`
}

type TripPlanStop struct {
	Name          string  `json:"name"`
	Lat           float64 `json:"lat"`
	Long          float64 `json:"long"`
	ChargeTimeMin float64 `json:"charge_time_min"`
	ArrivalSOE    float64 `json:"arrival_soe"`
	DepartureSOE  float64 `json:"departure_soe"`
}
