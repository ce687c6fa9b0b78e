package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/teslamotors/fleet-client/pkg/fleet"
	"github.com/teslamotors/fleet-client/pkg/oauth"
	"github.com/teslamotors/fleet-client/pkg/stream"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrCommandLineArgs = errors.New("invalid command line arguments")
)

type Argument struct {
	name string
	help string
}

type Handler func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error

type Command struct {
	help            string
	requiresVehicle bool // True if the command operates on a specific vehicle (requires a VIN)
	args            []Argument
	optional        []Argument
	handler         Handler
}

func GetDegree(degStr string) (float64, error) {
	deg, err := strconv.ParseFloat(degStr, 64)
	if err != nil {
		return 0.0, err
	}
	if deg < -180 || deg > 180 {
		return 0.0, errors.New("latitude and longitude must both be in the range [-180, 180]")
	}
	return deg, nil
}

func GetPercent(percentStr string) (int, error) {
	percent, err := strconv.Atoi(percentStr)
	if err != nil {
		return 0, err
	}
	if percent < 0 || percent > 100 {
		return 0, errors.New("percent must be in the range [0, 100]")
	}
	return percent, nil
}

func getOnOff(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true":
		return true, nil
	case "off", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected 'on' or 'off', got %q", value)
}

func printJSON(v interface{}) error {
	blob, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(blob))
	return nil
}

// sendCommand posts cmd and reports a vehicle-side refusal as an error.
func sendCommand(ctx context.Context, client *fleet.Client, car *fleet.Vehicle, cmd fleet.Command) error {
	response, err := client.SendCommand(ctx, car, cmd)
	if err != nil {
		return err
	}
	if !response.Result {
		return fmt.Errorf("vehicle refused command: %s", response.Reason)
	}
	return nil
}

func execute(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args []string) error {
	if len(args) == 0 {
		return ErrCommandLineArgs
	}
	info, ok := commands[args[0]]
	if !ok {
		return ErrUnknownCommand
	}
	name := args[0]
	args = args[1:]
	if len(args) < len(info.args) || len(args) > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command arguments. Usage:")
		printCommandUsage(name, info)
		return ErrCommandLineArgs
	}
	if info.requiresVehicle && car == nil {
		return fmt.Errorf("command %q requires a vehicle; provide a VIN with -vin or $TESLA_VIN", name)
	}
	keywords := make(map[string]string)
	for i, arg := range info.args {
		keywords[arg.name] = args[i]
	}
	for i := len(info.args); i < len(args); i++ {
		keywords[info.optional[i-len(info.args)].name] = args[i]
	}
	return info.handler(ctx, acct, client, car, keywords)
}

func printCommandUsage(name string, info *Command) {
	parts := []string{name}
	for _, arg := range info.args {
		parts = append(parts, arg.name)
	}
	for _, arg := range info.optional {
		parts = append(parts, "["+arg.name+"]")
	}
	fmt.Printf("  %s\n", strings.Join(parts, " "))
	for _, arg := range append(append([]Argument{}, info.args...), info.optional...) {
		fmt.Printf("      %s: %s\n", arg.name, arg.help)
	}
}

var commands = map[string]*Command{
	"vehicles": {
		help: "List vehicles on the account",
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			vehicles, err := client.Vehicles(ctx)
			if err != nil {
				return err
			}
			for _, v := range vehicles {
				fmt.Printf("%s\t%s\t%s\n", v.VIN, v.State, v.DisplayName)
			}
			return nil
		},
	},
	"products": {
		help: "List all products on the account, including energy sites",
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			products, err := client.Products(ctx)
			if err != nil {
				return err
			}
			return printJSON(products)
		},
	},
	"user": {
		help: "Show the logged-in account's profile",
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			user, err := client.User(ctx)
			if err != nil {
				return err
			}
			return printJSON(user)
		},
	},
	"data": {
		help:            "Fetch vehicle state",
		requiresVehicle: true,
		optional:        []Argument{{name: "STATES", help: "Semicolon-separated state categories (e.g. charge_state;drive_state)"}},
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			var states []string
			if list := args["STATES"]; list != "" {
				states = strings.Split(list, ";")
			}
			data, err := client.VehicleData(ctx, car, states...)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	},
	"wake": {
		help:            "Wake the vehicle and report its state",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			state, err := client.WakeUp(ctx, car)
			if err != nil {
				return err
			}
			fmt.Println(state)
			return nil
		},
	},
	"mobile-enabled": {
		help:            "Report whether the vehicle allows mobile access",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			enabled, err := client.MobileEnabled(ctx, car)
			if err != nil {
				return err
			}
			fmt.Println(enabled)
			return nil
		},
	},
	"lock": {
		help:            "Lock the doors",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.LockDoors)
		},
	},
	"unlock": {
		help:            "Unlock the doors",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.UnlockDoors)
		},
	},
	"flash": {
		help:            "Flash the headlights",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.FlashLights)
		},
	},
	"honk": {
		help:            "Honk the horn",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.HonkHorn)
		},
	},
	"charging-start": {
		help:            "Start charging",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.StartCharging)
		},
	},
	"charging-stop": {
		help:            "Stop charging",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.StopCharging)
		},
	},
	"charging-set-limit": {
		help:            "Set the charge limit",
		requiresVehicle: true,
		args:            []Argument{{name: "PERCENT", help: "Charge limit as percent of full capacity"}},
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			percent, err := GetPercent(args["PERCENT"])
			if err != nil {
				return err
			}
			return sendCommand(ctx, client, car, fleet.SetChargeLimit{Percent: percent})
		},
	},
	"charging-set-amps": {
		help:            "Set the charging current",
		requiresVehicle: true,
		args:            []Argument{{name: "AMPS", help: "Charging current in amps"}},
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			amps, err := strconv.Atoi(args["AMPS"])
			if err != nil {
				return err
			}
			return sendCommand(ctx, client, car, fleet.SetChargingAmps{Amps: amps})
		},
	},
	"charge-port-open": {
		help:            "Open the charge port",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.OpenChargePort)
		},
	},
	"charge-port-close": {
		help:            "Close the charge port",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.CloseChargePort)
		},
	},
	"climate-on": {
		help:            "Turn on the climate system",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.StartClimate)
		},
	},
	"climate-off": {
		help:            "Turn off the climate system",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.StopClimate)
		},
	},
	"climate-set-temp": {
		help:            "Set the cabin temperature",
		requiresVehicle: true,
		args:            []Argument{{name: "TEMP", help: "Temperature in degrees Celsius"}},
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			temp, err := strconv.ParseFloat(args["TEMP"], 64)
			if err != nil {
				return err
			}
			return sendCommand(ctx, client, car, fleet.SetTemperatures{DriverTemp: temp, PassengerTemp: temp})
		},
	},
	"sentry-mode": {
		help:            "Enable or disable Sentry Mode",
		requiresVehicle: true,
		args:            []Argument{{name: "STATE", help: "'on' or 'off'"}},
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			on, err := getOnOff(args["STATE"])
			if err != nil {
				return err
			}
			return sendCommand(ctx, client, car, fleet.SetSentryMode{On: on})
		},
	},
	"media-toggle": {
		help:            "Toggle media playback",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.MediaTogglePlayback)
		},
	},
	"valet-mode": {
		help:            "Enable or disable valet mode",
		requiresVehicle: true,
		args:            []Argument{{name: "STATE", help: "'on' or 'off'"}},
		optional:        []Argument{{name: "PIN", help: "Four-digit PIN"}},
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			on, err := getOnOff(args["STATE"])
			if err != nil {
				return err
			}
			return sendCommand(ctx, client, car, fleet.SetValetMode{On: on, Password: args["PIN"]})
		},
	},
	"trunk": {
		help:            "Open the trunk (or close it, on supported vehicles)",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.ActuateTrunk{Which: fleet.TrunkRear})
		},
	},
	"frunk": {
		help:            "Open the front trunk",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.ActuateTrunk{Which: fleet.TrunkFront})
		},
	},
	"windows-vent": {
		help:            "Vent all windows",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.WindowControl{Command: fleet.WindowVent})
		},
	},
	"windows-close": {
		help:            "Close all windows",
		requiresVehicle: true,
		args: []Argument{
			{name: "LAT", help: "Current latitude"},
			{name: "LNG", help: "Current longitude"},
		},
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			lat, err := GetDegree(args["LAT"])
			if err != nil {
				return err
			}
			lng, err := GetDegree(args["LNG"])
			if err != nil {
				return err
			}
			return sendCommand(ctx, client, car, fleet.WindowControl{Command: fleet.WindowClose, Lat: lat, Lon: lng})
		},
	},
	"homelink": {
		help:            "Trigger the Homelink transmitter",
		requiresVehicle: true,
		args: []Argument{
			{name: "LAT", help: "Current latitude"},
			{name: "LNG", help: "Current longitude"},
		},
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			lat, err := GetDegree(args["LAT"])
			if err != nil {
				return err
			}
			lng, err := GetDegree(args["LNG"])
			if err != nil {
				return err
			}
			return sendCommand(ctx, client, car, fleet.TriggerHomelink{Lat: lat, Lon: lng})
		},
	},
	"navigate": {
		help:            "Send a destination to the vehicle's navigation system",
		requiresVehicle: true,
		args:            []Argument{{name: "ADDRESS", help: "Destination address or place name"}},
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			return sendCommand(ctx, client, car, fleet.NavigationRequest{Address: args["ADDRESS"]})
		},
	},
	"alerts": {
		help:            "Show the vehicle's recent alert log",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			alerts, err := client.RecentAlerts(ctx, car)
			if err != nil {
				return err
			}
			return printJSON(alerts)
		},
	},
	"chargers": {
		help:            "List charging sites near the vehicle",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			sites, err := client.NearbyChargingSites(ctx, car)
			if err != nil {
				return err
			}
			for _, sc := range sites.Superchargers {
				fmt.Printf("%s\t%.1f mi\t%d/%d stalls\n", sc.Name, sc.DistanceMiles, sc.AvailableStalls, sc.TotalStalls)
			}
			return nil
		},
	},
	"charging-history": {
		help:            "Show the vehicle's charging history",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			sessions, err := client.ChargingHistory(ctx, car.VIN)
			if err != nil {
				return err
			}
			return printJSON(sessions)
		},
	},
	"options": {
		help:            "Decode the vehicle's factory option codes",
		requiresVehicle: true,
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			codes, err := client.OptionCodes(ctx, car.VIN)
			if err != nil {
				return err
			}
			for _, code := range codes {
				fmt.Printf("%s\t%s\n", code.Code, code.DisplayName)
			}
			return nil
		},
	},
	"stream": {
		help:            "Print live telemetry until interrupted",
		requiresVehicle: true,
		handler:         streamTelemetry,
	},
	"region": {
		help: "Show the account's Fleet API region",
		handler: func(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
			region, err := acct.ResolveRegion(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", region.Region, region.FleetAPIBaseURL)
			return nil
		},
	},
}

func streamTelemetry(ctx context.Context, acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args map[string]string) error {
	token := ""
	demo := car.VIN == fleet.DemoVIN
	if !demo {
		var err error
		token, err = acct.BearerToken(ctx)
		if err != nil {
			return err
		}
	}
	s := stream.New(stream.Config{
		VehicleID:   car.VehicleID,
		AccessToken: token,
		Demo:        demo,
	})
	done := make(chan struct{})
	err := s.Open(ctx, func(e stream.Event) {
		switch {
		case e.Disconnected:
			close(done)
		case e.Err != nil:
			writeErr("Stream error: %s", e.Err)
		case e.Sample != nil:
			fmt.Printf("%s speed=%.0f odometer=%.1f soc=%d%% shift=%s power=%.0f kW\n",
				e.Sample.Timestamp.Format("15:04:05"), e.Sample.Speed, e.Sample.Odometer,
				e.Sample.SOC, e.Sample.ShiftState, e.Sample.Power)
		}
	})
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		s.Close()
		<-done
	case <-done:
	}
	return nil
}
