package fleet_test

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/teslamotors/fleet-client/mocks"
	"github.com/teslamotors/fleet-client/pkg/fleet"
)

const baseURL = "https://fleet-api.prd.na.vn.cloud.tesla.com"

func httpmockDecode(req *http.Request, out interface{}) error {
	return json.NewDecoder(req.Body).Decode(out)
}

var _ = Describe("Client", func() {
	var (
		ctrl       *gomock.Controller
		tokens     *mocks.TokenProvider
		httpClient *http.Client
		client     *fleet.Client
		simulator  *fleet.Simulator
		ctx        context.Context
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		tokens = mocks.NewTokenProvider(ctrl)
		httpClient = &http.Client{}
		httpmock.ActivateNonDefault(httpClient)
		simulator = fleet.NewSimulator()
		client = fleet.NewClient(fleet.Config{
			Tokens:    tokens,
			Client:    httpClient,
			Simulator: simulator,
		})
		ctx = context.Background()
		DeferCleanup(func() {
			httpmock.DeactivateAndReset()
			ctrl.Finish()
		})
	})

	expectLive := func() {
		tokens.EXPECT().BearerToken(gomock.Any()).Return("live-token", nil).AnyTimes()
		tokens.EXPECT().APIBaseURL().Return(baseURL).AnyTimes()
	}

	demoVehicle := func() *fleet.Vehicle {
		vehicles := simulator.Vehicles()
		return &vehicles[0]
	}

	Context("vehicle data", func() {
		It("decodes the response envelope", func() {
			expectLive()
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/api/1/vehicles/42/vehicle_data",
				httpmock.NewStringResponder(http.StatusOK,
					`{"response": {"id": 42, "vin": "5YJ3E1EA7JF000001", "state": "online", "charge_state": {"battery_level": 72}}}`))

			car := &fleet.Vehicle{ID: 42, VIN: "5YJ3E1EA7JF000001"}
			data, err := client.VehicleData(ctx, car)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.VIN).To(Equal("5YJ3E1EA7JF000001"))
			Expect(data.ChargeState).NotTo(BeNil())
			Expect(data.ChargeState.BatteryLevel).To(Equal(72))
		})

		It("narrows the request with the endpoints parameter", func() {
			expectLive()
			httpmock.RegisterResponderWithQuery(http.MethodGet, baseURL+"/api/1/vehicles/42/vehicle_data",
				map[string]string{"endpoints": "charge_state;drive_state"},
				httpmock.NewStringResponder(http.StatusOK, `{"response": {"id": 42}}`))

			car := &fleet.Vehicle{ID: 42}
			_, err := client.VehicleData(ctx, car, "charge_state", "drive_state")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("wake up", func() {
		It("returns the reported state without a vehicle record", func() {
			expectLive()
			httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/1/vehicles/42/wake_up",
				httpmock.NewStringResponder(http.StatusOK, `{"response": {"id": 42, "state": "asleep"}}`))

			state, err := client.WakeUp(ctx, &fleet.Vehicle{ID: 42})
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal("asleep"))
		})
	})

	Context("commands", func() {
		It("posts the payload and decodes the result", func() {
			expectLive()
			httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/1/vehicles/42/command/set_charge_limit",
				func(req *http.Request) (*http.Response, error) {
					Expect(req.Header.Get("Authorization")).To(Equal("Bearer live-token"))
					var body map[string]int
					Expect(httpmockDecode(req, &body)).To(Succeed())
					Expect(body).To(HaveKeyWithValue("percent", 90))
					return httpmock.NewStringResponse(http.StatusOK, `{"response": {"result": true, "reason": ""}}`), nil
				})

			response, err := client.SendCommand(ctx, &fleet.Vehicle{ID: 42}, fleet.SetChargeLimit{Percent: 90})
			Expect(err).NotTo(HaveOccurred())
			Expect(response.Result).To(BeTrue())
		})

		It("surfaces vehicle refusals without an error", func() {
			expectLive()
			httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/1/vehicles/42/command/charge_start",
				httpmock.NewStringResponder(http.StatusOK, `{"response": {"result": false, "reason": "disconnected"}}`))

			response, err := client.SendCommand(ctx, &fleet.Vehicle{ID: 42}, fleet.StartCharging)
			Expect(err).NotTo(HaveOccurred())
			Expect(response.Result).To(BeFalse())
			Expect(response.Reason).To(Equal("disconnected"))
		})
	})

	Context("region", func() {
		It("refuses requests until the region is resolved", func() {
			tokens.EXPECT().BearerToken(gomock.Any()).Return("live-token", nil)
			tokens.EXPECT().APIBaseURL().Return("")

			_, err := client.User(ctx)
			Expect(err).To(MatchError(fleet.ErrRegionUnresolved))
			Expect(httpmock.GetTotalCallCount()).To(BeZero())
		})
	})

	Context("demo vehicle", func() {
		It("answers data requests without network traffic", func() {
			tokens.EXPECT().BearerToken(gomock.Any()).Times(0)

			data, err := client.VehicleData(ctx, demoVehicle())
			Expect(err).NotTo(HaveOccurred())
			Expect(data.VIN).To(Equal(fleet.DemoVIN))
			Expect(data.ChargeState.BatteryLevel).To(Equal(50))
			Expect(data.VehicleState.Locked).To(BeTrue())
			Expect(httpmock.GetTotalCallCount()).To(BeZero())
		})

		It("applies commands to the simulated state", func() {
			tokens.EXPECT().BearerToken(gomock.Any()).Times(0)

			car := demoVehicle()
			response, err := client.SendCommand(ctx, car, fleet.UnlockDoors)
			Expect(err).NotTo(HaveOccurred())
			Expect(response.Result).To(BeTrue())

			data, err := client.VehicleData(ctx, car)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.VehicleState.Locked).To(BeFalse())
			Expect(httpmock.GetTotalCallCount()).To(BeZero())
		})

		It("wakes instantly", func() {
			state, err := client.WakeUp(ctx, demoVehicle())
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal("online"))
		})
	})
})
