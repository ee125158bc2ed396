package api

import (
	"context"
	"net/http"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tdsapp/tdsclient/pkg/session"
)

const baseURL = "http://backend.example/api"

func authedSession() *session.Session {
	sess := session.New(nil)
	sess.SetAuthPayload(session.LoginPayload{
		UserID:     "user-1",
		JWT:        session.JWT{Token: "test-jwt", ExpiresIn: 3600, Issuer: "tds-server"},
		TeslaToken: session.TeslaToken{AccessToken: "tesla-access", RefreshToken: "tesla-refresh", ExpiresIn: 28800},
	})
	return sess
}

var _ = Describe("Client", func() {
	var (
		sess   *session.Session
		client *Client
		ctx    context.Context
	)

	BeforeEach(func() {
		httpmock.Activate()
		sess = authedSession()
		client = NewClient(baseURL, sess)
		ctx = context.Background()
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	Describe("ListVehicles", func() {
		It("decodes the response envelope", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/1/vehicles", func(r *http.Request) (*http.Response, error) {
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer test-jwt"))
				Expect(r.Header.Get("Accept")).To(Equal("application/json"))
				return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
					"count": 2,
					"response": []map[string]interface{}{
						{"id": 1001, "vehicle_id": 42, "vin": "5YJ3E1EA7KF000001", "display_name": "Bumblebee", "state": "online"},
						{"id": 1002, "vehicle_id": 43, "vin": "5YJ3E1EA7KF000002", "display_name": "Nightshade", "state": "asleep"},
					},
				})
			})

			vehicles, err := client.ListVehicles(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(vehicles).To(HaveLen(2))
			Expect(vehicles[0].Tag()).To(Equal("1001"))
			Expect(vehicles[0].Online()).To(BeTrue())
			Expect(vehicles[1].Online()).To(BeFalse())
		})

		It("returns an empty list when the response field is missing", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/1/vehicles",
				httpmock.NewStringResponder(http.StatusOK, `{"count": 0}`))

			vehicles, err := client.ListVehicles(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(vehicles).To(BeEmpty())
		})

		It("returns an empty list when the response field is malformed", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/1/vehicles",
				httpmock.NewStringResponder(http.StatusOK, `{"response": {"not": "a list"}}`))

			vehicles, err := client.ListVehicles(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(vehicles).To(BeEmpty())
		})

		It("omits the Authorization header when unauthenticated", func() {
			sess.Reset()
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/1/vehicles", func(r *http.Request) (*http.Response, error) {
				Expect(r.Header.Get("Authorization")).To(BeEmpty())
				return httpmock.NewStringResponse(http.StatusUnauthorized, `{"error": "missing token"}`), nil
			})

			_, err := client.ListVehicles(ctx)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetVehicleData", func() {
		It("decodes telemetry", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/1/vehicles/1001/vehicle_data",
				httpmock.NewStringResponder(http.StatusOK, `{"response": {
					"id": 1001, "vin": "5YJ3E1EA7KF000001", "state": "online",
					"charge_state": {"battery_level": 72, "charging_state": "Charging", "time_to_full_charge": 1.5},
					"climate_state": {"inside_temp": 21.5, "outside_temp": 14.0, "is_climate_on": true},
					"drive_state": {"latitude": 37.4924, "longitude": -121.9449, "heading": 194}
				}}`))

			data, err := client.GetVehicleData(ctx, "1001")
			Expect(err).NotTo(HaveOccurred())
			level, ok := data.BatteryLevel()
			Expect(ok).To(BeTrue())
			Expect(level).To(Equal(72))
			Expect(data.ClimateState.IsClimateOn).To(BeTrue())
			Expect(*data.DriveState.Heading).To(Equal(194))
		})

		It("rejects a malformed telemetry body", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/1/vehicles/1001/vehicle_data",
				httpmock.NewStringResponder(http.StatusOK, `{"response": [1, 2, 3]}`))

			_, err := client.GetVehicleData(ctx, "1001")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("WakeVehicle", func() {
		It("posts the wake command", func() {
			httpmock.RegisterResponder(http.MethodPost, baseURL+"/1/vehicles/1002/wake_up",
				httpmock.NewStringResponder(http.StatusOK, `{"response": {"id": 1002, "state": "waking"}}`))

			summary, err := client.WakeVehicle(ctx, "1002")
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.State).To(Equal(StateWaking))
		})
	})

	Describe("error handling", func() {
		It("resets the session on 401 and still fails the call", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/1/vehicles/1001/vehicle_data",
				httpmock.NewStringResponder(http.StatusUnauthorized, `{"error": "token expired"}`))

			_, err := client.GetVehicleData(ctx, "1001")
			Expect(err).To(HaveOccurred())
			httpErr, ok := err.(*HTTPError)
			Expect(ok).To(BeTrue())
			Expect(httpErr.Unauthorized()).To(BeTrue())
			Expect(httpErr.Error()).To(ContainSubstring("token expired"))
			Expect(sess.Authenticated()).To(BeFalse())
		})

		It("leaves the session alone on other failures", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/1/vehicles",
				httpmock.NewStringResponder(http.StatusServiceUnavailable, `{"error": "upstream down", "error_description": "tesla api maintenance"}`))

			_, err := client.ListVehicles(ctx)
			httpErr, ok := err.(*HTTPError)
			Expect(ok).To(BeTrue())
			Expect(httpErr.Temporary()).To(BeTrue())
			Expect(httpErr.Error()).To(ContainSubstring("upstream down"))
			Expect(sess.Authenticated()).To(BeTrue())
		})

		It("survives a non-JSON error body", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/1/vehicles",
				httpmock.NewStringResponder(http.StatusBadGateway, "<html>502</html>"))

			_, err := client.ListVehicles(ctx)
			httpErr, ok := err.(*HTTPError)
			Expect(ok).To(BeTrue())
			Expect(httpErr.Code).To(Equal(http.StatusBadGateway))
		})
	})
})
