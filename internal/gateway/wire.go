package gateway

import (
	"fmt"
	"math"
	"time"

	"routeopt/internal/model"
)

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type timeWindow struct {
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

type visitRequest struct {
	ArrivalLocation latLng       `json:"arrivalLocation"`
	Duration        string       `json:"duration"`
	TimeWindows     []timeWindow `json:"timeWindows,omitempty"`
}

type shipment struct {
	Deliveries []visitRequest `json:"deliveries"`
	Label      string         `json:"label,omitempty"`
}

type vehicle struct {
	StartLocation    latLng  `json:"startLocation"`
	EndLocation      latLng  `json:"endLocation"`
	CostPerKilometer float64 `json:"costPerKilometer"`
	Label            string  `json:"label,omitempty"`
}

type shipmentModel struct {
	Shipments       []shipment `json:"shipments"`
	Vehicles        []vehicle  `json:"vehicles"`
	GlobalStartTime string     `json:"globalStartTime"`
	GlobalEndTime   string     `json:"globalEndTime"`
}

type optimizeToursRequest struct {
	Model shipmentModel `json:"model"`
}

type visit struct {
	ShipmentIndex int    `json:"shipmentIndex"`
	StartTime     string `json:"startTime"`
}

type transition struct {
	TravelDuration       string  `json:"travelDuration"`
	TravelDistanceMeters float64 `json:"travelDistanceMeters"`
}

type shipmentRoute struct {
	VehicleStartTime string       `json:"vehicleStartTime"`
	VehicleEndTime   string       `json:"vehicleEndTime"`
	Visits           []visit      `json:"visits"`
	Transitions      []transition `json:"transitions"`
}

type skippedShipment struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

type optimizeToursResponse struct {
	Routes           []shipmentRoute   `json:"routes"`
	SkippedShipments []skippedShipment `json:"skippedShipments"`
}

// serviceDuration is the on-site time the remote model reserves per delivery type.
func serviceDuration(t model.DeliveryType) time.Duration {
	switch t {
	case model.Express:
		return 5 * time.Minute
	case model.Scheduled:
		return 10 * time.Minute
	default:
		return 15 * time.Minute
	}
}

func protoDuration(d time.Duration) string {
	return fmt.Sprintf("%ds", int64(d.Seconds()))
}

func stamp(day time.Time, minute int) string {
	return day.Add(time.Duration(minute) * time.Minute).Format(time.RFC3339)
}

func buildRequest(pkgs []model.Package, depot model.Depot, day time.Time, cfg Config) optimizeToursRequest {
	dayWindow := timeWindow{StartTime: stamp(day, cfg.DayStart), EndTime: stamp(day, cfg.DayEnd)}
	shipments := make([]shipment, len(pkgs))
	for i, p := range pkgs {
		tw := dayWindow
		if w, ok := p.ScheduledWindow(); ok {
			tw = timeWindow{StartTime: stamp(day, w.Start), EndTime: stamp(day, w.End)}
		}
		shipments[i] = shipment{
			Label: p.ID,
			Deliveries: []visitRequest{{
				ArrivalLocation: latLng{Latitude: p.Location.Lat, Longitude: p.Location.Lng},
				Duration:        protoDuration(serviceDuration(p.Type)),
				TimeWindows:     []timeWindow{tw},
			}},
		}
	}
	home := latLng{Latitude: depot.Location.Lat, Longitude: depot.Location.Lng}
	return optimizeToursRequest{Model: shipmentModel{
		Shipments:       shipments,
		Vehicles:        []vehicle{{StartLocation: home, EndLocation: home, CostPerKilometer: 1, Label: depot.Label}},
		GlobalStartTime: dayWindow.StartTime,
		GlobalEndTime:   dayWindow.EndTime,
	}}
}

// mapResponse turns the first route into a RouteResult. visits[i] is reached
// through transitions[i]; transitions[len(visits)] is the drive home.
func mapResponse(resp optimizeToursResponse, pkgs []model.Package, depot model.Depot, day time.Time, dayStart int) (model.RouteResult, error) {
	if n := len(resp.SkippedShipments); n > 0 {
		return model.RouteResult{}, fmt.Errorf("%d of %d shipments skipped", n, len(pkgs))
	}
	if len(resp.Routes) == 0 {
		return model.RouteResult{}, fmt.Errorf("no route returned")
	}
	r := resp.Routes[0]
	if len(r.Visits) != len(pkgs) {
		return model.RouteResult{}, fmt.Errorf("route visits %d packages, want %d", len(r.Visits), len(pkgs))
	}
	if len(r.Transitions) < len(r.Visits) {
		return model.RouteResult{}, fmt.Errorf("route has %d transitions for %d visits", len(r.Transitions), len(r.Visits))
	}

	startMinute := dayStart
	if t, err := time.Parse(time.RFC3339, r.VehicleStartTime); err == nil {
		startMinute = minuteOf(t, day)
	}
	res := model.RouteResult{
		Stops: []model.RouteStop{{
			Kind:             model.StopDepot,
			ExternalRef:      depot.Label,
			Location:         depot.Location,
			EstimatedArrival: model.FormatClock(startMinute),
			ArrivalMinute:    startMinute,
		}},
		StrategyUsed: model.StrategyExternal,
		PackageCount: len(pkgs),
	}

	seen := make([]bool, len(pkgs))
	var travel, service float64
	for i, v := range r.Visits {
		if v.ShipmentIndex < 0 || v.ShipmentIndex >= len(pkgs) || seen[v.ShipmentIndex] {
			return model.RouteResult{}, fmt.Errorf("visit %d has bad shipment index %d", i, v.ShipmentIndex)
		}
		seen[v.ShipmentIndex] = true
		p := pkgs[v.ShipmentIndex]
		at, err := time.Parse(time.RFC3339, v.StartTime)
		if err != nil {
			return model.RouteResult{}, fmt.Errorf("visit %d start time: %w", i, err)
		}
		arrival := minuteOf(at, day)
		km, minutes, err := legOf(r.Transitions[i])
		if err != nil {
			return model.RouteResult{}, fmt.Errorf("transition %d: %w", i, err)
		}
		late := 0
		if w, ok := p.ScheduledWindow(); ok && arrival > w.End {
			late = arrival - w.End
			res.LateStops++
		}
		res.Stops = append(res.Stops, model.RouteStop{
			Sequence:                    i + 1,
			Kind:                        model.StopDelivery,
			PackageID:                   p.ID,
			ExternalRef:                 p.ExternalRef,
			DeliveryType:                p.Type,
			Location:                    p.Location,
			EstimatedArrival:            model.FormatClock(arrival),
			ArrivalMinute:               arrival,
			DistanceFromPreviousKm:      km,
			DurationFromPreviousMinutes: minutes,
			TimeWindow:                  p.Window,
			LateMinutes:                 late,
		})
		res.TotalDistanceKm += km
		travel += minutes
		service += serviceDuration(p.Type).Minutes()
	}
	if len(r.Transitions) > len(r.Visits) {
		km, minutes, err := legOf(r.Transitions[len(r.Visits)])
		if err != nil {
			return model.RouteResult{}, fmt.Errorf("return transition: %w", err)
		}
		res.ReturnDistanceKm, res.ReturnDurationMinutes = km, minutes
		res.TotalDistanceKm += km
		travel += minutes
	}

	res.TotalDurationMinutes = travel + service
	start, errS := time.Parse(time.RFC3339, r.VehicleStartTime)
	end, errE := time.Parse(time.RFC3339, r.VehicleEndTime)
	if errS == nil && errE == nil && end.After(start) {
		res.TotalDurationMinutes = math.Round(end.Sub(start).Minutes()*10) / 10
	}
	return res, nil
}

func legOf(t transition) (km, minutes float64, err error) {
	km = t.TravelDistanceMeters / 1000
	if t.TravelDuration == "" {
		return km, 0, nil
	}
	d, err := time.ParseDuration(t.TravelDuration)
	if err != nil {
		return 0, 0, err
	}
	return km, math.Round(d.Minutes()*10) / 10, nil
}

func minuteOf(t, day time.Time) int {
	return int(t.Sub(day) / time.Minute)
}
