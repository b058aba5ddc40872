package opt

import (
	"fmt"
	"math/rand"

	"routeopt/internal/model"
)

var testDepot = model.Depot{Location: model.Coordinate{Lat: 41.0, Lng: 29.0}, Label: "test depot"}

func pkg(id string, lat, lng float64, t model.DeliveryType) model.Package {
	return model.Package{ID: id, ExternalRef: "ext-" + id, Location: model.Coordinate{Lat: lat, Lng: lng}, Type: t}
}

func scheduled(id string, lat, lng float64, start, end string) model.Package {
	w, err := model.ParseTimeWindow(start, end)
	if err != nil {
		panic(err)
	}
	p := pkg(id, lat, lng, model.Scheduled)
	p.Window = &w
	return p
}

// scatter places n packages within roughly 8 km of the test depot.
func scatter(n int, seed int64) []model.Package {
	rng := rand.New(rand.NewSource(seed))
	types := []model.DeliveryType{model.Express, model.Scheduled, model.Standard, model.Standard}
	out := make([]model.Package, n)
	for i := range out {
		t := types[rng.Intn(len(types))]
		lat := testDepot.Location.Lat + (rng.Float64()-0.5)*0.15
		lng := testDepot.Location.Lng + (rng.Float64()-0.5)*0.15
		id := fmt.Sprintf("p%02d", i)
		if t == model.Scheduled {
			h := 9 + rng.Intn(6)
			out[i] = scheduled(id, lat, lng, fmt.Sprintf("%02d:00", h), fmt.Sprintf("%02d:00", h+2))
			continue
		}
		out[i] = pkg(id, lat, lng, t)
	}
	return out
}
