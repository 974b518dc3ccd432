package routing

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/platform/obs"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry json.RawMessage `json:"geometry"`
	} `json:"routes"`
}

// Route fetches the full-resolution route geometry between two points.
func (o *OSRMProvider) Route(ctx context.Context, from, to domain.Coordinates) (_ geom.T, err error) {
	defer obs.Time(ctx, "osrm.Route")(&err)

	endpoint := fmt.Sprintf(
		"%s/route/v1/%s/%s",
		o.client.baseURL, o.client.profile, coordinateList([]domain.Coordinates{from, to}),
	)

	req, err := o.client.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("overview", "full")
	q.Set("geometries", "geojson")
	req.URL.RawQuery = q.Encode()

	resp, err := o.client.do(req)
	if err != nil {
		return nil, eris.Wrap(err, "route request failed")
	}
	defer resp.Body.Close()

	var rr routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, eris.Wrap(err, "decode route response")
	}
	if rr.Code != "Ok" || len(rr.Routes) == 0 {
		return nil, eris.Errorf("osrm route: code=%s routes=%d", rr.Code, len(rr.Routes))
	}

	var g geom.T
	if err := geojson.Unmarshal(rr.Routes[0].Geometry, &g); err != nil {
		return nil, eris.Wrap(err, "decode route geometry")
	}

	return g, nil
}
