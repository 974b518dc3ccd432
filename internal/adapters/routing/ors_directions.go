package routing

import (
	"bytes"
	"context"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/platform/obs"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

// featureCollection decodes only the features of a GeoJSON FeatureCollection;
// collection-level members such as bbox are ignored.
type featureCollection struct {
	Features []*geojson.Feature `json:"features"`
}

// Route fetches the driving route geometry between two points
// (/v2/directions/{profile}/geojson).
func (o *ORSProvider) Route(ctx context.Context, from, to domain.Coordinates) (_ geom.T, err error) {
	defer obs.Time(ctx, "ors.Route")(&err)

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", o.client.baseURL, o.client.profile)

	payload, err := json.Marshal(directionsRequest{
		Coordinates: [][]float64{from.CoordsToList(), to.CoordsToList()},
	})
	if err != nil {
		return nil, eris.Wrap(err, "marshal directions request")
	}

	req, err := o.client.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	resp, err := o.client.do(req)
	if err != nil {
		return nil, eris.Wrap(err, "directions request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read directions response")
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, eris.Wrap(err, "decode directions response")
	}
	if len(fc.Features) == 0 || fc.Features[0].Geometry == nil {
		return nil, eris.New("directions response has no route")
	}

	return fc.Features[0].Geometry, nil
}
