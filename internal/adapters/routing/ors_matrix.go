package routing

import (
	"bytes"
	"context"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/platform/obs"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"
)

// ORSProvider implements TravelTimeProvider and RouteProvider using OpenRouteService.
//
// It is safe for concurrent use.
type ORSProvider struct {
	client *httpClient
}

func NewORSProvider(opts ClientOptions) (*ORSProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openrouteservice.org"
	}
	if opts.Profile == "" {
		opts.Profile = "driving-car"
	}

	return &ORSProvider{client: newHTTPClient(opts)}, nil
}

// Profile returns the ORS routing profile, used to scope cache entries.
func (o *ORSProvider) Profile() string { return o.client.profile }

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Sources      []int       `json:"sources"`
}

type matrixResponse struct {
	Durations [][]*float64 `json:"durations"`
}

// TravelTimes retrieves driving durations from many origins to many destinations
// with one call to the OpenRouteService matrix endpoint.
func (o *ORSProvider) TravelTimes(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
) (_ [][]*float64, err error) {
	defer obs.Time(ctx, "ors.TravelTimes")(&err)

	if len(origins) == 0 {
		return [][]*float64{}, nil
	}
	if len(destinations) == 0 {
		return nil, errors.New("ors matrix: destinations must be non-empty")
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.client.baseURL, o.client.profile)

	locations := make([][]float64, 0, len(origins)+len(destinations))
	srcIdx := make([]int, 0, len(origins))
	for _, c := range origins {
		srcIdx = append(srcIdx, len(locations))
		locations = append(locations, c.CoordsToList())
	}
	destIdx := make([]int, 0, len(destinations))
	for _, c := range destinations {
		destIdx = append(destIdx, len(locations))
		locations = append(locations, c.CoordsToList())
	}

	payload, err := json.Marshal(matrixRequest{
		Locations:    locations,
		Destinations: destIdx,
		Metrics:      []string{"duration"},
		Sources:      srcIdx,
	})
	if err != nil {
		return nil, eris.Wrap(err, "marshal matrix request")
	}

	req, err := o.client.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	resp, err := o.client.do(req)
	if err != nil {
		return nil, eris.Wrap(err, "matrix request failed")
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, eris.Wrap(err, "decode matrix response")
	}

	if len(mr.Durations) != len(origins) {
		return nil, eris.Errorf("expected %d source rows; got %d", len(origins), len(mr.Durations))
	}

	out := make([][]*float64, len(origins))
	for i, row := range mr.Durations {
		if len(row) != len(destinations) {
			return nil, eris.Errorf(
				"row %d length does not match destinations: durations=%d destinations=%d",
				i, len(row), len(destinations),
			)
		}
		// ORS returns seconds; null marks an unroutable pair.
		out[i] = make([]*float64, len(row))
		for j, s := range row {
			out[i][j] = secondsToMinutes(s)
		}
	}

	return out, nil
}
