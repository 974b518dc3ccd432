package routing

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/platform/obs"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// OSRMProvider implements TravelTimeProvider and RouteProvider against an
// OSRM HTTP server (table and route services).
type OSRMProvider struct {
	client *httpClient
}

func NewOSRMProvider(opts ClientOptions) *OSRMProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://router.project-osrm.org"
	}
	if opts.Profile == "" {
		opts.Profile = "driving"
	}

	return &OSRMProvider{client: newHTTPClient(opts)}
}

// Profile returns the OSRM routing profile, used to scope cache entries.
func (o *OSRMProvider) Profile() string { return o.client.profile }

type tableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Durations [][]*float64 `json:"durations"`
}

// coordinateList renders "lon,lat;lon,lat;..." as OSRM expects in the URL path.
func coordinateList(coords []domain.Coordinates) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.FormatFloat(c.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
	}
	return strings.Join(parts, ";")
}

func indexList(from, n int) string {
	parts := make([]string, n)
	for i := range n {
		parts[i] = strconv.Itoa(from + i)
	}
	return strings.Join(parts, ";")
}

// TravelTimes queries the OSRM table service with the origins as sources and
// the destinations as targets.
func (o *OSRMProvider) TravelTimes(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
) (_ [][]*float64, err error) {
	defer obs.Time(ctx, "osrm.TravelTimes")(&err)

	if len(origins) == 0 {
		return [][]*float64{}, nil
	}
	if len(destinations) == 0 {
		return nil, errors.New("osrm table: destinations must be non-empty")
	}

	all := make([]domain.Coordinates, 0, len(origins)+len(destinations))
	all = append(all, origins...)
	all = append(all, destinations...)

	endpoint := fmt.Sprintf("%s/table/v1/%s/%s", o.client.baseURL, o.client.profile, coordinateList(all))

	req, err := o.client.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("sources", indexList(0, len(origins)))
	q.Set("destinations", indexList(len(origins), len(destinations)))
	q.Set("annotations", "duration")
	req.URL.RawQuery = q.Encode()

	resp, err := o.client.do(req)
	if err != nil {
		return nil, eris.Wrap(err, "table request failed")
	}
	defer resp.Body.Close()

	var tr tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, eris.Wrap(err, "decode table response")
	}
	if tr.Code != "Ok" {
		return nil, eris.Errorf("osrm table: code=%s message=%s", tr.Code, tr.Message)
	}

	if len(tr.Durations) != len(origins) {
		return nil, eris.Errorf("expected %d source rows; got %d", len(origins), len(tr.Durations))
	}

	out := make([][]*float64, len(origins))
	for i, row := range tr.Durations {
		if len(row) != len(destinations) {
			return nil, eris.Errorf(
				"row %d length does not match destinations: durations=%d destinations=%d",
				i, len(row), len(destinations),
			)
		}
		out[i] = make([]*float64, len(row))
		for j, s := range row {
			out[i][j] = secondsToMinutes(s)
		}
	}

	return out, nil
}
