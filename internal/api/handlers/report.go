package handlers

import (
	"drivetime-accessibility/internal/api/dto"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/render"
	"net/http"

	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// ReportHandler exposes the result of one completed run.
type ReportHandler struct {
	Report *domain.Report
}

func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rep := h.Report
	res := dto.SummaryResponse{
		RunID:           rep.RunID,
		StartedAt:       rep.StartedAt,
		FinishedAt:      rep.FinishedAt,
		Areas:           len(rep.Areas),
		Destinations:    len(rep.Destinations),
		TotalPopulation: rep.TotalPopulation(),
		Failed:          rep.Failed,
		Unreachable:     rep.Unreachable,
		Buckets:         render.SummaryRows(rep.Buckets),
	}

	if lr := rep.Longest; lr != nil {
		res.Longest = &dto.LongestRouteResponse{
			AreaID:             lr.Area.AreaID,
			Population:         lr.Area.Population,
			Minutes:            lr.Area.Minutes,
			DestinationID:      lr.Destination.ID,
			DestinationName:    lr.Destination.Name,
			StraightLineMeters: lr.StraightLineMeters,
			HasPath:            lr.Path != nil,
		}
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *ReportHandler) Areas(w http.ResponseWriter, r *http.Request) {
	writeGeoJSON(w, r, render.Areas(h.Report))
}

func (h *ReportHandler) Overview(w http.ResponseWriter, r *http.Request) {
	writeGeoJSON(w, r, render.Overview(h.Report))
}

func (h *ReportHandler) Longest(w http.ResponseWriter, r *http.Request) {
	if h.Report.Longest == nil {
		writeError(w, r, http.StatusNotFound, "no area unit reached any destination")
		return
	}
	writeGeoJSON(w, r, render.Longest(h.Report))
}

func writeGeoJSON(w http.ResponseWriter, r *http.Request, fc *geojson.FeatureCollection) {
	b, err := render.EncodeGeoJSON(fc)
	if err != nil {
		zap.L().Error("encode geojson failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		zap.L().Warn("write failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
}
