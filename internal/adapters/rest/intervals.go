package rest

import (
	"net/http"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

type intervalResponse struct {
	Index int       `json:"index"`
	URL   string    `json:"url"`
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
}

type intervalsResponse struct {
	RefDes    string             `json:"refdes"`
	Date      string             `json:"date"`
	Intervals []intervalResponse `json:"intervals"`
}

// ListIntervals handles GET /intervals?refdes=...&date=YYYY-MM-DD
func (h *Handler) ListIntervals(w http.ResponseWriter, r *http.Request) {
	refdes, day, ok := parseDayQuery(w, r.URL.Query().Get("refdes"), r.URL.Query().Get("date"))
	if !ok {
		return
	}

	intervals, err := h.deps.Index.Discover(r.Context(), refdes, day)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp := intervalsResponse{RefDes: refdes.String(), Date: day.Format(time.DateOnly), Intervals: []intervalResponse{}}
	for _, iv := range intervals {
		resp.Intervals = append(resp.Intervals, intervalResponse{Index: iv.Index, URL: iv.URL, Name: iv.Name, Start: iv.Start})
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseDayQuery(w http.ResponseWriter, rawRefDes, rawDate string) (domain.RefDes, time.Time, bool) {
	if rawRefDes == "" || rawDate == "" {
		writeError(w, http.StatusBadRequest, "refdes and date are required")
		return domain.RefDes{}, time.Time{}, false
	}
	refdes, err := domain.ParseRefDes(rawRefDes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.RefDes{}, time.Time{}, false
	}
	day, err := domain.ParseDay(rawDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.RefDes{}, time.Time{}, false
	}
	return refdes, day, true
}
