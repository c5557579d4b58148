package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/worktime/internal/auth"
	"github.com/worktime/internal/export"
	"github.com/worktime/internal/format"
	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/tracker"
	"github.com/worktime/internal/visualization"
	"github.com/worktime/internal/work"
)

// API exposes the tracker over HTTP.
type API struct {
	tracker  *tracker.Tracker
	secret   []byte
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *Metrics
}

func New(t *tracker.Tracker, jwtSecret []byte, logger zerolog.Logger) *API {
	reg := prometheus.NewRegistry()
	return &API{
		tracker:  t,
		secret:   jwtSecret,
		logger:   logger,
		registry: reg,
		metrics:  NewMetrics(reg),
	}
}

// Handler builds the router.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(a.secret))

		r.Post("/calculate", a.handleCalculate)
		r.Get("/week", a.handleWeek)
		r.Get("/week.svg", a.handleWeekChart)

		r.Route("/records", func(r chi.Router) {
			r.Get("/", a.handleListRecords)
			r.Get("/{date}", a.handleGetRecord)
			r.Put("/{date}", a.handlePutRecord)
			r.Delete("/{date}", a.handleDeleteRecord)
			r.Post("/{date}/undo", a.handleUndoRecord)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", a.handleListHolidays)
			r.Post("/", a.handleAddHoliday)
			r.Delete("/{id}", a.handleDeleteHoliday)
		})

		r.Get("/export", a.handleExport)
	})

	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// dayRequest is the form of a work day as sent by clients.
type dayRequest struct {
	CheckIn  *work.TimeOfDay `json:"check_in"`
	CheckOut *work.TimeOfDay `json:"check_out"`
	BreakIn  *work.TimeOfDay `json:"break_in"`
	BreakOut *work.TimeOfDay `json:"break_out"`
	Meetings []work.Meeting  `json:"meetings"`
	Now      *time.Time      `json:"now,omitempty"`
	Note     string          `json:"note,omitempty"`
}

func (d dayRequest) input() work.Input {
	in := work.Input{
		CheckIn:  d.CheckIn,
		CheckOut: d.CheckOut,
		BreakIn:  d.BreakIn,
		BreakOut: d.BreakOut,
		Meetings: d.Meetings,
	}
	if d.Now != nil {
		in.Now = *d.Now
	}
	return in
}

type breakInfoResponse struct {
	ActualBreakMinutes   float64 `json:"actual_break_minutes"`
	StandardBreakMinutes float64 `json:"standard_break_minutes"`
	CreditMinutes        float64 `json:"credit_minutes"`
}

type resultResponse struct {
	TotalWorked              string             `json:"total_worked"`
	TotalWorkedMinutes       float64            `json:"total_worked_minutes"`
	TotalHours               float64            `json:"total_hours"`
	RemainingMinutes         float64            `json:"remaining_minutes"`
	EffectiveRequiredMinutes float64            `json:"effective_required_minutes"`
	ExpectedLeave            string             `json:"expected_leave"`
	ActualBreakMinutes       float64            `json:"actual_break_minutes"`
	BreakCreditMinutes       float64            `json:"break_credit_minutes"`
	BreakInfo                *breakInfoResponse `json:"break_info,omitempty"`
	MeetingMinutes           float64            `json:"meeting_minutes"`
	OutsideMeetingMinutes    float64            `json:"outside_meeting_minutes"`
	IsLive                   bool               `json:"is_live"`
}

func newResultResponse(res work.Result) resultResponse {
	out := resultResponse{
		TotalWorked:              format.Duration(res.TotalWorked),
		TotalWorkedMinutes:       res.TotalWorked.Minutes(),
		TotalHours:               res.TotalWorked.Hours(),
		RemainingMinutes:         res.Remaining.Minutes(),
		EffectiveRequiredMinutes: res.EffectiveRequired.Minutes(),
		ExpectedLeave:            format.Clock(&res.ExpectedLeave),
		ActualBreakMinutes:       res.ActualBreak.Minutes(),
		BreakCreditMinutes:       res.BreakCredit.Minutes(),
		MeetingMinutes:           res.MeetingDuration.Minutes(),
		OutsideMeetingMinutes:    res.OutsideMeetingDuration.Minutes(),
		IsLive:                   res.IsLive,
	}
	if res.BreakInfo != nil {
		out.BreakInfo = &breakInfoResponse{
			ActualBreakMinutes:   res.BreakInfo.ActualBreak.Minutes(),
			StandardBreakMinutes: res.BreakInfo.StandardBreak.Minutes(),
			CreditMinutes:        res.BreakInfo.Credit.Minutes(),
		}
	}
	return out
}

func (a *API) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req dayRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.tracker.Preview(req.input())
	a.observe(err)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultResponse(res))
}

// weekProgress loads the week around ?date= (default today).
func (a *API) weekProgress(w http.ResponseWriter, r *http.Request) (*tracker.WeekProgress, bool) {
	ref := a.tracker.Now()
	if d := r.URL.Query().Get("date"); d != "" {
		t, err := storage.ParseDate(d, ref.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date")
			return nil, false
		}
		ref = t
	}
	p, err := a.tracker.WeekProgress(r.Context(), identity(r), targetUser(r), ref)
	if err != nil {
		a.writeFailure(w, r, err)
		return nil, false
	}
	return p, true
}

func (a *API) handleWeekChart(w http.ResponseWriter, r *http.Request) {
	p, ok := a.weekProgress(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write([]byte(visualization.WeekSVG(p, a.tracker.Policy().RequiredHours)))
}

func (a *API) handleWeek(w http.ResponseWriter, r *http.Request) {
	p, ok := a.weekProgress(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":                 p.UserID,
		"week_start":           storage.FormatDate(p.WeekStart),
		"week_end":             storage.FormatDate(p.WeekEnd),
		"total_hours":          p.TotalHours,
		"target_hours":         p.TargetHours,
		"remaining_hours":      p.RemainingHours,
		"remaining_work_days":  p.RemainingWorkDays,
		"required_daily_hours": p.RequiredDailyHours,
		"days_off":             p.DaysOff,
		"days_worked":          p.DaysWorkedCount,
		"daily_hours":          p.DaysWorked,
	})
}

func (a *API) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := a.tracker.Records(r.Context(), identity(r), targetUser(r), q.Get("from"), q.Get("to"))
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	if records == nil {
		records = []*storage.DailyRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (a *API) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := a.tracker.Record(r.Context(), identity(r), targetUser(r), chi.URLParam(r, "date"))
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handlePutRecord(w http.ResponseWriter, r *http.Request) {
	var req dayRequest
	if !decode(w, r, &req) {
		return
	}
	rec, res, err := a.tracker.Finalize(r.Context(), identity(r), targetUser(r), chi.URLParam(r, "date"), req.input(), req.Note)
	a.observe(err)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"record": rec,
		"result": newResultResponse(res),
	})
}

func (a *API) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := a.tracker.Delete(r.Context(), identity(r), targetUser(r), chi.URLParam(r, "date")); err != nil {
		a.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUndoRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := a.tracker.Undo(r.Context(), identity(r), targetUser(r), chi.URLParam(r, "date"))
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"record":  rec,
		"removed": rec == nil,
	})
}

func (a *API) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	holidays, err := a.tracker.Holidays(r.Context(), identity(r), targetUser(r), q.Get("from"), q.Get("to"))
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	if holidays == nil {
		holidays = []*storage.Holiday{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": holidays})
}

type holidayRequest struct {
	Date string `json:"date"`
	Kind string `json:"kind"`
	Note string `json:"note"`
}

func (a *API) handleAddHoliday(w http.ResponseWriter, r *http.Request) {
	var req holidayRequest
	if !decode(w, r, &req) {
		return
	}
	kind, err := storage.ParseHolidayKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_kind")
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	h, err := a.tracker.AddHoliday(r.Context(), identity(r), targetUser(r), req.Date, kind, req.Note)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (a *API) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := a.tracker.DeleteHoliday(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		a.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := export.FormatXLSX
	if s := q.Get("format"); s != "" {
		var err error
		if f, err = export.ParseFormat(s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_format")
			return
		}
	}

	actor, target := identity(r), targetUser(r)
	records, err := a.tracker.Records(r.Context(), actor, target, q.Get("from"), q.Get("to"))
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	holidays, err := a.tracker.Holidays(r.Context(), actor, target, q.Get("from"), q.Get("to"))
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}

	user := target
	if user == "" {
		user = actor.UserID
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="worktime-%s.%s"`, user, f))
	if err := export.Write(w, f, records, holidays); err != nil {
		a.logger.Error().Err(err).Str("format", string(f)).Msg("export failed")
	}
}

// observe counts calculation outcomes. Errors that never reached the
// calculation are not counted.
func (a *API) observe(err error) {
	if err == nil {
		a.metrics.ObserveCalculation("success")
		return
	}
	if kind := work.KindOf(err); kind != "" {
		a.metrics.ObserveCalculation(string(kind))
	}
}

// writeFailure maps domain errors to status codes.
func (a *API) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if kind := work.KindOf(err); kind != "" {
		writeError(w, http.StatusUnprocessableEntity, string(kind))
		return
	}
	switch {
	case errors.Is(err, tracker.ErrNotCheckedOut):
		writeError(w, http.StatusUnprocessableEntity, "missing_check_out")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, storage.ErrNothingToUndo):
		writeError(w, http.StatusConflict, "nothing_to_undo")
	case errors.Is(err, storage.ErrDuplicateHoliday):
		writeError(w, http.StatusConflict, "duplicate_holiday")
	case errors.Is(err, storage.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date")
	case errors.Is(err, tracker.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range")
	default:
		a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

func targetUser(r *http.Request) string {
	return r.URL.Query().Get("user")
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
