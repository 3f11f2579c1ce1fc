package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"roomly/internal/reservations/service"
	apperrors "roomly/pkg/errors"
	httputil "roomly/pkg/http"
	"roomly/pkg/logger"
	"roomly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// OwnerHeader carries the requesting principal, already verified by the
// gateway in front of this service.
const OwnerHeader = "X-Owner-ID"

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

type createReservationRequest struct {
	RoomID    string    `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		h.writeError(w, "Create", apperrors.InvalidInput("Missing "+OwnerHeader+" header"))
		return
	}

	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	reservation := &model.Reservation{
		RoomID:    req.RoomID,
		OwnerID:   ownerID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}

	if err := h.service.Create(r.Context(), reservation); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	roomID := query.Get("room_id")
	if roomID == "" {
		h.writeError(w, "Availability", apperrors.InvalidInput("'room_id' query parameter is required"))
		return
	}

	interval, err := parseInterval(query.Get("start_time"), query.Get("end_time"))
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	available, err := h.service.CheckAvailability(r.Context(), roomID, interval)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, availabilityResponse{Available: available}); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "error", err)
	}
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reservation, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *ReservationHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		h.writeError(w, "ListMine", apperrors.InvalidInput("Missing "+OwnerHeader+" header"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	reservations, total, err := h.service.ListByOwner(r.Context(), ownerID, limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, reservations, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "error", err)
	}
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		h.writeError(w, "Cancel", apperrors.InvalidInput("Missing "+OwnerHeader+" header"))
		return
	}

	if err := h.service.Cancel(r.Context(), ps.ByName("id"), ownerID); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Create)
	router.GET("/api/v1/reservations", h.ListMine)
	router.GET("/api/v1/reservations/availability", h.Availability)
	router.GET("/api/v1/reservations/id/:id", h.GetByID)
	router.DELETE("/api/v1/reservations/id/:id", h.Cancel)
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func parseInterval(startStr, endStr string) (model.Interval, error) {
	if startStr == "" || endStr == "" {
		return model.Interval{}, apperrors.InvalidInput("'start_time' and 'end_time' query parameters are required")
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return model.Interval{}, apperrors.InvalidInput("invalid start_time format, must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return model.Interval{}, apperrors.InvalidInput("invalid end_time format, must be RFC3339")
	}

	return model.Interval{Start: start, End: end}, nil
}
