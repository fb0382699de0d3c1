package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parcel-service/internal/http/middleware"
	"parcel-service/internal/model"
	"parcel-service/internal/service"
)

type NoteService interface {
	List(ctx context.Context) ([]model.Note, error)
	Create(ctx context.Context, principal model.Principal, input service.NoteInput) (*model.Note, error)
	Update(ctx context.Context, principal model.Principal, id string, input service.NoteInput) (*model.Note, error)
	Delete(ctx context.Context, principal model.Principal, id string) error
}

type ParcelService interface {
	Search(ctx context.Context, principal model.Principal, input service.SearchParcelInput) (*model.Parcel, error)
	Get(ctx context.Context, id string) (*model.Parcel, error)
	AddNote(ctx context.Context, principal model.Principal, id string, content string) (*model.Parcel, error)
}

type Handler struct {
	noteService   NoteService
	parcelService ParcelService
	log           zerolog.Logger
}

func NewHandler(noteService NoteService, parcelService ParcelService, log zerolog.Logger) *Handler {
	return &Handler{
		noteService:   noteService,
		parcelService: parcelService,
		log:           log,
	}
}

// Register mounts the API. Parcel routes sit behind requireAuth; note routes
// only identify the caller through identify.
func (h *Handler) Register(r *gin.Engine, requireAuth, identify gin.HandlerFunc) {
	api := r.Group("/api")

	notes := api.Group("/notes")
	notes.Use(identify)
	{
		notes.GET("", h.listNotes)
		notes.POST("", h.createNote)
		notes.PUT("/:id", h.updateNote)
		notes.DELETE("/:id", h.deleteNote)
	}

	parcels := api.Group("/parcels")
	parcels.Use(requireAuth)
	{
		parcels.POST("/search", h.searchParcel)
		parcels.GET("/:id", h.getParcel)
		parcels.POST("/:id/notes", h.addParcelNote)
	}
}

type noteRequest struct {
	Content      string              `json:"content" binding:"required"`
	Position     *model.GeoPoint     `json:"position" binding:"required"`
	LocationInfo *model.LocationInfo `json:"locationInfo"`
}

func (r noteRequest) input() service.NoteInput {
	return service.NoteInput{
		Content:      r.Content,
		Position:     *r.Position,
		LocationInfo: r.LocationInfo,
	}
}

func (h *Handler) listNotes(c *gin.Context) {
	notes, err := h.noteService.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(notes))
}

func (h *Handler) createNote(c *gin.Context) {
	// Parse the request body
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	// Create the note on behalf of the caller
	note, err := h.noteService.Create(c.Request.Context(), middleware.PrincipalFrom(c), req.input())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(note))
}

func (h *Handler) updateNote(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	// Parse the request body
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	// Only the author may edit
	note, err := h.noteService.Update(c.Request.Context(), middleware.PrincipalFrom(c), id, req.input())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(note))
}

func (h *Handler) deleteNote(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	// Only the author may delete
	if err := h.noteService.Delete(c.Request.Context(), middleware.PrincipalFrom(c), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse("note deleted"))
}

func (h *Handler) searchParcel(c *gin.Context) {
	var req struct {
		Il      string `json:"il" binding:"required"`
		Ilce    string `json:"ilce" binding:"required"`
		Mahalle string `json:"mahalle" binding:"required"`
		Ada     string `json:"ada" binding:"required"`
		Parsel  string `json:"parsel"`
	}

	// Parse the request body
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	// Geocode the neighbourhood and synthesize the boundary
	parcel, err := h.parcelService.Search(c.Request.Context(), middleware.PrincipalFrom(c), service.SearchParcelInput{
		Il:      req.Il,
		Ilce:    req.Ilce,
		Mahalle: req.Mahalle,
		Ada:     req.Ada,
		Parsel:  req.Parsel,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(parcel))
}

func (h *Handler) getParcel(c *gin.Context) {
	parcel, err := h.parcelService.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(parcel))
}

func (h *Handler) addParcelNote(c *gin.Context) {
	var req struct {
		Note string `json:"note" binding:"required"`
	}

	// Parse the request body
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	// Append the note to the parcel
	parcel, err := h.parcelService.AddNote(c.Request.Context(), middleware.PrincipalFrom(c), strings.TrimSpace(c.Param("id")), req.Note)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(parcel))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	// Map domain errors to HTTP statuses
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrLocationNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrGeocoderUnavailable):
		h.log.Warn().Err(err).Msg("geocoder unavailable")
		c.JSON(http.StatusBadGateway, errorResponse("geocoding service unavailable"))
	case errors.Is(err, context.Canceled):
		c.JSON(499, errorResponse("request cancelled"))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"success": true,
		"data":    data,
	}
}

func messageResponse(message string) gin.H {
	return gin.H{
		"success": true,
		"message": message,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"success": false,
		"message": message,
	}
}
