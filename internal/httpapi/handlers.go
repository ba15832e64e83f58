package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/repertoire/internal/logger"
	"github.com/mesh-intelligence/repertoire/internal/query"
	"github.com/mesh-intelligence/repertoire/internal/snapshot"
	"github.com/mesh-intelligence/repertoire/internal/textnorm"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

const servedFromHeader = "X-Served-From"

var errNoStore = fmt.Errorf("writes need a store: %w", types.ErrStoreUnavailable)

type Handler struct {
	store  types.GraphStore
	engine *query.Engine
	cache  *snapshot.Cache
	log    *logger.Logger
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Search answers GET /api/search?piece=&count=. A missing, malformed or
// non-positive count means the default limit.
func (h *Handler) Search(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("count"))
	if err != nil {
		limit = 0
	}
	results, origin, err := h.engine.Search(c.Request.Context(), c.Query("piece"), limit)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.Header(servedFromHeader, string(origin))
	RespondOK(c, results)
}

func (h *Handler) ListPieces(c *gin.Context) {
	titles, origin, err := h.engine.ListPieces(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	out := make([]types.PieceRef, len(titles))
	for i, t := range titles {
		out[i] = types.PieceRef{Title: t}
	}
	c.Header(servedFromHeader, string(origin))
	RespondOK(c, out)
}

// Document serves the loaded group document as is.
func (h *Handler) Document(c *gin.Context) {
	if h.cache == nil {
		respondStoreError(c, types.ErrSnapshotNotLoaded)
		return
	}
	doc, err := h.cache.Document()
	if err != nil {
		respondStoreError(c, err)
		return
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *Handler) ReloadSnapshot(c *gin.Context) {
	if h.cache == nil {
		respondStoreError(c, types.ErrSnapshotNotLoaded)
		return
	}
	snap, err := h.cache.Reload()
	if err != nil {
		h.log.Warn("snapshot reload failed", "path", h.cache.Path(), "error", err)
		RespondError(c, http.StatusInternalServerError, "snapshot_reload_failed", err)
		return
	}
	h.log.Info("snapshot reloaded", "path", h.cache.Path(), "participants", snap.Participants())
	RespondOK(c, gin.H{
		"participants": snap.Participants(),
		"pieces":       len(snap.ListPieces()),
	})
}

type createPersonRequest struct {
	Name string `json:"name"`
}

type createPieceRequest struct {
	Title string `json:"title"`
}

type addRepertoireRequest struct {
	Group           string `json:"group"`
	ParticipantName string `json:"participantName"`
	PieceTitle      string `json:"pieceTitle"`
}

type addRepertoireResponse struct {
	Group  string       `json:"group,omitempty"`
	Person types.Person `json:"person"`
	Piece  types.Piece  `json:"piece"`
}

// bind decodes the JSON body into req, answering 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

// key normalizes a request field, answering 400 when it is empty.
func key(c *gin.Context, field, raw string) (string, bool) {
	v, ok := textnorm.Normalize(raw)
	if !ok {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("%s: %w", field, types.ErrValidation))
		return "", false
	}
	return v, true
}

func (h *Handler) writable(c *gin.Context) bool {
	if h.store == nil {
		respondStoreError(c, errNoStore)
		return false
	}
	return true
}

func (h *Handler) CreatePerson(c *gin.Context) {
	var req createPersonRequest
	if !h.writable(c) || !bind(c, &req) {
		return
	}
	name, ok := key(c, "name", req.Name)
	if !ok {
		return
	}
	id, err := h.store.UpsertPerson(c.Request.Context(), name)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	RespondOK(c, types.Person{ID: id, Name: name})
}

func (h *Handler) CreatePiece(c *gin.Context) {
	var req createPieceRequest
	if !h.writable(c) || !bind(c, &req) {
		return
	}
	title, ok := key(c, "title", req.Title)
	if !ok {
		return
	}
	id, err := h.store.UpsertPiece(c.Request.Context(), title)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	RespondOK(c, types.Piece{ID: id, Title: title})
}

func (h *Handler) LinkKnows(c *gin.Context) {
	var req types.KnowsEdge
	if !h.writable(c) || !bind(c, &req) {
		return
	}
	if req.PersonID == "" || req.PieceID == "" {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("personId and pieceId: %w", types.ErrValidation))
		return
	}
	if err := h.store.LinkKnows(c.Request.Context(), req.PersonID, req.PieceID); err != nil {
		respondStoreError(c, err)
		return
	}
	RespondOK(c, req)
}

// AddRepertoire upserts a participant and a piece and links them in one
// transaction. The group is not stored relationally; it is echoed back.
func (h *Handler) AddRepertoire(c *gin.Context) {
	var req addRepertoireRequest
	if !h.writable(c) || !bind(c, &req) {
		return
	}
	name, ok := key(c, "participantName", req.ParticipantName)
	if !ok {
		return
	}
	title, ok := key(c, "pieceTitle", req.PieceTitle)
	if !ok {
		return
	}
	person, piece, err := h.store.AddRepertoire(c.Request.Context(), name, title)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	group, _ := textnorm.Normalize(req.Group)
	h.log.Info("repertoire added", "group", group, "person", person.Name, "piece", piece.Title)
	RespondOK(c, addRepertoireResponse{Group: group, Person: person, Piece: piece})
}

func (h *Handler) DeletePerson(c *gin.Context) {
	if !h.writable(c) {
		return
	}
	if err := h.store.DeletePerson(c.Request.Context(), c.Param("id")); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeletePiece(c *gin.Context) {
	if !h.writable(c) {
		return
	}
	if err := h.store.DeletePiece(c.Request.Context(), c.Param("id")); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
