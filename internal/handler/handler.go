package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wedding/internal/attendance"
	"wedding/internal/auth"
	"wedding/internal/content"
	"wedding/internal/dietary"
	"wedding/internal/guest"
	"wedding/internal/guestbook"
	"wedding/internal/records"
	"wedding/internal/seating"
	"wedding/internal/songs"
)

// Deps are the services the handlers call into.
type Deps struct {
	Guests     *guest.Service
	GuestRepo  *guest.Repository
	Auth       *auth.Authorizer
	Attendance *attendance.Service
	Dietary    *dietary.Service
	Songs      *songs.Service
	Guestbook  *guestbook.Service
	Seating    *seating.Reconciler
	Manual     *seating.Manual
	Content    content.Sections

	// Health reports component status for /healthz.
	Health func(ctx context.Context) map[string]bool

	SigningKey string
	Issuer     string
	SessionTTL time.Duration
	Log        zerolog.Logger
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	return &Handler{Deps: d}
}

// ---------- Errors ----------

// writeError maps service errors onto status codes. Anything unrecognised
// is logged and reported with the generic message.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *guest.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Msg, "field": verr.Field})
	case errors.Is(err, auth.ErrNoMatch):
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.MsgNoMatch})
	case errors.Is(err, guest.ErrDuplicateEmail),
		errors.Is(err, songs.ErrAlreadyRequested),
		errors.Is(err, seating.ErrSyncing),
		errors.Is(err, seating.ErrStaleBoard):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, seating.ErrBadMove):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, records.ErrNotFound), errors.Is(err, content.ErrUnknownSection):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, records.ErrNotConfigured):
		h.Log.Error().Err(err).Str("path", c.FullPath()).Msg("store not configured")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": auth.MsgFailure})
	default:
		h.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": auth.MsgFailure})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	if h.Health != nil {
		for name, ok := range h.Health(c.Request.Context()) {
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
	}
	c.JSON(status, body)
}

// ---------- RSVP & seating chart ----------

func (h *Handler) SubmitRSVP(c *gin.Context) {
	var req guest.NewRSVP
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.Guests.Submit(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) SeatingChart(c *gin.Context) {
	tables, err := h.Guests.LookupSeating(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	type seat struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Seat      int    `json:"seat"`
	}
	type table struct {
		Table  int    `json:"table"`
		Guests []seat `json:"guests"`
	}
	out := make([]table, 0, len(tables))
	for _, t := range tables {
		row := table{Table: t.Table, Guests: make([]seat, 0, len(t.Guests))}
		for _, g := range t.Guests {
			row.Guests = append(row.Guests, seat{FirstName: g.FirstName, LastName: g.LastName, Seat: *g.Seat})
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, gin.H{"tables": out})
}

// ---------- Guest verification ----------

func (h *Handler) Verify(c *gin.Context) {
	var req auth.Candidate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sid := uuid.NewString()
	cred, err := h.Auth.Login(c.Request.Context(), sid, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	tok, err := auth.Issue(sid, h.Issuer, h.SigningKey, h.SessionTTL)
	if err != nil {
		_ = h.Auth.Logout(c.Request.Context(), sid)
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      tok.AccessToken,
		"expires_at": tok.ExpiresAt.Unix(),
		"user":       cred,
	})
}

func (h *Handler) Me(c *gin.Context) {
	cred, _ := auth.CredentialFrom(c)
	c.JSON(http.StatusOK, gin.H{"user": cred})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context(), auth.SessionIDFrom(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- Guest-only sections ----------

func (h *Handler) UpdateAttendance(c *gin.Context) {
	var req struct {
		Attending *bool `json:"attending" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cred, _ := auth.CredentialFrom(c)
	rec, err := h.Attendance.Update(c.Request.Context(), cred, *req.Attending)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attending": rec.Attending})
}

func (h *Handler) DietaryOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"options": dietary.Common})
}

func (h *Handler) GetDietary(c *gin.Context) {
	cred, _ := auth.CredentialFrom(c)
	d, err := h.Dietary.ForCredential(c.Request.Context(), cred)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dietary": d})
}

func (h *Handler) SaveDietary(c *gin.Context) {
	var req dietary.Data
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cred, _ := auth.CredentialFrom(c)
	d, err := h.Dietary.Save(c.Request.Context(), cred, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dietary": d})
}

func (h *Handler) ListSongs(c *gin.Context) {
	list, err := h.Songs.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"songs": list})
}

func (h *Handler) RequestSong(c *gin.Context) {
	var req songs.SongData
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cred, _ := auth.CredentialFrom(c)
	s, err := h.Songs.Add(c.Request.Context(), cred, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// ---------- Guestbook ----------

func (h *Handler) ListMessages(c *gin.Context) {
	list, err := h.Guestbook.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

func (h *Handler) PostMessage(c *gin.Context) {
	var req struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.Guestbook.Add(c.Request.Context(), req.Name, req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// ---------- Content ----------

// Section serves a content section. Sections not marked public need a verified guest.
func (h *Handler) Section(c *gin.Context) {
	sec, err := h.Content.Get(c.Param("section"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !sec.Public {
		if _, ok := auth.CredentialFrom(c); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "please verify your details to view this section"})
			return
		}
	}
	c.JSON(http.StatusOK, sec)
}

// ---------- Admin ----------

func (h *Handler) Board(c *gin.Context) {
	b, err := h.Seating.Load(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"board": b, "groups": b.Groups()})
}

// moveRequest uses pointers so an omitted group or index is rejected
// rather than read as the unassigned group or position zero.
type moveRequest struct {
	GuestID   int64            `json:"guest_id" binding:"required"`
	From      *seating.GroupID `json:"from" binding:"required"`
	FromIndex *int             `json:"from_index" binding:"required"`
	To        *seating.GroupID `json:"to" binding:"required"`
	ToIndex   *int             `json:"to_index" binding:"required"`
}

func (h *Handler) Move(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Seating.Move(c.Request.Context(), seating.Move{
		GuestID:   req.GuestID,
		From:      *req.From,
		FromIndex: *req.FromIndex,
		To:        *req.To,
		ToIndex:   *req.ToIndex,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListGuests(c *gin.Context) {
	list, err := h.GuestRepo.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guests": list})
}

func (h *Handler) AssignSeat(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guest id"})
		return
	}
	var req struct {
		Table *int `json:"table"`
		Seat  *int `json:"seat"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.Manual.Assign(c.Request.Context(), id, req.Table, req.Seat)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
