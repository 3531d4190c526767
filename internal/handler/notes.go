package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/secure-notes/internal/authz"
	"github.com/iliyamo/secure-notes/internal/cursor"
	"github.com/iliyamo/secure-notes/internal/envelope"
	"github.com/iliyamo/secure-notes/internal/model"
	"github.com/iliyamo/secure-notes/internal/repository"
)

// Pagination bounds shared by every listing endpoint.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NoteHandler serves the user-facing note endpoints. Every operation runs
// through the authz policy with the stored owner id; the client never
// supplies ownership.
type NoteHandler struct {
	Log   zerolog.Logger
	Notes NoteStore
}

func NewNoteHandler(log zerolog.Logger, n NoteStore) *NoteHandler {
	return &NoteHandler{Log: log, Notes: n}
}

type noteReq struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"max=65535"`
}

type noteResp struct {
	ID        uint64    `json:"id"`
	CreatedBy uint64    `json:"created_by"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type notePage struct {
	Items      []noteResp `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func toNoteResp(n model.Note) noteResp {
	return noteResp{
		ID: n.ID, CreatedBy: n.CreatedBy, Title: n.Title, Content: n.Content,
		CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
	}
}

// Create inserts a note owned by the caller.
func (h *NoteHandler) Create(c echo.Context) error {
	actor := actorFrom(c)
	if !authz.Authorize(actor, authz.ActionNoteCreate, authz.Target{}) {
		return envelope.Fail(c, http.StatusForbidden, envelope.CodeForbidden)
	}

	var req noteReq
	if err := c.Bind(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	if err := c.Validate(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Notes.Create(ctx, actor.ID, req.Title, req.Content)
	if err != nil {
		h.Log.Error().Err(err).Msg("notes: create")
		return envelope.Internal(c)
	}
	n, err := h.Notes.GetByID(ctx, id)
	if err != nil {
		h.Log.Error().Err(err).Uint64("note_id", id).Msg("notes: load created")
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusCreated, "note created", toNoteResp(n))
}

// List returns the caller's notes ordered by id, one page per call. The
// next_cursor replays into the next disjoint page.
func (h *NoteHandler) List(c echo.Context) error {
	actor := actorFrom(c)
	if !authz.Authorize(actor, authz.ActionNoteList, authz.Target{}) {
		return envelope.Fail(c, http.StatusForbidden, envelope.CodeForbidden)
	}

	afterID, limit, err := pageParams(c)
	if err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
			envelope.FieldError{Field: "cursor", Code: envelope.CodeValidation, Issue: "invalid"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	notes, err := h.Notes.ListByOwner(ctx, actor.ID, afterID, limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("notes: list")
		return envelope.Internal(c)
	}
	return envelope.OK(c, http.StatusOK, "notes", buildNotePage(notes, limit))
}

// Get returns one of the caller's notes.
func (h *NoteHandler) Get(c echo.Context) error {
	return h.withOwnedNote(c, authz.ActionNoteRead, func(ctx context.Context, n model.Note) error {
		return envelope.OK(c, http.StatusOK, "note", toNoteResp(n))
	})
}

// Update rewrites title/content of one of the caller's notes.
func (h *NoteHandler) Update(c echo.Context) error {
	var req noteReq
	if err := c.Bind(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	if err := c.Validate(&req); err != nil {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation, fieldErrors(err)...)
	}
	return h.withOwnedNote(c, authz.ActionNoteUpdate, func(ctx context.Context, n model.Note) error {
		if err := h.Notes.Update(ctx, n.ID, req.Title, req.Content); err != nil {
			if errors.Is(err, repository.ErrNoteNotFound) {
				return envelope.Fail(c, http.StatusNotFound, envelope.CodeNotFound)
			}
			h.Log.Error().Err(err).Uint64("note_id", n.ID).Msg("notes: update")
			return envelope.Internal(c)
		}
		updated, err := h.Notes.GetByID(ctx, n.ID)
		if err != nil {
			h.Log.Error().Err(err).Uint64("note_id", n.ID).Msg("notes: load updated")
			return envelope.Internal(c)
		}
		return envelope.OK(c, http.StatusOK, "note updated", toNoteResp(updated))
	})
}

// Delete soft-deletes one of the caller's notes.
func (h *NoteHandler) Delete(c echo.Context) error {
	return h.withOwnedNote(c, authz.ActionNoteDelete, func(ctx context.Context, n model.Note) error {
		if err := h.Notes.SoftDelete(ctx, n.ID); err != nil {
			if errors.Is(err, repository.ErrNoteNotFound) {
				return envelope.Fail(c, http.StatusNotFound, envelope.CodeNotFound)
			}
			h.Log.Error().Err(err).Uint64("note_id", n.ID).Msg("notes: delete")
			return envelope.Internal(c)
		}
		return envelope.OK(c, http.StatusOK, "note deleted", nil)
	})
}

// withOwnedNote loads the note from the path id, checks the authz policy
// against its stored owner and runs fn on success. A note owned by someone
// else answers FORBIDDEN.
func (h *NoteHandler) withOwnedNote(c echo.Context, action authz.Action, fn func(context.Context, model.Note) error) error {
	actor := actorFrom(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return envelope.Fail(c, http.StatusBadRequest, envelope.CodeValidation,
			envelope.FieldError{Field: "id", Code: envelope.CodeValidation, Issue: "invalid"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	n, err := h.Notes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return envelope.Fail(c, http.StatusNotFound, envelope.CodeNotFound)
		}
		h.Log.Error().Err(err).Uint64("note_id", id).Msg("notes: load")
		return envelope.Internal(c)
	}
	if !authz.Authorize(actor, action, authz.Target{OwnerID: n.CreatedBy}) {
		return envelope.Fail(c, http.StatusForbidden, envelope.CodeForbidden)
	}
	return fn(ctx, n)
}

// pageParams parses cursor and limit query parameters.
func pageParams(c echo.Context) (afterID uint64, limit int, err error) {
	afterID, err = cursor.Decode(c.QueryParam("cursor"))
	if err != nil {
		return 0, 0, err
	}
	n, _ := strconv.Atoi(c.QueryParam("limit"))
	return afterID, cursor.Clamp(n, defaultPageSize, maxPageSize), nil
}

// buildNotePage assembles the page payload; a full page carries the
// cursor of its last item so the client can continue.
func buildNotePage(notes []model.Note, limit int) notePage {
	items := make([]noteResp, 0, len(notes))
	for _, n := range notes {
		items = append(items, toNoteResp(n))
	}
	page := notePage{Items: items}
	if len(notes) == limit {
		page.NextCursor = cursor.Encode(notes[len(notes)-1].ID)
	}
	return page
}
