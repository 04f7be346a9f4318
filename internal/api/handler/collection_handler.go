package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/service"
)

const heartbeatInterval = 25 * time.Second

// RecordCollection is the part of service.Collection the HTTP layer uses.
type RecordCollection[T any] interface {
	Name() domain.CollectionName
	Snapshot(ctx context.Context, id *domain.Identity) ([]T, error)
	Get(ctx context.Context, id *domain.Identity, recordID string) (T, error)
	Add(ctx context.Context, id *domain.Identity, item T) (string, error)
	UpdateItem(ctx context.Context, id *domain.Identity, recordID string, patch domain.Patch) error
	DeleteItem(ctx context.Context, id *domain.Identity, recordID string) error
	Open(ctx context.Context, id *domain.Identity) *service.Handle[T]
}

// CollectionHandler serves the CRUD and live-stream endpoints of one collection.
type CollectionHandler[T any] struct {
	coll RecordCollection[T]
}

func NewCollectionHandler[T any](coll RecordCollection[T]) *CollectionHandler[T] {
	return &CollectionHandler[T]{coll: coll}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

type createResponse struct {
	ID string `json:"id"`
}

// snapshotEvent is the payload of one server-sent "snapshot" event.
type snapshotEvent[T any] struct {
	Items     []T    `json:"items"`
	IsLoading bool   `json:"isLoading"`
	Error     string `json:"error,omitempty"`
}

// Register mounts the collection routes on g under /<collection>.
func (h *CollectionHandler[T]) Register(g *echo.Group) {
	base := "/" + string(h.coll.Name())
	g.GET(base, h.List)
	g.GET(base+"/stream", h.Stream)
	g.GET(base+"/:id", h.Get)
	g.POST(base, h.Create)
	g.PATCH(base+"/:id", h.Update)
	g.DELETE(base+"/:id", h.Delete)
}

// List handles GET /v1/<collection>.
//
// @Summary      List every record of a collection in arrival order
// @Tags         collections
// @Produce      json
// @Security     BearerAuth
// @Success      200         {object}  map[string]any
// @Failure      401         {object}  errorResponse
// @Router       /v1/clients [get]
// @Router       /v1/projects [get]
// @Router       /v1/tasks [get]
// @Router       /v1/finances [get]
// @Router       /v1/goals [get]
// @Router       /v1/resources [get]
// @Router       /v1/invoices [get]
func (h *CollectionHandler[T]) List(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	items, err := h.coll.Snapshot(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse[T]{Items: items})
}

// Get handles GET /v1/<collection>/:id.
//
// @Summary      Get one record
// @Tags         collections
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      string  true  "Record id"
// @Success      200         {object}  map[string]any
// @Failure      404         {object}  errorResponse
// @Router       /v1/clients/{id} [get]
// @Router       /v1/projects/{id} [get]
// @Router       /v1/tasks/{id} [get]
// @Router       /v1/finances/{id} [get]
// @Router       /v1/goals/{id} [get]
// @Router       /v1/resources/{id} [get]
// @Router       /v1/invoices/{id} [get]
func (h *CollectionHandler[T]) Get(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	rec, err := h.coll.Get(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// Create handles POST /v1/<collection>. Unknown fields are rejected.
//
// @Summary      Add a record
// @Description  id, createdAt and updatedAt are assigned by the server.
// @Tags         collections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body        body      object  true  "Record fields"
// @Success      201         {object}  createResponse
// @Failure      400         {object}  errorResponse
// @Failure      422         {object}  errorResponse
// @Failure      502         {object}  errorResponse
// @Router       /v1/clients [post]
// @Router       /v1/projects [post]
// @Router       /v1/tasks [post]
// @Router       /v1/finances [post]
// @Router       /v1/goals [post]
// @Router       /v1/resources [post]
// @Router       /v1/invoices [post]
func (h *CollectionHandler[T]) Create(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var item T
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&item); err != nil {
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownField, strings.Trim(field, `"`))
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	recordID, err := h.coll.Add(c.Request().Context(), id, item)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderLocation, c.Request().URL.Path+"/"+recordID)
	return c.JSON(http.StatusCreated, createResponse{ID: recordID})
}

// Update handles PATCH /v1/<collection>/:id with a partial JSON object.
//
// @Summary      Update fields of a record
// @Tags         collections
// @Accept       json
// @Security     BearerAuth
// @Param        id          path  string  true  "Record id"
// @Param        body        body  object  true  "Fields to change"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/clients/{id} [patch]
// @Router       /v1/projects/{id} [patch]
// @Router       /v1/tasks/{id} [patch]
// @Router       /v1/finances/{id} [patch]
// @Router       /v1/goals/{id} [patch]
// @Router       /v1/resources/{id} [patch]
// @Router       /v1/invoices/{id} [patch]
func (h *CollectionHandler[T]) Update(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var patch domain.Patch
	if err := json.NewDecoder(c.Request().Body).Decode(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.coll.UpdateItem(c.Request().Context(), id, c.Param("id"), patch); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /v1/<collection>/:id. Deleting a missing record succeeds.
//
// @Summary      Delete a record
// @Tags         collections
// @Security     BearerAuth
// @Param        id          path  string  true  "Record id"
// @Success      204
// @Router       /v1/clients/{id} [delete]
// @Router       /v1/projects/{id} [delete]
// @Router       /v1/tasks/{id} [delete]
// @Router       /v1/finances/{id} [delete]
// @Router       /v1/goals/{id} [delete]
// @Router       /v1/resources/{id} [delete]
// @Router       /v1/invoices/{id} [delete]
func (h *CollectionHandler[T]) Delete(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	if err := h.coll.DeleteItem(c.Request().Context(), id, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Stream handles GET /v1/<collection>/stream. Each state of the live
// collection is sent as a server-sent "snapshot" event until the client
// disconnects.
//
// @Summary      Stream live snapshots of a collection
// @Tags         collections
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200
// @Router       /v1/clients/stream [get]
// @Router       /v1/projects/stream [get]
// @Router       /v1/tasks/stream [get]
// @Router       /v1/finances/stream [get]
// @Router       /v1/goals/stream [get]
// @Router       /v1/resources/stream [get]
// @Router       /v1/invoices/stream [get]
func (h *CollectionHandler[T]) Stream(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	handle := h.coll.Open(ctx, id)
	defer handle.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case state, ok := <-handle.Updates():
			if !ok {
				return nil
			}
			if err := writeSnapshot(res, state); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeSnapshot[T any](res *echo.Response, state service.State[T]) error {
	ev := snapshotEvent[T]{Items: state.Items, IsLoading: state.IsLoading}
	if ev.Items == nil {
		ev.Items = []T{}
	}
	if state.Err != nil {
		ev.Error = "snapshot unavailable"
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(res, "event: snapshot\ndata: %s\n\n", data)
	return err
}
