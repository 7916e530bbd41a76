package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/core/ports"
)

// ResourceHandler exposes one CRUD resource to the dashboard tables. Routes
// are mounted behind the guard for the resource's section.
type ResourceHandler[T any] struct {
	api   ports.ResourceAPI[T]
	noun  string
	flash flasher
	log   zerolog.Logger
}

// NewResourceHandler serves api; noun names the resource in banners
// ("Product created").
func NewResourceHandler[T any](api ports.ResourceAPI[T], noun string, flash ports.FlashStore, log zerolog.Logger) *ResourceHandler[T] {
	l := log.With().Str("component", "resource_handler").Str("resource", noun).Logger()
	return &ResourceHandler[T]{api: api, noun: noun, flash: flasher{store: flash, log: l}, log: l}
}

func (h *ResourceHandler[T]) List(c echo.Context) error {
	items, err := h.api.List(c.Request().Context())
	if err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, listResponse[T]{Items: items, Flash: h.flash.get(c)})
}

func (h *ResourceHandler[T]) Get(c echo.Context) error {
	item, err := h.api.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ResourceHandler[T]) Create(c echo.Context) error {
	var item T
	if err := c.Bind(&item); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&item); err != nil {
		return err
	}
	created, err := h.api.Create(c.Request().Context(), item)
	if err != nil {
		return h.flash.failed(c, err)
	}
	h.flash.set(c, flashSuccess, h.title()+" created")
	return c.JSON(http.StatusCreated, created)
}

func (h *ResourceHandler[T]) Update(c echo.Context) error {
	var item T
	if err := c.Bind(&item); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&item); err != nil {
		return err
	}
	updated, err := h.api.Update(c.Request().Context(), c.Param("id"), item)
	if err != nil {
		return h.flash.failed(c, err)
	}
	h.flash.set(c, flashSuccess, h.title()+" updated")
	return c.JSON(http.StatusOK, updated)
}

func (h *ResourceHandler[T]) Delete(c echo.Context) error {
	if err := h.api.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.flash.failed(c, err)
	}
	h.flash.set(c, flashSuccess, h.title()+" deleted")
	return c.NoContent(http.StatusNoContent)
}

func (h *ResourceHandler[T]) title() string {
	if h.noun == "" {
		return "Item"
	}
	return strings.ToUpper(h.noun[:1]) + h.noun[1:]
}
