package http

import (
	"net/http"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var ErrServerClosed = http.ErrServerClosed

const maxBodySize = "1M"

func NewRouter(bookings BookingService) *echo.Echo {
	server := commonHTTP.NewEcho()
	server.Use(middleware.BodyLimit(maxBodySize))

	server.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	h := handler{
		bookings: bookings,
	}

	server.POST("/tickets", h.PostTicket)
	server.GET("/tickets", h.ListTickets)
	server.GET("/tickets/:id", h.GetTicket)
	server.DELETE("/tickets/:id", h.DeleteTicket)
	server.GET("/tickets/:id/history", h.GetTicketHistory)

	return server
}
