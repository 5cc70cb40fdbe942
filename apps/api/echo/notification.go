package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/user"
)

type notificationApi struct {
	svc    notification.ServiceInterface
	usrSvc user.ServiceInterface
}

func registerNotificationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc notification.ServiceInterface,
	usrSvc user.ServiceInterface,
) {
	api := notificationApi{
		svc:    svc,
		usrSvc: usrSvc,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.GET("/unread-count", api.unreadCount)
	ng.PUT("/read-all", api.markAllRead)
	ng.PUT("/:id/read", api.markRead)
	ng.POST("/check-overdue", api.checkOverdue, adminMiddleware())
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	filter := new(notification.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []notification.Notification{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notifs, err := api.svc.Query(ctx.Request().Context(), actor, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	count, err := api.svc.UnreadCount(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, UnreadCountResponse{Count: count})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.MarkRead(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.MarkAllRead(ctx.Request().Context(), actor); err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// checkOverdue triggers the overdue scan on demand; the admin CLI runs the
// same scan on a schedule.
func (api *notificationApi) checkOverdue(ctx echo.Context) error {
	count, err := api.svc.ScanOverdue(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "scanning overdue tasks")
	}
	return ctx.JSON(http.StatusOK, CheckOverdueResponse{Dispatched: count})
}

type (
	UnreadCountResponse struct {
		Count int `json:"count"`
	}

	CheckOverdueResponse struct {
		Dispatched int `json:"dispatched"`
	}
)
