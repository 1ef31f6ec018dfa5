package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/handler"
	"github.com/iliyamo/grading-api/internal/middleware"
)

// RegisterUsers registers /users and the per user sub resources.  Every
// route requires a bearer token; each then applies its own predicate.
func RegisterUsers(e *echo.Echo, auth echo.MiddlewareFunc, g *middleware.Guard,
	u *handler.UserHandler, uc *handler.UserCollectionHandler) {
	grp := e.Group("/users", auth)

	admin := g.IsAdmin()
	self := g.IsRequestedUserOrAdmin("userId")

	grp.GET("", u.List, admin)
	grp.POST("", u.Create, admin)
	grp.GET("/:userId", u.Get, self)
	grp.PUT("/:userId", u.Update, self)
	grp.DELETE("/:userId", u.Delete, self)
	grp.DELETE("/:userId/tokens", u.RevokeTokens, admin)
	grp.GET("/:userId/record-rates", u.RecordRates, self)

	// ---- Memberships ----
	grp.GET("/:userId/collections", uc.List, self)
	grp.POST("/:userId/collections", uc.Create, self)
	grp.DELETE("/:userId/collections/:collectionId", uc.Delete, self)
}
