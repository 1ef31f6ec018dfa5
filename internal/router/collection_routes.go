package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/handler"
	"github.com/iliyamo/grading-api/internal/middleware"
)

// RegisterCollections registers collections, their records and the grades
// on those records.  Reads need a bearer token only; writes also need the
// matching ownership predicate.
func RegisterCollections(e *echo.Echo, auth echo.MiddlewareFunc, g *middleware.Guard,
	c *handler.CollectionHandler, r *handler.RecordHandler, rr *handler.RecordRateHandler) {
	grp := e.Group("/collections", auth)

	ownsCollection := g.IsOwnerOfCollectionOrAdmin("collectionId")
	ownsRecord := g.IsOwnerOfRecordOrAdmin("recordId")
	grades := g.IsGraderOfRecordRateOrAdmin("recordRateId")

	// ---- Collections ----
	grp.GET("", c.List)
	grp.POST("", c.Create)
	grp.GET("/:collectionId", c.Get)
	grp.PUT("/:collectionId", c.Update, ownsCollection)
	grp.DELETE("/:collectionId", c.Delete, ownsCollection)

	// ---- Records ----
	grp.GET("/records/:recordId", r.Get)
	grp.POST("/:collectionId/records", r.Create, ownsCollection)
	grp.PUT("/records/:recordId", r.Update, ownsRecord)
	grp.DELETE("/records/:recordId", r.Delete, ownsRecord)

	// ---- Record rates ----
	grp.GET("/records/:recordId/record-rates", rr.List, ownsRecord)
	grp.POST("/records/:recordId/record-rates", rr.Create, ownsRecord)
	grp.PUT("/records/record-rates/:recordRateId", rr.Update, grades)
	grp.DELETE("/records/record-rates/:recordRateId", rr.Delete, grades)
}
