// Program table HTTP handlers.
//
// This file exposes the read-only endpoints for the static program rules:
//   - GET /levels            (ordered membership level table)
//   - GET /levels/for        (resolve the level for a lifetime total)
//   - GET /rewards           (redemption catalog, grouped by tier)
//
// The tables are built once at startup, so these handlers never touch the
// database.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/freshplate/go-loyalty-backend/internal/loyalty"
)

// ListLevelsResponse wraps the ordered membership level table.
type ListLevelsResponse struct {
	Levels []loyalty.Level `json:"levels"`
}

// LevelForResponse reports the level a lifetime total resolves to.
type LevelForResponse struct {
	TotalPoints int64         `json:"total_points"`
	Level       loyalty.Level `json:"level"`
}

// ListRewardsResponse contains the redemption catalog, flat and grouped.
type ListRewardsResponse struct {
	Rewards []loyalty.CatalogItem         `json:"rewards"`
	ByTier  map[int][]loyalty.CatalogItem `json:"by_tier"`
}

// ListLevels returns the membership level table in ascending threshold order.
func (h *Handlers) ListLevels(c *gin.Context) {
	ok(c, http.StatusOK, ListLevelsResponse{Levels: h.levels.Levels()})
}

// LevelFor resolves the membership level for the lifetime total given in the
// total_points query parameter.
func (h *Handlers) LevelFor(c *gin.Context) {
	raw := c.Query("total_points")
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "total_points must be an integer")
		return
	}
	ok(c, http.StatusOK, LevelForResponse{
		TotalPoints: total,
		Level:       h.levels.LevelFor(total),
	})
}

// ListRewards returns the redemption catalog ordered by tier then cost.
func (h *Handlers) ListRewards(c *gin.Context) {
	ok(c, http.StatusOK, ListRewardsResponse{
		Rewards: h.catalog.Items(),
		ByTier:  h.catalog.ByTier(),
	})
}
