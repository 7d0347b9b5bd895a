package http

import (
	"net/http"
	"time"

	"github.com/dkeye/Nearby/internal/app/orch"
	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	messagesWindow = time.Hour
	messagesLimit  = 50
)

// API serves read-only views of the engine state.
type API struct {
	Orch *orch.Orchestrator
}

type userView struct {
	ID        domain.UserID `json:"id"`
	Username  string        `json:"username"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	LastSeen  time.Time     `json:"lastSeen"`
}

func (a *API) Users(c *gin.Context) {
	users := a.Orch.Registry.All()
	out := make([]userView, 0, len(users))
	for _, u := range users {
		if !u.HasLocation() {
			continue
		}
		out = append(out, userView{
			ID:        u.ID,
			Username:  u.Username,
			Latitude:  u.Location.Latitude,
			Longitude: u.Location.Longitude,
			LastSeen:  u.LastSeen,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type messagesQuery struct {
	Lat    *float64 `form:"lat" binding:"required,gte=-90,lte=90"`
	Lon    *float64 `form:"lon" binding:"required,gte=-180,lte=180"`
	Radius float64  `form:"radius" binding:"omitempty,gt=0,lte=50000"`
}

// Messages returns public messages of the last hour posted near lat/lon.
func (a *API) Messages(c *gin.Context) {
	var q messagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	radius := q.Radius
	if radius == 0 {
		radius = core.DefaultRadiusMeters
	}
	loc := domain.Location{Latitude: *q.Lat, Longitude: *q.Lon}
	msgs, err := a.Orch.NearbyMessages(c.Request.Context(), loc, radius, messagesWindow, messagesLimit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("query messages")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "message history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (a *API) PrivateRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": a.Orch.RoomList()})
}
