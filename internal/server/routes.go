package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/berfenger/zwconsole/internal/core/domain"
	"github.com/berfenger/zwconsole/pkg/zwave"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type controllerDTO struct {
	HomeID string    `json:"home_id"`
	Nodes  []nodeDTO `json:"nodes,omitempty"`
}

type nodeDTO struct {
	HomeID       string `json:"home_id"`
	NodeID       uint8  `json:"node_id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Product      string `json:"product"`
	Type         string `json:"type"`
}

type valueDTO struct {
	HomeID       string `json:"home_id"`
	ValueID      string `json:"value_id"`
	NodeID       uint8  `json:"node_id"`
	Genre        string `json:"genre"`
	CommandClass uint8  `json:"command_class"`
	Instance     uint8  `json:"instance"`
	Index        uint8  `json:"index"`
	Type         string `json:"type"`
	Label        string `json:"label"`
	Units        string `json:"units,omitempty"`
	Value        string `json:"value"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/controllers", s.ControllersHandler)
	e.GET("/nodes", s.NodesHandler)
	e.GET("/values", s.ValuesHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) ControllersHandler(c echo.Context) error {
	controllers := s.state.Controllers()
	out := make([]controllerDTO, 0, len(controllers))
	for _, home := range controllers {
		out = append(out, controllerDTO{HomeID: home.String()})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) NodesHandler(c echo.Context) error {
	byController := s.state.NodesByController()
	out := make([]controllerDTO, 0, len(byController))
	for _, cn := range byController {
		dto := controllerDTO{
			HomeID: cn.HomeID.String(),
			Nodes:  make([]nodeDTO, 0, len(cn.Nodes)),
		}
		for _, n := range cn.Nodes {
			dto.Nodes = append(dto.Nodes, toNodeDTO(n))
		}
		out = append(out, dto)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) ValuesHandler(c echo.Context) error {
	all := false
	if raw := c.QueryParam("all"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid all parameter")
		}
		all = parsed
	}

	values := s.state.Values()
	out := make([]valueDTO, 0, len(values))
	for _, v := range values {
		if !all && v.Genre() != zwave.GenreUser {
			continue
		}
		out = append(out, toValueDTO(v))
	}
	return c.JSON(http.StatusOK, out)
}

func toNodeDTO(n zwave.Node) nodeDTO {
	return nodeDTO{
		HomeID:       n.HomeID.String(),
		NodeID:       uint8(n.NodeID),
		Name:         n.Name,
		Manufacturer: n.Manufacturer,
		Product:      n.Product,
		Type:         n.Type,
	}
}

func toValueDTO(v zwave.Value) valueDTO {
	return valueDTO{
		HomeID:       v.ID.HomeID.String(),
		ValueID:      v.ID.String(),
		NodeID:       uint8(v.ID.NodeID()),
		Genre:        v.Genre().String(),
		CommandClass: v.ID.CommandClass(),
		Instance:     v.ID.Instance(),
		Index:        v.ID.Index(),
		Type:         v.ID.Type().String(),
		Label:        v.Label,
		Units:        v.Units,
		Value:        v.Content,
	}
}
