package handlers

import (
	"time"

	"github.com/sitegrid/sitegrid/pkg/capacity"
	"github.com/sitegrid/sitegrid/pkg/geometry"
	"github.com/sitegrid/sitegrid/pkg/model"
)

type projectResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	StartDate   *string `json:"start_date,omitempty"`
	EndDate     *string `json:"end_date,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type modelResponse struct {
	ID            string               `json:"id"`
	ProjectID     string               `json:"project_id"`
	Name          string               `json:"name"`
	Format        string               `json:"format,omitempty"`
	ModelFilePath string               `json:"model_file_path,omitempty"`
	Bounds        geometry.BoundingBox `json:"bounds"`
	CreatedAt     string               `json:"created_at"`
}

type cellResponse struct {
	ID            string               `json:"id"`
	ModelID       string               `json:"model_id"`
	XIndex        int                  `json:"x_index"`
	YIndex        int                  `json:"y_index"`
	ZIndex        int                  `json:"z_index"`
	Bounds        geometry.BoundingBox `json:"bounds"`
	Footprint     string               `json:"footprint"`
	TotalCapacity int                  `json:"total_capacity"`
}

type tradeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type tradeCapacityResponse struct {
	ID         string `json:"id"`
	GridCellID string `json:"gridcell_id"`
	TradeID    string `json:"trade_id"`
	MaxWorkers int    `json:"max_workers"`
}

type allocationResponse struct {
	ID          string  `json:"id"`
	GridCellID  string  `json:"gridcell_id"`
	TradeID     string  `json:"trade_id"`
	WorkDate    string  `json:"work_date"`
	EndDate     *string `json:"end_date,omitempty"`
	NumWorkers  *int    `json:"num_workers,omitempty"`
	Description string  `json:"description,omitempty"`
	CreatedBy   *string `json:"created_by,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type decisionResponse struct {
	capacity.Decision
	Permitted bool `json:"permitted"`
}

func mapProject(p *model.Project) projectResponse {
	resp := projectResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   formatTime(p.CreatedAt),
	}
	if p.StartDate != nil {
		s := formatDate(time.Time(*p.StartDate))
		resp.StartDate = &s
	}
	if p.EndDate != nil {
		e := formatDate(time.Time(*p.EndDate))
		resp.EndDate = &e
	}
	return resp
}

func mapModel(m *model.SiteModel) modelResponse {
	return modelResponse{
		ID:            m.ID.String(),
		ProjectID:     m.ProjectID.String(),
		Name:          m.Name,
		Format:        m.Format,
		ModelFilePath: m.ModelFilePath,
		Bounds:        m.Bounds(),
		CreatedAt:     formatTime(m.CreatedAt),
	}
}

func mapCell(c *model.GridCell) cellResponse {
	return cellResponse{
		ID:            c.ID.String(),
		ModelID:       c.ModelID.String(),
		XIndex:        c.XIndex,
		YIndex:        c.YIndex,
		ZIndex:        c.ZIndex,
		Bounds:        c.Bounds(),
		Footprint:     c.FootprintWKT(),
		TotalCapacity: c.TotalCapacity,
	}
}

func mapTrade(t *model.Trade) tradeResponse {
	return tradeResponse{ID: t.ID.String(), Name: t.Name}
}

func mapTradeCapacity(tc *model.TradeCapacity) tradeCapacityResponse {
	return tradeCapacityResponse{
		ID:         tc.ID.String(),
		GridCellID: tc.GridCellID.String(),
		TradeID:    tc.TradeID.String(),
		MaxWorkers: tc.MaxWorkers,
	}
}

func mapAllocation(a *model.Allocation) allocationResponse {
	resp := allocationResponse{
		ID:          a.ID.String(),
		GridCellID:  a.GridCellID.String(),
		TradeID:     a.TradeID.String(),
		WorkDate:    formatDate(a.Start()),
		NumWorkers:  a.NumWorkers,
		Description: a.Description,
		CreatedAt:   formatTime(a.CreatedAt),
	}
	if a.EndDate != nil {
		end := formatDate(a.End())
		resp.EndDate = &end
	}
	if a.CreatedBy != nil {
		id := a.CreatedBy.String()
		resp.CreatedBy = &id
	}
	return resp
}

func mapUser(u *model.User) userResponse {
	return userResponse{ID: u.ID.String(), Username: u.Username, Role: string(u.Role)}
}

func mapDecision(d capacity.Decision) decisionResponse {
	return decisionResponse{Decision: d, Permitted: d.Permitted()}
}
