package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"sion-backend/algorithms"
	"sion-backend/models"
)

// GridRequest - 요청으로 받는 그리드 (셀은 [row, col])
type GridRequest struct {
	Height    int           `json:"height"`
	Width     int           `json:"width"`
	Obstacles []models.Cell `json:"obstacles"`
}

type PathfindingRequest struct {
	GridRequest
	Start models.Cell `json:"start"`
	Goal  models.Cell `json:"goal"`
}

type PathfindingResponse struct {
	Success    bool               `json:"success"`
	Path       []models.Cell      `json:"path,omitempty"`
	Directions []models.Direction `json:"directions,omitempty"`
	Code       string             `json:"code,omitempty"`
	Message    string             `json:"message,omitempty"`
}

type VisibilityRequest struct {
	GridRequest
	Source models.Cell `json:"source"`
	Target models.Cell `json:"target"`
	Radius int         `json:"radius"`
}

// build - 요청 그리드 생성
func (r GridRequest) build() (*algorithms.Grid, error) {
	if err := algorithms.CheckSize(r.Height, r.Width); err != nil {
		return nil, err
	}
	grid := algorithms.NewGrid(r.Height, r.Width)
	for _, ob := range r.Obstacles {
		if err := grid.AddObstacle(ob); err != nil {
			return nil, err
		}
	}
	return grid, nil
}

func HandlePathfinding(c *fiber.Ctx) error {
	var req PathfindingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "잘못된 요청 형식입니다")
	}

	log.Printf("📍 경로 탐색 요청: %s → %s (맵 %dx%d, 장애물 %d)",
		req.Start, req.Goal, req.Height, req.Width, len(req.Obstacles))

	grid, err := req.build()
	if err != nil {
		return respondError(c, err)
	}

	path, err := grid.FindPath(req.Start, req.Goal)
	if err != nil {
		status, code := errorStatus(err)
		if status == fiber.StatusUnprocessableEntity {
			log.Printf("❌ 경로를 찾을 수 없습니다: %v", err)
			return c.Status(fiber.StatusOK).JSON(PathfindingResponse{
				Success: false,
				Code:    code,
				Message: "경로를 찾을 수 없습니다",
			})
		}
		return respondError(c, err)
	}

	dirs, err := algorithms.PathDirections(path)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("✅ 경로 탐색 성공: %d개 웨이포인트", len(path))
	return c.Status(fiber.StatusOK).JSON(PathfindingResponse{
		Success:    true,
		Path:       path,
		Directions: dirs,
		Message:    "경로 탐색 성공",
	})
}

// HandleVisibility - 두 셀 사이 시야 판정
func HandleVisibility(c *fiber.Ctx) error {
	var req VisibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "잘못된 요청 형식입니다")
	}

	grid, err := req.build()
	if err != nil {
		return respondError(c, err)
	}

	visible, err := grid.IsVisible(req.Source, req.Target, req.Radius)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"visible": visible,
		"line":    algorithms.LineCells(req.Source, req.Target),
	})
}
