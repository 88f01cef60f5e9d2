package algorithms

import (
	"fmt"

	"sion-backend/models"
)

// IsVisible - source 에서 target 이 보이는지
//
// 1) 유클리드 거리 제곱이 radius^2 를 넘으면 false
// 2) 정수 누적 오차로 셀을 따라가며 벽을 만나면 false
//
// 오차가 0 인 모서리에서는 항상 열 방향으로 먼저 움직인다.
// 그래서 벽이 모서리를 스칠 때만 source/target 을 바꾸면 결과가 달라질 수 있다.
func (g *Grid) IsVisible(source, target models.Cell, radius int) (bool, error) {
	if radius < 0 {
		return false, fmt.Errorf("visibility radius %d: %w", radius, ErrInvalidArgument)
	}
	if !g.InBounds(source) || !g.InBounds(target) {
		return false, fmt.Errorf("visibility %s -> %s: %w", source, target, ErrInvalidArgument)
	}
	if source == target {
		return true, nil
	}

	dr := target.Row - source.Row
	dc := target.Col - source.Col
	if dr*dr+dc*dc > radius*radius {
		return false, nil
	}

	for _, c := range LineCells(source, target) {
		if g.IsWall(c) {
			return false, nil
		}
	}
	return true, nil
}

// LineCells - source 부터 target 까지 시선이 지나는 셀 (양 끝 포함)
// 개수는 항상 1 + |drow| + |dcol|.
func LineCells(source, target models.Cell) []models.Cell {
	dr := abs(target.Row - source.Row)
	dc := abs(target.Col - source.Col)
	rowInc := sign(target.Row - source.Row)
	colInc := sign(target.Col - source.Col)

	n := 1 + dr + dc
	errAcc := dr - dc
	dr *= 2
	dc *= 2

	cells := make([]models.Cell, 0, n)
	cur := source
	for ; n > 0; n-- {
		cells = append(cells, cur)
		if errAcc > 0 {
			cur.Row += rowInc
			errAcc -= dc
		} else {
			cur.Col += colInc
			errAcc += dr
		}
	}
	return cells
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
