package algorithms

import (
	"container/heap"
	"fmt"

	"sion-backend/models"
)

// Node - 우선순위 큐 노드
type Node struct {
	Cell   models.Cell
	G      int // 시작점부터 비용
	H      int // 목표까지 추정 비용 (맨해튼)
	F      int // G + H
	Parent *Node
	seq    int // 삽입 순서 (동점 처리)
	index  int
}

// PriorityQueue - F, G, 삽입 순서 순으로 정렬되는 최소 힙
type PriorityQueue []*Node

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	if pq[i].F != pq[j].F {
		return pq[i].F < pq[j].F
	}
	if pq[i].G != pq[j].G {
		return pq[i].G < pq[j].G
	}
	return pq[i].seq < pq[j].seq
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	node := x.(*Node)
	node.index = n
	*pq = append(*pq, node)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*pq = old[0 : n-1]
	return node
}

// FindPath - 4방향 A* 경로 탐색
//
// 반환 경로는 start 와 goal 을 포함한다. 벽만 장애물로 보고,
// 에이전트가 서 있는 셀은 지나갈 수 있다고 본다 (이동 시점에 다시 확인).
func (g *Grid) FindPath(start, goal models.Cell) ([]models.Cell, error) {
	if !g.InBounds(start) {
		return nil, fmt.Errorf("path start %s: %w", start, ErrOutOfBounds)
	}
	if !g.InBounds(goal) {
		return nil, fmt.Errorf("path goal %s: %w", goal, ErrOutOfBounds)
	}
	if start == goal {
		return []models.Cell{start}, nil
	}
	if g.IsWall(goal) || g.IsWall(start) {
		return nil, fmt.Errorf("path %s -> %s: wall endpoint: %w", start, goal, ErrUnreachable)
	}

	seq := 0
	openList := &PriorityQueue{}
	heap.Init(openList)
	h := start.Manhattan(goal)
	heap.Push(openList, &Node{Cell: start, G: 0, H: h, F: h, seq: seq})

	gScores := map[models.Cell]int{start: 0}
	closedSet := make(map[models.Cell]bool)

	for openList.Len() > 0 {
		current := heap.Pop(openList).(*Node)
		if closedSet[current.Cell] {
			continue
		}
		if current.Cell == goal {
			return reconstructPath(current), nil
		}
		closedSet[current.Cell] = true

		for _, neighbor := range g.Neighbors(current.Cell) {
			if closedSet[neighbor] || g.IsWall(neighbor) {
				continue
			}
			tentativeG := current.G + 1
			if existing, ok := gScores[neighbor]; ok && tentativeG >= existing {
				continue
			}
			gScores[neighbor] = tentativeG

			seq++
			nh := neighbor.Manhattan(goal)
			heap.Push(openList, &Node{
				Cell:   neighbor,
				G:      tentativeG,
				H:      nh,
				F:      tentativeG + nh,
				Parent: current,
				seq:    seq,
			})
		}
	}

	return nil, fmt.Errorf("path %s -> %s: %w", start, goal, ErrUnreachable)
}

func reconstructPath(n *Node) []models.Cell {
	var path []models.Cell
	for n != nil {
		path = append(path, n.Cell)
		n = n.Parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathDirections - 경로를 칸별 이동 방향으로 변환
func PathDirections(path []models.Cell) ([]models.Direction, error) {
	if len(path) < 2 {
		return nil, nil
	}
	dirs := make([]models.Direction, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		d, ok := models.DirectionBetween(path[i-1], path[i])
		if !ok {
			return nil, fmt.Errorf("path step %s -> %s not adjacent: %w", path[i-1], path[i], ErrInvalidArgument)
		}
		dirs = append(dirs, d)
	}
	return dirs, nil
}
