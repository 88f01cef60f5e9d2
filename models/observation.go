package models

import "fmt"

// ========================================
// 로컬 관측 (Stacker)
// ========================================

// Classification - 방향별 관측 값
type Classification int

const (
	ViewEmpty        Classification = 0 // 비어 있음
	ViewSingleObject Classification = 1 // 단일 박스
	ViewBlocked      Classification = 2 // 벽/로봇/맵 밖/가득 찬 스택
	ViewStack        Classification = 3 // 스택 또는 수집 지점
)

func (c Classification) Valid() bool {
	return c >= ViewEmpty && c <= ViewStack
}

// LocalView - 4방향 관측 스냅샷
type LocalView struct {
	F Classification `json:"F"`
	B Classification `json:"B"`
	L Classification `json:"L"`
	R Classification `json:"R"`
}

// Get - 방향별 값
func (v LocalView) Get(d Direction) Classification {
	switch d {
	case Forward:
		return v.F
	case Backward:
		return v.B
	case Left:
		return v.L
	case Right:
		return v.R
	}
	return ViewBlocked
}

// Set - 방향별 값 설정
func (v *LocalView) Set(d Direction, c Classification) {
	switch d {
	case Forward:
		v.F = c
	case Backward:
		v.B = c
	case Left:
		v.L = c
	case Right:
		v.R = c
	}
}

// With - 값이 c 인 방향 목록 (F, B, L, R 순)
func (v LocalView) With(c Classification) []Direction {
	var dirs []Direction
	for _, d := range Directions {
		if v.Get(d) == c {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Validate - 값 범위 검사
func (v LocalView) Validate() error {
	for _, d := range Directions {
		if !v.Get(d).Valid() {
			return fmt.Errorf("direction %s: classification %d out of range", d, v.Get(d))
		}
	}
	return nil
}

// ========================================
// 시야 관측 (Camera / Drone / Guard)
// ========================================

// DetectionClass - 감지 결과
type DetectionClass int

const (
	DetectNothing DetectionClass = 0 // 감지 없음
	DetectBenign  DetectionClass = 1 // 동물/사물 (무해)
	DetectTarget  DetectionClass = 2 // 도주자 (추적 대상)
)

func (d DetectionClass) Valid() bool {
	return d >= DetectNothing && d <= DetectTarget
}

func (d DetectionClass) String() string {
	switch d {
	case DetectNothing:
		return "nothing"
	case DetectBenign:
		return "benign"
	case DetectTarget:
		return "target"
	}
	return fmt.Sprintf("detection(%d)", int(d))
}

// VisionObservation - 시야 기반 에이전트의 관측
//
// DetectedPosition 은 절대 좌표, DetectedOffset 은 관측자 기준 상대 좌표.
// 둘 다 오면 절대 좌표를 우선한다.
type VisionObservation struct {
	Position         *Cell          `json:"position"`
	Detected         DetectionClass `json:"detected"`
	DetectedPosition *Cell          `json:"detected_position"`
	DetectedOffset   *Cell          `json:"detected_offset,omitempty"`
}

// ========================================
// 인지 입력 레코드
// ========================================

// StackerPerception - Stacker 한 대의 틱 입력
type StackerPerception struct {
	AgentID int       `json:"agent_id"`
	Local   LocalView `json:"local_observation"`
}

// VisionPerception - Camera/Drone/Guard 한 대의 틱 입력
type VisionPerception struct {
	AgentID     int               `json:"agent_id"`
	Observation VisionObservation `json:"local_observation"`
}

// SecurityPerceptions - 보안 시뮬레이션 요청 본문
// 현재 페이즈에 해당하는 목록만 사용된다.
type SecurityPerceptions struct {
	Camera []VisionPerception `json:"Camera,omitempty"`
	Drone  []VisionPerception `json:"Drone,omitempty"`
	Guard  []VisionPerception `json:"Guard,omitempty"`
}
