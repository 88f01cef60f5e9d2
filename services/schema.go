package services

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"sion-backend/models"
	"sion-backend/simulation"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://sion.tolelom.xyz/schemas/"

const (
	stackingSchema = "stacking_step.schema.json"
	securitySchema = "security_detect.schema.json"
)

// PerceptionValidator - 요청 본문 검사 후 디코딩
//
// 최상위 형태가 틀리면 요청 전체를 거부한다. 레코드 하나가 틀리면 그 레코드만
// 건너뛰고 AgentError 로 돌려준다. 값의 의미(범위, 에이전트 존재)는 엔진이
// 에이전트 단위로 다시 검사한다.
type PerceptionValidator struct {
	stacking       *jsonschema.Schema
	stackingRecord *jsonschema.Schema
	security       *jsonschema.Schema
	securityRecord *jsonschema.Schema
}

// NewPerceptionValidator - 내장 스키마 컴파일
func NewPerceptionValidator() (*PerceptionValidator, error) {
	c := jsonschema.NewCompiler()
	for _, name := range []string{stackingSchema, securitySchema} {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
	}

	v := &PerceptionValidator{}
	targets := []struct {
		dst **jsonschema.Schema
		url string
	}{
		{&v.stacking, schemaBaseURL + stackingSchema},
		{&v.stackingRecord, schemaBaseURL + stackingSchema + "#/$defs/perception"},
		{&v.security, schemaBaseURL + securitySchema},
		{&v.securityRecord, schemaBaseURL + securitySchema + "#/$defs/perception"},
	}
	for _, t := range targets {
		s, err := c.Compile(t.url)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", t.url, err)
		}
		*t.dst = s
	}
	return v, nil
}

// ParseStacking - Stacker 관측 목록. 틀린 레코드는 skipped 로 빠진다
func (v *PerceptionValidator) ParseStacking(body []byte) ([]models.StackerPerception, []models.AgentError, error) {
	var items []json.RawMessage
	if err := decodeTop(v.stacking, body, &items); err != nil {
		return nil, nil, err
	}

	out := make([]models.StackerPerception, 0, len(items))
	var skipped []models.AgentError
	for i, raw := range items {
		var p models.StackerPerception
		if err := decodeRecord(v.stackingRecord, raw, &p); err != nil {
			skipped = append(skipped, recordError(raw, fmt.Sprintf("[%d]", i), err))
			continue
		}
		out = append(out, p)
	}
	return out, skipped, nil
}

// ParseSecurity - {"Camera"|"Drone"|"Guard": [...]}. 틀린 레코드는 skipped 로 빠진다
func (v *PerceptionValidator) ParseSecurity(body []byte) (models.SecurityPerceptions, []models.AgentError, error) {
	var top map[string][]json.RawMessage
	if err := decodeTop(v.security, body, &top); err != nil {
		return models.SecurityPerceptions{}, nil, err
	}

	var in models.SecurityPerceptions
	var skipped []models.AgentError
	roles := []struct {
		key string
		dst *[]models.VisionPerception
	}{
		{"Camera", &in.Camera},
		{"Drone", &in.Drone},
		{"Guard", &in.Guard},
	}
	for _, role := range roles {
		for i, raw := range top[role.key] {
			var p models.VisionPerception
			if err := decodeRecord(v.securityRecord, raw, &p); err != nil {
				skipped = append(skipped, recordError(raw, fmt.Sprintf("%s[%d]", role.key, i), err))
				continue
			}
			*role.dst = append(*role.dst, p)
		}
	}
	return in, skipped, nil
}

// decodeTop - 최상위 형태 검사. 실패하면 요청 전체가 invalid perception
func decodeTop(s *jsonschema.Schema, body []byte, dst interface{}) error {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("malformed json: %v: %w", err, simulation.ErrInvalidPerception)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%v: %w", err, simulation.ErrInvalidPerception)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%v: %w", err, simulation.ErrInvalidPerception)
	}
	return nil
}

func decodeRecord(s *jsonschema.Schema, raw json.RawMessage, dst interface{}) error {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// recordError - agent_id 를 읽을 수 없으면 -1
func recordError(raw json.RawMessage, where string, err error) models.AgentError {
	id := -1
	var head struct {
		AgentID *int `json:"agent_id"`
	}
	if json.Unmarshal(raw, &head) == nil && head.AgentID != nil {
		id = *head.AgentID
	}
	return models.AgentError{
		AgentID: id,
		Code:    simulation.CodeInvalidPerception,
		Error:   fmt.Sprintf("record %s: %v", where, err),
	}
}
