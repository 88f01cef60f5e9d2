package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sion-backend/models"
	"sion-backend/simulation"
)

func TestParseStacking(t *testing.T) {
	v, err := NewPerceptionValidator()
	require.NoError(t, err)

	ps, skipped, err := v.ParseStacking([]byte(`[
	  {"agent_id":0,"local_observation":{"F":1,"B":0,"L":2,"R":3}},
	  {"agent_id":1,"local_observation":{"F":9,"B":0,"L":0,"R":0}}
	]`))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, ps, 2)
	assert.Equal(t, models.Classification(9), ps[1].Local.F, "out-of-range values are checked per agent by the engine")

	ps, skipped, err = v.ParseStacking([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, ps)
	assert.Empty(t, skipped)
}

func TestParseStackingSkipsBadRecords(t *testing.T) {
	v, err := NewPerceptionValidator()
	require.NoError(t, err)

	ps, skipped, err := v.ParseStacking([]byte(`[
	  {"agent_id":0,"local_observation":{"F":1,"B":0,"L":2}},
	  {"agent_id":"zero","local_observation":{"F":1,"B":0,"L":2,"R":0}},
	  {"agent_id":2,"local_observation":{"F":1.5,"B":0,"L":2,"R":0}},
	  {"local_observation":{"F":1,"B":0,"L":2,"R":0}},
	  7,
	  {"agent_id":3,"local_observation":{"F":0,"B":0,"L":0,"R":0}}
	]`))
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, 3, ps[0].AgentID)

	require.Len(t, skipped, 5)
	ids := make([]int, 0, len(skipped))
	for _, s := range skipped {
		assert.Equal(t, simulation.CodeInvalidPerception, s.Code)
		assert.NotEmpty(t, s.Error)
		ids = append(ids, s.AgentID)
	}
	assert.Equal(t, []int{0, -1, 2, -1, -1}, ids)
}

func TestParseStackingRejectsShape(t *testing.T) {
	v, err := NewPerceptionValidator()
	require.NoError(t, err)

	for _, body := range []string{`{"agent_id":0}`, `not json`, `null`, `"x"`} {
		_, _, err := v.ParseStacking([]byte(body))
		assert.ErrorIs(t, err, simulation.ErrInvalidPerception, body)
	}
}

func TestParseSecurity(t *testing.T) {
	v, err := NewPerceptionValidator()
	require.NoError(t, err)

	good := []string{
		`{"Camera":[{"agent_id":1,"local_observation":{"detected":2,"detected_position":[5,50]}}]}`,
		`{"Camera":[{"agent_id":1,"local_observation":{"detected":2,"detected_offset":[-9,10]}}]}`,
		`{"Drone":[{"agent_id":4,"local_observation":{"position":[3,50],"detected":0,"detected_position":null}}]}`,
		`{"Guard":[]}`,
		`{}`,
	}
	for _, body := range good {
		_, skipped, err := v.ParseSecurity([]byte(body))
		assert.NoError(t, err, body)
		assert.Empty(t, skipped, body)
	}

	in, _, err := v.ParseSecurity([]byte(good[0]))
	require.NoError(t, err)
	require.Len(t, in.Camera, 1)
	require.NotNil(t, in.Camera[0].Observation.DetectedPosition)
	assert.Equal(t, models.Cell{Row: 5, Col: 50}, *in.Camera[0].Observation.DetectedPosition)
}

func TestParseSecuritySkipsBadRecords(t *testing.T) {
	v, err := NewPerceptionValidator()
	require.NoError(t, err)

	in, skipped, err := v.ParseSecurity([]byte(`{
	  "Camera":[
	    {"agent_id":1,"local_observation":{"detected_position":[5,50]}},
	    {"agent_id":2,"local_observation":{"detected":2,"detected_position":[5]}},
	    {"agent_id":3,"local_observation":{"detected":2,"detected_position":[5,50]}}
	  ],
	  "Drone":[{"agent_id":4,"local_observation":{"position":"3,50","detected":0}}]
	}`))
	require.NoError(t, err)
	require.Len(t, in.Camera, 1)
	assert.Equal(t, 3, in.Camera[0].AgentID)
	assert.Empty(t, in.Drone)

	require.Len(t, skipped, 3)
	assert.Equal(t, 1, skipped[0].AgentID)
	assert.Equal(t, 2, skipped[1].AgentID)
	assert.Equal(t, 4, skipped[2].AgentID)
	assert.Contains(t, skipped[2].Error, "Drone[0]")
}

func TestParseSecurityRejectsShape(t *testing.T) {
	v, err := NewPerceptionValidator()
	require.NoError(t, err)

	for _, body := range []string{`{"Robot":[]}`, `[]`, `{"Camera":{}}`, `not json`} {
		_, _, err := v.ParseSecurity([]byte(body))
		assert.ErrorIs(t, err, simulation.ErrInvalidPerception, body)
	}
}
