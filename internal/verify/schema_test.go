package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunal-dev/tribunal/internal/core"
)

const validPayload = `{
	"schema_version": 1,
	"scope_id": "acme/widgets#42@abc123",
	"status": "Blocked",
	"findings": [
		{
			"title": "Nil map write in cache warmup",
			"body": "warm() writes to c.entries before it is allocated.",
			"priority": "P0",
			"sources": ["internal/cache/cache.go#L40-L52"],
			"code_location": {
				"repo_relative_path": "internal/cache/cache.go",
				"line_range": {"start": 44, "end": 46}
			}
		}
	],
	"questions": [],
	"overall_explanation": "One blocking defect."
}`

func TestDecodeAspectResult_Valid(t *testing.T) {
	res, err := DecodeAspectResult([]byte(validPayload), "correctness", "acme/widgets#42@abc123")
	require.NoError(t, err)

	assert.Equal(t, "correctness", res.Aspect)
	assert.Equal(t, core.StatusBlocked, res.Status)
	require.Len(t, res.Findings, 1)
	f := res.Findings[0]
	assert.Equal(t, core.PriorityP0, f.Priority)
	assert.Equal(t, "internal/cache/cache.go", f.CodeLocation.Path)
	assert.Equal(t, core.LineRange{Start: 44, End: 46}, f.CodeLocation.LineRange)
	assert.False(t, f.Verified, "verification happens later, never at decode")
}

func TestDecodeAspectResult_Rejections(t *testing.T) {
	scope := "acme/widgets#42@abc123"
	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "not json",
			payload: `the change looks fine to me`,
		},
		{
			name:    "trailing data",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"Approved","findings":[],"questions":[],"overall_explanation":"ok"} {}`,
		},
		{
			name:    "unknown top-level field",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"Approved","findings":[],"questions":[],"overall_explanation":"ok","confidence":0.9}`,
		},
		{
			name: "unknown nested field",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"Blocked","findings":[{"title":"t","body":"b","priority":"P1","severity":"high","sources":[],"code_location":{"repo_relative_path":"a.go","line_range":{"start":1,"end":1}}}],"questions":[],"overall_explanation":""}`,
		},
		{
			name:    "wrong schema version",
			payload: `{"schema_version":2,"scope_id":"acme/widgets#42@abc123","status":"Approved","findings":[],"questions":[],"overall_explanation":"ok"}`,
		},
		{
			name:    "scope mismatch",
			payload: `{"schema_version":1,"scope_id":"other/repo#1@def","status":"Approved","findings":[],"questions":[],"overall_explanation":"ok"}`,
		},
		{
			name:    "unknown status",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"LGTM","findings":[],"questions":[],"overall_explanation":"ok"}`,
		},
		{
			name: "unknown priority",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"Blocked","findings":[{"title":"t","body":"b","priority":"critical","sources":[],"code_location":{"repo_relative_path":"a.go","line_range":{"start":1,"end":1}}}],"questions":[],"overall_explanation":""}`,
		},
		{
			name: "missing code location",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"Blocked","findings":[{"title":"t","body":"b","priority":"P0","sources":[]}],"questions":[],"overall_explanation":""}`,
		},
		{
			name: "inverted line range",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"Blocked","findings":[{"title":"t","body":"b","priority":"P0","sources":[],"code_location":{"repo_relative_path":"a.go","line_range":{"start":9,"end":3}}}],"questions":[],"overall_explanation":""}`,
		},
		{
			name: "zero start line",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"Blocked","findings":[{"title":"t","body":"b","priority":"P0","sources":[],"code_location":{"repo_relative_path":"a.go","line_range":{"start":0,"end":3}}}],"questions":[],"overall_explanation":""}`,
		},
		{
			name:    "approved with findings",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"Approved","findings":[{"title":"t","body":"b","priority":"P3","sources":[],"code_location":{"repo_relative_path":"a.go","line_range":{"start":1,"end":1}}}],"questions":[],"overall_explanation":""}`,
		},
		{
			name:    "blocked without blocking finding",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"Blocked","findings":[{"title":"t","body":"b","priority":"P3","sources":[],"code_location":{"repo_relative_path":"a.go","line_range":{"start":1,"end":1}}}],"questions":[],"overall_explanation":""}`,
		},
		{
			name:    "question without questions",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"Question","findings":[],"questions":[],"overall_explanation":""}`,
		},
		{
			name:    "nits with question attached",
			payload: `{"schema_version":1,"scope_id":"acme/widgets#42@abc123","status":"Approved with nits","findings":[],"questions":["is this intended?"],"overall_explanation":""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAspectResult([]byte(tt.payload), "correctness", scope)
			require.Error(t, err)

			var execErr *core.ExecFailureError
			assert.True(t, errors.As(err, &execErr), "schema violations are execution failures")
		})
	}
}
