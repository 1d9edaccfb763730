package inspect

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const recording = `{"telemetry":{"sessionTime":1.5,"carIdxLap":[1,2]}}
{"roster":{"trackLength":"5.00 km"}}

{"telemetry":{"sessionTime":2.5,"carIdxLap":[1,3]}}
`

func TestInspect(t *testing.T) {
	tests := []struct {
		name string
		cfg  inspectConfig
		want string
	}{
		{
			"session time",
			inspectConfig{path: "$.telemetry.sessionTime", skip: true},
			"1\t1.5\n4\t2.5\n",
		},
		{
			"array element",
			inspectConfig{path: "$.telemetry.carIdxLap[1]", skip: true},
			"1\t2\n4\t3\n",
		},
		{
			"keep empty",
			inspectConfig{path: "$.roster.trackLength", skip: false},
			"1\t[]\n2\t\"5.00 km\"\n4\t[]\n",
		},
		{
			"limit",
			inspectConfig{path: "$.telemetry.sessionTime", skip: true, limit: 2},
			"1\t1.5\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.NoError(t, inspect(strings.NewReader(recording), &out, &tt.cfg))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestInspectErrors(t *testing.T) {
	var out bytes.Buffer
	err := inspect(strings.NewReader("{broken\n"), &out, &inspectConfig{path: "$"})
	assert.ErrorContains(t, err, "line 1")

	err = inspect(strings.NewReader(recording), &out, &inspectConfig{path: "$[["})
	assert.ErrorContains(t, err, "invalid path")
}
