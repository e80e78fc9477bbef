package wrach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"default is valid", DefaultConfig(), nil},
		{"zero width", Config{Dimensions: [2]uint16{0, 10}, CellSize: 2}, ErrInvalidConfig},
		{"zero height", Config{Dimensions: [2]uint16{10, 0}, CellSize: 2}, ErrInvalidConfig},
		{"zero cell size", Config{Dimensions: [2]uint16{10, 10}, CellSize: 0}, ErrInvalidConfig},
		{"viewport smaller than one cell", Config{Dimensions: [2]uint16{1, 1}, CellSize: 5}, ErrInvalidConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
