package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeOfDayAddCarriesMinutes(t *testing.T) {
	start := TimeOfDay{Hour: 7, Minute: 30}
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 0}, start.Add(90))
	assert.Equal(t, TimeOfDay{Hour: 7, Minute: 30}, start.Add(0))
	assert.Equal(t, TimeOfDay{Hour: 10, Minute: 15}, TimeOfDay{Hour: 9, Minute: 45}.Add(30))
}

func TestWindowOverlapsHalfOpen(t *testing.T) {
	a := Window{Start: TimeOfDay{8, 0}, End: TimeOfDay{9, 30}}

	tests := []struct {
		name    string
		other   Window
		overlap bool
	}{
		{"identical", Window{TimeOfDay{8, 0}, TimeOfDay{9, 30}}, true},
		{"contained", Window{TimeOfDay{8, 30}, TimeOfDay{9, 0}}, true},
		{"partial tail", Window{TimeOfDay{9, 0}, TimeOfDay{10, 0}}, true},
		{"partial head", Window{TimeOfDay{7, 0}, TimeOfDay{8, 30}}, true},
		{"touching end", Window{TimeOfDay{9, 30}, TimeOfDay{11, 0}}, false},
		{"touching start", Window{TimeOfDay{7, 0}, TimeOfDay{8, 0}}, false},
		{"disjoint", Window{TimeOfDay{11, 0}, TimeOfDay{12, 0}}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlap, a.Overlaps(tc.other))
			assert.Equal(t, tc.overlap, tc.other.Overlaps(a))
		})
	}
}

func TestNextStartEmptyDayUsesConfiguredHour(t *testing.T) {
	got := nextStart(nil, 7, 30)
	assert.Equal(t, TimeOfDay{Hour: 7, Minute: 30}, got)
}

func TestNextStartAppendsBreakAfterLastEnd(t *testing.T) {
	placed := []Window{
		{TimeOfDay{7, 30}, TimeOfDay{9, 0}},
		{TimeOfDay{9, 30}, TimeOfDay{11, 0}},
	}
	assert.Equal(t, TimeOfDay{Hour: 11, Minute: 30}, nextStart(placed, 7, 30))
}

func TestNextStartCarriesIntoNextHour(t *testing.T) {
	placed := []Window{{TimeOfDay{13, 45}, TimeOfDay{14, 50}}}
	assert.Equal(t, TimeOfDay{Hour: 15, Minute: 20}, nextStart(placed, 7, 30))
}
