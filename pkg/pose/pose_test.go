package pose

import "testing"

func TestConnections_InRange(t *testing.T) {
	seen := make(map[Connection]bool)
	for _, c := range Connections {
		if c.From < 0 || c.From >= NumKeypoints || c.To < 0 || c.To >= NumKeypoints {
			t.Errorf("connection %+v out of range", c)
		}
		if c.From == c.To {
			t.Errorf("connection %+v is a self loop", c)
		}
		if seen[c] || seen[Connection{c.To, c.From}] {
			t.Errorf("connection %+v duplicated", c)
		}
		seen[c] = true
	}
	if len(Connections) != 19 {
		t.Errorf("expected 19 COCO skeleton edges, got %d", len(Connections))
	}
}

func TestPose_Landmark(t *testing.T) {
	p := &Pose{Landmarks: []Landmark{
		{X: 0.1, Y: 0.2, Visibility: 0.9},
		{X: 0.3, Y: 0.4, Visibility: 0.2},
	}}

	tests := []struct {
		name   string
		pose   *Pose
		idx    int
		wantOK bool
	}{
		{"visible", p, 0, true},
		{"below threshold", p, 1, false},
		{"out of range", p, 5, false},
		{"negative index", p, -1, false},
		{"nil pose", nil, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := tc.pose.Landmark(tc.idx, DefaultVisibility)
			if ok != tc.wantOK {
				t.Errorf("Landmark(%d): got ok=%v, want %v", tc.idx, ok, tc.wantOK)
			}
		})
	}
}

func TestPose_VisibleCount(t *testing.T) {
	if n := StandingPose().VisibleCount(DefaultVisibility); n != NumKeypoints {
		t.Errorf("StandingPose: got %d visible, want %d", n, NumKeypoints)
	}
	var nilPose *Pose
	if n := nilPose.VisibleCount(DefaultVisibility); n != 0 {
		t.Errorf("nil pose: got %d visible, want 0", n)
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name      string
		poses     []Pose
		expectNil bool
		expectIdx int
	}{
		{
			name:      "empty list",
			poses:     []Pose{},
			expectNil: true,
		},
		{
			name:      "single pose",
			poses:     []Pose{{Box: Box{W: 0.2, H: 0.2}, Score: 0.9}},
			expectIdx: 0,
		},
		{
			name: "high confidence beats larger area",
			poses: []Pose{
				{Box: Box{W: 0.4, H: 0.4}, Score: 0.5},
				{Box: Box{W: 0.2, H: 0.2}, Score: 0.95},
			},
			expectIdx: 1, // 0.95*0.7 + 0.25*0.3 = 0.74 vs 0.5*0.7 + 1.0*0.3 = 0.65
		},
		{
			name: "similar confidence picks larger",
			poses: []Pose{
				{Box: Box{W: 0.5, H: 0.5}, Score: 0.8},
				{Box: Box{W: 0.1, H: 0.1}, Score: 0.8},
			},
			expectIdx: 0,
		},
		{
			name: "zero area boxes fall back to confidence",
			poses: []Pose{
				{Score: 0.6},
				{Score: 0.7},
			},
			expectIdx: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			best := SelectBest(tc.poses)
			if tc.expectNil {
				if best != nil {
					t.Errorf("SelectBest: expected nil, got %+v", best)
				}
				return
			}
			if best != &tc.poses[tc.expectIdx] {
				t.Errorf("SelectBest: got %+v, want index %d", best, tc.expectIdx)
			}
		})
	}
}
