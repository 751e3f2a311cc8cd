package chapter

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func chapters(positions map[string]int) []Chapter {
	out := make([]Chapter, 0, len(positions))
	for id, pos := range positions {
		out = append(out, Chapter{ID: id, Position: pos})
	}
	return out
}

func TestReordered(t *testing.T) {
	tests := []struct {
		name    string
		current map[string]int
		moves   []Move
		want    map[string]int
		wantErr string
	}{
		{
			name:    "no moves keeps every position",
			current: map[string]int{"a": 1, "b": 2, "c": 3},
			moves:   nil,
			want:    map[string]int{"a": 1, "b": 2, "c": 3},
		},
		{
			name:    "swap of two chapters",
			current: map[string]int{"a": 1, "b": 2, "c": 3},
			moves:   []Move{{ID: "a", Position: 3}, {ID: "c", Position: 1}},
			want:    map[string]int{"a": 3, "b": 2, "c": 1},
		},
		{
			name:    "full rotation",
			current: map[string]int{"a": 1, "b": 2, "c": 3},
			moves:   []Move{{ID: "a", Position: 2}, {ID: "b", Position: 3}, {ID: "c", Position: 1}},
			want:    map[string]int{"a": 2, "b": 3, "c": 1},
		},
		{
			name:    "later move wins over an earlier one",
			current: map[string]int{"a": 1, "b": 2},
			moves:   []Move{{ID: "a", Position: 5}, {ID: "a", Position: 3}},
			want:    map[string]int{"a": 3, "b": 2},
		},
		{
			name:    "move colliding with an unmoved chapter",
			current: map[string]int{"a": 1, "b": 2},
			moves:   []Move{{ID: "a", Position: 2}},
			wantErr: "share position 2",
		},
		{
			name:    "two moves landing on the same slot",
			current: map[string]int{"a": 1, "b": 2, "c": 3},
			moves:   []Move{{ID: "a", Position: 4}, {ID: "b", Position: 4}},
			wantErr: "share position 4",
		},
		{
			name:    "move targeting a foreign chapter",
			current: map[string]int{"a": 1},
			moves:   []Move{{ID: "z", Position: 2}},
			wantErr: "does not belong to the course",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reordered(chapters(tt.current), tt.moves)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Reordered() = %v, want error containing %q", got, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Reordered() error %q, want it to contain %q", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("Reordered() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Reordered() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReorderedErrorIsStable(t *testing.T) {
	current := chapters(map[string]int{"a": 1, "b": 2, "c": 3})
	moves := []Move{{ID: "c", Position: 1}}

	first := ""
	for i := 0; i < 20; i++ {
		_, err := Reordered(current, moves)
		if err == nil {
			t.Fatal("Reordered() accepted a colliding move")
		}
		if first == "" {
			first = err.Error()
		}
		if err.Error() != first {
			t.Fatalf("error message changed between runs: %q vs %q", first, err.Error())
		}
	}
}
