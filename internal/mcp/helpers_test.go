package mcpserver

import "testing"

func TestOptFloat(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{10.5, 10.5, true},
		{7, 7, true},
		{" 12.5 ", 12.5, true},
		{"-3e1", -30, true},
		{"10mm", 0, false},
		{"12,5", 0, false},
		{"", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := optFloat(map[string]any{"v": tt.in}, "v")
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("optFloat(%#v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestGetInt(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		want    int
		wantErr bool
	}{
		{"absent", map[string]any{}, 6, false},
		{"null", map[string]any{"n": nil}, 6, false},
		{"whole float", map[string]any{"n": 4.0}, 4, false},
		{"numeric string", map[string]any{"n": "5"}, 5, false},
		{"fraction", map[string]any{"n": 3.6}, 0, true},
		{"garbage", map[string]any{"n": "four"}, 0, true},
		{"trailing unit", map[string]any{"n": "4x"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := getInt(tt.args, "n", 6)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
