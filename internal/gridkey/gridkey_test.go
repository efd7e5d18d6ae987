package gridkey

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		id     string
		prefix string
		x, y   int
	}{
		{"tile_0_0", "tile", 0, 0},
		{"tile_512_768", "tile", 512, 768},
		{"pond_mask_4848_0", "pond_mask", 4848, 0},
		{"a_007_10", "a", 7, 10},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			k, err := Parse(tt.id)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.id, err)
			}
			if k.Prefix != tt.prefix || k.X != tt.x || k.Y != tt.y {
				t.Errorf("Parse(%q): got (%q,%d,%d), want (%q,%d,%d)",
					tt.id, k.Prefix, k.X, k.Y, tt.prefix, tt.x, tt.y)
			}
			if k.ID != tt.id {
				t.Errorf("ID: got %q, want %q", k.ID, tt.id)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		"",
		"tile",
		"tile_1",
		"_1_2",
		"tile_x_2",
		"tile_1_y",
		"tile_-1_2",
		"tile_+1_2",
		"tile_1_2_3",
		"tile_1.5_2",
		"tile__2",
	}

	for _, id := range tests {
		t.Run(id, func(t *testing.T) {
			_, err := Parse(id)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", id)
			}
			if !errors.Is(err, ErrMalformedIdentifier) {
				t.Errorf("error should match ErrMalformedIdentifier, got %v", err)
			}
			var mie *MalformedIdentifierError
			if !errors.As(err, &mie) || mie.ID != id {
				t.Errorf("error should be *MalformedIdentifierError for %q, got %T", id, err)
			}
		})
	}
}

func TestParseFilename(t *testing.T) {
	k, err := ParseFilename("/data/arrays/tile_256_128.npy")
	if err != nil {
		t.Fatalf("ParseFilename failed: %v", err)
	}
	if k.ID != "tile_256_128" || k.X != 256 || k.Y != 128 {
		t.Errorf("got %+v", k)
	}

	if _, err := ParseFilename("notes.txt"); !errors.Is(err, ErrMalformedIdentifier) {
		t.Errorf("ParseFilename(notes.txt): expected malformed error, got %v", err)
	}
}

func TestSort(t *testing.T) {
	keys := []Key{
		{ID: "t_10_0", X: 10, Y: 0},
		{ID: "t_0_5", X: 0, Y: 5},
		{ID: "u_0_5", X: 0, Y: 5},
		{ID: "t_0_0", X: 0, Y: 0},
		{ID: "t_2_100", X: 2, Y: 100},
	}

	Sort(keys, func(k Key) Key { return k })

	want := []string{"t_0_0", "t_0_5", "u_0_5", "t_2_100", "t_10_0"}
	for i, id := range want {
		if keys[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, keys[i].ID, id)
		}
	}
}

func TestLess_Numeric(t *testing.T) {
	// Lexical order would put 1000 before 200.
	a := Key{ID: "t_200_0", X: 200}
	b := Key{ID: "t_1000_0", X: 1000}
	if !Less(a, b) || Less(b, a) {
		t.Error("offsets must compare numerically")
	}
}
