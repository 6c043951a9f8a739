package imagelist

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func scriptFor(positions []int) string {
	var sb strings.Builder
	sb.WriteString("function decode(str) {\n")
	for i, p := range positions {
		fmt.Fprintf(&sb, "  var k%d = str.charAt( %d );\n", i, p)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func TestUnscramble_HandTraces(t *testing.T) {
	tests := []struct {
		name      string
		decrypted string
		positions []int
		want      string
	}{
		{
			// digits '2' and '0' are read; ",,3,1" is left and the only
			// odd swap (3,1) exchanges two commas
			name:      "positions 0 and 2",
			decrypted: "2,0,3,1",
			positions: []int{0, 2},
			want:      ",,3,1",
		},
		{
			// keys [2,3]; ",0,,1" after removal; k=3 swaps (3,0),
			// then k=2 swaps (3,1) moving the 0 right
			name:      "positions 0 and 4",
			decrypted: "2,0,3,1",
			positions: []int{0, 4},
			want:      ",,,01",
		},
		{
			// key [1]; "abcd" after removal; swaps (3,2) then (1,0)
			name:      "single key",
			decrypted: "1abcd",
			positions: []int{0},
			want:      "badc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unscramble(tt.decrypted, scriptFor(tt.positions)); got != tt.want {
				t.Errorf("Unscramble(%q) = %q, want %q", tt.decrypted, got, tt.want)
			}
		})
	}
}

func TestUnscramble_RoundTrip(t *testing.T) {
	list := "https://iweb_5.example.com/cspiclink/a/1.jpg,https://iweb_5.example.com/cspiclink/a/2.jpg,https://iweb_5.example.com/cspiclink/a/3.jpg"
	tests := []struct {
		name      string
		keys      []int
		positions []int
	}{
		{name: "no keys"},
		{name: "one key", keys: []int{7}, positions: []int{12}},
		{name: "five keys", keys: []int{3, 0, 9, 5, 1}, positions: []int{2, 17, 40, 41, 99}},
		{name: "five keys at the front", keys: []int{1, 2, 3, 4, 5}, positions: []int{0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scrambled, err := Scramble(list, tt.keys, tt.positions)
			if err != nil {
				t.Fatalf("Scramble() error = %v", err)
			}
			if len(tt.keys) > 0 && scrambled == list {
				t.Fatal("Scramble() did not change the list")
			}
			if got := Unscramble(scrambled, scriptFor(tt.positions)); got != list {
				t.Errorf("Unscramble(Scramble(list)) = %q", got)
			}
		})
	}
}

func TestUnscramble_IdentityWithoutMarkers(t *testing.T) {
	inputs := []string{
		"",
		"1,2,3",
		"https://img.example.com/1.jpg,https://img.example.com/2.jpg",
		"0123456789",
	}
	scripts := []string{
		"",
		"var key = CryptoJS.enc.Hex.parse(\"00\");",
		"str.charAt(x); charAt(3); str.charAt()",
	}
	for _, in := range inputs {
		for _, script := range scripts {
			if got := Unscramble(in, script); got != in {
				t.Errorf("Unscramble(%q, %q) = %q, want input unchanged", in, script, got)
			}
		}
	}
}

func TestUnscramble_AlreadyPlain(t *testing.T) {
	tests := []struct {
		name      string
		list      string
		positions []int
	}{
		{name: "non-digit at position", list: "https://a/1.jpg", positions: []int{0, 9}},
		{name: "position past end", list: "12345", positions: []int{1, 5}},
		{name: "huge position", list: "12345", positions: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := scriptFor(tt.positions)
			if tt.positions == nil {
				script = "str.charAt(99999999999999999999999)"
			}
			if got := Unscramble(tt.list, script); got != tt.list {
				t.Errorf("Unscramble() = %q, want %q", got, tt.list)
			}
		})
	}
}

func TestKeyPositions(t *testing.T) {
	script := "str.charAt(9) + str.charAt( 2 ) + str.charAt(9) + other.charAt(4) + str.charAt(0)"
	want := []int{0, 2, 9}
	if got := KeyPositions(script); !reflect.DeepEqual(got, want) {
		t.Errorf("KeyPositions() = %v, want %v", got, want)
	}
}

func TestScramble_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		keys      []int
		positions []int
	}{
		{"length mismatch", []int{1}, nil},
		{"two digit key", []int{10}, []int{0}},
		{"unsorted", []int{1, 2}, []int{3, 1}},
		{"past end", []int{1}, []int{50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Scramble("abc", tt.keys, tt.positions); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSplitURLs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , ,b,,\n", []string{"a", "b"}},
		{"", []string{}},
		{",,,", []string{}},
	}
	for _, tt := range tests {
		if got := SplitURLs(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitURLs(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
