package chapterjs

import (
	"strings"
	"testing"

	"github.com/ytget/mangadl/errs"
)

func TestDeobfuscate_RoundTrip(t *testing.T) {
	inputs := []string{
		"a",
		"var key = 1;",
		`var key=CryptoJS.enc.Hex.parse("00112233445566778899aabbccddeeff");`,
		"line one\nline two\ttabbed\r\n",
		"~!@#$%^&*()_+`-=[]{}|;':\",./<>?",
		"unicode is fine too: é中",
		"var s='😀';",
		"𝄞 mixed 中 and 🀄",
	}
	for _, in := range inputs {
		out, err := Deobfuscate(Obfuscate(in))
		if err != nil {
			t.Fatalf("Deobfuscate(Obfuscate(%q)) error = %v", in, err)
		}
		if out != in {
			t.Errorf("round trip = %q, want %q", out, in)
		}
	}
}

func TestDeobfuscate_AllASCII(t *testing.T) {
	var sb strings.Builder
	for c := 0; c < 128; c++ {
		sb.WriteByte(byte(c))
	}
	in := sb.String()
	out, err := Deobfuscate(Obfuscate(in))
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("ASCII round trip mismatch")
	}
}

func TestObfuscate_Layout(t *testing.T) {
	out := Obfuscate("AB")
	if !strings.HasPrefix(out, SojsonMarker) {
		t.Fatalf("missing marker: %q", out[:20])
	}
	if got := out[sojsonPrefixLen : len(out)-sojsonSuffixLen]; got != "65Xq66" {
		t.Errorf("body = %q, want %q", got, "65Xq66")
	}
}

func TestDeobfuscate_Errors(t *testing.T) {
	valid := Obfuscate("var a = 1;")
	body := func(b string) string {
		return valid[:sojsonPrefixLen] + b + valid[len(valid)-sojsonSuffixLen:]
	}

	tests := []struct {
		name  string
		input string
	}{
		{name: "wrong header", input: "eval(function(p,a,c,k,e,d){})" + valid},
		{name: "empty", input: ""},
		{name: "too short", input: valid[:200]},
		{name: "symbol in body", input: body("65a66-67")},
		{name: "leading letters", input: body("x65a66")},
		{name: "trailing letters", input: body("65a66z")},
		{name: "char code above 16 bits", input: body("65536")},
		{name: "char code wrapping to ASCII", input: body("4294967361")},
		{name: "char code above 64 bits", input: body("18446744073709551617")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deobfuscate(tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errs.IsFormat(err) {
				t.Errorf("expected format error, got %v", err)
			}
		})
	}
}

func TestDeobfuscate_SurrogatePairs(t *testing.T) {
	valid := Obfuscate("x")
	body := func(b string) string {
		return valid[:sojsonPrefixLen] + b + valid[len(valid)-sojsonSuffixLen:]
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "pair joined", body: "118x97x114x32x115x61x39x55357x56832x39x59", want: "var s='😀';"},
		{name: "lone high surrogate", body: "65a55296a66", want: "A\uFFFDB"},
		{name: "lone low surrogate", body: "56832", want: "\uFFFD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Deobfuscate(body(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObfuscate_EmitsCodeUnits(t *testing.T) {
	out := Obfuscate("😀")
	if got := out[sojsonPrefixLen : len(out)-sojsonSuffixLen]; got != "55357Xq56832" {
		t.Errorf("body = %q, want %q", got, "55357Xq56832")
	}
}

func TestDeobfuscate_EmptyBody(t *testing.T) {
	out, err := Deobfuscate(Obfuscate(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("got %q", out)
	}
}
