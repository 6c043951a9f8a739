package reader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ytget/mangadl/client"
	"github.com/ytget/mangadl/errs"
)

const desktopPage = `<html><head>
<script src="/r/l_manga/chapter.js?v=2"></script>
<script type="text/javascript">
var imgsrcs = 'QUJDRA==';
var total_pages = 3;
</script>
</head><body><div id="pic_container"></div></body></html>`

const mobilePage = `<html><head>
<script src="https://js.mangago.me/chapter.js"></script>
<script>var imgsrcs = "Zm9vYmFy";</script>
</head><body>
<div class="controls"><ul id="dropdown-menu-page">
<li>1</li><li>2</li><li>3</li><li>4</li><li>5</li><li>6</li><li>7</li>
</ul></div></body></html>`

func TestDocument_Desktop(t *testing.T) {
	doc, err := Parse("https://www.mangago.me/read-manga/x/mf/v01/c001/", desktopPage)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	script, err := doc.ScriptURL()
	if err != nil {
		t.Fatalf("ScriptURL: %v", err)
	}
	if want := "https://www.mangago.me/r/l_manga/chapter.js?v=2"; script != want {
		t.Errorf("ScriptURL = %q, want %q", script, want)
	}
	payload, err := doc.Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if payload != "QUJDRA==" {
		t.Errorf("Payload = %q", payload)
	}
	if _, ok := doc.MobilePageCount(); ok {
		t.Error("desktop page reported as mobile")
	}
}

func TestDocument_Mobile(t *testing.T) {
	doc, err := Parse("https://m.mangago.me/read-manga/x/mf/v01/c001/pg-1/", mobilePage)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n, ok := doc.MobilePageCount()
	if !ok || n != 7 {
		t.Errorf("MobilePageCount = %d, %v; want 7, true", n, ok)
	}
	payload, err := doc.Payload()
	if err != nil || payload != "Zm9vYmFy" {
		t.Errorf("Payload = %q, %v", payload, err)
	}
	script, _ := doc.ScriptURL()
	if script != "https://js.mangago.me/chapter.js" {
		t.Errorf("ScriptURL = %q", script)
	}
}

func TestDocument_Missing(t *testing.T) {
	doc, err := Parse("https://www.mangago.me/c/", "<html><script>var other = 1;</script></html>")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := doc.ScriptURL(); !errs.IsScriptNotFound(err) {
		t.Errorf("ScriptURL err = %v, want SCRIPT_NOT_FOUND", err)
	}
	if _, err := doc.Payload(); !errs.IsPayloadNotFound(err) {
		t.Errorf("Payload err = %v, want PAYLOAD_NOT_FOUND", err)
	}
	if doc.HasPayload() {
		t.Error("HasPayload = true")
	}
}

func TestBatchURL(t *testing.T) {
	tests := []struct {
		in    string
		start int
		want  string
	}{
		{"https://m.mangago.me/read-manga/x/mf/c001/pg-1/", 6, "https://m.mangago.me/read-manga/x/mf/c001/pg-6/"},
		{"https://m.mangago.me/read-manga/x/mf/c001/pg-1", 11, "https://m.mangago.me/read-manga/x/mf/c001/pg-11/"},
		{"https://m.mangago.me/read-manga/x/mf/c001/1/", 6, "https://m.mangago.me/read-manga/x/mf/c001/6/"},
		{"https://m.mangago.me/read-manga/x/uu/br/1234567/", 6, "https://m.mangago.me/read-manga/x/uu/br/1234567/6/"},
		{"https://m.mangago.me/read-manga/x/mf/c001/", 1, "https://m.mangago.me/read-manga/x/mf/c001/1/"},
		{"pg-1", 6, "pg-1/6/"},
		{"12", 6, "12/6/"},
		{"", 1, "/1/"},
	}
	for _, tt := range tests {
		if got := BatchURL(tt.in, tt.start); got != tt.want {
			t.Errorf("BatchURL(%q, %d) = %q, want %q", tt.in, tt.start, got, tt.want)
		}
	}
}

func TestRewriteInsecureHost(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://iweb_7.mangapicgallery.com/r/a.jpg", "http://iweb_7.mangapicgallery.com/r/a.jpg"},
		{"https://host.com/_x/a.jpg", "http://host.com/_x/a.jpg"},
		{"https://host.com/x/a.jpg", "https://host.com/x/a.jpg"},
		{"http://host.com/_x/a.jpg", "http://host.com/_x/a.jpg"},
	}
	for _, tt := range tests {
		if got := RewriteInsecureHost(tt.in); got != tt.want {
			t.Errorf("RewriteInsecureHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReader_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, desktopPage)
	}))
	defer srv.Close()

	r := New(client.New())
	doc, err := r.Fetch(context.Background(), srv.URL+"/read-manga/x/c001/")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	script, err := doc.ScriptURL()
	if err != nil {
		t.Fatalf("ScriptURL: %v", err)
	}
	if want := srv.URL + "/r/l_manga/chapter.js?v=2"; script != want {
		t.Errorf("ScriptURL = %q, want %q", script, want)
	}
}

func TestReader_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	r := New(client.New())
	if _, err := r.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404")
	}
}
