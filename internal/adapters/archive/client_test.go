package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/ports"
)

const dayPath = "/files/CE04OSBP/LJ01C/11-HYDBBA105/2025/01/16/"

const indexPage = `<!DOCTYPE HTML PUBLIC "-//W3C//DTD HTML 3.2 Final//EN">
<html><head><title>Index of %[1]s</title></head><body>
<h1>Index of %[1]s</h1>
<table>
<tr><th><a href="?C=N;O=D">Name</a></th><th><a href="?C=M;O=A">Last modified</a></th></tr>
<tr><td><a href="/files/CE04OSBP/LJ01C/11-HYDBBA105/2025/01/">Parent Directory</a></td></tr>
<tr><td><a href="OO-HYEA2--YDH-2025-01-16T00:05:00.000000.mseed">OO-HYEA2--YDH-2025-01-16T00:05:00.000000.mseed</a></td></tr>
<tr><td><a href="OO-HYEA2--YDH-2025-01-16T00:00:00.000000.mseed">OO-HYEA2--YDH-2025-01-16T00:00:00.000000.mseed</a></td></tr>
<tr><td><a href="OO-HYEA2--YDH-2025-01-16T00%%3A10%%3A00.000000.mseed">OO-HYEA2--YDH-2025-01-16T00:10:00.000000.mseed</a></td></tr>
<tr><td><a href="%[1]sOO-HYEA2--YDH-2025-01-16T00:00:00.000000.mseed">duplicate absolute link</a></td></tr>
<tr><td><a href="plots/">plots/</a></td></tr>
<tr><td><a href="../../17/other.mseed">elsewhere</a></td></tr>
<tr><td><a href="README.txt">README.txt</a></td></tr>
</table></body></html>`

func newArchiveServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	fails := 0
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+dayPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != dayPath {
			w.Header().Set("Content-Type", "application/octet-stream")
			fmt.Fprintf(w, "contents of %s", r.URL.Path)
			return
		}
		// the index page is flaky once
		if fails == 0 {
			fails++
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, indexPage, dayPath)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, &fails
}

func TestClient_List(t *testing.T) {
	ts, fails := newArchiveServer(t)
	client := NewClient(ts.Client(), Options{MaxRetries: 3, BaseBackoff: time.Millisecond})

	got, err := client.List(context.Background(), ts.URL+dayPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{
		ts.URL + dayPath + "OO-HYEA2--YDH-2025-01-16T00%3A10%3A00.000000.mseed",
		ts.URL + dayPath + "OO-HYEA2--YDH-2025-01-16T00:00:00.000000.mseed",
		ts.URL + dayPath + "OO-HYEA2--YDH-2025-01-16T00:05:00.000000.mseed",
		ts.URL + dayPath + "README.txt",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("links:\n got %v\nwant %v", got, want)
	}
	if *fails != 1 {
		t.Fatalf("expected the flaky listing to be retried")
	}
}

func TestClient_ListMissingDay(t *testing.T) {
	ts, _ := newArchiveServer(t)
	client := NewClient(ts.Client(), Options{MaxRetries: 2, BaseBackoff: time.Millisecond})

	_, err := client.List(context.Background(), ts.URL+"/files/CE04OSBP/LJ01C/11-HYDBBA105/2025/01/17/")
	if !errors.Is(err, ports.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
	var statusErr ports.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected a 404 StatusError, got %v", err)
	}
}

func TestClient_Fetch(t *testing.T) {
	ts, _ := newArchiveServer(t)
	client := NewClient(ts.Client(), Options{MaxRetries: 1})

	raw, err := client.Fetch(context.Background(), ts.URL+dayPath+"a.mseed")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(raw) != "contents of "+dayPath+"a.mseed" {
		t.Fatalf("body: got %q", raw)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Fetch(ctx, ts.URL+dayPath+"a.mseed"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
