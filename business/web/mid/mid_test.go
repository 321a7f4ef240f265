package mid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/lattice/business/web/errs"
	"github.com/ardanlabs/lattice/foundation/lattice/ledger"
	"github.com/ardanlabs/lattice/foundation/web"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

func newApp(origins ...string) *web.App {
	log := zap.NewNop().Sugar()

	app := web.NewApp(make(chan os.Signal, 1), Logger(log), Metrics(), Errors(log), Cors(origins...), Panics())

	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})
	app.Handle(http.MethodGet, "v1", "/missing", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return fmt.Errorf("lookup: %w", ledger.ErrBlockNotFound)
	})
	app.Handle(http.MethodGet, "v1", "/ok", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, "ok", http.StatusOK)
	})

	return app
}

func TestErrorsAndPanics(t *testing.T) {
	t.Log("Given the need to turn handler failures into responses.")
	{
		app := newApp()
		panics := testutil.ToFloat64(panicsTotal)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/panic", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("\t%s\tShould respond 500 to a panic: %d", failed, w.Code)
		}
		if got := testutil.ToFloat64(panicsTotal); got != panics+1 {
			t.Fatalf("\t%s\tShould count the panic: %v", failed, got)
		}
		t.Logf("\t%s\tShould recover panics as internal errors.", success)

		w = httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/missing", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("\t%s\tShould respond 404 to a missing block: %d", failed, w.Code)
		}

		var resp errs.Response
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("\t%s\tShould return an error document: %v", failed, err)
		}
		if resp.Error != "lookup: block not found" {
			t.Fatalf("\t%s\tShould return the error text, got %q.", failed, resp.Error)
		}
		if got := testutil.ToFloat64(requestsTotal.WithLabelValues(http.MethodGet, "404")); got < 1 {
			t.Fatalf("\t%s\tShould count the request by status code.", failed)
		}
		t.Logf("\t%s\tShould map ledger errors to their status codes.", success)
	}
}

func TestCors(t *testing.T) {
	t.Log("Given the need to allow listed browser origins.")
	{
		tt := []struct {
			name    string
			origins []string
			origin  string
			want    string
		}{
			{"wildcard", []string{"*"}, "http://wallet.local", "*"},
			{"listed", []string{"http://wallet.local"}, "http://wallet.local", "http://wallet.local"},
			{"unlisted", []string{"http://wallet.local"}, "http://evil.local", ""},
			{"none", nil, "http://wallet.local", ""},
		}

		for testID, tst := range tt {
			tf := func(t *testing.T) {
				r := httptest.NewRequest(http.MethodGet, "/v1/ok", nil)
				r.Header.Set("Origin", tst.origin)

				w := httptest.NewRecorder()
				newApp(tst.origins...).ServeHTTP(w, r)

				if got := w.Header().Get("Access-Control-Allow-Origin"); got != tst.want {
					t.Fatalf("\t%s\tTest %d:\tShould allow %q, got %q.", failed, testID, tst.want, got)
				}
				t.Logf("\t%s\tTest %d:\tShould allow %q.", success, testID, tst.want)
			}

			t.Run(tst.name, tf)
		}
	}
}

func TestThrottle(t *testing.T) {
	t.Log("Given the need to bound block submissions.")
	{
		var calls int
		handler := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			calls++
			return nil
		}

		for _, rate := range []int{0, 1000} {
			h := Throttle(rate)(handler)
			for range 3 {
				if err := h(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil)); err != nil {
					t.Fatalf("\t%s\tShould pass the request through at rate %d: %v", failed, rate, err)
				}
			}
		}

		if calls != 6 {
			t.Fatalf("\t%s\tShould call the handler for every request: %d", failed, calls)
		}
		t.Logf("\t%s\tShould call the handler for every request.", success)
	}
}
