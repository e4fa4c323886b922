package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/mealeark/education-cryptomoji/foundation/web"
)

func Test_ShutdownSignaling(t *testing.T) {
	t.Log("Given the need to shut down only on integrity errors, not on plain handler errors.")
	{
		shutdown := make(chan os.Signal, 1)
		app := web.NewApp(shutdown)

		app.Handle(http.MethodGet, "", "/plain", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return errors.New("client went away")
		})
		app.Handle(http.MethodGet, "", "/integrity", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return web.NewShutdownError("corrupted state")
		})

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))

		select {
		case <-shutdown:
			t.Errorf("\t✗\tShould not signal shutdown for a plain handler error.")
		default:
			t.Logf("\t✓\tShould not signal shutdown for a plain handler error.")
		}

		w = httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/integrity", nil))

		select {
		case <-shutdown:
			t.Logf("\t✓\tShould signal shutdown for an integrity error.")
		default:
			t.Errorf("\t✗\tShould signal shutdown for an integrity error.")
		}
	}
}

func Test_ValuesSeeded(t *testing.T) {
	shutdown := make(chan os.Signal, 1)
	app := web.NewApp(shutdown)

	var traceID string
	app.Handle(http.MethodGet, "v1", "/values", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v, err := web.GetValues(ctx)
		if err != nil {
			return err
		}
		traceID = v.TraceID
		return nil
	})

	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/values", nil))

	if traceID == "" {
		t.Fatalf("Should seed every request context with a trace id.")
	}
}
