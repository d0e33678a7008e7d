// Command router fronts several Framez API instances discovered through DNS
// and forwards each request to a healthy one.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/theleywin/Framez-Backend/src/balancer"
	"github.com/theleywin/Framez-Backend/src/lib"
)

func main() {
	_ = godotenv.Load()
	cfg := lib.LoadRouterConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := balancer.NewPool(balancer.Config{
		ServiceName:    cfg.ServiceName,
		ServicePort:    cfg.ServicePort,
		HealthPath:     cfg.HealthPath,
		UpdateInterval: cfg.UpdateInterval,
		HealthInterval: cfg.HealthInterval,
	}, nil)
	pool.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newMux(pool),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	lib.LogJSON("info", "router listening", map[string]interface{}{
		"port":    cfg.Port,
		"service": cfg.ServiceName,
	})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lib.LogJSON("error", "router stopped", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func newMux(pool *balancer.Pool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/router/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, pool.Status())
	})
	mux.HandleFunc("/router/health", func(w http.ResponseWriter, r *http.Request) {
		st := pool.Status()
		code := http.StatusOK
		if st.Healthy == 0 {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]interface{}{"healthy": st.Healthy, "total": st.Total})
	})
	mux.Handle("/", pool)
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
