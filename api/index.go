// Package api is the serverless entrypoint: the runtime is built lazily on
// the first request and reused for the life of the instance.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"orders-api/app"
	"orders-api/internal/config"
)

var (
	initOnce sync.Once
	runtime  *app.Runtime
	initErr  error
)

func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		var cfg config.Config
		cfg, initErr = config.Load()
		if initErr != nil {
			return
		}
		runtime, initErr = app.Build(cfg)
	})

	if initErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "application bootstrap failed"})
		return
	}

	runtime.Handler.ServeHTTP(w, r)
}
