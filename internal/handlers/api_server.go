// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/tabletop/internal/middleware"
)

// Routes mounts every table endpoint behind the logging middleware.
func Routes(s *TableServer) http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(s.Logger)

	mux.Handle("/table/create", logged(CreateTableHandler(s)))
	mux.Handle("/table/list", logged(ListTablesHandler(s)))
	mux.Handle("/table/timeline/", logged(TimelineHandler(s)))
	mux.Handle("/table/demo/", logged(DemoHandler(s)))
	mux.Handle("/table/close/", logged(CloseTableHandler(s)))
	mux.Handle("/table/ws/", logged(TableWSHandler(s)))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"tables": s.Store.Len(),
		})
	})
	return mux
}
